package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mentesana/memoria/internal/events"
)

// EventPersister adapts an EventRepository to the event log's write-through
// hook.
type EventPersister struct {
	repo    EventRepository
	timeout time.Duration
}

// NewEventPersister wraps repo. Each write is bounded by timeout.
func NewEventPersister(repo EventRepository, timeout time.Duration) *EventPersister {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventPersister{repo: repo, timeout: timeout}
}

// Append implements events.EventPersister.
func (p *EventPersister) Append(e events.GameEvent) error {
	row, err := FromDomainEvent(e)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.repo.Append(ctx, row)
}

// FromDomainEvent converts a log event into its storage row, flattening the
// typed payload into a JSON object.
func FromDomainEvent(e events.GameEvent) (GameEvent, error) {
	row := GameEvent{
		ID:        e.ID,
		Seq:       e.Seq,
		GameID:    e.GameID,
		Timestamp: e.Timestamp,
		EventType: string(e.Type),
		ActorID:   e.ActorID,
		Payload:   map[string]interface{}{},
	}
	if e.Payload == nil {
		return row, nil
	}

	data, err := json.Marshal(e.Payload)
	if err != nil {
		return GameEvent{}, fmt.Errorf("failed to marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &row.Payload); err != nil {
		return GameEvent{}, fmt.Errorf("payload of %s is not an object: %w", e.Type, err)
	}
	return row, nil
}

var _ events.EventPersister = (*EventPersister)(nil)
