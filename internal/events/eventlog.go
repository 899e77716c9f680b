// Package events provides the append-only ledger of game actions.
// Every accepted flip, resolution and initialization is recorded so a game can
// be replayed after the fact.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of a game event.
type EventType string

const (
	EventTypeGameInitialized EventType = "GAME_INITIALIZED"
	EventTypeCardFlipped     EventType = "CARD_FLIPPED"
	EventTypePairSelected    EventType = "PAIR_SELECTED"
	EventTypePairMatched     EventType = "PAIR_MATCHED"
	EventTypePairMismatched  EventType = "PAIR_MISMATCHED"
	EventTypeGameCompleted   EventType = "GAME_COMPLETED"
	EventTypeStaleResolution EventType = "STALE_RESOLUTION"
)

// GameEvent represents an immutable record of an action in a game.
type GameEvent struct {
	ID        string      `json:"id"`
	Seq       uint64      `json:"seq"` // position in the log, assigned on append
	GameID    string      `json:"game_id"`
	Timestamp time.Time   `json:"timestamp"`
	Type      EventType   `json:"type"`
	ActorID   string      `json:"actor_id"` // player that caused it, or SYSTEM for deferred transitions
	Payload   interface{} `json:"payload"`
}

// ActorSystem marks events emitted by scheduled transitions.
const ActorSystem = "SYSTEM"

// EventPersister defines how an event is durably stored.
type EventPersister interface {
	Append(event GameEvent) error
}

// EventLog is the in-memory append-only log of game events with an optional
// write-through persister.
type EventLog struct {
	mu        sync.RWMutex
	events    []GameEvent
	persister EventPersister
	onError   func(GameEvent, error)
	nextSeq   uint64

	inflight int        // write-throughs still running
	idle     *sync.Cond // broadcast when inflight drops to zero
	closed   bool
}

// NewEventLog creates a new event log with an optional persister.
func NewEventLog(persister EventPersister) *EventLog {
	el := &EventLog{
		events:    make([]GameEvent, 0),
		persister: persister,
	}
	el.idle = sync.NewCond(&el.mu)
	return el
}

// OnPersistError registers a callback for failed write-throughs.
func (el *EventLog) OnPersistError(fn func(GameEvent, error)) {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.onError = fn
}

// Append adds a new event to the log. Missing IDs and timestamps are filled in
// and the event receives the next sequence number. Write-throughs run
// concurrently, so persisters must order by Seq rather than arrival. After
// Close the event is only kept in memory.
func (el *EventLog) Append(event GameEvent) GameEvent {
	if event.ID == "" {
		event.ID = GenerateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	el.mu.Lock()
	el.nextSeq++
	event.Seq = el.nextSeq
	el.events = append(el.events, event)
	persister, onError := el.persister, el.onError
	persist := persister != nil && !el.closed
	if persist {
		el.inflight++
	}
	el.mu.Unlock()

	if persist {
		go func(e GameEvent) {
			defer el.persisted()
			if err := persister.Append(e); err != nil && onError != nil {
				onError(e, err)
			}
		}(event)
	}
	return event
}

func (el *EventLog) persisted() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.inflight--
	if el.inflight == 0 {
		el.idle.Broadcast()
	}
}

// Flush blocks until no write-through is running.
func (el *EventLog) Flush() {
	el.mu.Lock()
	defer el.mu.Unlock()
	for el.inflight > 0 {
		el.idle.Wait()
	}
}

// Close stops write-throughs for later appends and waits for the running
// ones to finish.
func (el *EventLog) Close() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.closed = true
	for el.inflight > 0 {
		el.idle.Wait()
	}
}

// GetByGame returns all events of one game in append order.
func (el *EventLog) GetByGame(gameID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.GameID == gameID {
			result = append(result, e)
		}
	}
	return result
}

// GetByActor returns all events performed by a specific actor.
func (el *EventLog) GetByActor(actorID string) []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()

	var result []GameEvent
	for _, e := range el.events {
		if e.ActorID == actorID {
			result = append(result, e)
		}
	}
	return result
}

// Forget drops the in-memory events of a finished game. Persisted copies are
// not affected.
func (el *EventLog) Forget(gameID string) {
	el.mu.Lock()
	defer el.mu.Unlock()

	kept := el.events[:0]
	for _, e := range el.events {
		if e.GameID != gameID {
			kept = append(kept, e)
		}
	}
	for i := len(kept); i < len(el.events); i++ {
		el.events[i] = GameEvent{}
	}
	el.events = kept
}

// Replay returns a copy of the full history.
func (el *EventLog) Replay() []GameEvent {
	el.mu.RLock()
	defer el.mu.RUnlock()
	out := make([]GameEvent, len(el.events))
	copy(out, el.events)
	return out
}

// Len returns the number of events held in memory.
func (el *EventLog) Len() int {
	el.mu.RLock()
	defer el.mu.RUnlock()
	return len(el.events)
}

// GenerateEventID creates a unique event identifier.
func GenerateEventID() string {
	return uuid.NewString()
}
