package storage

import (
	"context"
	"testing"
	"time"

	"github.com/mentesana/memoria/internal/events"
)

func TestEventLogWritesThroughToSQLite(t *testing.T) {
	store := newTestStore(t)
	el := events.NewEventLog(NewEventPersister(store.Events, time.Second))

	el.Append(events.GameEvent{GameID: "G1", Type: events.EventTypeGameInitialized, ActorID: "ana",
		Payload: events.InitializedPayload{Difficulty: "easy", Pairs: 6, Generation: 1}})
	el.Append(events.GameEvent{GameID: "G1", Type: events.EventTypeCardFlipped, ActorID: "ana",
		Payload: events.FlipPayload{CardID: 4, Symbol: "🧠"}})
	el.Flush()

	got, err := store.Events.GetByGameID(context.Background(), "G1")
	if err != nil {
		t.Fatalf("GetByGameID: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 persisted events, got %d", len(got))
	}
	if got[0].EventType != "GAME_INITIALIZED" || got[1].EventType != "CARD_FLIPPED" {
		t.Errorf("unexpected order: %s, %s", got[0].EventType, got[1].EventType)
	}
	if got[1].Payload["symbol"] != "🧠" || got[1].Payload["card_id"] != 4.0 {
		t.Errorf("payload not flattened: %v", got[1].Payload)
	}
}

func TestFromDomainEventRejectsScalarPayload(t *testing.T) {
	_, err := FromDomainEvent(events.GameEvent{Type: events.EventTypeCardFlipped, Payload: 3})
	if err == nil {
		t.Errorf("expected error for non-object payload")
	}
}
