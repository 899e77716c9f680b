// Package storage - reconstructor.go
// Rebuilds a game's outcome from the event ledger: state = f(events).
package storage

import (
	"context"
	"fmt"
)

// Reconstructor rebuilds game summaries from the event log. It backs the
// replay endpoint and lets results be audited against the ledger.
type Reconstructor struct {
	eventRepo EventRepository
}

// NewReconstructor creates a new state reconstructor.
func NewReconstructor(eventRepo EventRepository) *Reconstructor {
	return &Reconstructor{eventRepo: eventRepo}
}

// RebuiltGame is the outcome of a game derived purely from its events.
type RebuiltGame struct {
	GameID       string `json:"game_id"`
	Difficulty   string `json:"difficulty"`
	Pairs        int    `json:"pairs"`
	Flips        int    `json:"flips"`
	Moves        int    `json:"moves"`
	Matches      int    `json:"matches"`
	Mismatches   int    `json:"mismatches"`
	Stale        int    `json:"stale_resolutions"`
	Completed    bool   `json:"completed"`
	DurationMS   int64  `json:"duration_ms,omitempty"`
	MatchedCards []int  `json:"matched_cards"`
}

// RecapEvent is a simplified, human readable event for replay screens.
type RecapEvent struct {
	Seq       uint64 `json:"seq"`
	Timestamp string `json:"timestamp"`
	EventType string `json:"event_type"`
	ActorID   string `json:"actor_id"`
	Summary   string `json:"summary"`
	Impact    string `json:"impact"` // "POSITIVE", "NEGATIVE", "NEUTRAL"
}

// Rebuild reconstructs a game's outcome. It returns nil if the ledger holds no
// events for gameID.
func (r *Reconstructor) Rebuild(ctx context.Context, gameID string) (*RebuiltGame, error) {
	evs, err := r.eventRepo.GetByGameID(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get game events: %w", err)
	}
	if len(evs) == 0 {
		return nil, nil
	}

	state := &RebuiltGame{GameID: gameID, MatchedCards: []int{}}
	for _, e := range evs {
		r.applyEventToState(state, e)
	}
	return state, nil
}

// GenerateRecap lists the events of a game, optionally restricted to one
// actor, with a one-line summary each.
func (r *Reconstructor) GenerateRecap(ctx context.Context, gameID, actorID string) ([]RecapEvent, error) {
	var (
		evs []GameEvent
		err error
	)
	if actorID != "" {
		evs, err = r.eventRepo.GetByActorID(ctx, gameID, actorID)
	} else {
		evs, err = r.eventRepo.GetByGameID(ctx, gameID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game events: %w", err)
	}

	recap := make([]RecapEvent, 0, len(evs))
	for _, e := range evs {
		recap = append(recap, RecapEvent{
			Seq:       e.Seq,
			Timestamp: e.Timestamp.Format("15:04:05.000"),
			EventType: e.EventType,
			ActorID:   e.ActorID,
			Summary:   r.summarizeEvent(e),
			Impact:    r.determineImpact(e),
		})
	}
	return recap, nil
}

// applyEventToState modifies state based on event type.
func (r *Reconstructor) applyEventToState(state *RebuiltGame, e GameEvent) {
	switch e.EventType {
	case "GAME_INITIALIZED":
		state.Difficulty = stringField(e.Payload, "difficulty")
		state.Pairs = intField(e.Payload, "pairs")
	case "CARD_FLIPPED":
		state.Flips++
	case "PAIR_SELECTED":
		state.Moves = intField(e.Payload, "moves")
	case "PAIR_MATCHED":
		state.Matches++
		state.MatchedCards = append(state.MatchedCards, intField(e.Payload, "first"), intField(e.Payload, "second"))
	case "PAIR_MISMATCHED":
		state.Mismatches++
	case "STALE_RESOLUTION":
		state.Stale++
	case "GAME_COMPLETED":
		state.Completed = true
		state.DurationMS = int64(intField(e.Payload, "duration_ms"))
	}
}

func (r *Reconstructor) summarizeEvent(e GameEvent) string {
	switch e.EventType {
	case "GAME_INITIALIZED":
		return fmt.Sprintf("New %s board with %d pairs", stringField(e.Payload, "difficulty"), intField(e.Payload, "pairs"))
	case "CARD_FLIPPED":
		return fmt.Sprintf("Flipped card %d (%s)", intField(e.Payload, "card_id"), stringField(e.Payload, "symbol"))
	case "PAIR_SELECTED":
		return fmt.Sprintf("Selected cards %d and %d, move %d", intField(e.Payload, "first"), intField(e.Payload, "second"), intField(e.Payload, "moves"))
	case "PAIR_MATCHED":
		return fmt.Sprintf("Cards %d and %d match", intField(e.Payload, "first"), intField(e.Payload, "second"))
	case "PAIR_MISMATCHED":
		return fmt.Sprintf("Cards %d and %d do not match", intField(e.Payload, "first"), intField(e.Payload, "second"))
	case "STALE_RESOLUTION":
		return "Resolution discarded, board was replaced"
	case "GAME_COMPLETED":
		return fmt.Sprintf("Completed in %s with %d moves", stringField(e.Payload, "elapsed"), intField(e.Payload, "moves"))
	default:
		return e.EventType
	}
}

func (r *Reconstructor) determineImpact(e GameEvent) string {
	switch e.EventType {
	case "PAIR_MATCHED", "GAME_COMPLETED":
		return "POSITIVE"
	case "PAIR_MISMATCHED":
		return "NEGATIVE"
	default:
		return "NEUTRAL"
	}
}

// JSON numbers decode as float64.
func intField(payload map[string]interface{}, key string) int {
	if v, ok := payload[key].(float64); ok {
		return int(v)
	}
	return 0
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}
