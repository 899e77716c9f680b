// Package storage provides the persistence layer for the memory server.
// It implements the repository pattern so the engine stays free of I/O.
package storage

import (
	"context"
	"time"
)

// GameEvent mirrors events.GameEvent for persistence. Payloads are stored as
// JSON objects and come back as generic maps.
type GameEvent struct {
	ID        string                 `json:"id" db:"id"`
	Seq       uint64                 `json:"seq" db:"seq"`
	GameID    string                 `json:"game_id" db:"game_id"`
	Timestamp time.Time              `json:"timestamp" db:"timestamp"`
	EventType string                 `json:"event_type" db:"event_type"`
	ActorID   string                 `json:"actor_id" db:"actor_id"`
	Payload   map[string]interface{} `json:"payload" db:"payload"`
}

// EventRepository defines the interface for event persistence.
type EventRepository interface {
	// Append adds a new event to the immutable ledger.
	Append(ctx context.Context, event GameEvent) error

	// GetByGameID retrieves all events of a game in log order (for replay).
	GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error)

	// GetByActorID retrieves the events of a game caused by one actor.
	GetByActorID(ctx context.Context, gameID, actorID string) ([]GameEvent, error)

	// GetByEventType retrieves the events of a game with the given type.
	GetByEventType(ctx context.Context, gameID string, eventType string) ([]GameEvent, error)
}

// GameResult is the record of one completed game.
type GameResult struct {
	ID          string    `json:"id" db:"id"`
	GameID      string    `json:"game_id" db:"game_id"`
	PlayerName  string    `json:"player_name" db:"player_name"`
	Difficulty  string    `json:"difficulty" db:"difficulty"`
	Moves       int       `json:"moves" db:"moves"`
	DurationMS  int64     `json:"duration_ms" db:"duration_ms"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardQuery selects the results to rank. An empty Difficulty ranks all
// difficulties together.
type LeaderboardQuery struct {
	Difficulty string
	Limit      int
}

// Normalize clamps the limit into [1, MaxLeaderboardLimit], using the default
// when unset.
func (q LeaderboardQuery) Normalize() LeaderboardQuery {
	if q.Difficulty == "all" {
		q.Difficulty = ""
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLeaderboardLimit
	case q.Limit > MaxLeaderboardLimit:
		q.Limit = MaxLeaderboardLimit
	}
	return q
}

// ResultRepository defines the interface for completed game results.
type ResultRepository interface {
	// Save records a result. Saving a second result for the same game is a
	// no-op and reports false.
	Save(ctx context.Context, result GameResult) (bool, error)

	// GetByGameID returns the result of a game, or nil if it has none.
	GetByGameID(ctx context.Context, gameID string) (*GameResult, error)

	// Leaderboard ranks results by fewest moves, then shortest duration, then
	// earliest completion.
	Leaderboard(ctx context.Context, q LeaderboardQuery) ([]GameResult, error)
}
