// Package storage - postgres.go
// PostgreSQL implementations of EventRepository and ResultRepository.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver
)

// InitPostgres opens a PostgreSQL connection pool and creates the schemas.
func InitPostgres(dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	schemas := []string{
		`CREATE TABLE IF NOT EXISTS event_log (
			id TEXT PRIMARY KEY,
			seq BIGINT NOT NULL,
			game_id TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			actor_id TEXT NOT NULL,
			payload JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_event_log_game_id ON event_log(game_id, seq)`,
		`CREATE TABLE IF NOT EXISTS game_results (
			id TEXT PRIMARY KEY,
			game_id TEXT NOT NULL UNIQUE,
			player_name TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			moves INTEGER NOT NULL,
			duration_ms BIGINT NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_game_results_rank ON game_results(difficulty, moves, duration_ms, completed_at)`,
	}
	for _, query := range schemas {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schemas: %w", err)
		}
	}

	return db, nil
}

// PostgresEventRepository implements EventRepository using PostgreSQL.
type PostgresEventRepository struct {
	db *sql.DB
}

// NewPostgresEventRepository creates a new PostgreSQL event repository.
func NewPostgresEventRepository(db *sql.DB) *PostgresEventRepository {
	return &PostgresEventRepository{db: db}
}

// Append inserts a new event into the immutable ledger.
func (r *PostgresEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadJSON, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO event_log (id, seq, game_id, timestamp, event_type, actor_id, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		int64(event.Seq),
		event.GameID,
		event.Timestamp,
		event.EventType,
		event.ActorID,
		payloadJSON,
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	return nil
}

const postgresEventColumns = `
		SELECT id, seq, game_id, timestamp, event_type, actor_id, payload
		FROM event_log`

// GetByGameID retrieves all events of a game (the full replay).
func (r *PostgresEventRepository) GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error) {
	return r.queryEvents(ctx, postgresEventColumns+`
		WHERE game_id = $1
		ORDER BY seq ASC`, gameID)
}

// GetByActorID retrieves the events of a game caused by one actor.
func (r *PostgresEventRepository) GetByActorID(ctx context.Context, gameID, actorID string) ([]GameEvent, error) {
	return r.queryEvents(ctx, postgresEventColumns+`
		WHERE game_id = $1 AND actor_id = $2
		ORDER BY seq ASC`, gameID, actorID)
}

// GetByEventType retrieves all events of a specific type.
func (r *PostgresEventRepository) GetByEventType(ctx context.Context, gameID string, eventType string) ([]GameEvent, error) {
	return r.queryEvents(ctx, postgresEventColumns+`
		WHERE game_id = $1 AND event_type = $2
		ORDER BY seq ASC`, gameID, eventType)
}

// queryEvents is a helper to execute queries and scan results.
func (r *PostgresEventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var seq int64
		var payloadJSON []byte

		err := rows.Scan(
			&e.ID,
			&seq,
			&e.GameID,
			&e.Timestamp,
			&e.EventType,
			&e.ActorID,
			&payloadJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Seq = uint64(seq)

		if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}

		events = append(events, e)
	}

	return events, rows.Err()
}

// PostgresResultRepository implements ResultRepository using PostgreSQL.
type PostgresResultRepository struct {
	db *sql.DB
}

// NewPostgresResultRepository creates a new PostgreSQL result repository.
func NewPostgresResultRepository(db *sql.DB) *PostgresResultRepository {
	return &PostgresResultRepository{db: db}
}

// Save records a completed game once.
func (r *PostgresResultRepository) Save(ctx context.Context, result GameResult) (bool, error) {
	query := `
		INSERT INTO game_results (id, game_id, player_name, difficulty, moves, duration_ms, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (game_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		result.ID, result.GameID, result.PlayerName, result.Difficulty,
		result.Moves, result.DurationMS, result.CompletedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to save result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save result: %w", err)
	}
	return n == 1, nil
}

// GetByGameID returns the result of a game, or nil if it has none.
func (r *PostgresResultRepository) GetByGameID(ctx context.Context, gameID string) (*GameResult, error) {
	query := `
		SELECT id, game_id, player_name, difficulty, moves, duration_ms, completed_at
		FROM game_results
		WHERE game_id = $1
	`
	var g GameResult
	err := r.db.QueryRowContext(ctx, query, gameID).Scan(
		&g.ID, &g.GameID, &g.PlayerName, &g.Difficulty, &g.Moves, &g.DurationMS, &g.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &g, nil
}

// Leaderboard ranks the stored results.
func (r *PostgresResultRepository) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]GameResult, error) {
	q = q.Normalize()
	query := `
		SELECT id, game_id, player_name, difficulty, moves, duration_ms, completed_at
		FROM game_results
		WHERE ($1 = '' OR difficulty = $1)
		ORDER BY moves ASC, duration_ms ASC, completed_at ASC, id ASC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, q.Difficulty, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	results := make([]GameResult, 0, q.Limit)
	for rows.Next() {
		var g GameResult
		if err := rows.Scan(&g.ID, &g.GameID, &g.PlayerName, &g.Difficulty, &g.Moves, &g.DurationMS, &g.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, g)
	}

	return results, rows.Err()
}

// Ensure the Postgres repositories implement the storage interfaces
var (
	_ EventRepository  = (*PostgresEventRepository)(nil)
	_ ResultRepository = (*PostgresResultRepository)(nil)
)
