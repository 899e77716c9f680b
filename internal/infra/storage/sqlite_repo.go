package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event GameEvent) error {
	payloadBytes, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO events (id, seq, game_id, timestamp, event_type, actor_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.Seq, event.GameID, event.Timestamp.UTC(), event.EventType, event.ActorID,
		string(payloadBytes),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]GameEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []GameEvent
	for rows.Next() {
		var e GameEvent
		var payloadStr string
		err := rows.Scan(
			&e.ID, &e.Seq, &e.GameID, &e.Timestamp, &e.EventType, &e.ActorID, &payloadStr,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(payloadStr), &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

const sqliteEventColumns = `SELECT id, seq, game_id, timestamp, event_type, actor_id, payload FROM events`

func (r *SQLiteEventRepository) GetByGameID(ctx context.Context, gameID string) ([]GameEvent, error) {
	return r.getMany(ctx, sqliteEventColumns+` WHERE game_id = ? ORDER BY seq ASC`, gameID)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, gameID, actorID string) ([]GameEvent, error) {
	return r.getMany(ctx, sqliteEventColumns+` WHERE game_id = ? AND actor_id = ? ORDER BY seq ASC`, gameID, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, gameID string, eventType string) ([]GameEvent, error) {
	return r.getMany(ctx, sqliteEventColumns+` WHERE game_id = ? AND event_type = ? ORDER BY seq ASC`, gameID, eventType)
}

// ---------------------------------------------------------
// SQLiteResultRepository
// ---------------------------------------------------------

type SQLiteResultRepository struct {
	db *sql.DB
}

func NewSQLiteResultRepository(db *sql.DB) *SQLiteResultRepository {
	return &SQLiteResultRepository{db: db}
}

func (r *SQLiteResultRepository) Save(ctx context.Context, result GameResult) (bool, error) {
	query := `
		INSERT INTO game_results (id, game_id, player_name, difficulty, moves, duration_ms, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(game_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		result.ID, result.GameID, result.PlayerName, result.Difficulty,
		result.Moves, result.DurationMS, result.CompletedAt.UTC(),
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

func (r *SQLiteResultRepository) GetByGameID(ctx context.Context, gameID string) (*GameResult, error) {
	query := `SELECT id, game_id, player_name, difficulty, moves, duration_ms, completed_at FROM game_results WHERE game_id = ?`
	var g GameResult
	err := r.db.QueryRowContext(ctx, query, gameID).Scan(
		&g.ID, &g.GameID, &g.PlayerName, &g.Difficulty, &g.Moves, &g.DurationMS, &g.CompletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	return &g, nil
}

func (r *SQLiteResultRepository) Leaderboard(ctx context.Context, q LeaderboardQuery) ([]GameResult, error) {
	q = q.Normalize()
	query := `
		SELECT id, game_id, player_name, difficulty, moves, duration_ms, completed_at
		FROM game_results
		WHERE (? = '' OR difficulty = ?)
		ORDER BY moves ASC, duration_ms ASC, completed_at ASC, id ASC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, q.Difficulty, q.Difficulty, q.Limit)
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

var (
	_ EventRepository  = (*SQLiteEventRepository)(nil)
	_ ResultRepository = (*SQLiteResultRepository)(nil)
)
