package cache

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/mentesana/memoria/internal/infra/storage"
	"github.com/mentesana/memoria/internal/platform/logger"
	"github.com/mentesana/memoria/internal/platform/metrics"
)

// CachedResultRepository is a read-through cache in front of a
// storage.ResultRepository. Cache failures are logged and fall through to
// storage.
type CachedResultRepository struct {
	repo    storage.ResultRepository
	cache   *LeaderboardCache
	metrics *metrics.Collector
	logger  *logger.Logger

	// Bumped on every stored result; a read-through that overlaps a bump
	// must not leave its ranking in the cache.
	generation atomic.Uint64
}

// NewCachedResultRepository wraps repo with c.
func NewCachedResultRepository(repo storage.ResultRepository, c *LeaderboardCache, m *metrics.Collector, log *logger.Logger) *CachedResultRepository {
	return &CachedResultRepository{repo: repo, cache: c, metrics: m, logger: log}
}

// Save stores the result and invalidates the affected rankings.
func (r *CachedResultRepository) Save(ctx context.Context, result storage.GameResult) (bool, error) {
	saved, err := r.repo.Save(ctx, result)
	if err != nil || !saved {
		return saved, err
	}
	r.generation.Add(1)
	if err := r.cache.Invalidate(ctx, result.Difficulty); err != nil {
		r.logger.Warnf("Failed to invalidate leaderboard cache for %s: %v", result.Difficulty, err)
	}
	return true, nil
}

// GetByGameID is not cached.
func (r *CachedResultRepository) GetByGameID(ctx context.Context, gameID string) (*storage.GameResult, error) {
	return r.repo.GetByGameID(ctx, gameID)
}

// Leaderboard serves the ranking from the cache, loading the top
// MaxLeaderboardLimit results from storage on a miss.
func (r *CachedResultRepository) Leaderboard(ctx context.Context, q storage.LeaderboardQuery) ([]storage.GameResult, error) {
	q = q.Normalize()
	gen := r.generation.Load()

	results, err := r.cache.Get(ctx, q.Difficulty)
	switch {
	case err == nil:
		r.metrics.RecordCacheLookup(true)
		return head(results, q.Limit), nil
	case errors.Is(err, ErrMiss):
		r.metrics.RecordCacheLookup(false)
	default:
		r.metrics.RecordCacheLookup(false)
		r.logger.Warnf("Leaderboard cache read failed: %v", err)
	}

	results, err = r.repo.Leaderboard(ctx, storage.LeaderboardQuery{
		Difficulty: q.Difficulty,
		Limit:      storage.MaxLeaderboardLimit,
	})
	if err != nil {
		return nil, err
	}
	if r.generation.Load() != gen {
		// A result was stored while loading; this ranking may predate it.
		return head(results, q.Limit), nil
	}
	if err := r.cache.Set(ctx, q.Difficulty, results); err != nil {
		r.logger.Warnf("Leaderboard cache write failed: %v", err)
	}
	if r.generation.Load() != gen {
		if err := r.cache.Invalidate(ctx, q.Difficulty); err != nil {
			r.logger.Warnf("Failed to invalidate leaderboard cache for %s: %v", q.Difficulty, err)
		}
	}
	return head(results, q.Limit), nil
}

func head(results []storage.GameResult, n int) []storage.GameResult {
	if len(results) > n {
		return results[:n]
	}
	return results
}

var _ storage.ResultRepository = (*CachedResultRepository)(nil)
