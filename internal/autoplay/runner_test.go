package autoplay

import (
	"context"
	"testing"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/platform/logger"
)

func TestStrategiesSolveEveryDifficulty(t *testing.T) {
	for _, d := range deck.Ordered {
		for _, s := range []Strategy{StrategyPerfect, StrategyMemory, StrategyRandom} {
			runs := NewRunner(d, s, 11, logger.NewNopLogger()).Play(context.Background(), 5)
			if len(runs) != 5 {
				t.Fatalf("%s/%s: expected 5 runs, got %d", d, s, len(runs))
			}
			for _, r := range runs {
				if !r.Passed {
					t.Errorf("%s/%s: game %s failed: %s", d, s, r.GameID, r.Reason)
				}
			}
		}
	}
}

func TestPerfectPlayUsesOneMovePerPair(t *testing.T) {
	runs := NewRunner(deck.DifficultyHard, StrategyPerfect, 3, logger.NewNopLogger()).Play(context.Background(), 3)

	for _, r := range runs {
		if r.Moves != 12 || r.Flips != 24 {
			t.Errorf("game %s: moves=%d flips=%d, want 12/24", r.GameID, r.Moves, r.Flips)
		}
	}
}

func TestMemoryBeatsRandom(t *testing.T) {
	ctx := context.Background()
	memory := Summarize(NewRunner(deck.DifficultyMedium, StrategyMemory, 5, logger.NewNopLogger()).Play(ctx, 30))
	random := Summarize(NewRunner(deck.DifficultyMedium, StrategyRandom, 5, logger.NewNopLogger()).Play(ctx, 30))

	if memory.AverageMoves >= random.AverageMoves {
		t.Errorf("memory averaged %.1f moves, random %.1f", memory.AverageMoves, random.AverageMoves)
	}
	// Remembering every symbol needs at most two moves per pair.
	if memory.WorstMoves > 16 {
		t.Errorf("memory worst case %d moves", memory.WorstMoves)
	}
}

func TestPlayStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runs := NewRunner(deck.DifficultyEasy, StrategyPerfect, 1, logger.NewNopLogger()).Play(ctx, 10)
	if len(runs) != 0 {
		t.Errorf("expected no runs after cancellation, got %d", len(runs))
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]GameRun{
		{Moves: 6, Flips: 12, Passed: true, Duration: 10},
		{Moves: 10, Flips: 20, Passed: true, Duration: 30},
		{Moves: 3, Flips: 6, Passed: false},
	})

	if s.Games != 3 || s.Passed != 2 || s.Failed != 1 {
		t.Errorf("counts %+v", s)
	}
	if s.BestMoves != 6 || s.WorstMoves != 10 || s.AverageMoves != 8 {
		t.Errorf("moves %+v", s)
	}
	if s.TotalFlips != 38 || s.AverageTime != 20 {
		t.Errorf("flips/time %+v", s)
	}
}

func TestParseStrategy(t *testing.T) {
	if _, err := ParseStrategy("memory"); err != nil {
		t.Errorf("memory should parse: %v", err)
	}
	if _, err := ParseStrategy("psychic"); err == nil {
		t.Errorf("expected error for unknown strategy")
	}
}
