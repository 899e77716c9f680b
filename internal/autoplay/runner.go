// Package autoplay drives headless games against the engine. It is used as a
// smoke test of the state machine and to compare solving strategies.
package autoplay

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/engine"
	"github.com/mentesana/memoria/internal/platform/logger"
)

// Strategy selects how the bot picks cards.
type Strategy string

const (
	// StrategyPerfect reads the hidden board and never misses.
	StrategyPerfect Strategy = "perfect"
	// StrategyMemory only uses what the player view reveals and remembers
	// every symbol it has seen.
	StrategyMemory Strategy = "memory"
	// StrategyRandom flips two random face-down cards every move.
	StrategyRandom Strategy = "random"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(name); s {
	case StrategyPerfect, StrategyMemory, StrategyRandom:
		return s, nil
	default:
		return "", fmt.Errorf("unknown strategy %q", name)
	}
}

const (
	// Simulated time a player spends choosing a card.
	thinkTime = 700 * time.Millisecond
	// Safety net for strategies that cannot finish.
	maxMovesPerCard = 50
)

// GameRun captures the outcome of one bot game.
type GameRun struct {
	GameID   string
	Moves    int
	Flips    int
	Elapsed  string
	Duration time.Duration
	Passed   bool
	Reason   string
}

// Runner plays games with one difficulty and strategy.
type Runner struct {
	difficulty deck.Difficulty
	strategy   Strategy
	rand       *rand.Rand
	logger     *logger.Logger
}

// NewRunner creates a runner. The seed makes boards and random choices
// reproducible.
func NewRunner(d deck.Difficulty, s Strategy, seed int64, log *logger.Logger) *Runner {
	return &Runner{
		difficulty: d,
		strategy:   s,
		rand:       rand.New(rand.NewSource(seed)),
		logger:     log,
	}
}

// Play runs n games and returns their outcomes. It stops early when ctx is
// cancelled.
func (r *Runner) Play(ctx context.Context, n int) []GameRun {
	runs := make([]GameRun, 0, n)
	for i := 0; i < n; i++ {
		select {
		case <-ctx.Done():
			r.logger.Warnf("Autoplay cancelled after %d games", i)
			return runs
		default:
		}
		run := r.playOne()
		if !run.Passed {
			r.logger.Errorf("Game %s failed: %s", run.GameID, run.Reason)
		} else {
			r.logger.Debugf("Game %s solved in %d moves (%s)", run.GameID, run.Moves, run.Elapsed)
		}
		runs = append(runs, run)
	}
	return runs
}

type virtualClock struct {
	now time.Time
}

func (c *virtualClock) Now() time.Time { return c.now }

func (c *virtualClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func (r *Runner) playOne() GameRun {
	sched := engine.NewManualScheduler()
	clock := &virtualClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	g := engine.NewGame(
		engine.WithScheduler(sched),
		engine.WithClock(clock.Now),
		engine.WithRand(rand.New(rand.NewSource(r.rand.Int63()))),
		engine.WithActor("BOT"),
	)
	g.Initialize(r.difficulty)

	run := GameRun{GameID: g.ID()}
	picker := r.newPicker(g)
	limit := g.Snapshot().Settings.Cards() * maxMovesPerCard

	for !g.Complete() {
		if run.Moves >= limit {
			run.Reason = fmt.Sprintf("not solved after %d moves", run.Moves)
			return run
		}
		for k := 0; k < 2; k++ {
			id := picker.next(g.Snapshot().View())
			clock.advance(thinkTime)
			if !g.Flip(id) {
				run.Reason = fmt.Sprintf("flip of card %d rejected", id)
				return run
			}
			run.Flips++
		}
		picker.observe(g.Snapshot().View())
		clock.advance(engine.RevealDelay)
		sched.Fire()
		run.Moves = g.Snapshot().Stats.Moves
	}

	snap := g.Snapshot()
	run.Elapsed = snap.Elapsed
	run.Duration = snap.Stats.EndTime.Sub(snap.Stats.StartTime)
	run.Reason = verify(snap, r.strategy)
	run.Passed = run.Reason == ""

	// Elapsed time must stay frozen once the board is cleared.
	clock.advance(time.Hour)
	if run.Passed && g.ElapsedTime() != run.Elapsed {
		run.Passed = false
		run.Reason = "elapsed time kept running after completion"
	}
	return run
}

// verify checks the end state of a solved board.
func verify(s engine.Snapshot, strategy Strategy) string {
	pairs := s.Settings.Pairs
	if s.Stats.Matches != pairs {
		return fmt.Sprintf("matches %d, want %d", s.Stats.Matches, pairs)
	}
	if s.Stats.EndTime == nil {
		return "end time not set"
	}
	for _, c := range s.Cards {
		if !c.IsMatched {
			return fmt.Sprintf("card %d not matched", c.ID)
		}
	}
	if s.Stats.Moves < pairs {
		return fmt.Sprintf("moves %d below pair count %d", s.Stats.Moves, pairs)
	}
	if strategy == StrategyPerfect && s.Stats.Moves != pairs {
		return fmt.Sprintf("perfect play took %d moves, want %d", s.Stats.Moves, pairs)
	}
	return ""
}
