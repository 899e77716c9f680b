package session

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/engine"
	"github.com/mentesana/memoria/internal/events"
	"github.com/mentesana/memoria/internal/infra/storage"
	"github.com/mentesana/memoria/internal/platform/metrics"
)

type fakeSink struct {
	mu        sync.Mutex
	views     []engine.View
	completed []Completion
}

func (f *fakeSink) SendState(v engine.View) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.views = append(f.views, v)
}

func (f *fakeSink) SendCompleted(c Completion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, c)
}

// gatedSink holds the next view once armed until release is closed.
type gatedSink struct {
	fakeSink
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSink) SendState(v engine.View) {
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		<-g.release
	}
	g.fakeSink.SendState(v)
}

type failingResults struct {
	storage.ResultRepository
}

func (failingResults) Save(ctx context.Context, r storage.GameResult) (bool, error) {
	return false, errors.New("disk full")
}

type fixture struct {
	manager *Manager
	sched   *engine.ManualScheduler
	store   *storage.Store
	metrics *metrics.Collector
	log     *events.EventLog
}

func newFixture(t *testing.T, results func(*storage.Store) storage.ResultRepository) *fixture {
	t.Helper()
	store, err := storage.Open(storage.DriverSQLite, ":memory:", 0)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		sched:   engine.NewManualScheduler(),
		store:   store,
		metrics: metrics.New(),
		log:     events.NewEventLog(nil),
	}
	var repo storage.ResultRepository = store.Results
	if results != nil {
		repo = results(store)
	}
	var seed int64
	f.manager = NewManager(Deps{
		EventLog:  f.log,
		Results:   repo,
		Metrics:   f.metrics,
		Scheduler: f.sched,
		NewRand: func() *rand.Rand {
			seed++
			return rand.New(rand.NewSource(seed))
		},
	})
	return f
}

// solveBoard clears the current board of s using the hidden symbols.
func solveBoard(t *testing.T, s *Session, sched *engine.ManualScheduler) {
	t.Helper()
	cards := s.game.Snapshot().Cards
	bySymbol := make(map[string][]int)
	for _, c := range cards {
		bySymbol[c.Symbol] = append(bySymbol[c.Symbol], c.ID)
	}
	for _, ids := range bySymbol {
		if !s.Flip(ids[0]) || !s.Flip(ids[1]) {
			t.Fatalf("flip rejected while solving")
		}
		sched.Fire()
	}
}

func TestOpenDealsDefaultBoard(t *testing.T) {
	f := newFixture(t, nil)
	sink := &fakeSink{}

	s := f.manager.Open("  ana  ", sink)

	if s.PlayerName != "ana" {
		t.Errorf("player name %q", s.PlayerName)
	}
	if len(sink.views) != 1 {
		t.Fatalf("expected the initial view, got %d views", len(sink.views))
	}
	v := sink.views[0]
	if v.Settings.Difficulty != deck.DifficultyEasy || len(v.Cards) != 12 {
		t.Errorf("unexpected initial board: %s with %d cards", v.Settings.Difficulty, len(v.Cards))
	}
	if f.metrics.GamesStarted != 1 {
		t.Errorf("games started %d", f.metrics.GamesStarted)
	}
	if got, ok := f.manager.Get(s.ID); !ok || got != s {
		t.Errorf("session not registered")
	}
}

func TestCompletedGameRecordedOnce(t *testing.T) {
	f := newFixture(t, nil)
	sink := &fakeSink{}
	var hooked []storage.GameResult
	f.manager.OnCompleted(func(r storage.GameResult) { hooked = append(hooked, r) })

	s := f.manager.Open("ana", sink)
	gameID := s.GameID()
	solveBoard(t, s, f.sched)

	if len(sink.completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(sink.completed))
	}
	c := sink.completed[0]
	if c.Result.GameID != gameID || c.Result.Moves != 6 || c.Result.PlayerName != "ana" {
		t.Errorf("unexpected result: %+v", c.Result)
	}
	if !strings.HasPrefix(c.Message, "¡Excelente memoria! Completaste en") || !strings.HasSuffix(c.Message, "con 6 movimientos") {
		t.Errorf("message %q", c.Message)
	}

	stored, err := f.store.Results.GetByGameID(context.Background(), gameID)
	if err != nil || stored == nil {
		t.Fatalf("result not stored: %v", err)
	}
	if stored.Difficulty != "easy" || stored.Moves != 6 {
		t.Errorf("stored result %+v", stored)
	}
	if len(hooked) != 1 || hooked[0].GameID != gameID {
		t.Errorf("completion hook calls: %+v", hooked)
	}
	if f.metrics.GamesCompleted != 1 || f.metrics.ResultsWritten != 1 {
		t.Errorf("completed=%d written=%d", f.metrics.GamesCompleted, f.metrics.ResultsWritten)
	}

	last := sink.views[len(sink.views)-1]
	if !last.Complete {
		t.Errorf("last view should show the completed board")
	}
}

func TestResultWriteFailureStillCompletes(t *testing.T) {
	f := newFixture(t, func(s *storage.Store) storage.ResultRepository {
		return failingResults{s.Results}
	})
	sink := &fakeSink{}
	hooks := 0
	f.manager.OnCompleted(func(storage.GameResult) { hooks++ })

	s := f.manager.Open("ana", sink)
	solveBoard(t, s, f.sched)

	if len(sink.completed) != 1 {
		t.Errorf("player should still be told the game is complete")
	}
	if hooks != 0 {
		t.Errorf("leaderboard hook must not run for an unrecorded result")
	}
	if f.metrics.ResultWriteErrors != 1 {
		t.Errorf("write errors %d", f.metrics.ResultWriteErrors)
	}
}

func TestNewGameInvalidDifficultyKeepsCurrent(t *testing.T) {
	f := newFixture(t, nil)
	s := f.manager.Open("ana", nil)

	s.NewGame(deck.DifficultyHard)
	first := s.GameID()
	s.NewGame(deck.Difficulty("impossible"))

	v := s.View()
	if v.Settings.Difficulty != deck.DifficultyHard {
		t.Errorf("difficulty %s, want hard", v.Settings.Difficulty)
	}
	if s.GameID() == first {
		t.Errorf("a new board should have been dealt")
	}
}

func TestStaleResolutionIsCountedNotLogged(t *testing.T) {
	f := newFixture(t, nil)
	f.sched.IgnoreStop = true
	s := f.manager.Open("ana", nil)

	s.Flip(0)
	s.Flip(1)
	s.NewGame(deck.DifficultyMedium)
	before := f.log.Len()
	f.sched.Fire()

	if f.metrics.StaleResolutions != 1 {
		t.Errorf("stale resolutions %d", f.metrics.StaleResolutions)
	}
	if f.log.Len() != before {
		t.Errorf("stale resolution should not reach the ledger")
	}
	for _, c := range s.View().Cards {
		if c.Flipped || c.Matched {
			t.Errorf("new board mutated at card %d", c.ID)
		}
	}
}

func TestCloseForgetsGames(t *testing.T) {
	f := newFixture(t, nil)
	s := f.manager.Open("ana", nil)
	s.Flip(0)
	s.Flip(1)
	s.NewGame(deck.DifficultyMedium)

	if f.log.Len() == 0 {
		t.Fatalf("expected events in the log")
	}
	f.manager.Close(s.ID)

	if f.log.Len() != 0 {
		t.Errorf("closed session left %d events in memory", f.log.Len())
	}
	if f.sched.Pending() != 0 {
		t.Errorf("pending resolution survived close")
	}
	if f.manager.Count() != 0 {
		t.Errorf("session still registered")
	}
}

func TestFlipMetrics(t *testing.T) {
	f := newFixture(t, nil)
	s := f.manager.Open("ana", nil)

	s.Flip(0)
	s.Flip(0)
	s.Flip(99)

	if f.metrics.FlipsAccepted != 1 || f.metrics.FlipsIgnored != 2 {
		t.Errorf("accepted=%d ignored=%d", f.metrics.FlipsAccepted, f.metrics.FlipsIgnored)
	}
}

func TestNormalizePlayerName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", AnonymousPlayer},
		{"   ", AnonymousPlayer},
		{" Lucía ", "Lucía"},
		{strings.Repeat("ñ", 40), strings.Repeat("ñ", 32)},
	}
	for _, tt := range tests {
		if got := NormalizePlayerName(tt.in); got != tt.want {
			t.Errorf("NormalizePlayerName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLastViewMatchesBoardWhenResolutionAndFlipRace(t *testing.T) {
	f := newFixture(t, nil)
	sink := &gatedSink{entered: make(chan struct{}), release: make(chan struct{})}
	s := f.manager.Open("ana", sink)

	cards := s.game.Snapshot().Cards
	first, second, third := 0, -1, -1
	for _, c := range cards {
		if c.Symbol != cards[first].Symbol {
			second = c.ID
			break
		}
	}
	for _, c := range cards {
		if c.ID != first && c.ID != second {
			third = c.ID
			break
		}
	}
	s.Flip(first)
	s.Flip(second)

	// The mismatch view is held while the player flips the next card.
	sink.armed.Store(true)
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.sched.Fire()
	}()
	select {
	case <-sink.entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("mismatch view was never sent")
	}
	if !s.Flip(third) {
		t.Fatalf("flip after the mismatch was rejected")
	}
	close(sink.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("views were not delivered")
	}

	sink.mu.Lock()
	last := sink.views[len(sink.views)-1]
	sink.mu.Unlock()
	if c := last.Cards[third]; !c.Flipped || c.Symbol == engine.HiddenSymbol {
		t.Errorf("last view shows card %d face-down while the board has it face-up", third)
	}

	mismatchAt, flipAt := -1, -1
	for i, e := range f.log.GetByGame(s.GameID()) {
		switch e.Type {
		case events.EventTypePairMismatched:
			mismatchAt = i
		case events.EventTypeCardFlipped:
			if p, ok := e.Payload.(events.FlipPayload); ok && p.CardID == third {
				flipAt = i
			}
		}
	}
	if mismatchAt < 0 || flipAt < mismatchAt {
		t.Errorf("ledger has the flip of card %d at %d before the mismatch at %d", third, flipAt, mismatchAt)
	}
}
