package engine

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/events"
)

// Stats are the counters of the current board.
type Stats struct {
	Moves     int        `json:"moves"`   // completed two-card selections
	Matches   int        `json:"matches"` // resolved pairs
	StartTime time.Time  `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
}

// Listener is notified after every accepted state change. It runs outside the
// game lock and may call back into the Game. Calls for one Game never overlap
// and arrive in transition order; an event may be delivered by the goroutine
// of a later transition.
type Listener func(events.GameEvent)

// Option configures a Game.
type Option func(*Game)

// WithScheduler replaces the runtime timer scheduler.
func WithScheduler(s Scheduler) Option {
	return func(g *Game) { g.scheduler = s }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Game) { g.now = now }
}

// WithRand sets the random source used for shuffling.
func WithRand(r *rand.Rand) Option {
	return func(g *Game) { g.rand = r }
}

// WithRevealDelay overrides RevealDelay.
func WithRevealDelay(d time.Duration) Option {
	return func(g *Game) { g.delay = d }
}

// WithListener registers a state change listener.
func WithListener(l Listener) Option {
	return func(g *Game) { g.listener = l }
}

// WithActor sets the actor recorded on player driven events.
func WithActor(actorID string) Option {
	return func(g *Game) { g.actor = actorID }
}

// WithIDGenerator replaces the game ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(g *Game) { g.newID = gen }
}

// Game is one Memory Match instance. It is safe for concurrent use.
type Game struct {
	mu sync.Mutex

	id         string
	settings   deck.Settings
	cards      []deck.Card
	pending    []int // ids awaiting resolution, at most 2
	stats      Stats
	started    bool
	complete   bool
	generation uint64 // bumped on every initialization; guards stale resolutions
	timer      Timer

	outbox     []events.GameEvent // queued under mu in transition order
	delivering bool

	scheduler Scheduler
	now       func() time.Time
	rand      *rand.Rand
	delay     time.Duration
	listener  Listener
	actor     string
	newID     func() string
}

// NewGame creates a game that has not been initialized yet. Call Initialize
// to deal the first board.
func NewGame(opts ...Option) *Game {
	g := &Game{
		settings:  deck.DifficultyEasy.Settings(),
		scheduler: RuntimeScheduler{},
		now:       time.Now,
		delay:     RevealDelay,
		actor:     "PLAYER",
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rand == nil {
		g.rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return g
}

// Initialize deals a fresh shuffled board for d, resets the stats and
// supersedes any pending resolution of the previous board. Unknown
// difficulties fall back to easy.
func (g *Game) Initialize(d deck.Difficulty) {
	g.mu.Lock()

	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.generation++

	g.id = g.newID()
	g.settings = d.Settings()
	g.cards = deck.New(g.settings, g.rand)
	g.pending = g.pending[:0]
	g.stats = Stats{StartTime: g.now()}
	g.started = true
	g.complete = false

	ev := g.event(events.EventTypeGameInitialized, g.actor, events.InitializedPayload{
		Difficulty: string(g.settings.Difficulty),
		Pairs:      g.settings.Pairs,
		Generation: g.generation,
	})
	g.outbox = append(g.outbox, ev)
	g.mu.Unlock()

	g.deliver()
}

// Restart deals a new board with the current difficulty.
func (g *Game) Restart() {
	g.mu.Lock()
	d := g.settings.Difficulty
	g.mu.Unlock()
	g.Initialize(d)
}

// Flip turns a face-down card face up. Flips of unknown, flipped or matched
// cards, flips while a pair is awaiting resolution and flips after completion
// are ignored. The return value reports whether the flip was accepted.
func (g *Game) Flip(cardID int) bool {
	g.mu.Lock()

	if !g.started || g.complete {
		g.mu.Unlock()
		return false
	}
	if cardID < 0 || cardID >= len(g.cards) {
		g.mu.Unlock()
		return false
	}
	card := &g.cards[cardID]
	if card.IsFlipped || card.IsMatched || len(g.pending) >= 2 {
		g.mu.Unlock()
		return false
	}

	card.IsFlipped = true
	g.pending = append(g.pending, cardID)

	g.outbox = append(g.outbox,
		g.event(events.EventTypeCardFlipped, g.actor, events.FlipPayload{CardID: cardID, Symbol: card.Symbol}))

	if len(g.pending) == 2 {
		// Moves are counted when the pair is selected, before the outcome is known.
		g.stats.Moves++
		first, second := g.pending[0], g.pending[1]
		gen, gameID := g.generation, g.id
		g.timer = g.scheduler.AfterFunc(g.delay, func() {
			g.resolve(gen, gameID, first, second)
		})
		g.outbox = append(g.outbox, g.event(events.EventTypePairSelected, g.actor, g.pairPayload(first, second)))
	}
	g.mu.Unlock()

	g.deliver()
	return true
}

// resolve settles a selected pair once the reveal delay has passed.
func (g *Game) resolve(gen uint64, gameID string, first, second int) {
	g.mu.Lock()

	if gen != g.generation {
		g.outbox = append(g.outbox, events.GameEvent{
			GameID:    gameID,
			Timestamp: g.now(),
			Type:      events.EventTypeStaleResolution,
			ActorID:   events.ActorSystem,
			Payload:   events.PairPayload{First: first, Second: second, Generation: gen},
		})
		g.mu.Unlock()
		g.deliver()
		return
	}
	g.timer = nil

	a, b := &g.cards[first], &g.cards[second]

	if a.Symbol == b.Symbol {
		a.IsMatched = true
		b.IsMatched = true
		g.stats.Matches++
		g.outbox = append(g.outbox, g.event(events.EventTypePairMatched, events.ActorSystem, g.pairPayload(first, second)))

		if g.stats.Matches == g.settings.Pairs {
			end := g.now()
			g.stats.EndTime = &end
			g.complete = true
			duration := end.Sub(g.stats.StartTime)
			g.outbox = append(g.outbox, g.event(events.EventTypeGameCompleted, events.ActorSystem, events.CompletedPayload{
				Difficulty: string(g.settings.Difficulty),
				Moves:      g.stats.Moves,
				DurationMS: duration.Milliseconds(),
				Elapsed:    FormatElapsed(duration),
			}))
		}
	} else {
		a.IsFlipped = false
		b.IsFlipped = false
		g.outbox = append(g.outbox, g.event(events.EventTypePairMismatched, events.ActorSystem, g.pairPayload(first, second)))
	}
	g.pending = g.pending[:0]
	g.mu.Unlock()

	g.deliver()
}

// Close cancels the pending resolution, if any, and stops accepting flips
// until the game is initialized again.
func (g *Game) Close() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.generation++
	for _, id := range g.pending {
		g.cards[id].IsFlipped = false
	}
	g.pending = g.pending[:0]
	g.started = false
}

// ElapsedTime returns the M:SS time since the board was dealt, frozen at the
// completion time once the game is complete. It returns 0:00 before the first
// initialization.
func (g *Game) ElapsedTime() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.elapsedLocked()
}

func (g *Game) elapsedLocked() string {
	if !g.started {
		return "0:00"
	}
	end := g.now()
	if g.stats.EndTime != nil {
		end = *g.stats.EndTime
	}
	return FormatElapsed(end.Sub(g.stats.StartTime))
}

// ID returns the identifier of the current board.
func (g *Game) ID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

// Complete reports whether every pair of the current board has been found.
func (g *Game) Complete() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.complete
}

// Snapshot returns a copy of the full game state.
func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	cards := make([]deck.Card, len(g.cards))
	copy(cards, g.cards)
	pending := make([]int, len(g.pending))
	copy(pending, g.pending)

	stats := g.stats
	if stats.EndTime != nil {
		end := *stats.EndTime
		stats.EndTime = &end
	}

	return Snapshot{
		GameID:   g.id,
		Settings: g.settings,
		Cards:    cards,
		Pending:  pending,
		Stats:    stats,
		Started:  g.started,
		Complete: g.complete,
		Elapsed:  g.elapsedLocked(),
	}
}

func (g *Game) pairPayload(first, second int) events.PairPayload {
	return events.PairPayload{
		First:      first,
		Second:     second,
		Moves:      g.stats.Moves,
		Matches:    g.stats.Matches,
		Generation: g.generation,
	}
}

// event must be called with the lock held.
func (g *Game) event(t events.EventType, actor string, payload interface{}) events.GameEvent {
	return events.GameEvent{
		GameID:    g.id,
		Timestamp: g.now(),
		Type:      t,
		ActorID:   actor,
		Payload:   payload,
	}
}

// deliver hands queued events to the listener. Only one goroutine delivers at
// a time; the others leave their events to it and return.
func (g *Game) deliver() {
	g.mu.Lock()
	if g.delivering {
		g.mu.Unlock()
		return
	}
	g.delivering = true
	for len(g.outbox) > 0 {
		batch := g.outbox
		g.outbox = nil
		g.mu.Unlock()

		if g.listener != nil {
			for _, ev := range batch {
				g.listener(ev)
			}
		}

		g.mu.Lock()
	}
	g.delivering = false
	g.mu.Unlock()
}
