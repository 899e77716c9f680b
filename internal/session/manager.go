package session

import (
	"math/rand"
	"sync"
	"time"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/engine"
	"github.com/mentesana/memoria/internal/events"
	"github.com/mentesana/memoria/internal/infra/storage"
	"github.com/mentesana/memoria/internal/platform/logger"
	"github.com/mentesana/memoria/internal/platform/metrics"
)

// Deps are the collaborators shared by every session.
type Deps struct {
	EventLog *events.EventLog
	Results  storage.ResultRepository // optional
	Metrics  *metrics.Collector
	Logger   *logger.Logger

	DefaultDifficulty deck.Difficulty
	RevealDelay       time.Duration

	// Test hooks; nil uses the runtime defaults.
	Scheduler engine.Scheduler
	Clock     func() time.Time
	NewRand   func() *rand.Rand
}

// Manager tracks the open sessions.
type Manager struct {
	deps Deps

	mu          sync.RWMutex
	sessions    map[string]*Session
	games       map[string][]string // session id -> game ids seen
	onCompleted []func(storage.GameResult)
}

// NewManager creates a session manager.
func NewManager(deps Deps) *Manager {
	if deps.EventLog == nil {
		deps.EventLog = events.NewEventLog(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Get()
	}
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	if !deps.DefaultDifficulty.Valid() {
		deps.DefaultDifficulty = deck.DifficultyEasy
	}
	if deps.RevealDelay <= 0 {
		deps.RevealDelay = engine.RevealDelay
	}
	if deps.NewRand == nil {
		var seedMu sync.Mutex
		seeder := rand.New(rand.NewSource(time.Now().UnixNano()))
		deps.NewRand = func() *rand.Rand {
			seedMu.Lock()
			defer seedMu.Unlock()
			return rand.New(rand.NewSource(seeder.Int63()))
		}
	}

	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
		games:    make(map[string][]string),
	}
}

// OnCompleted registers a hook called after a result has been recorded.
func (m *Manager) OnCompleted(fn func(storage.GameResult)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onCompleted = append(m.onCompleted, fn)
}

// Open creates a session for playerName and deals its first board with the
// default difficulty.
func (m *Manager) Open(playerName string, sink Sink) *Session {
	s := newSession(m, playerName, sink)

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	m.deps.Logger.Infof("Session %s opened for %s", s.ID, s.PlayerName)
	s.NewGame(m.deps.DefaultDifficulty)
	return s
}

// Get returns an open session.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Count returns the number of open sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close ends a session, cancels its pending resolution and drops its games
// from the in-memory log.
func (m *Manager) Close(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	games := m.games[id]
	delete(m.sessions, id)
	delete(m.games, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	s.close()
	for _, gameID := range games {
		m.deps.EventLog.Forget(gameID)
	}
	m.deps.Logger.Infof("Session %s closed", id)
}

// CloseAll ends every session.
func (m *Manager) CloseAll() {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		m.Close(id)
	}
}

func (m *Manager) trackGame(sessionID, gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, open := m.sessions[sessionID]; !open {
		return
	}
	ids := m.games[sessionID]
	if len(ids) > 0 && ids[len(ids)-1] == gameID {
		return
	}
	m.games[sessionID] = append(ids, gameID)
}

func (m *Manager) notifyCompleted(result storage.GameResult) {
	m.mu.RLock()
	hooks := make([]func(storage.GameResult), len(m.onCompleted))
	copy(hooks, m.onCompleted)
	m.mu.RUnlock()

	for _, fn := range hooks {
		fn(result)
	}
}
