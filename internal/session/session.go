// Package session binds Memory Match games to connected players. A session
// owns one engine instance, forwards its events to the ledger and metrics,
// pushes board views to the player and records the result when a board is
// cleared.
package session

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/engine"
	"github.com/mentesana/memoria/internal/events"
	"github.com/mentesana/memoria/internal/infra/storage"
)

const (
	// AnonymousPlayer is used when a player connects without a name.
	AnonymousPlayer = "Anónimo"
	maxNameLength   = 32

	resultWriteTimeout = 5 * time.Second
)

// Completion is delivered to the player when the board is cleared.
type Completion struct {
	Result  storage.GameResult `json:"result"`
	Elapsed string             `json:"elapsed"`
	Message string             `json:"message"`
}

// Sink receives the updates of one session. Calls may come from the timer
// goroutine that resolves pairs.
type Sink interface {
	SendState(v engine.View)
	SendCompleted(c Completion)
}

// Session is one player's connection to a game.
type Session struct {
	ID         string
	PlayerName string

	game    *engine.Game
	sink    Sink
	manager *Manager
}

func newSession(m *Manager, playerName string, sink Sink) *Session {
	s := &Session{
		ID:         uuid.NewString(),
		PlayerName: NormalizePlayerName(playerName),
		sink:       sink,
		manager:    m,
	}

	opts := []engine.Option{
		engine.WithListener(s.handleEvent),
		engine.WithActor(s.PlayerName),
		engine.WithRevealDelay(m.deps.RevealDelay),
		engine.WithRand(m.deps.NewRand()),
	}
	if m.deps.Scheduler != nil {
		opts = append(opts, engine.WithScheduler(m.deps.Scheduler))
	}
	if m.deps.Clock != nil {
		opts = append(opts, engine.WithClock(m.deps.Clock))
	}
	s.game = engine.NewGame(opts...)
	return s
}

// NormalizePlayerName trims the name and caps its length.
func NormalizePlayerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return AnonymousPlayer
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}

// NewGame deals a new board. An invalid difficulty keeps the current one.
func (s *Session) NewGame(d deck.Difficulty) {
	if !d.Valid() {
		s.game.Restart()
		return
	}
	s.game.Initialize(d)
}

// Flip forwards a flip to the engine and reports whether it was accepted.
func (s *Session) Flip(cardID int) bool {
	ok := s.game.Flip(cardID)
	s.manager.deps.Metrics.RecordFlip(ok)
	return ok
}

// View returns what the player may see of the board.
func (s *Session) View() engine.View {
	return s.game.Snapshot().View()
}

// GameID returns the identifier of the current board.
func (s *Session) GameID() string {
	return s.game.ID()
}

// handleEvent runs outside the engine lock for every engine event.
func (s *Session) handleEvent(e events.GameEvent) {
	deps := s.manager.deps

	// Stale resolutions belong to a replaced board; only count them.
	if e.Type == events.EventTypeStaleResolution {
		deps.Metrics.RecordStaleResolution()
		deps.Logger.Debugf("Discarded stale resolution for game %s", e.GameID)
		return
	}

	e = deps.EventLog.Append(e)
	s.manager.trackGame(s.ID, e.GameID)

	switch e.Type {
	case events.EventTypeGameInitialized:
		deps.Metrics.RecordGameStarted()
		deps.Logger.Event(string(e.Type), s.PlayerName, "Game:"+e.GameID)
		s.pushView()
	case events.EventTypeCardFlipped:
		s.pushView()
	case events.EventTypePairMatched:
		deps.Metrics.RecordResolution(true)
		s.pushView()
	case events.EventTypePairMismatched:
		deps.Metrics.RecordResolution(false)
		s.pushView()
	case events.EventTypeGameCompleted:
		deps.Metrics.RecordGameCompleted()
		if p, ok := e.Payload.(events.CompletedPayload); ok {
			s.complete(e, p)
		}
	}
}

func (s *Session) pushView() {
	if s.sink != nil {
		s.sink.SendState(s.View())
	}
}

func (s *Session) complete(e events.GameEvent, p events.CompletedPayload) {
	deps := s.manager.deps
	result := storage.GameResult{
		ID:          uuid.NewString(),
		GameID:      e.GameID,
		PlayerName:  s.PlayerName,
		Difficulty:  p.Difficulty,
		Moves:       p.Moves,
		DurationMS:  p.DurationMS,
		CompletedAt: e.Timestamp,
	}
	deps.Logger.Eventf(string(e.Type), s.PlayerName, "Game:%s Difficulty:%s Moves:%d Time:%s",
		e.GameID, p.Difficulty, p.Moves, p.Elapsed)

	saved := false
	if deps.Results != nil {
		ctx, cancel := context.WithTimeout(context.Background(), resultWriteTimeout)
		start := time.Now()
		var err error
		saved, err = deps.Results.Save(ctx, result)
		cancel()
		deps.Metrics.RecordResultWrite(time.Since(start), err)
		if err != nil {
			// The player still sees the completion; only the leaderboard misses it.
			deps.Logger.Errorf("Failed to record result of game %s: %v", e.GameID, err)
		}
	}

	if s.sink != nil {
		s.sink.SendCompleted(Completion{
			Result:  result,
			Elapsed: p.Elapsed,
			Message: engine.CompletionMessage(p.Elapsed, p.Moves),
		})
	}
	if saved {
		s.manager.notifyCompleted(result)
	}
}

func (s *Session) close() {
	s.game.Close()
}
