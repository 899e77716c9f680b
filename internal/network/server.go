package network

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/infra/storage"
	"github.com/mentesana/memoria/internal/platform/logger"
	"github.com/mentesana/memoria/internal/platform/metrics"
	"github.com/mentesana/memoria/internal/session"
)

// Server exposes the player WebSocket and the HTTP API.
type Server struct {
	hub            *Hub
	sessions       *session.Manager
	results        storage.ResultRepository
	replay         *ReplayHandler
	metrics        *metrics.Collector
	logger         *logger.Logger
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool
}

// NewServer wires the handlers and subscribes the hub to completed games so
// every player learns when a leaderboard changes.
func NewServer(hub *Hub, sessions *session.Manager, results storage.ResultRepository, replay *ReplayHandler,
	m *metrics.Collector, log *logger.Logger, allowedOrigins []string) *Server {
	s := &Server{
		hub:            hub,
		sessions:       sessions,
		results:        results,
		replay:         replay,
		metrics:        m,
		logger:         log,
		allowedOrigins: make(map[string]bool),
	}
	for _, o := range allowedOrigins {
		s.allowedOrigins[o] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	sessions.OnCompleted(func(r storage.GameResult) {
		hub.Broadcast(MsgLeaderboardUpdated, LeaderboardUpdate{
			Difficulty: r.Difficulty,
			PlayerName: r.PlayerName,
			Moves:      r.Moves,
		})
	})
	return s
}

// Routes returns the HTTP routes of the server.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.HandleWebSocket)
	mux.HandleFunc("GET /api/health", s.HandleHealth)
	mux.HandleFunc("GET /api/difficulties", s.HandleDifficulties)
	mux.HandleFunc("GET /api/leaderboard", s.HandleLeaderboard)
	s.replay.RegisterRoutes(mux)
	mux.HandleFunc("GET /metrics", s.metrics.Handler())
	mux.HandleFunc("GET /metrics/prometheus", s.metrics.PrometheusHandler())
	return mux
}

// checkOrigin accepts any origin when no allow list is configured.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	return s.allowedOrigins[origin]
}

// HandleWebSocket upgrades the connection and starts a player session.
// GET /ws?name=PLAYER
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.RecordWSError()
		s.logger.Warnf("WebSocket upgrade failed: %v", err)
		return
	}
	client := NewClient(s.hub, conn, r.URL.Query().Get("name"), s.sessions, s.logger, s.metrics)
	client.Start()
}

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("OK"))
}

// HandleDifficulties lists the difficulty settings in menu order.
func (s *Server) HandleDifficulties(w http.ResponseWriter, r *http.Request) {
	out := make([]deck.Settings, 0, len(deck.Ordered))
	for _, d := range deck.Ordered {
		out = append(out, d.Settings())
	}
	writeJSON(w, http.StatusOK, out)
}

// LeaderboardResponse is the body of GET /api/leaderboard.
type LeaderboardResponse struct {
	Difficulty string               `json:"difficulty"`
	Limit      int                  `json:"limit"`
	Results    []storage.GameResult `json:"results"`
}

// HandleLeaderboard returns the ranking of completed games.
// GET /api/leaderboard?difficulty=all|easy|medium|hard&limit=N
func (s *Server) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q := storage.LeaderboardQuery{Difficulty: r.URL.Query().Get("difficulty")}
	if q.Difficulty != "" && q.Difficulty != "all" {
		if _, ok := deck.ParseDifficulty(q.Difficulty); !ok {
			jsonError(w, "Unknown difficulty", http.StatusBadRequest)
			return
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		q.Limit = n
	}
	q = q.Normalize()

	results, err := s.results.Leaderboard(r.Context(), q)
	if err != nil {
		s.logger.Errorf("Leaderboard query failed: %v", err)
		jsonError(w, "Failed to load leaderboard", http.StatusInternalServerError)
		return
	}

	label := q.Difficulty
	if label == "" {
		label = "all"
	}
	writeJSON(w, http.StatusOK, LeaderboardResponse{Difficulty: label, Limit: q.Limit, Results: results})
}
