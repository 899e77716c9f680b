// Package network - replay.go
// Replay endpoint: JSON export of a game's history from the ledger.
package network

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mentesana/memoria/internal/events"
	"github.com/mentesana/memoria/internal/infra/storage"
	"github.com/mentesana/memoria/internal/platform/logger"
)

// ReplayHandler provides the replay API.
type ReplayHandler struct {
	eventLog      *events.EventLog
	reconstructor *storage.Reconstructor
	results       storage.ResultRepository
	logger        *logger.Logger
}

// NewReplayHandler creates a new replay handler.
func NewReplayHandler(el *events.EventLog, r *storage.Reconstructor, results storage.ResultRepository, log *logger.Logger) *ReplayHandler {
	return &ReplayHandler{
		eventLog:      el,
		reconstructor: r,
		results:       results,
		logger:        log,
	}
}

// ReplayResponse is the API response for a game replay.
type ReplayResponse struct {
	GameID      string               `json:"game_id"`
	TotalEvents int                  `json:"total_events"`
	FilteredBy  string               `json:"filtered_by,omitempty"`
	GeneratedAt string               `json:"generated_at"`
	Summary     *storage.RebuiltGame `json:"summary"`
	Result      *storage.GameResult  `json:"result,omitempty"`
	Events      []storage.RecapEvent `json:"events"`
}

// HandleReplay returns the replay of a game from the persisted ledger.
// GET /api/games/{id}/events?actor=NAME
func (rh *ReplayHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	if gameID == "" {
		jsonError(w, "Missing game id", http.StatusBadRequest)
		return
	}
	actor := r.URL.Query().Get("actor")
	ctx := r.Context()

	summary, err := rh.reconstructor.Rebuild(ctx, gameID)
	if err != nil {
		rh.logger.Errorf("Replay of %s failed: %v", gameID, err)
		jsonError(w, "Failed to load events", http.StatusInternalServerError)
		return
	}
	if summary == nil {
		jsonError(w, "Game not found", http.StatusNotFound)
		return
	}

	recap, err := rh.reconstructor.GenerateRecap(ctx, gameID, actor)
	if err != nil {
		rh.logger.Errorf("Replay of %s failed: %v", gameID, err)
		jsonError(w, "Failed to load events", http.StatusInternalServerError)
		return
	}

	result, err := rh.results.GetByGameID(ctx, gameID)
	if err != nil {
		rh.logger.Warnf("Result lookup for %s failed: %v", gameID, err)
	}

	response := ReplayResponse{
		GameID:      gameID,
		TotalEvents: len(recap),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Summary:     summary,
		Result:      result,
		Events:      recap,
	}
	if actor != "" {
		response.FilteredBy = "actor " + actor
	}

	rh.logger.Debugf("Replay of %s served with %d events", gameID, len(recap))
	writeJSON(w, http.StatusOK, response)
}

// HandleStats returns aggregate counts over the games still held in memory.
// GET /api/games/stats
func (rh *ReplayHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	allEvents := rh.eventLog.Replay()

	games := make(map[string]bool)
	stats := map[string]int{
		"total_events": len(allEvents),
		"flips":        0,
		"matches":      0,
		"mismatches":   0,
		"completed":    0,
	}
	for _, e := range allEvents {
		games[e.GameID] = true
		switch e.Type {
		case events.EventTypeCardFlipped:
			stats["flips"]++
		case events.EventTypePairMatched:
			stats["matches"]++
		case events.EventTypePairMismatched:
			stats["mismatches"]++
		case events.EventTypeGameCompleted:
			stats["completed"]++
		}
	}
	stats["live_games"] = len(games)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": time.Now().Format(time.RFC3339),
		"stats":        stats,
	})
}

// RegisterRoutes sets up the replay API routes.
func (rh *ReplayHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/games/stats", rh.HandleStats)
	mux.HandleFunc("GET /api/games/{id}/events", rh.HandleReplay)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
