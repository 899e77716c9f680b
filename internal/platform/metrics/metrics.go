// Package metrics provides observability for the game server.
package metrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Collector gathers gameplay and infrastructure counters.
type Collector struct {
	// Gameplay
	GamesStarted     int64
	GamesCompleted   int64
	FlipsAccepted    int64
	FlipsIgnored     int64
	PairsMatched     int64
	PairsMismatched  int64
	StaleResolutions int64

	// Result persistence
	ResultsWritten    int64
	ResultWriteLatSum int64 // nanoseconds
	ResultWriteLatMax int64
	ResultWriteErrors int64

	// Leaderboard cache
	CacheHits   int64
	CacheMisses int64

	// WebSocket
	WSConnectionsActive int64
	WSMessagesIn        int64
	WSMessagesOut       int64
	WSErrors            int64

	StartTime time.Time
	mu        sync.Mutex
}

var collector = New()

// New returns an empty collector. Most code uses the global one via Get.
func New() *Collector {
	return &Collector{StartTime: time.Now()}
}

// Get returns the global collector.
func Get() *Collector {
	return collector
}

// RecordGameStarted counts an initialization.
func (c *Collector) RecordGameStarted() {
	atomic.AddInt64(&c.GamesStarted, 1)
}

// RecordGameCompleted counts a finished game.
func (c *Collector) RecordGameCompleted() {
	atomic.AddInt64(&c.GamesCompleted, 1)
}

// RecordFlip counts a flip request by outcome.
func (c *Collector) RecordFlip(accepted bool) {
	if accepted {
		atomic.AddInt64(&c.FlipsAccepted, 1)
	} else {
		atomic.AddInt64(&c.FlipsIgnored, 1)
	}
}

// RecordResolution counts a resolved pair.
func (c *Collector) RecordResolution(matched bool) {
	if matched {
		atomic.AddInt64(&c.PairsMatched, 1)
	} else {
		atomic.AddInt64(&c.PairsMismatched, 1)
	}
}

// RecordStaleResolution counts a resolution discarded after reinitialization.
func (c *Collector) RecordStaleResolution() {
	atomic.AddInt64(&c.StaleResolutions, 1)
}

// RecordResultWrite records a result write to the database.
func (c *Collector) RecordResultWrite(latency time.Duration, err error) {
	atomic.AddInt64(&c.ResultsWritten, 1)
	atomic.AddInt64(&c.ResultWriteLatSum, int64(latency))

	c.mu.Lock()
	if int64(latency) > c.ResultWriteLatMax {
		c.ResultWriteLatMax = int64(latency)
	}
	c.mu.Unlock()

	if err != nil {
		atomic.AddInt64(&c.ResultWriteErrors, 1)
	}
}

// RecordCacheLookup counts a leaderboard cache lookup.
func (c *Collector) RecordCacheLookup(hit bool) {
	if hit {
		atomic.AddInt64(&c.CacheHits, 1)
	} else {
		atomic.AddInt64(&c.CacheMisses, 1)
	}
}

// RecordWSConnection records WebSocket connection changes.
func (c *Collector) RecordWSConnection(delta int64) {
	atomic.AddInt64(&c.WSConnectionsActive, delta)
}

// RecordWSMessage records WebSocket messages.
func (c *Collector) RecordWSMessage(incoming bool) {
	if incoming {
		atomic.AddInt64(&c.WSMessagesIn, 1)
	} else {
		atomic.AddInt64(&c.WSMessagesOut, 1)
	}
}

// RecordWSError records a WebSocket error.
func (c *Collector) RecordWSError() {
	atomic.AddInt64(&c.WSErrors, 1)
}

// Snapshot returns current metrics as a map.
func (c *Collector) Snapshot() map[string]interface{} {
	written := atomic.LoadInt64(&c.ResultsWritten)

	var writeAvg float64
	if written > 0 {
		writeAvg = float64(atomic.LoadInt64(&c.ResultWriteLatSum)) / float64(written) / 1e6 // ms
	}

	c.mu.Lock()
	writeMax := float64(c.ResultWriteLatMax) / 1e6
	c.mu.Unlock()

	return map[string]interface{}{
		"uptime_seconds": time.Since(c.StartTime).Seconds(),

		"games": map[string]interface{}{
			"started":           atomic.LoadInt64(&c.GamesStarted),
			"completed":         atomic.LoadInt64(&c.GamesCompleted),
			"flips_accepted":    atomic.LoadInt64(&c.FlipsAccepted),
			"flips_ignored":     atomic.LoadInt64(&c.FlipsIgnored),
			"pairs_matched":     atomic.LoadInt64(&c.PairsMatched),
			"pairs_mismatched":  atomic.LoadInt64(&c.PairsMismatched),
			"stale_resolutions": atomic.LoadInt64(&c.StaleResolutions),
		},

		"results": map[string]interface{}{
			"written":          written,
			"avg_write_lat_ms": writeAvg,
			"max_write_lat_ms": writeMax,
			"errors":           atomic.LoadInt64(&c.ResultWriteErrors),
		},

		"cache": map[string]interface{}{
			"hits":   atomic.LoadInt64(&c.CacheHits),
			"misses": atomic.LoadInt64(&c.CacheMisses),
		},

		"websocket": map[string]interface{}{
			"active_connections": atomic.LoadInt64(&c.WSConnectionsActive),
			"messages_in":        atomic.LoadInt64(&c.WSMessagesIn),
			"messages_out":       atomic.LoadInt64(&c.WSMessagesOut),
			"errors":             atomic.LoadInt64(&c.WSErrors),
		},
	}
}

// Handler returns an HTTP handler for the JSON /metrics endpoint.
func (c *Collector) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache")
		json.NewEncoder(w).Encode(c.Snapshot())
	}
}

// PrometheusHandler returns metrics in Prometheus text format.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		counter := func(name, help string, v int64) {
			fmt.Fprintf(w, "# HELP %s %s\n", name, help)
			fmt.Fprintf(w, "# TYPE %s counter\n", name)
			fmt.Fprintf(w, "%s %d\n\n", name, v)
		}

		counter("memoria_games_started_total", "Games initialized", atomic.LoadInt64(&c.GamesStarted))
		counter("memoria_games_completed_total", "Games completed", atomic.LoadInt64(&c.GamesCompleted))
		counter("memoria_stale_resolutions_total", "Resolutions discarded after reinitialization", atomic.LoadInt64(&c.StaleResolutions))
		counter("memoria_result_write_errors_total", "Failed result writes", atomic.LoadInt64(&c.ResultWriteErrors))

		fmt.Fprintf(w, "# HELP memoria_flips_total Flip requests by outcome\n")
		fmt.Fprintf(w, "# TYPE memoria_flips_total counter\n")
		fmt.Fprintf(w, "memoria_flips_total{outcome=\"accepted\"} %d\n", atomic.LoadInt64(&c.FlipsAccepted))
		fmt.Fprintf(w, "memoria_flips_total{outcome=\"ignored\"} %d\n\n", atomic.LoadInt64(&c.FlipsIgnored))

		fmt.Fprintf(w, "# HELP memoria_pairs_total Resolved pairs by outcome\n")
		fmt.Fprintf(w, "# TYPE memoria_pairs_total counter\n")
		fmt.Fprintf(w, "memoria_pairs_total{outcome=\"match\"} %d\n", atomic.LoadInt64(&c.PairsMatched))
		fmt.Fprintf(w, "memoria_pairs_total{outcome=\"mismatch\"} %d\n\n", atomic.LoadInt64(&c.PairsMismatched))

		fmt.Fprintf(w, "# HELP memoria_ws_connections Active WebSocket connections\n")
		fmt.Fprintf(w, "# TYPE memoria_ws_connections gauge\n")
		fmt.Fprintf(w, "memoria_ws_connections %d\n\n", atomic.LoadInt64(&c.WSConnectionsActive))

		fmt.Fprintf(w, "# HELP memoria_ws_messages_total Total WebSocket messages\n")
		fmt.Fprintf(w, "# TYPE memoria_ws_messages_total counter\n")
		fmt.Fprintf(w, "memoria_ws_messages_total{direction=\"in\"} %d\n", atomic.LoadInt64(&c.WSMessagesIn))
		fmt.Fprintf(w, "memoria_ws_messages_total{direction=\"out\"} %d\n", atomic.LoadInt64(&c.WSMessagesOut))
	}
}
