package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSnapshotCounts(t *testing.T) {
	c := New()
	c.RecordGameStarted()
	c.RecordFlip(true)
	c.RecordFlip(true)
	c.RecordFlip(false)
	c.RecordResolution(false)
	c.RecordResultWrite(2*time.Millisecond, nil)
	c.RecordResultWrite(4*time.Millisecond, errors.New("boom"))

	snap := c.Snapshot()
	games := snap["games"].(map[string]interface{})
	if games["flips_accepted"].(int64) != 2 || games["flips_ignored"].(int64) != 1 {
		t.Errorf("unexpected flip counts: %v", games)
	}
	if games["pairs_mismatched"].(int64) != 1 {
		t.Errorf("unexpected mismatch count: %v", games)
	}

	results := snap["results"].(map[string]interface{})
	if results["errors"].(int64) != 1 {
		t.Errorf("expected 1 write error, got %v", results["errors"])
	}
	if results["avg_write_lat_ms"].(float64) != 3 {
		t.Errorf("expected 3ms average, got %v", results["avg_write_lat_ms"])
	}
	if results["max_write_lat_ms"].(float64) != 4 {
		t.Errorf("expected 4ms max, got %v", results["max_write_lat_ms"])
	}
}

func TestPrometheusHandler(t *testing.T) {
	c := New()
	c.RecordGameCompleted()

	rec := httptest.NewRecorder()
	c.PrometheusHandler()(rec, httptest.NewRequest("GET", "/metrics/prometheus", nil))

	if !strings.Contains(rec.Body.String(), "memoria_games_completed_total 1") {
		t.Errorf("missing completed counter in:\n%s", rec.Body.String())
	}
}
