package network

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/engine"
	"github.com/mentesana/memoria/internal/events"
	"github.com/mentesana/memoria/internal/infra/storage"
	"github.com/mentesana/memoria/internal/platform/logger"
	"github.com/mentesana/memoria/internal/platform/metrics"
	"github.com/mentesana/memoria/internal/session"
)

const testSeed = 7

type testServer struct {
	http     *httptest.Server
	store    *storage.Store
	eventLog *events.EventLog
	sessions *session.Manager
}

func newTestServer(t *testing.T, allowedOrigins ...string) *testServer {
	t.Helper()
	store, err := storage.Open(storage.DriverSQLite, ":memory:", 0)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	log := logger.NewNopLogger()
	m := metrics.New()
	el := events.NewEventLog(storage.NewEventPersister(store.Events, time.Second))

	sessions := session.NewManager(session.Deps{
		EventLog:    el,
		Results:     store.Results,
		Metrics:     m,
		Logger:      log,
		RevealDelay: 5 * time.Millisecond,
		NewRand:     func() *rand.Rand { return rand.New(rand.NewSource(testSeed)) },
	})

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(log, m)
	go hub.Run(ctx)

	replay := NewReplayHandler(el, storage.NewReconstructor(store.Events), store.Results, log)
	srv := NewServer(hub, sessions, store.Results, replay, m, log, allowedOrigins)
	ts := httptest.NewServer(srv.Routes())

	t.Cleanup(func() {
		ts.Close()
		cancel()
		sessions.CloseAll()
		el.Flush()
		store.Close()
	})
	return &testServer{http: ts, store: store, eventLog: el, sessions: sessions}
}

type wireMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func dial(t *testing.T, ts *testServer, name string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws?name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads frames until one of type msgType satisfies accept.
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, accept func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var msg wireMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", msgType, err)
		}
		if msg.Type == msgType && (accept == nil || accept(msg.Payload)) {
			return msg.Payload
		}
	}
}

func readView(t *testing.T, conn *websocket.Conn, accept func(engine.View) bool) engine.View {
	t.Helper()
	var v engine.View
	readUntil(t, conn, MsgState, func(raw json.RawMessage) bool {
		v = engine.View{}
		if err := json.Unmarshal(raw, &v); err != nil {
			t.Fatalf("bad view: %v", err)
		}
		return accept == nil || accept(v)
	})
	return v
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	msg := map[string]interface{}{"type": msgType}
	if payload != nil {
		msg["payload"] = payload
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// seededPairs rebuilds the first board dealt with testSeed.
func seededPairs(d deck.Difficulty) [][2]int {
	cards := deck.New(d.Settings(), rand.New(rand.NewSource(testSeed)))
	seen := make(map[string]int)
	var pairs [][2]int
	for _, c := range cards {
		if first, ok := seen[c.Symbol]; ok {
			pairs = append(pairs, [2]int{first, c.ID})
			continue
		}
		seen[c.Symbol] = c.ID
	}
	return pairs
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.http.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("health = %d %q", resp.StatusCode, body)
	}
}

func TestDifficulties(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.http.URL + "/api/difficulties")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var got []deck.Settings
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 3 || got[0].Label != "Fácil" || got[2].Pairs != 12 {
		t.Errorf("unexpected difficulties: %+v", got)
	}
}

func TestLeaderboardEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	for i, moves := range []int{9, 6, 7} {
		_, err := ts.store.Results.Save(ctx, storage.GameResult{
			ID: "r" + string(rune('a'+i)), GameID: "g" + string(rune('a'+i)), PlayerName: "ana",
			Difficulty: "easy", Moves: moves, DurationMS: 1000, CompletedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	resp, err := http.Get(ts.http.URL + "/api/leaderboard?difficulty=easy&limit=2")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var body LeaderboardResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Limit != 2 || len(body.Results) != 2 || body.Results[0].Moves != 6 || body.Results[1].Moves != 7 {
		t.Errorf("unexpected leaderboard: %+v", body)
	}

	for _, query := range []string{"difficulty=extreme", "limit=abc", "limit=0"} {
		resp, err := http.Get(ts.http.URL + "/api/leaderboard?" + query)
		if err != nil {
			t.Fatalf("GET: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: status %d, want 400", query, resp.StatusCode)
		}
	}
}

func TestReplayUnknownGame(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.http.URL + "/api/games/nope/events")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status %d, want 404", resp.StatusCode)
	}
}

func TestWebSocketFullGame(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, "ana")

	initial := readView(t, conn, nil)
	if len(initial.Cards) != 12 || initial.Moves != 0 {
		t.Fatalf("unexpected initial view: %+v", initial)
	}
	for _, c := range initial.Cards {
		if c.Symbol != engine.HiddenSymbol {
			t.Fatalf("initial view leaks card %d", c.ID)
		}
	}

	for i, pair := range seededPairs(deck.DifficultyEasy) {
		send(t, conn, MsgFlip, map[string]int{"card_id": pair[0]})
		send(t, conn, MsgFlip, map[string]int{"card_id": pair[1]})
		want := i + 1
		readView(t, conn, func(v engine.View) bool { return v.Matches == want })
	}

	var done session.Completion
	if err := json.Unmarshal(readUntil(t, conn, MsgGameCompleted, nil), &done); err != nil {
		t.Fatalf("bad completion: %v", err)
	}
	if done.Result.Moves != 6 || done.Result.PlayerName != "ana" || done.Result.GameID != initial.GameID {
		t.Errorf("unexpected result: %+v", done.Result)
	}
	if !strings.HasPrefix(done.Message, "¡Excelente memoria!") {
		t.Errorf("message %q", done.Message)
	}

	var update LeaderboardUpdate
	if err := json.Unmarshal(readUntil(t, conn, MsgLeaderboardUpdated, nil), &update); err != nil {
		t.Fatalf("bad leaderboard update: %v", err)
	}
	if update.Difficulty != "easy" {
		t.Errorf("update for %s", update.Difficulty)
	}

	ts.eventLog.Flush()
	resp, err := http.Get(ts.http.URL + "/api/games/" + initial.GameID + "/events")
	if err != nil {
		t.Fatalf("GET replay: %v", err)
	}
	defer resp.Body.Close()
	var replay ReplayResponse
	if err := json.NewDecoder(resp.Body).Decode(&replay); err != nil {
		t.Fatalf("decode replay: %v", err)
	}
	if replay.Summary == nil || !replay.Summary.Completed || replay.Summary.Moves != 6 || replay.Summary.Matches != 6 {
		t.Errorf("unexpected replay summary: %+v", replay.Summary)
	}
	if replay.Result == nil || replay.Result.Moves != 6 {
		t.Errorf("replay should include the stored result")
	}
}

func TestWebSocketProtocolErrors(t *testing.T) {
	ts := newTestServer(t)
	conn := dial(t, ts, "luis")
	readView(t, conn, nil)

	conn.WriteMessage(websocket.TextMessage, []byte("{not json"))
	readUntil(t, conn, MsgError, nil)

	send(t, conn, MsgFlip, map[string]string{"card": "x"})
	readUntil(t, conn, MsgError, nil)

	send(t, conn, MsgSetDifficulty, map[string]string{"difficulty": "extreme"})
	readUntil(t, conn, MsgError, nil)

	send(t, conn, MsgSetDifficulty, map[string]string{"difficulty": "hard"})
	v := readView(t, conn, func(v engine.View) bool { return len(v.Cards) == 24 })
	if v.Settings.Difficulty != deck.DifficultyHard {
		t.Errorf("difficulty %s", v.Settings.Difficulty)
	}

	send(t, conn, MsgState, nil)
	again := readView(t, conn, nil)
	if again.GameID != v.GameID {
		t.Errorf("STATE returned another board")
	}
}

func TestWebSocketOriginCheck(t *testing.T) {
	ts := newTestServer(t, "https://mentesana.example")
	url := "ws" + strings.TrimPrefix(ts.http.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Errorf("foreign origin should be rejected")
	}

	header = http.Header{"Origin": []string{"https://mentesana.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	conn.Close()
}
