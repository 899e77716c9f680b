package network

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mentesana/memoria/internal/domain/deck"
	"github.com/mentesana/memoria/internal/engine"
	"github.com/mentesana/memoria/internal/platform/logger"
	"github.com/mentesana/memoria/internal/platform/metrics"
	"github.com/mentesana/memoria/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Outgoing frames buffered per client.
	sendBuffer = 256
)

// Client is one player's WebSocket connection. It implements session.Sink.
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	playerName string

	mu     sync.Mutex
	closed bool

	session  *session.Session
	sessions *session.Manager
	logger   *logger.Logger
	metrics  *metrics.Collector
}

// NewClient creates a new WebSocket client and returns it.
func NewClient(hub *Hub, conn *websocket.Conn, playerName string, sessions *session.Manager, log *logger.Logger, m *metrics.Collector) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuffer),
		playerName: session.NormalizePlayerName(playerName),
		sessions:   sessions,
		logger:     log,
		metrics:    m,
	}
}

// Start registers the client, opens its game session and runs both pumps.
func (c *Client) Start() {
	c.hub.Register(c)
	c.session = c.sessions.Open(c.playerName, c)
	go c.WritePump()
	go c.ReadPump()
}

// SendState implements session.Sink.
func (c *Client) SendState(v engine.View) {
	c.sendMessage(MsgState, v)
}

// SendCompleted implements session.Sink.
func (c *Client) SendCompleted(done session.Completion) {
	c.sendMessage(MsgGameCompleted, done)
}

func (c *Client) sendMessage(msgType string, payload interface{}) {
	data, err := json.Marshal(ServerMessage{Type: msgType, Payload: payload})
	if err != nil {
		c.logger.Errorf("Failed to serialize %s: %v", msgType, err)
		return
	}
	if !c.enqueue(data) {
		c.logger.Warnf("Dropped %s for %s: send buffer full or closed", msgType, c.playerName)
	}
}

func (c *Client) sendError(message string) {
	c.metrics.RecordWSError()
	c.sendMessage(MsgError, errorPayload{Message: message})
}

// enqueue queues a frame without blocking. It reports false if the client is
// closed or its buffer is full.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// closeSend closes the outgoing queue once; WritePump then ends the
// connection.
func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump pumps messages from the websocket connection to the session.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.sessions.Close(c.session.ID)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warnf("WebSocket read error for %s: %v", c.playerName, err)
			}
			break
		}
		c.metrics.RecordWSMessage(true)

		var action PlayerAction
		if err := json.Unmarshal(message, &action); err != nil {
			c.logger.Warn("Failed to parse PlayerAction from WebSocket. err: " + err.Error())
			c.sendError("malformed message")
			continue
		}

		c.handlePlayerAction(action)
	}
}

func (c *Client) handlePlayerAction(action PlayerAction) {
	switch action.Type {
	case MsgNewGame, MsgSetDifficulty:
		c.handleNewGame(action)
	case MsgFlip:
		c.handleFlip(action.Payload)
	case MsgState:
		c.SendState(c.session.View())
	default:
		c.logger.Warn("Unknown PlayerAction type: " + action.Type)
	}
}

func (c *Client) handleNewGame(action PlayerAction) {
	var parsed difficultyPayload
	if len(action.Payload) > 0 {
		if err := json.Unmarshal(action.Payload, &parsed); err != nil {
			c.sendError("invalid " + action.Type + " payload")
			return
		}
	}

	if parsed.Difficulty == "" {
		if action.Type == MsgSetDifficulty {
			c.sendError("difficulty is required")
			return
		}
		c.session.NewGame(c.session.View().Settings.Difficulty)
		return
	}

	d, ok := deck.ParseDifficulty(parsed.Difficulty)
	if !ok {
		c.sendError("unknown difficulty " + parsed.Difficulty)
		return
	}
	c.session.NewGame(d)
}

func (c *Client) handleFlip(rawPayload json.RawMessage) {
	var parsed flipPayload
	if err := json.Unmarshal(rawPayload, &parsed); err != nil || parsed.CardID == nil {
		c.sendError("FLIP requires a numeric card_id")
		return
	}
	// Rejected flips are silent no-ops; the board view is unchanged.
	if !c.session.Flip(*parsed.CardID) {
		c.logger.Debugf("Ignored flip of card %d by %s", *parsed.CardID, c.playerName)
	}
}

// WritePump pumps messages from the hub and the session to the websocket
// connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
			c.metrics.RecordWSMessage(false)
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
