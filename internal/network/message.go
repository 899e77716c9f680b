package network

import "encoding/json"

// Client to server message types.
const (
	MsgNewGame       = "NEW_GAME"
	MsgSetDifficulty = "SET_DIFFICULTY"
	MsgFlip          = "FLIP"
	MsgState         = "STATE"
)

// Server to client message types. STATE is shared with the request above.
const (
	MsgGameCompleted      = "GAME_COMPLETED"
	MsgLeaderboardUpdated = "LEADERBOARD_UPDATED"
	MsgError              = "ERROR"
)

// PlayerAction represents an incoming command from the frontend.
type PlayerAction struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"` // action-specific data
}

// ServerMessage is every frame sent to a player.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

type difficultyPayload struct {
	Difficulty string `json:"difficulty"`
}

type flipPayload struct {
	CardID *int `json:"card_id"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// LeaderboardUpdate tells players which ranking changed.
type LeaderboardUpdate struct {
	Difficulty string `json:"difficulty"`
	PlayerName string `json:"player_name"`
	Moves      int    `json:"moves"`
}
