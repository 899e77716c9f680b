package engine

import "github.com/mentesana/memoria/internal/domain/deck"

// Snapshot is a point-in-time copy of a Game.
type Snapshot struct {
	GameID   string        `json:"game_id"`
	Settings deck.Settings `json:"settings"`
	Cards    []deck.Card   `json:"cards"`
	Pending  []int         `json:"pending"`
	Stats    Stats         `json:"stats"`
	Started  bool          `json:"started"`
	Complete bool          `json:"complete"`
	Elapsed  string        `json:"elapsed"`
}

// CardView is a card as a player may see it: face-down cards hide their symbol.
type CardView struct {
	ID      int    `json:"id"`
	Symbol  string `json:"symbol"`
	Flipped bool   `json:"flipped"`
	Matched bool   `json:"matched"`
}

// HiddenSymbol is shown in place of a face-down card's symbol.
const HiddenSymbol = "?"

// View is the player-facing board.
type View struct {
	GameID   string        `json:"game_id"`
	Settings deck.Settings `json:"settings"`
	Cards    []CardView    `json:"cards"`
	Moves    int           `json:"moves"`
	Matches  int           `json:"matches"`
	Locked   bool          `json:"locked"` // a pair is awaiting resolution
	Complete bool          `json:"complete"`
	Elapsed  string        `json:"elapsed"`
	Message  string        `json:"message,omitempty"`
}

// View derives the player-facing board from the snapshot.
func (s Snapshot) View() View {
	cards := make([]CardView, len(s.Cards))
	for i, c := range s.Cards {
		symbol := HiddenSymbol
		if c.FaceUp() {
			symbol = c.Symbol
		}
		cards[i] = CardView{ID: c.ID, Symbol: symbol, Flipped: c.IsFlipped, Matched: c.IsMatched}
	}

	v := View{
		GameID:   s.GameID,
		Settings: s.Settings,
		Cards:    cards,
		Moves:    s.Stats.Moves,
		Matches:  s.Stats.Matches,
		Locked:   len(s.Pending) >= 2,
		Complete: s.Complete,
		Elapsed:  s.Elapsed,
	}
	if s.Complete {
		v.Message = CompletionMessage(s.Elapsed, s.Stats.Moves)
	}
	return v
}
