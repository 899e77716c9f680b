package deck

import "math/rand"

// Palette is the ordered list of wellness themed symbols. A game uses the
// first Pairs entries of its difficulty.
var Palette = []string{
	"🧠", "💚", "🌟", "😊", "🧘‍♀️", "🌈", "💛", "🌸",
	"🦋", "🍃", "☀️", "💜", "🌺", "🕊️", "🍀", "✨",
	"🌻", "🧘‍♂️", "💙", "🌙", "🌊", "🎨", "📚", "🎵",
}

// Card is one tile on the board.
type Card struct {
	ID        int    `json:"id"` // board position, stable for the rest of the game
	Symbol    string `json:"symbol"`
	IsFlipped bool   `json:"is_flipped"`
	IsMatched bool   `json:"is_matched"`
}

// FaceUp reports whether the card's symbol is visible.
func (c Card) FaceUp() bool {
	return c.IsFlipped || c.IsMatched
}

// New builds a shuffled board for the given settings using r as the random
// source. Every selected symbol appears on exactly two cards and card IDs equal
// their position after the shuffle.
func New(s Settings, r *rand.Rand) []Card {
	pairs := s.Pairs
	if pairs > len(Palette) {
		pairs = len(Palette)
	}

	cards := make([]Card, 0, pairs*2)
	for _, symbol := range Palette[:pairs] {
		cards = append(cards, Card{Symbol: symbol}, Card{Symbol: symbol})
	}

	Shuffle(cards, r)

	for i := range cards {
		cards[i].ID = i
	}
	return cards
}

// Shuffle applies an in-place Fisher-Yates permutation.
func Shuffle[T any](items []T, r *rand.Rand) {
	for i := len(items) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		items[i], items[j] = items[j], items[i]
	}
}
