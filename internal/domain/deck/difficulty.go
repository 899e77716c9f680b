// Package deck defines the core domain entities of the memory puzzle: cards,
// difficulty levels and the symbol palette.
// This package is PURE and must NOT import any infrastructure packages.
package deck

// Difficulty selects the board size of a game.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Settings describes the board produced by a difficulty.
type Settings struct {
	Difficulty Difficulty `json:"difficulty"`
	Pairs      int        `json:"pairs"`
	GridCols   int        `json:"grid_cols"`
	Label      string     `json:"label"`
	Color      string     `json:"color"`
	Shape      string     `json:"shape"` // rows x cols as shown on the difficulty buttons
}

// Cards returns the number of cards on the board.
func (s Settings) Cards() int {
	return s.Pairs * 2
}

// Registry contains every playable difficulty.
var Registry = map[Difficulty]Settings{
	DifficultyEasy: {
		Difficulty: DifficultyEasy,
		Pairs:      6,
		GridCols:   4,
		Label:      "Fácil",
		Color:      "#10b981",
		Shape:      "3x4",
	},
	DifficultyMedium: {
		Difficulty: DifficultyMedium,
		Pairs:      8,
		GridCols:   4,
		Label:      "Medio",
		Color:      "#f59e0b",
		Shape:      "4x4",
	},
	DifficultyHard: {
		Difficulty: DifficultyHard,
		Pairs:      12,
		GridCols:   6,
		Label:      "Difícil",
		Color:      "#ef4444",
		Shape:      "4x6",
	},
}

// Ordered lists the difficulties from easiest to hardest.
var Ordered = []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}

// Valid reports whether d is a known difficulty.
func (d Difficulty) Valid() bool {
	_, ok := Registry[d]
	return ok
}

// Settings returns the board settings for d. Unknown values fall back to easy.
func (d Difficulty) Settings() Settings {
	if s, ok := Registry[d]; ok {
		return s
	}
	return Registry[DifficultyEasy]
}

// ParseDifficulty converts a user supplied name. The second return value is
// false when the name is not a known difficulty.
func ParseDifficulty(name string) (Difficulty, bool) {
	d := Difficulty(name)
	return d, d.Valid()
}
