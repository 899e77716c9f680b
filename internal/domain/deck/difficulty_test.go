package deck

import "testing"

func TestDifficultySettings(t *testing.T) {
	tests := []struct {
		difficulty Difficulty
		pairs      int
		gridCols   int
		label      string
	}{
		{DifficultyEasy, 6, 4, "Fácil"},
		{DifficultyMedium, 8, 4, "Medio"},
		{DifficultyHard, 12, 6, "Difícil"},
	}

	for _, tt := range tests {
		s := tt.difficulty.Settings()
		if s.Pairs != tt.pairs || s.GridCols != tt.gridCols {
			t.Errorf("%s: got (%d,%d), want (%d,%d)", tt.difficulty, s.Pairs, s.GridCols, tt.pairs, tt.gridCols)
		}
		if s.Label != tt.label {
			t.Errorf("%s: label %q, want %q", tt.difficulty, s.Label, tt.label)
		}
		if s.Cards() != 2*tt.pairs {
			t.Errorf("%s: Cards() = %d", tt.difficulty, s.Cards())
		}
	}
}

func TestUnknownDifficultyFallsBackToEasy(t *testing.T) {
	d, ok := ParseDifficulty("nightmare")
	if ok {
		t.Fatalf("expected nightmare to be rejected")
	}
	if d.Settings().Difficulty != DifficultyEasy {
		t.Errorf("expected easy fallback, got %s", d.Settings().Difficulty)
	}

	if _, ok := ParseDifficulty("hard"); !ok {
		t.Errorf("expected hard to parse")
	}
}
