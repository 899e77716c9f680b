package deck

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestNewBuildsPairsForEveryDifficulty(t *testing.T) {
	r := rand.New(rand.NewSource(7))

	for _, d := range Ordered {
		s := d.Settings()
		cards := New(s, r)

		if len(cards) != 2*s.Pairs {
			t.Fatalf("%s: expected %d cards, got %d", d, 2*s.Pairs, len(cards))
		}

		counts := make(map[string]int)
		for _, c := range cards {
			counts[c.Symbol]++
			if c.IsFlipped || c.IsMatched {
				t.Errorf("%s: card %d should start face-down and unmatched", d, c.ID)
			}
		}
		if len(counts) != s.Pairs {
			t.Errorf("%s: expected %d distinct symbols, got %d", d, s.Pairs, len(counts))
		}
		for symbol, n := range counts {
			if n != 2 {
				t.Errorf("%s: symbol %s appears %d times, want 2", d, symbol, n)
			}
		}
		for i, symbol := range Palette[:s.Pairs] {
			if counts[symbol] != 2 {
				t.Errorf("%s: palette entry %d (%s) missing from board", d, i, symbol)
			}
		}
	}
}

func TestNewAssignsPositionIDs(t *testing.T) {
	r := rand.New(rand.NewSource(99))

	for trial := 0; trial < 50; trial++ {
		cards := New(DifficultyHard.Settings(), r)
		seen := make(map[int]bool)
		for i, c := range cards {
			if c.ID != i {
				t.Fatalf("card at position %d has id %d", i, c.ID)
			}
			if seen[c.ID] {
				t.Fatalf("duplicate id %d", c.ID)
			}
			seen[c.ID] = true
		}
	}
}

func TestShuffleIsUniform(t *testing.T) {
	r := rand.New(rand.NewSource(2024))
	const trials = 24000 // 24 permutations of 4 items, ~1000 each

	counts := make(map[string]int)
	for i := 0; i < trials; i++ {
		items := []int{0, 1, 2, 3}
		Shuffle(items, r)
		counts[fmt.Sprint(items)]++
	}

	if len(counts) != 24 {
		t.Fatalf("expected all 24 permutations, saw %d", len(counts))
	}
	for perm, n := range counts {
		if n < 800 || n > 1200 {
			t.Errorf("permutation %s drawn %d times, expected about 1000", perm, n)
		}
	}
}

func TestPaletteCoversHardestDifficulty(t *testing.T) {
	for _, d := range Ordered {
		if d.Settings().Pairs > len(Palette) {
			t.Errorf("palette has %d symbols, %s needs %d", len(Palette), d, d.Settings().Pairs)
		}
	}
}
