package autoplay

import (
	"math/rand"

	"github.com/mentesana/memoria/internal/engine"
)

// picker chooses the next card to flip given the current player view.
// observe is called with the view showing both cards of a move, before the
// mismatch hides them again.
type picker interface {
	next(v engine.View) int
	observe(v engine.View)
}

func (r *Runner) newPicker(g *engine.Game) picker {
	switch r.strategy {
	case StrategyPerfect:
		return &perfectPicker{game: g}
	case StrategyRandom:
		return &randomPicker{rand: r.rand}
	default:
		return &memoryPicker{known: make(map[int]string)}
	}
}

// pendingCard returns the face-up card awaiting its partner, or -1.
func pendingCard(v engine.View) int {
	for _, c := range v.Cards {
		if c.Flipped && !c.Matched {
			return c.ID
		}
	}
	return -1
}

// perfectPicker reads the hidden board and never misses.
type perfectPicker struct {
	game *engine.Game
}

func (p *perfectPicker) next(v engine.View) int {
	cards := p.game.Snapshot().Cards
	if first := pendingCard(v); first >= 0 {
		for _, c := range cards {
			if c.ID != first && !c.IsMatched && c.Symbol == cards[first].Symbol {
				return c.ID
			}
		}
	}
	for _, c := range cards {
		if !c.IsMatched {
			return c.ID
		}
	}
	return -1
}

func (p *perfectPicker) observe(engine.View) {}

type randomPicker struct {
	rand *rand.Rand
}

func (p *randomPicker) next(v engine.View) int {
	var open []int
	for _, c := range v.Cards {
		if !c.Flipped && !c.Matched {
			open = append(open, c.ID)
		}
	}
	return open[p.rand.Intn(len(open))]
}

func (p *randomPicker) observe(engine.View) {}

// memoryPicker plays like an attentive player: it only learns a symbol when
// the view reveals it and never forgets it.
type memoryPicker struct {
	known map[int]string // card id -> symbol seen
}

func (p *memoryPicker) observe(v engine.View) {
	for _, c := range v.Cards {
		if c.Symbol != engine.HiddenSymbol {
			p.known[c.ID] = c.Symbol
		}
	}
}

func (p *memoryPicker) next(v engine.View) int {
	p.observe(v)
	open := make(map[int]bool)
	for _, c := range v.Cards {
		if !c.Matched {
			open[c.ID] = true
		}
	}

	if first := pendingCard(v); first >= 0 {
		if partner := p.partnerOf(first, open); partner >= 0 {
			return partner
		}
		return p.unknownOrAny(v, first)
	}

	// Cash in a pair that was seen earlier.
	for _, c := range v.Cards {
		if open[c.ID] && p.partnerOf(c.ID, open) >= 0 {
			return c.ID
		}
	}
	return p.unknownOrAny(v, -1)
}

func (p *memoryPicker) partnerOf(id int, open map[int]bool) int {
	symbol, ok := p.known[id]
	if !ok {
		return -1
	}
	for other, s := range p.known {
		if other != id && s == symbol && open[other] {
			return other
		}
	}
	return -1
}

// unknownOrAny prefers a card never seen; otherwise any face-down card.
func (p *memoryPicker) unknownOrAny(v engine.View, except int) int {
	fallback := -1
	for _, c := range v.Cards {
		if c.Matched || c.Flipped || c.ID == except {
			continue
		}
		if _, seen := p.known[c.ID]; !seen {
			return c.ID
		}
		if fallback < 0 {
			fallback = c.ID
		}
	}
	return fallback
}
