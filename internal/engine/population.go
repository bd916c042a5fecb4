package engine

import (
	"github.com/talgya/quietfish/internal/fish"
	"github.com/talgya/quietfish/internal/rarity"
)

// Population is the live fish collection. Order carries no meaning.
type Population struct {
	Min, Max int
	fish     []*fish.Fish
}

// NewPopulation creates an empty population with the given bounds.
func NewPopulation(minFish, maxFish int) *Population {
	return &Population{Min: minFish, Max: maxFish, fish: make([]*fish.Fish, 0, maxFish)}
}

// Len returns the number of live fish.
func (p *Population) Len() int { return len(p.fish) }

// Fish returns the live fish. The slice must not be modified.
func (p *Population) Fish() []*fish.Fish { return p.fish }

// CanGrow reports whether a spawn keeps the population within bounds.
func (p *Population) CanGrow() bool { return len(p.fish) < p.Max }

// CanShrink reports whether a removal keeps the population within bounds.
func (p *Population) CanShrink() bool { return len(p.fish) > p.Min }

// Add appends f. Callers check CanGrow first.
func (p *Population) Add(f *fish.Fish) {
	p.fish = append(p.fish, f)
}

// RemoveHighest removes one fish of the highest tier present and returns
// it. Among equals the oldest goes first.
func (p *Population) RemoveHighest() (*fish.Fish, bool) {
	if len(p.fish) == 0 {
		return nil, false
	}
	idx := 0
	for i, f := range p.fish {
		best := p.fish[idx]
		if f.Tier() > best.Tier() || (f.Tier() == best.Tier() && f.Age() > best.Age()) {
			idx = i
		}
	}
	victim := p.fish[idx]
	last := len(p.fish) - 1
	p.fish[idx] = p.fish[last]
	p.fish[last] = nil
	p.fish = p.fish[:last]
	return victim, true
}

// Counts returns the number of live fish per tier.
func (p *Population) Counts() [rarity.NumTiers]int {
	var c [rarity.NumTiers]int
	for _, f := range p.fish {
		if t := f.Tier(); t.Valid() {
			c[t]++
		}
	}
	return c
}
