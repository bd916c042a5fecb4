package rarity

import "math"

// Rand is the randomness a Selector needs. *math/rand.Rand and the
// entropy package's sources satisfy it.
type Rand interface {
	Float64() float64
}

// Weighted pairs a candidate tier with its unnormalized spawn weight.
type Weighted struct {
	Tier   Tier
	Weight float64
}

// TimeFactor returns τ = min(1, quietSeconds/fullAtSeconds).
func TimeFactor(quietSeconds, fullAtSeconds float64) float64 {
	switch {
	case quietSeconds <= 0:
		return 0
	case fullAtSeconds <= 0:
		return 1
	}
	return math.Min(1, quietSeconds/fullAtSeconds)
}

// Weights returns the time-adjusted weight of each unlocked tier, in the
// order given. Tiers outside the table are skipped.
func (tb *Table) Weights(unlocked []Tier, tau float64) []Weighted {
	out := make([]Weighted, 0, len(unlocked))
	for _, t := range unlocked {
		if !t.Valid() {
			continue
		}
		w := weightAt(tb[t], tau)
		if w < 0 || math.IsNaN(w) {
			w = 0
		}
		out = append(out, Weighted{Tier: t, Weight: w})
	}
	return out
}

// Choose performs a cumulative-weight draw. u must be in [0, 1). With no
// candidates it returns Common; when no candidate has positive weight it
// returns the lowest-ranked candidate.
func Choose(candidates []Weighted, u float64) Tier {
	if len(candidates) == 0 {
		return Common
	}

	lowest := candidates[0].Tier
	total := 0.0
	for _, c := range candidates {
		if c.Tier < lowest {
			lowest = c.Tier
		}
		if c.Weight > 0 {
			total += c.Weight
		}
	}
	if total <= 0 {
		return lowest
	}

	target := u * total
	cum := 0.0
	last := lowest
	for _, c := range candidates {
		if c.Weight <= 0 {
			continue
		}
		cum += c.Weight
		last = c.Tier
		if target < cum {
			return c.Tier
		}
	}
	// u rounding up to 1.0 lands past the final bucket.
	return last
}

// Selector draws a tier for each spawn.
type Selector struct {
	table      *Table
	fullAfterS float64
	rng        Rand
}

// NewSelector creates a selector over table. fullAfterSeconds is the quiet
// time at which the time factor saturates.
func NewSelector(table *Table, fullAfterSeconds float64, rng Rand) *Selector {
	return &Selector{table: table, fullAfterS: fullAfterSeconds, rng: rng}
}

// Select picks one tier out of unlocked, weighted by session quiet time.
func (s *Selector) Select(unlocked []Tier, quietSeconds float64) Tier {
	tau := TimeFactor(quietSeconds, s.fullAfterS)
	return Choose(s.table.Weights(unlocked, tau), s.rng.Float64())
}

// Odds returns each unlocked tier's probability of being drawn right now.
// Used by the presentation layer's legend.
func (s *Selector) Odds(unlocked []Tier, quietSeconds float64) map[Tier]float64 {
	ws := s.table.Weights(unlocked, TimeFactor(quietSeconds, s.fullAfterS))
	total := 0.0
	for _, w := range ws {
		total += w.Weight
	}
	odds := make(map[Tier]float64, len(ws))
	for _, w := range ws {
		if total > 0 {
			odds[w.Tier] = w.Weight / total
		}
	}
	return odds
}
