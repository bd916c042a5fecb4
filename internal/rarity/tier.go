// Package rarity defines the five ordered fish tiers, their static
// configuration, and the weighted selector that picks a tier for each
// newly spawned fish.
package rarity

import (
	"errors"
	"fmt"
	"strings"
)

// Tier is a rarity class. Higher values are rarer.
type Tier uint8

const (
	Common Tier = iota
	Rare
	Epic
	Legendary
	Mythic
)

// NumTiers is the number of rarity tiers.
const NumTiers = 5

var tierNames = [NumTiers]string{"common", "rare", "epic", "legendary", "mythic"}

// All returns every tier in ascending rank order.
func All() []Tier {
	return []Tier{Common, Rare, Epic, Legendary, Mythic}
}

// String returns the lower-case tier name.
func (t Tier) String() string {
	if int(t) < NumTiers {
		return tierNames[t]
	}
	return fmt.Sprintf("tier(%d)", uint8(t))
}

// Valid reports whether t is one of the five known tiers.
func (t Tier) Valid() bool {
	return int(t) < NumTiers
}

// MarshalText implements encoding.TextMarshaler so tiers serialize by name.
func (t Tier) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid tier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Parse converts a tier name (case-insensitive) to a Tier.
func Parse(name string) (Tier, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range tierNames {
		if n == name {
			return Tier(i), nil
		}
	}
	return Common, fmt.Errorf("unknown tier %q", name)
}

// RGB is a display colour.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Spec is the static configuration of one tier. It is never mutated at runtime.
type Spec struct {
	Label      string  // Display name
	BaseWeight float64 // Spawn weight at τ=0
	Growth     float64 // Weight multiplier is 1 + Growth·τ; negative shrinks
	// ThresholdMult scales the silence threshold for the flee check; rarer
	// fish are spooked by quieter noise.
	ThresholdMult float64
	Points        int
	Colors        []RGB
	SizeMin       int
	SizeMax       int
	SpeedMult     float64
	Glow          bool
}

// Table holds one Spec per tier, indexed by Tier.
type Table [NumTiers]Spec

// DefaultTable returns the shipped tier configuration.
func DefaultTable() Table {
	return Table{
		Common: {
			Label:         "Common",
			BaseWeight:    100,
			Growth:        -0.7, // shrinks to 30% of base at full time factor
			ThresholdMult: 1.0,
			Points:        10,
			Colors:        []RGB{{100, 200, 255}, {100, 255, 200}, {150, 200, 150}},
			SizeMin:       18,
			SizeMax:       26,
			SpeedMult:     0.8,
		},
		Rare: {
			Label:         "Rare",
			BaseWeight:    20,
			Growth:        0.4,
			ThresholdMult: 0.85,
			Points:        50,
			Colors:        []RGB{{180, 130, 255}, {130, 180, 255}},
			SizeMin:       22,
			SizeMax:       30,
			SpeedMult:     1.0,
			Glow:          true,
		},
		Epic: {
			Label:         "Epic",
			BaseWeight:    8,
			Growth:        1.0,
			ThresholdMult: 0.7,
			Points:        200,
			Colors:        []RGB{{255, 100, 150}, {255, 150, 100}},
			SizeMin:       28,
			SizeMax:       38,
			SpeedMult:     1.2,
			Glow:          true,
		},
		Legendary: {
			Label:         "Legendary",
			BaseWeight:    2,
			Growth:        2.5,
			ThresholdMult: 0.5,
			Points:        1000,
			Colors:        []RGB{{255, 215, 0}},
			SizeMin:       35,
			SizeMax:       45,
			SpeedMult:     1.5,
			Glow:          true,
		},
		Mythic: {
			Label:         "Mythic",
			BaseWeight:    0.5,
			Growth:        5.0,
			ThresholdMult: 0.35,
			Points:        5000,
			Colors:        []RGB{{255, 255, 255}, {0, 255, 255}},
			SizeMin:       42,
			SizeMax:       55,
			SpeedMult:     1.8,
			Glow:          true,
		},
	}
}

// Spec returns the configuration for t.
func (tb *Table) Spec(t Tier) Spec {
	return tb[t]
}

// Validate checks the ordering invariants: every tier has a usable range,
// the common tier shrinks while the rest grow faster with rank, and weights
// are strictly decreasing with rank at both ends of the time factor. Weights
// are linear in τ, so ordering at τ=0 and τ=1 holds for every τ between.
func (tb *Table) Validate() error {
	var errs []error
	for _, t := range All() {
		s := tb[t]
		if s.BaseWeight <= 0 {
			errs = append(errs, fmt.Errorf("%s: base weight must be positive", t))
		}
		if len(s.Colors) == 0 {
			errs = append(errs, fmt.Errorf("%s: no colours configured", t))
		}
		if s.SizeMin <= 0 || s.SizeMin > s.SizeMax {
			errs = append(errs, fmt.Errorf("%s: bad size range [%d, %d]", t, s.SizeMin, s.SizeMax))
		}
		if s.ThresholdMult <= 0 {
			errs = append(errs, fmt.Errorf("%s: threshold multiplier must be positive", t))
		}
	}
	if g := tb[Common].Growth; g > 0 || g <= -1 {
		errs = append(errs, fmt.Errorf("common: growth %.2f must be in (-1, 0]", g))
	}
	for t := Rare + 1; t < NumTiers; t++ {
		if tb[t].Growth <= tb[t-1].Growth {
			errs = append(errs, fmt.Errorf("%s: growth must exceed %s growth", t, t-1))
		}
	}
	for _, tau := range []float64{0, 1} {
		for t := Rare; t < NumTiers; t++ {
			if weightAt(tb[t], tau) >= weightAt(tb[t-1], tau) {
				errs = append(errs, fmt.Errorf("%s must be rarer than %s at τ=%.0f", t, t-1, tau))
			}
		}
	}
	return errors.Join(errs...)
}

func weightAt(s Spec, tau float64) float64 {
	return s.BaseWeight * (1 + s.Growth*tau)
}
