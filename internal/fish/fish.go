// Package fish defines the aquarium's entities: fish, created from a tier's
// static configuration, and the bubbles that rise past them.
package fish

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/quietfish/internal/rarity"
)

// Rand is the randomness the factory and kinematics need.
type Rand interface {
	Float64() float64
	Intn(n int) int
}

// Tank describes the logical water volume fish swim in, in cells.
type Tank struct {
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	WaterTop float64 `json:"water_top"` // first row of water

	CruiseRate float64 `json:"-"` // cells/s at speed 1.0
	FleeSpeed  float64 `json:"-"` // flee velocity multiplier over cruise
	FleeDecay  float64 `json:"-"` // seconds a fish keeps fleeing after the noise stops
	Margin     float64 `json:"-"` // cells beyond the edge before wrapping
}

// DefaultTank is an 80×24 terminal tank.
func DefaultTank() Tank {
	return Tank{
		Width:      80,
		Height:     24,
		WaterTop:   3,
		CruiseRate: 3,
		FleeSpeed:  2.5,
		FleeDecay:  2,
		Margin:     6,
	}
}

// Traits are fixed when the fish is created.
type Traits struct {
	Tier          rarity.Tier `json:"tier"`
	Points        int         `json:"points"`
	Color         rarity.RGB  `json:"color"`
	Size          int         `json:"size"`
	Speed         float64     `json:"speed"`
	ThresholdMult float64     `json:"threshold_mult"`
	Glow          bool        `json:"glow"`
}

// Fish is one live entity. Its traits never change; only motion and age do.
type Fish struct {
	traits Traits

	x, y      float64
	direction int // +1 swims right, -1 left
	phase     float64
	drift     float64 // noise-space offset so fish drift independently
	fleeTimer float64
	fleeing   bool
	age       float64
}

// New creates a fully initialised fish of tier, sampling colour, size and
// speed uniformly from spec.
func New(tier rarity.Tier, spec rarity.Spec, tank Tank, rng Rand) *Fish {
	color := rarity.RGB{R: 255, G: 255, B: 255}
	if len(spec.Colors) > 0 {
		color = spec.Colors[rng.Intn(len(spec.Colors))]
	}
	size := spec.SizeMin
	if spec.SizeMax > spec.SizeMin {
		size += rng.Intn(spec.SizeMax - spec.SizeMin + 1)
	}

	direction := 1
	if rng.Float64() < 0.5 {
		direction = -1
	}

	return &Fish{
		traits: Traits{
			Tier:          tier,
			Points:        spec.Points,
			Color:         color,
			Size:          size,
			Speed:         (0.4 + rng.Float64()*0.3) * spec.SpeedMult,
			ThresholdMult: spec.ThresholdMult,
			Glow:          spec.Glow,
		},
		x:         rng.Float64() * tank.Width,
		y:         randomDepth(tank, rng),
		direction: direction,
		phase:     rng.Float64() * 2 * math.Pi,
		drift:     rng.Float64() * 1000,
	}
}

// Traits returns the fish's fixed traits.
func (f *Fish) Traits() Traits { return f.traits }

// Tier returns the fish's rarity tier.
func (f *Fish) Tier() rarity.Tier { return f.traits.Tier }

// Age returns seconds since creation.
func (f *Fish) Age() float64 { return f.age }

// Fleeing reports whether the fish is currently fleeing noise.
func (f *Fish) Fleeing() bool { return f.fleeing }

// Position returns the fish's position and heading.
func (f *Fish) Position() (x, y float64, direction int) {
	return f.x, f.y, f.direction
}

// Update moves the fish by dt seconds. Volume above the fish's own flee
// threshold (silenceThreshold × ThresholdMult) sends it fleeing; the flee
// state lingers for tank.FleeDecay seconds once the noise drops.
func (f *Fish) Update(volume, silenceThreshold, dt float64, tank Tank, noise opensimplex.Noise, rng Rand) {
	f.age += dt
	f.phase += 4 * dt

	if volume > silenceThreshold*f.traits.ThresholdMult {
		f.fleeing = true
		f.fleeTimer = tank.FleeDecay
	} else if f.fleeTimer > 0 {
		f.fleeTimer -= dt
	} else {
		f.fleeing = false
	}

	dir := float64(f.direction)
	if f.fleeing {
		f.x += f.traits.Speed * tank.CruiseRate * tank.FleeSpeed * 2 * dir * dt
		f.y += (rng.Float64()*2 - 1) * 0.3
	} else {
		f.x += f.traits.Speed * tank.CruiseRate * dir * dt
		f.y += noise.Eval2(f.phase*0.25, f.drift) * 0.6 * dt
	}
	f.y = math.Max(tank.WaterTop+1, math.Min(tank.Height-2, f.y))

	switch {
	case f.x > tank.Width+tank.Margin:
		f.x = -tank.Margin
		f.y = randomDepth(tank, rng)
		f.direction = 1
	case f.x < -tank.Margin:
		f.x = tank.Width + tank.Margin
		f.y = randomDepth(tank, rng)
		f.direction = -1
	}
}

func randomDepth(tank Tank, rng Rand) float64 {
	top := tank.WaterTop + 1
	span := tank.Height - 2 - top
	if span <= 0 {
		return top
	}
	return top + rng.Float64()*span
}
