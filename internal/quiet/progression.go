package quiet

import (
	"math"

	"github.com/talgya/quietfish/internal/rarity"
)

// Transition names the silence edge crossed during a tick, if any.
type Transition uint8

const (
	NoTransition Transition = iota
	EnteredSilence
	EnteredNoise
)

func (t Transition) String() string {
	switch t {
	case EnteredSilence:
		return "entered_silence"
	case EnteredNoise:
		return "entered_noise"
	default:
		return "none"
	}
}

// Params is the static tuning of the progression accumulator.
type Params struct {
	Ladder   Staircase[rarity.Tier] // unlocked max tier by quiet minutes
	Required Staircase[float64]     // spawn threshold by quiet minutes

	// Score gained per second of silence, linear in quietness between
	// MinRate (quietness 0) and MaxRate (quietness 1).
	MinRate float64
	MaxRate float64

	// CeilingFactor caps QuietScore at CeilingFactor × RequiredScore.
	CeilingFactor float64
}

// State is the progression state. It has a single owner and is advanced
// once per tick.
type State struct {
	SessionQuietSeconds float64 `json:"session_quiet_seconds"`
	QuietScore          float64 `json:"quiet_score"`
	RequiredScore       float64 `json:"required_score"`
	Silent              bool    `json:"silent"`
}

// NewState returns the zero state with its required score initialised.
func (p *Params) NewState() State {
	return State{RequiredScore: p.Required.At(0)}
}

// Accumulation returns the score rate for the given quietness.
func (p *Params) Accumulation(quietness float64) float64 {
	q := math.Max(0, math.Min(1, quietness))
	return p.MinRate + (p.MaxRate-p.MinRate)*q
}

// Advance applies one tick of dt seconds to s.
//
// Recovering silence only clears the score; going noisy clears both the
// score and the quiet streak. Brief noise is not forgiven.
func (p *Params) Advance(s *State, r Reading, dt float64) Transition {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	edge := NoTransition
	switch {
	case r.Silent && !s.Silent:
		edge = EnteredSilence
		s.QuietScore = 0
	case !r.Silent && s.Silent:
		edge = EnteredNoise
	}
	s.Silent = r.Silent

	if !r.Silent {
		s.SessionQuietSeconds = 0
		s.QuietScore = 0
		s.RequiredScore = p.Required.At(0)
		return edge
	}

	s.SessionQuietSeconds += dt
	s.RequiredScore = p.Required.At(s.SessionQuietSeconds)
	s.QuietScore += p.Accumulation(r.Quietness) * dt
	if ceiling := p.CeilingFactor * s.RequiredScore; p.CeilingFactor > 0 && s.QuietScore > ceiling {
		s.QuietScore = ceiling
	}
	return edge
}

// ReadyToSpawn reports whether the score has reached the threshold.
func (s *State) ReadyToSpawn() bool {
	return s.Silent && s.QuietScore >= s.RequiredScore
}

// ConsumeScore resets the score after a spawn.
func (s *State) ConsumeScore() {
	s.QuietScore = 0
}

// UnlockedMax returns the highest tier reachable after quietSeconds.
func (p *Params) UnlockedMax(quietSeconds float64) rarity.Tier {
	return p.Ladder.At(quietSeconds)
}

// Unlocked returns every tier from Common up to UnlockedMax, ascending.
func (p *Params) Unlocked(quietSeconds float64) []rarity.Tier {
	maxTier := p.UnlockedMax(quietSeconds)
	tiers := make([]rarity.Tier, 0, int(maxTier)+1)
	for t := rarity.Common; t <= maxTier && t.Valid(); t++ {
		tiers = append(tiers, t)
	}
	return tiers
}
