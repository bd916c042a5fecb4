package audio

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"

	"github.com/talgya/quietfish/internal/rarity"
)

const chimeRate = beep.SampleRate(44100)

// Pentatonic steps, one per tier; rarer fish ring higher.
var chimeFreqs = [rarity.NumTiers]float64{523.25, 587.33, 659.25, 783.99, 880.00}

// Chime plays a short tone when a rare fish arrives. A nil *Chime is a
// valid no-op.
type Chime struct {
	volume float64 // log2 gain applied to every tone
}

// NewChime initialises the speaker.
func NewChime() (*Chime, error) {
	if err := speaker.Init(chimeRate, chimeRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}
	return &Chime{volume: -2}, nil
}

// Play rings for rare and rarer tiers. Commons are silent.
func (c *Chime) Play(tier rarity.Tier) {
	if c == nil || tier < rarity.Rare || !tier.Valid() {
		return
	}
	s, err := chimeTone(tier, c.volume)
	if err != nil {
		slog.Warn("chime failed", "tier", tier, "error", err)
		return
	}
	speaker.Play(s)
}

// Close shuts the speaker down.
func (c *Chime) Close() {
	if c == nil {
		return
	}
	speaker.Close()
}

// chimeTone builds the tone for tier: a single note that lengthens with
// rank, followed by an octave for legendary and mythic.
func chimeTone(tier rarity.Tier, volume float64) (beep.Streamer, error) {
	freq := chimeFreqs[tier]
	dur := 120*time.Millisecond + time.Duration(tier)*40*time.Millisecond

	root, err := generators.SineTone(chimeRate, freq)
	if err != nil {
		return nil, err
	}
	tone := beep.Take(chimeRate.N(dur), root)

	if tier >= rarity.Legendary {
		octave, err := generators.SineTone(chimeRate, freq*2)
		if err != nil {
			return nil, err
		}
		tone = beep.Seq(tone, beep.Take(chimeRate.N(dur/2), octave))
	}
	return &effects.Volume{Streamer: tone, Base: 2, Volume: volume}, nil
}
