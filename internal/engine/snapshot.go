package engine

import (
	"github.com/talgya/quietfish/internal/fish"
	"github.com/talgya/quietfish/internal/ledger"
	"github.com/talgya/quietfish/internal/pomodoro"
	"github.com/talgya/quietfish/internal/quiet"
	"github.com/talgya/quietfish/internal/rarity"
)

// FishView is one fish as the presentation layer sees it.
type FishView struct {
	Tier      rarity.Tier `json:"tier"`
	Points    int         `json:"points"`
	Color     rarity.RGB  `json:"color"`
	Size      int         `json:"size"`
	Glow      bool        `json:"glow"`
	X         float64     `json:"x"`
	Y         float64     `json:"y"`
	Direction int         `json:"direction"`
	Age       float64     `json:"age"`
	Fleeing   bool        `json:"fleeing"`
}

// BubbleView is one rising bubble.
type BubbleView struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size int     `json:"size"`
}

// NextUnlock is the next tier on the ladder and the quiet time it needs.
type NextUnlock struct {
	Tier      rarity.Tier `json:"tier"`
	InSeconds float64     `json:"in_seconds"`
}

// Snapshot is an immutable copy of the aquarium published once per frame.
type Snapshot struct {
	Frame uint64 `json:"frame"`

	Fish       []FishView              `json:"fish"`
	Bubbles    []BubbleView            `json:"bubbles"`
	Population int                     `json:"population"`
	ByTier     [rarity.NumTiers]int    `json:"by_tier"`
	MinFish    int                     `json:"min_fish"`
	MaxFish    int                     `json:"max_fish"`
	Tank       fish.Tank               `json:"tank"`
	Reading    quiet.Reading           `json:"reading"`
	Progress   quiet.State             `json:"progress"`
	Unlocked   rarity.Tier             `json:"unlocked_max_tier"`
	Next       *NextUnlock             `json:"next_unlock,omitempty"`
	Odds       map[rarity.Tier]float64 `json:"odds"`
	Pomodoro   pomodoro.State          `json:"pomodoro"`
	Flash      *ledger.Achievement     `json:"flash,omitempty"`
	Spawned    int                     `json:"spawned"`
	Removed    int                     `json:"removed"`
}

func (a *Aquarium) publish() {
	secs := a.state.SessionQuietSeconds
	s := &Snapshot{
		Frame:      a.frame,
		Fish:       make([]FishView, 0, a.pop.Len()),
		Bubbles:    make([]BubbleView, 0, len(a.bubbles)),
		Population: a.pop.Len(),
		ByTier:     a.pop.Counts(),
		MinFish:    a.pop.Min,
		MaxFish:    a.pop.Max,
		Tank:       a.cfg.Tank,
		Reading:    a.last,
		Progress:   a.state,
		Unlocked:   a.params.UnlockedMax(secs),
		Odds:       a.selector.Odds(a.params.Unlocked(secs), secs),
		Pomodoro:   a.timer.State(),
		Spawned:    a.spawned,
		Removed:    a.removed,
	}
	for _, f := range a.pop.Fish() {
		tr := f.Traits()
		x, y, dir := f.Position()
		s.Fish = append(s.Fish, FishView{
			Tier:      tr.Tier,
			Points:    tr.Points,
			Color:     tr.Color,
			Size:      tr.Size,
			Glow:      tr.Glow,
			X:         x,
			Y:         y,
			Direction: dir,
			Age:       f.Age(),
			Fleeing:   f.Fleeing(),
		})
	}
	for _, b := range a.bubbles {
		s.Bubbles = append(s.Bubbles, BubbleView{X: b.X, Y: b.Y, Size: b.Size})
	}
	if step, ok := a.params.Ladder.NextAfter(secs); ok {
		s.Next = &NextUnlock{Tier: step.Value, InSeconds: step.Minutes*60 - secs}
	}
	if len(a.flash) > 0 {
		if ach, ok := ledger.Lookup(a.flash[0]); ok {
			s.Flash = &ach
		}
	}
	a.snap.Store(s)
}
