// Package pomodoro is a work/break focus timer driven by the frame loop.
package pomodoro

import (
	"fmt"
	"time"
)

// Phase is the part of the cycle the timer is in.
type Phase uint8

const (
	Work Phase = iota
	Break
)

func (p Phase) String() string {
	if p == Break {
		return "break"
	}
	return "work"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "work":
		*p = Work
	case "break":
		*p = Break
	default:
		return fmt.Errorf("unknown pomodoro phase %q", b)
	}
	return nil
}

// Completion reports a phase that ended during Update.
type Completion uint8

const (
	None Completion = iota
	WorkDone
	BreakDone
)

// Timer alternates work and break phases while running. It has a single
// owner; readers take a State copy.
type Timer struct {
	work, brk time.Duration
	running   bool
	phase     Phase
	remaining time.Duration
}

// New returns a stopped timer at the start of a work phase.
func New(work, brk time.Duration) (*Timer, error) {
	if work <= 0 || brk <= 0 {
		return nil, fmt.Errorf("pomodoro phases must be positive (work %s, break %s)", work, brk)
	}
	return &Timer{work: work, brk: brk, remaining: work}, nil
}

// Toggle starts or pauses the timer and reports whether it is now running.
func (t *Timer) Toggle() bool {
	t.running = !t.running
	return t.running
}

// Reset stops the timer and rewinds to a fresh work phase.
func (t *Timer) Reset() {
	t.running = false
	t.phase = Work
	t.remaining = t.work
}

// Update advances a running timer by dt. A finished phase rolls straight
// into the next one; at most one completion is reported per call.
func (t *Timer) Update(dt time.Duration) Completion {
	if !t.running || dt <= 0 {
		return None
	}
	t.remaining -= dt
	if t.remaining > 0 {
		return None
	}
	if t.phase == Work {
		t.phase = Break
		t.remaining = t.brk
		return WorkDone
	}
	t.phase = Work
	t.remaining = t.work
	return BreakDone
}

// State is a read-only view of the timer.
type State struct {
	Running   bool          `json:"running"`
	Phase     Phase         `json:"phase"`
	Remaining time.Duration `json:"remaining_ns"`
	Progress  float64       `json:"progress"` // 0..1 through the current phase
}

// State returns the current view.
func (t *Timer) State() State {
	total := t.work
	if t.phase == Break {
		total = t.brk
	}
	return State{
		Running:   t.running,
		Phase:     t.phase,
		Remaining: t.remaining,
		Progress:  1 - float64(t.remaining)/float64(total),
	}
}

// Clock formats the remaining time as MM:SS.
func (s State) Clock() string {
	secs := int((s.Remaining + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
