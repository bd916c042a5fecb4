// Package engine provides the frame loop and the aquarium it drives.
package engine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Engine drives the aquarium forward, one frame per interval.
type Engine struct {
	Frame    uint64        // Current frame counter (monotonic, never resets)
	Interval time.Duration // Target frame interval

	// Callbacks, populated during setup.
	OnFrame  func(frame uint64, dt time.Duration) // Every frame
	OnSecond func(frame uint64)                   // Once per wall-clock second

	Now func() time.Time

	running    atomic.Bool
	sinceSec   time.Duration
	lastFrame  time.Time
	stopSignal chan struct{}
}

// NewEngine creates a frame engine at the given interval.
func NewEngine(interval time.Duration) *Engine {
	return &Engine{
		Interval:   interval,
		Now:        time.Now,
		stopSignal: make(chan struct{}, 1),
	}
}

// Running reports whether Run is active.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Run starts the frame loop. Blocks until ctx is done or Stop is called.
func (e *Engine) Run(ctx context.Context) {
	e.running.Store(true)
	defer e.running.Store(false)
	slog.Info("frame engine started", "frame", e.Frame, "interval", e.Interval)

	ticker := time.NewTicker(e.Interval)
	defer ticker.Stop()
	e.lastFrame = e.Now()

	for {
		select {
		case <-ctx.Done():
			slog.Info("frame engine stopped", "frame", e.Frame, "reason", ctx.Err())
			return
		case <-e.stopSignal:
			slog.Info("frame engine stopped", "frame", e.Frame)
			return
		case <-ticker.C:
			now := e.Now()
			dt := now.Sub(e.lastFrame)
			e.lastFrame = now
			e.Step(dt)
		}
	}
}

// Stop halts the frame loop.
func (e *Engine) Stop() {
	select {
	case e.stopSignal <- struct{}{}:
	default:
	}
}

// Step advances the engine by one frame of dt. A long stall arrives as
// one large dt and is passed through unchanged.
func (e *Engine) Step(dt time.Duration) {
	if dt < 0 {
		dt = 0
	}
	e.Frame++

	if e.OnFrame != nil {
		e.OnFrame(e.Frame, dt)
	}

	e.sinceSec += dt
	if e.sinceSec >= time.Second {
		e.sinceSec -= time.Second
		if e.sinceSec >= time.Second {
			// Stalled for several seconds; one callback is enough.
			e.sinceSec = 0
		}
		if e.OnSecond != nil {
			e.OnSecond(e.Frame)
		}
	}
}
