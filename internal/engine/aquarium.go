package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/ojrac/opensimplex-go"

	"github.com/talgya/quietfish/internal/config"
	"github.com/talgya/quietfish/internal/fish"
	"github.com/talgya/quietfish/internal/ledger"
	"github.com/talgya/quietfish/internal/pomodoro"
	"github.com/talgya/quietfish/internal/quiet"
	"github.com/talgya/quietfish/internal/rarity"
)

// Recorder receives the progress the aquarium produces. *ledger.Ledger
// satisfies it.
type Recorder interface {
	RecordFish(tier rarity.Tier, points int)
	RecordRemoval(tier rarity.Tier)
	RecordQuietSeconds(seconds float64)
	RecordPomodoro()
	CheckAchievements(population int, isNight bool) []ledger.AchievementID
}

// Command is a request from the presentation layer, applied at the start
// of the next frame.
type Command uint8

const (
	TogglePomodoro Command = iota
	ResetPomodoro
)

// Result reports what happened during one Tick.
type Result struct {
	Reading    quiet.Reading
	Transition quiet.Transition
	Spawned    *fish.Fish
	Removed    *fish.Fish
	Pomodoro   pomodoro.Completion
}

// Aquarium owns the progression state and the live population. Tick is
// called from a single goroutine; everything else reads Snapshot.
type Aquarium struct {
	cfg      config.Config
	eval     quiet.Evaluator
	params   quiet.Params
	state    quiet.State
	pop      *Population
	bubbles  []fish.Bubble
	selector *rarity.Selector
	rng      fish.Rand
	noise    opensimplex.Noise
	recorder Recorder
	timer    *pomodoro.Timer

	commands chan Command
	flash    []ledger.AchievementID
	flashFor float64 // seconds left on the current flash

	frame   uint64
	spawned int
	removed int
	last    quiet.Reading

	snap atomic.Pointer[Snapshot]

	// OnSpawn, if set, is called for every fish caught during a Tick.
	OnSpawn func(f *fish.Fish)
}

// NewAquarium builds an aquarium stocked with cfg.InitialFish fish. Initial
// stock is not credited to the recorder.
func NewAquarium(cfg config.Config, rng fish.Rand, rec Recorder) (*Aquarium, error) {
	params, err := cfg.Progression()
	if err != nil {
		return nil, fmt.Errorf("progression: %w", err)
	}
	timer, err := pomodoro.New(cfg.PomodoroWork, cfg.PomodoroBreak)
	if err != nil {
		return nil, err
	}

	a := &Aquarium{
		cfg:      cfg,
		eval:     cfg.Evaluator(),
		params:   params,
		state:    params.NewState(),
		pop:      NewPopulation(cfg.MinFish, cfg.MaxFish),
		rng:      rng,
		noise:    opensimplex.New(int64(rng.Intn(math.MaxInt32))),
		recorder: rec,
		timer:    timer,
		commands: make(chan Command, 16),
	}
	a.selector = rarity.NewSelector(&a.cfg.Tiers, cfg.FullTimeFactor.Seconds(), rng)

	for a.pop.Len() < cfg.InitialFish && a.pop.CanGrow() {
		a.pop.Add(a.newFish(rarity.Common))
	}
	a.publish()
	return a, nil
}

func (a *Aquarium) newFish(tier rarity.Tier) *fish.Fish {
	return fish.New(tier, a.cfg.Tiers.Spec(tier), a.cfg.Tank, a.rng)
}

// Send queues a command for the next frame. Commands beyond the queue
// capacity are dropped.
func (a *Aquarium) Send(c Command) {
	select {
	case a.commands <- c:
	default:
		slog.Warn("aquarium command dropped", "command", c)
	}
}

// Tick runs one frame: evaluate volume, advance progression, apply at most
// one spawn or one removal, then move every fish.
func (a *Aquarium) Tick(dt time.Duration, volume float64) Result {
	secs := dt.Seconds()
	if secs < 0 {
		secs = 0
	}
	a.frame++
	a.drainCommands()

	var res Result
	res.Reading = a.eval.Evaluate(volume)
	res.Transition = a.params.Advance(&a.state, res.Reading, secs)
	a.last = res.Reading

	if res.Reading.Silent {
		a.recorder.RecordQuietSeconds(secs)
		if a.state.ReadyToSpawn() && a.pop.CanGrow() {
			res.Spawned = a.spawn()
		}
	} else if a.pop.CanShrink() {
		p := math.Min(1, (1-res.Reading.Quietness)*secs*a.cfg.RemoveRate)
		if p > 0 && a.rng.Float64() < p {
			res.Removed = a.removeOne()
		}
	}

	res.Pomodoro = a.timer.Update(dt)
	if res.Pomodoro == pomodoro.WorkDone {
		a.recorder.RecordPomodoro()
		slog.Info("pomodoro completed")
	}

	a.move(res.Reading.Volume, secs)
	if a.flashFor > 0 {
		a.flashFor -= secs
		if a.flashFor <= 0 && len(a.flash) > 0 {
			a.flash = a.flash[1:]
			if len(a.flash) > 0 {
				a.flashFor = a.cfg.AchievementFlash.Seconds()
			}
		}
	}

	a.publish()
	return res
}

func (a *Aquarium) spawn() *fish.Fish {
	secs := a.state.SessionQuietSeconds
	tier := a.selector.Select(a.params.Unlocked(secs), secs)
	f := a.newFish(tier)
	a.pop.Add(f)
	a.state.ConsumeScore()
	a.spawned++

	pts := f.Traits().Points
	a.recorder.RecordFish(tier, pts)
	slog.Debug("fish spawned", "tier", tier, "points", pts, "population", a.pop.Len(), "quiet_s", int(secs))

	if a.rng.Float64() < a.cfg.BubbleOnSpawn {
		x, _, _ := f.Position()
		a.bubbles = append(a.bubbles, fish.NewBubble(math.Max(0, math.Min(a.cfg.Tank.Width-1, x)), a.cfg.Tank, a.rng))
	}
	if a.OnSpawn != nil {
		a.OnSpawn(f)
	}
	return f
}

func (a *Aquarium) removeOne() *fish.Fish {
	f, ok := a.pop.RemoveHighest()
	if !ok {
		return nil
	}
	a.removed++
	a.recorder.RecordRemoval(f.Tier())
	slog.Debug("fish swam away", "tier", f.Tier(), "population", a.pop.Len())
	return f
}

func (a *Aquarium) move(volume, secs float64) {
	for _, f := range a.pop.Fish() {
		f.Update(volume, a.cfg.SilenceThreshold, secs, a.cfg.Tank, a.noise, a.rng)
	}

	if a.rng.Float64() < a.cfg.BubblePerFrame {
		a.bubbles = append(a.bubbles, fish.NewBubble(a.rng.Float64()*a.cfg.Tank.Width, a.cfg.Tank, a.rng))
	}
	live := a.bubbles[:0]
	for i := range a.bubbles {
		if a.bubbles[i].Update(secs, a.cfg.Tank) {
			live = append(live, a.bubbles[i])
		}
	}
	a.bubbles = live
}

func (a *Aquarium) drainCommands() {
	for {
		select {
		case c := <-a.commands:
			switch c {
			case TogglePomodoro:
				running := a.timer.Toggle()
				slog.Info("pomodoro toggled", "running", running)
			case ResetPomodoro:
				a.timer.Reset()
			}
		default:
			return
		}
	}
}

// Second runs the once-per-second checks. now decides the night window.
func (a *Aquarium) Second(now time.Time) []ledger.AchievementID {
	unlocked := a.recorder.CheckAchievements(a.pop.Len(), a.cfg.IsNight(now.Hour()))
	if len(unlocked) > 0 {
		if len(a.flash) == 0 {
			a.flashFor = a.cfg.AchievementFlash.Seconds()
		}
		a.flash = append(a.flash, unlocked...)
		a.publish()
	}
	return unlocked
}

// State returns a copy of the progression state.
func (a *Aquarium) State() quiet.State { return a.state }

// Population returns the live collection. Owner goroutine only.
func (a *Aquarium) Population() *Population { return a.pop }

// Snapshot returns the most recently published read-only view.
func (a *Aquarium) Snapshot() *Snapshot { return a.snap.Load() }
