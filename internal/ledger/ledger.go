package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/quietfish/internal/rarity"
)

// maxPendingEvents bounds the catch log held while the store is failing.
const maxPendingEvents = 1000

const asyncFlushTimeout = 10 * time.Second

// Ledger is the in-memory, authoritative record of progress. It is safe
// for concurrent use: the engine writes while the API and TUI read.
type Ledger struct {
	store Store
	now   func() time.Time

	mu           sync.Mutex
	stats        Stats
	achievements map[AchievementID]time.Time
	pending      []Event
	session      Session

	flushMu  sync.Mutex // serializes writes to the store
	flushing atomic.Bool
	wg       sync.WaitGroup
}

// Open loads the stored snapshot and starts a new session. Unreadable or
// malformed state is logged and replaced by defaults; the ledger always
// opens. now may be nil.
func Open(ctx context.Context, store Store, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	l := &Ledger{
		store:        store,
		now:          now,
		stats:        DefaultStats(),
		achievements: make(map[AchievementID]time.Time),
	}

	snap, ok, err := store.Load(ctx)
	switch {
	case err != nil:
		slog.Warn("ledger unreadable, starting fresh", "error", err)
	case ok:
		l.stats = snap.Stats.clone()
		if l.stats.FishByRarity == nil {
			l.stats.FishByRarity = make(map[rarity.Tier]int)
		}
		for id, at := range snap.Achievements {
			l.achievements[id] = at
		}
	}

	start := now()
	l.stats.touchStreak(start)
	l.session = Session{ID: uuid.New(), StartedAt: start}

	if err := store.SaveSession(ctx, l.session); err != nil {
		slog.Warn("failed to record session start", "session", l.session.ID, "error", err)
	}
	slog.Info("ledger opened",
		"session", l.session.ID,
		"points", l.stats.Points,
		"fish", l.stats.TotalFishCaught,
		"streak", l.stats.StreakDays,
	)
	return l
}

// appendEvent must be called with mu held.
func (l *Ledger) appendEvent(e Event) {
	e.Session = l.session.ID
	if e.At.IsZero() {
		e.At = l.now()
	}
	l.pending = append(l.pending, e)
	if over := len(l.pending) - maxPendingEvents; over > 0 {
		l.pending = l.pending[over:]
	}
}

// RecordFish credits a spawned fish.
func (l *Ledger) RecordFish(tier rarity.Tier, points int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.addFish(tier, points)
	l.session.Spawned++
	l.appendEvent(Event{Kind: EventCatch, Tier: tier.String(), Points: points})
}

// RecordRemoval logs a fish that swam away.
func (l *Ledger) RecordRemoval(tier rarity.Tier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.session.Removed++
	l.appendEvent(Event{Kind: EventRelease, Tier: tier.String()})
}

// RecordQuietSeconds credits silent time.
func (l *Ledger) RecordQuietSeconds(seconds float64) {
	if seconds <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.addQuiet(seconds)
	l.session.QuietSeconds += seconds
}

// RecordPomodoro credits a completed work phase.
func (l *Ledger) RecordPomodoro() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats.addPomodoro()
	l.appendEvent(Event{Kind: EventPomodoro, Points: pomodoroPoints})
}

// CheckStreak registers use on the current day. It matters for runs that
// cross midnight; Open already counts the start day.
func (l *Ledger) CheckStreak() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.touchStreak(l.now())
}

// CheckAchievements unlocks every achievement whose condition now holds
// and returns the newly unlocked ones. An achievement is reported once.
func (l *Ledger) CheckAchievements(population int, isNight bool) []AchievementID {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := &l.stats
	conditions := []struct {
		id AchievementID
		ok bool
	}{
		{FirstFish, s.TotalFishCaught >= 1},
		{RareHunter, s.FishByRarity[rarity.Rare] >= 1},
		{Collector10, population >= 10},
		{Collector20, population >= 20},
		{LegendarySight, s.FishByRarity[rarity.Legendary] >= 1},
		{QuietMaster, s.TotalQuietSeconds >= 3600},
		{FocusWarrior, s.PomodoroCompleted >= 5},
		{NightOwl, isNight},
		{Streak3, s.StreakDays >= 3},
		{TotalFish100, s.TotalFishCaught >= 100},
	}

	var unlocked []AchievementID
	now := l.now()
	for _, c := range conditions {
		if !c.ok {
			continue
		}
		if _, done := l.achievements[c.id]; done {
			continue
		}
		l.achievements[c.id] = now
		unlocked = append(unlocked, c.id)
		l.appendEvent(Event{At: now, Kind: EventAchievement, Detail: string(c.id)})
		slog.Info("achievement unlocked", "id", c.id)
	}
	return unlocked
}

// TotalQuietHours returns lifetime quiet time in hours.
func (l *Ledger) TotalQuietHours() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.TotalQuietSeconds / 3600
}

// Stats returns a copy of the lifetime counters.
func (l *Ledger) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats.clone()
}

// Level returns the current level.
func (l *Ledger) Level() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LevelFor(l.stats.Points)
}

// Session returns the current session.
func (l *Ledger) Session() Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session
}

// AchievementStatus is a catalog entry with its unlock state.
type AchievementStatus struct {
	Achievement
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// Achievements returns the whole catalog in display order.
func (l *Ledger) Achievements() []AchievementStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AchievementStatus, 0, len(Catalog))
	for _, a := range Catalog {
		st := AchievementStatus{Achievement: a}
		if at, ok := l.achievements[a.ID]; ok {
			st.Unlocked = true
			st.UnlockedAt = &at
		}
		out = append(out, st)
	}
	return out
}

// Summary is the ledger as exposed to the presentation layer and API.
type Summary struct {
	Stats        Stats   `json:"stats"`
	Level        Level   `json:"level"`
	NextLevel    *Level  `json:"next_level,omitempty"`
	Achievements int     `json:"achievements_unlocked"`
	Session      Session `json:"session"`
}

// Summary returns a consistent copy of the headline numbers.
func (l *Ledger) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	lvl := LevelFor(l.stats.Points)
	sum := Summary{
		Stats:        l.stats.clone(),
		Level:        lvl,
		Achievements: len(l.achievements),
		Session:      l.session,
	}
	for _, next := range Levels {
		if next.Level == lvl.Level+1 {
			sum.NextLevel = &next
			break
		}
	}
	return sum
}

// RecentEvents returns up to limit catch-log entries, newest first,
// including ones not yet flushed.
func (l *Ledger) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	out := make([]Event, 0, limit)
	for i := len(l.pending) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.pending[i])
	}
	l.mu.Unlock()

	if len(out) == limit {
		return out, nil
	}
	stored, err := l.store.RecentEvents(ctx, limit-len(out))
	if err != nil {
		return out, fmt.Errorf("recent events: %w", err)
	}
	return append(out, stored...), nil
}

// Flush writes the snapshot, pending events and session to the store.
// Events that fail to persist are kept for the next attempt.
func (l *Ledger) Flush(ctx context.Context) error {
	l.flushMu.Lock()
	defer l.flushMu.Unlock()

	l.mu.Lock()
	snap := Snapshot{Stats: l.stats.clone(), Achievements: make(map[AchievementID]time.Time, len(l.achievements))}
	for id, at := range l.achievements {
		snap.Achievements[id] = at
	}
	batch := l.pending
	l.pending = nil
	session := l.session
	l.mu.Unlock()

	var errs []error
	if err := l.store.Save(ctx, snap); err != nil {
		errs = append(errs, fmt.Errorf("save snapshot: %w", err))
	}
	if err := l.store.AppendEvents(ctx, batch); err != nil {
		errs = append(errs, fmt.Errorf("append events: %w", err))
		l.mu.Lock()
		l.pending = append(batch, l.pending...)
		if over := len(l.pending) - maxPendingEvents; over > 0 {
			l.pending = l.pending[over:]
		}
		l.mu.Unlock()
	}
	if err := l.store.SaveSession(ctx, session); err != nil {
		errs = append(errs, fmt.Errorf("save session: %w", err))
	}
	return errors.Join(errs...)
}

// FlushAsync starts a background flush unless one is already running, in
// which case the call is dropped; the next periodic flush catches up.
func (l *Ledger) FlushAsync() {
	if !l.flushing.CompareAndSwap(false, true) {
		return
	}
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer l.flushing.Store(false)
		ctx, cancel := context.WithTimeout(context.Background(), asyncFlushTimeout)
		defer cancel()
		if err := l.Flush(ctx); err != nil {
			slog.Error("ledger flush failed", "error", err)
		}
	}()
}

// Close ends the session, waits for background flushes, writes a final
// flush and closes the store.
func (l *Ledger) Close(ctx context.Context) error {
	l.wg.Wait()

	l.mu.Lock()
	l.session.EndedAt = l.now()
	l.mu.Unlock()

	return errors.Join(l.Flush(ctx), l.store.Close())
}
