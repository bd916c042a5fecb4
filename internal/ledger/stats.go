// Package ledger is the durable record of a user's progress: lifetime
// statistics, achievements, levels, streaks, the catch log and per-run
// sessions. The in-memory Ledger is authoritative; a Store persists it.
package ledger

import (
	"time"

	"github.com/talgya/quietfish/internal/rarity"
)

const (
	quietSecondsPerPoint = 10
	pomodoroPoints       = 300
	dateLayout           = "2006-01-02"
)

// Stats are the lifetime counters.
type Stats struct {
	TotalQuietSeconds float64             `json:"total_quiet_seconds"`
	QuietPointCarry   float64             `json:"quiet_point_carry"` // quiet seconds not yet worth a point
	TotalFishCaught   int                 `json:"total_fish_caught"`
	FishByRarity      map[rarity.Tier]int `json:"fish_by_rarity"`
	PomodoroCompleted int                 `json:"pomodoro_completed"`
	StreakDays        int                 `json:"streak_days"`
	LastUsedDate      string              `json:"last_used_date,omitempty"` // YYYY-MM-DD
	TotalSessions     int                 `json:"total_sessions"`
	Points            int                 `json:"points"`
}

// DefaultStats is the state of a brand new ledger.
func DefaultStats() Stats {
	return Stats{FishByRarity: make(map[rarity.Tier]int)}
}

func (s Stats) clone() Stats {
	out := s
	out.FishByRarity = make(map[rarity.Tier]int, len(s.FishByRarity))
	for k, v := range s.FishByRarity {
		out.FishByRarity[k] = v
	}
	return out
}

func (s *Stats) addFish(tier rarity.Tier, points int) {
	if s.FishByRarity == nil {
		s.FishByRarity = make(map[rarity.Tier]int)
	}
	s.TotalFishCaught++
	s.FishByRarity[tier]++
	s.Points += points
}

// addQuiet credits one point per full ten quiet seconds, carrying the
// remainder across calls so per-frame deltas still add up.
func (s *Stats) addQuiet(seconds float64) {
	if seconds <= 0 {
		return
	}
	s.TotalQuietSeconds += seconds
	s.QuietPointCarry += seconds
	if earned := int(s.QuietPointCarry / quietSecondsPerPoint); earned > 0 {
		s.Points += earned
		s.QuietPointCarry -= float64(earned * quietSecondsPerPoint)
	}
}

func (s *Stats) addPomodoro() {
	s.PomodoroCompleted++
	s.Points += pomodoroPoints
}

// touchStreak registers a day of use. Same day: no change. The day after
// the last use: streak grows. Otherwise the streak restarts at 1.
func (s *Stats) touchStreak(today time.Time) bool {
	day := today.Format(dateLayout)
	if s.LastUsedDate == day {
		return false
	}

	streak := 1
	if s.LastUsedDate != "" {
		if last, err := time.ParseInLocation(dateLayout, s.LastUsedDate, today.Location()); err == nil {
			if last.AddDate(0, 0, 1).Format(dateLayout) == day {
				streak = max(s.StreakDays, 1) + 1
			}
		}
	}
	s.StreakDays = streak
	s.LastUsedDate = day
	s.TotalSessions++
	return true
}
