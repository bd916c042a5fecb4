package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talgya/quietfish/internal/rarity"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestOpenFreshLedger(t *testing.T) {
	clock := &fakeClock{t: day("2026-03-01 10:00")}
	l := Open(context.Background(), NewMemoryStore(), clock.now)

	s := l.Stats()
	if s.StreakDays != 1 || s.TotalSessions != 1 || s.LastUsedDate != "2026-03-01" {
		t.Errorf("fresh stats = %+v, want streak 1, 1 session, last used 2026-03-01", s)
	}
	if l.Level().Name != "Novice" {
		t.Errorf("level = %s, want Novice", l.Level().Name)
	}
}

func TestQuietPointsCarryRemainder(t *testing.T) {
	l := Open(context.Background(), NewMemoryStore(), nil)
	base := l.Stats().Points

	// 30 frames per second for 25 seconds.
	for i := 0; i < 750; i++ {
		l.RecordQuietSeconds(1.0 / 30)
	}
	s := l.Stats()
	if got := s.Points - base; got != 2 {
		t.Errorf("points from 25 quiet seconds = %d, want 2", got)
	}
	if s.TotalQuietSeconds < 24.99 || s.TotalQuietSeconds > 25.01 {
		t.Errorf("total quiet = %v, want 25", s.TotalQuietSeconds)
	}
}

func TestRecordFishAndPomodoro(t *testing.T) {
	l := Open(context.Background(), NewMemoryStore(), nil)
	l.RecordFish(rarity.Common, 10)
	l.RecordFish(rarity.Epic, 200)
	l.RecordPomodoro()

	s := l.Stats()
	if s.TotalFishCaught != 2 || s.FishByRarity[rarity.Epic] != 1 {
		t.Errorf("fish counts = %+v", s)
	}
	if s.Points != 510 {
		t.Errorf("points = %d, want 510", s.Points)
	}
	if s.PomodoroCompleted != 1 {
		t.Errorf("pomodoros = %d, want 1", s.PomodoroCompleted)
	}
	if l.Level().Name != "Apprentice" {
		t.Errorf("level at 510 points = %s, want Apprentice", l.Level().Name)
	}
	if sess := l.Session(); sess.Spawned != 2 {
		t.Errorf("session spawned = %d, want 2", sess.Spawned)
	}
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name   string
		last   string
		streak int
		today  string
		want   int
	}{
		{"first use", "", 0, "2026-03-05 09:00", 1},
		{"consecutive", "2026-03-04", 2, "2026-03-05 09:00", 3},
		{"gap resets", "2026-03-01", 5, "2026-03-05 09:00", 1},
		{"garbage date", "yesterday", 4, "2026-03-05 09:00", 1},
		{"month boundary", "2026-02-28", 1, "2026-03-01 00:10", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Stats{LastUsedDate: tt.last, StreakDays: tt.streak}
			if !s.touchStreak(day(tt.today)) {
				t.Fatal("touchStreak reported no change on a new day")
			}
			if s.StreakDays != tt.want {
				t.Errorf("streak = %d, want %d", s.StreakDays, tt.want)
			}
		})
	}

	s := Stats{LastUsedDate: "2026-03-05", StreakDays: 3, TotalSessions: 7}
	if s.touchStreak(day("2026-03-05 22:00")) {
		t.Error("same day must not change the streak")
	}
	if s.StreakDays != 3 || s.TotalSessions != 7 {
		t.Errorf("same day changed stats: %+v", s)
	}
}

func TestAchievementsAreIdempotent(t *testing.T) {
	l := Open(context.Background(), NewMemoryStore(), nil)

	if got := l.CheckAchievements(3, false); len(got) != 0 {
		t.Fatalf("unlocked %v with nothing done", got)
	}

	l.RecordFish(rarity.Rare, 50)
	got := l.CheckAchievements(12, true)
	want := map[AchievementID]bool{FirstFish: true, RareHunter: true, Collector10: true, NightOwl: true}
	if len(got) != len(want) {
		t.Fatalf("unlocked %v, want %v", got, want)
	}
	for _, id := range got {
		if !want[id] {
			t.Errorf("unexpected unlock %s", id)
		}
	}

	if again := l.CheckAchievements(12, true); len(again) != 0 {
		t.Errorf("re-emitted %v", again)
	}

	unlocked := 0
	for _, a := range l.Achievements() {
		if a.Unlocked {
			unlocked++
		}
	}
	if unlocked != 4 {
		t.Errorf("catalog shows %d unlocked, want 4", unlocked)
	}
}

func TestQuietMasterNeedsOneHour(t *testing.T) {
	l := Open(context.Background(), NewMemoryStore(), nil)
	l.RecordQuietSeconds(3599)
	for _, id := range l.CheckAchievements(0, false) {
		if id == QuietMaster {
			t.Fatal("quiet master unlocked before an hour")
		}
	}
	l.RecordQuietSeconds(1)
	found := false
	for _, id := range l.CheckAchievements(0, false) {
		found = found || id == QuietMaster
	}
	if !found {
		t.Error("quiet master not unlocked after an hour")
	}
	if h := l.TotalQuietHours(); h != 1 {
		t.Errorf("TotalQuietHours = %v, want 1", h)
	}
}

func TestFlushAndReopen(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := &fakeClock{t: day("2026-03-01 10:00")}

	l := Open(ctx, store, clock.now)
	l.RecordFish(rarity.Legendary, 1000)
	l.CheckAchievements(3, false)
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	sess, ok := store.Session(l.Session().ID)
	if !ok || sess.EndedAt.IsZero() {
		t.Errorf("session not closed in store: %+v", sess)
	}

	clock.t = day("2026-03-02 08:00")
	l2 := Open(ctx, store, clock.now)
	s := l2.Stats()
	if s.Points != 1000 || s.FishByRarity[rarity.Legendary] != 1 {
		t.Errorf("reopened stats = %+v", s)
	}
	if s.StreakDays != 2 || s.TotalSessions != 2 {
		t.Errorf("streak/sessions = %d/%d, want 2/2", s.StreakDays, s.TotalSessions)
	}
	if again := l2.CheckAchievements(3, false); len(again) != 0 {
		t.Errorf("achievements re-emitted after reopen: %v", again)
	}
}

func TestRecentEventsMergesPending(t *testing.T) {
	ctx := context.Background()
	l := Open(ctx, NewMemoryStore(), nil)

	l.RecordFish(rarity.Common, 10)
	if err := l.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	l.RecordRemoval(rarity.Common)

	events, err := l.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != EventRelease || events[1].Kind != EventCatch {
		t.Errorf("order = %s, %s; want release then catch", events[0].Kind, events[1].Kind)
	}
	if events[0].Session != l.Session().ID {
		t.Error("event not tagged with the session")
	}

	one, _ := l.RecentEvents(ctx, 1)
	if len(one) != 1 || one[0].Kind != EventRelease {
		t.Errorf("limit 1 = %+v", one)
	}
}

type failingStore struct {
	*MemoryStore
	loadErr   error
	appendErr error
}

func (f *failingStore) Load(ctx context.Context) (Snapshot, bool, error) {
	if f.loadErr != nil {
		return Snapshot{}, true, f.loadErr
	}
	return f.MemoryStore.Load(ctx)
}

func (f *failingStore) AppendEvents(ctx context.Context, events []Event) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	return f.MemoryStore.AppendEvents(ctx, events)
}

func TestMalformedStoreFallsBackToDefaults(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), loadErr: ErrMalformed}
	l := Open(context.Background(), store, nil)
	if s := l.Stats(); s.Points != 0 || s.TotalFishCaught != 0 {
		t.Errorf("stats = %+v, want defaults", s)
	}
}

func TestFailedFlushKeepsEvents(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{MemoryStore: NewMemoryStore(), appendErr: errors.New("disk full")}
	l := Open(ctx, store, nil)
	l.RecordFish(rarity.Common, 10)

	if err := l.Flush(ctx); err == nil {
		t.Fatal("expected flush error")
	}
	store.appendErr = nil
	if err := l.Flush(ctx); err != nil {
		t.Fatal(err)
	}
	stored, _ := store.MemoryStore.RecentEvents(ctx, 10)
	if len(stored) != 1 || stored[0].Kind != EventCatch {
		t.Errorf("stored events = %+v, want the retried catch", stored)
	}
}

func TestFlushAsync(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	l := Open(ctx, store, nil)
	l.RecordFish(rarity.Rare, 50)

	l.FlushAsync()
	l.wg.Wait()

	snap, ok, err := store.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if snap.Stats.Points != 50 {
		t.Errorf("persisted points = %d, want 50", snap.Stats.Points)
	}
}

func TestLevels(t *testing.T) {
	tests := []struct {
		points int
		want   string
	}{
		{0, "Novice"},
		{499, "Novice"},
		{500, "Apprentice"},
		{2999, "Adept"},
		{12000, "Quiet Deity"},
		{1 << 30, "Quiet Deity"},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.points).Name; got != tt.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tt.points, got, tt.want)
		}
	}
}

func TestSummaryNextLevel(t *testing.T) {
	l := Open(context.Background(), NewMemoryStore(), nil)
	sum := l.Summary()
	if sum.NextLevel == nil || sum.NextLevel.Name != "Apprentice" {
		t.Errorf("next level = %+v, want Apprentice", sum.NextLevel)
	}
	l.RecordFish(rarity.Mythic, 5000)
	l.RecordFish(rarity.Mythic, 5000)
	l.RecordFish(rarity.Mythic, 5000)
	if sum := l.Summary(); sum.NextLevel != nil {
		t.Errorf("next level at max = %+v, want nil", sum.NextLevel)
	}
}
