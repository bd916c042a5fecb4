package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/quietfish/internal/rarity"
)

func openTestDB(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteEmptyLoad(t *testing.T) {
	db := openTestDB(t)
	_, ok, err := db.Load(context.Background())
	if err != nil || ok {
		t.Errorf("Load on empty db = %v, %v; want false, nil", ok, err)
	}
}

func TestSQLiteSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	at := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	snap := Snapshot{
		Stats: Stats{
			TotalQuietSeconds: 4000.5,
			QuietPointCarry:   0.5,
			TotalFishCaught:   7,
			FishByRarity:      map[rarity.Tier]int{rarity.Common: 5, rarity.Epic: 2},
			PomodoroCompleted: 1,
			StreakDays:        3,
			LastUsedDate:      "2026-03-01",
			TotalSessions:     4,
			Points:            1200,
		},
		Achievements: map[AchievementID]time.Time{NightOwl: at},
	}
	if err := db.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// A second save replaces the single stats row.
	snap.Stats.Points = 1300
	if err := db.Save(ctx, snap); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, ok, err := db.Load(ctx)
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if got.Stats.Points != 1300 || got.Stats.FishByRarity[rarity.Epic] != 2 || got.Stats.LastUsedDate != "2026-03-01" {
		t.Errorf("stats = %+v", got.Stats)
	}
	if !got.Achievements[NightOwl].Equal(at) {
		t.Errorf("night owl at %v, want %v", got.Achievements[NightOwl], at)
	}
}

func TestSQLiteMalformedRow(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	if err := db.Save(ctx, Snapshot{Stats: DefaultStats()}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.conn.Exec("UPDATE stats SET fish_by_rarity_json = '{not json'"); err != nil {
		t.Fatal(err)
	}

	_, _, err := db.Load(ctx)
	if !errors.Is(err, ErrMalformed) {
		t.Fatalf("Load error = %v, want ErrMalformed", err)
	}

	l := Open(ctx, db, nil)
	if s := l.Stats(); s.TotalFishCaught != 0 || s.Points != 0 {
		t.Errorf("ledger did not fall back to defaults: %+v", s)
	}
}

func TestSQLiteEventsAndSessions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	sid := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	events := []Event{
		{At: base, Kind: EventCatch, Tier: "common", Points: 10, Session: sid},
		{At: base.Add(time.Second), Kind: EventCatch, Tier: "rare", Points: 50, Session: sid},
		{At: base.Add(2 * time.Second), Kind: EventAchievement, Detail: "first_fish", Session: sid},
	}
	if err := db.AppendEvents(ctx, events); err != nil {
		t.Fatalf("AppendEvents: %v", err)
	}
	got, err := db.RecentEvents(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Kind != EventAchievement || got[1].Tier != "rare" {
		t.Errorf("recent = %+v", got)
	}
	if got[0].Session != sid {
		t.Errorf("session = %s, want %s", got[0].Session, sid)
	}

	sess := Session{ID: sid, StartedAt: base, QuietSeconds: 12, Spawned: 2}
	if err := db.SaveSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	sess.EndedAt = base.Add(time.Hour)
	sess.Removed = 1
	if err := db.SaveSession(ctx, sess); err != nil {
		t.Fatal(err)
	}
	sessions, err := db.Sessions(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].Removed != 1 || !sessions[0].EndedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestLedgerOverSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	store, err := NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	l := Open(ctx, store, nil)
	l.RecordFish(rarity.Rare, 50)
	l.CheckAchievements(3, false)
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = NewStore(path)
	if err != nil {
		t.Fatal(err)
	}
	l2 := Open(ctx, store, nil)
	defer l2.Close(ctx)

	if s := l2.Stats(); s.Points != 50 || s.FishByRarity[rarity.Rare] != 1 {
		t.Errorf("reopened stats = %+v", s)
	}
	events, err := l2.RecentEvents(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("got %d events, want catch + 2 achievements", len(events))
	}
}
