package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/quietfish/internal/rarity"
)

// SQLiteStore persists the ledger in a SQLite file.
type SQLiteStore struct {
	conn *sqlx.DB
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One writer; the async flush and the API reader share it.
	conn.SetMaxOpenConns(1)

	db := &SQLiteStore{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	return db.conn.Close()
}

func (db *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS stats (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		total_quiet_seconds REAL NOT NULL,
		quiet_point_carry REAL NOT NULL,
		total_fish_caught INTEGER NOT NULL,
		fish_by_rarity_json TEXT NOT NULL,
		pomodoro_completed INTEGER NOT NULL,
		streak_days INTEGER NOT NULL,
		last_used_date TEXT,
		total_sessions INTEGER NOT NULL,
		points INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS achievements (
		id TEXT PRIMARY KEY,
		unlocked_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		at TEXT NOT NULL,
		kind TEXT NOT NULL,
		tier TEXT NOT NULL,
		points INTEGER NOT NULL,
		detail TEXT NOT NULL,
		session_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		quiet_seconds REAL NOT NULL,
		spawned INTEGER NOT NULL,
		removed INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_at ON events(at);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type statsRow struct {
	TotalQuietSeconds float64        `db:"total_quiet_seconds"`
	QuietPointCarry   float64        `db:"quiet_point_carry"`
	TotalFishCaught   int            `db:"total_fish_caught"`
	FishByRarityJSON  string         `db:"fish_by_rarity_json"`
	PomodoroCompleted int            `db:"pomodoro_completed"`
	StreakDays        int            `db:"streak_days"`
	LastUsedDate      sql.NullString `db:"last_used_date"`
	TotalSessions     int            `db:"total_sessions"`
	Points            int            `db:"points"`
}

type achievementRow struct {
	ID         string `db:"id"`
	UnlockedAt string `db:"unlocked_at"`
}

type eventRow struct {
	At        string `db:"at"`
	Kind      string `db:"kind"`
	Tier      string `db:"tier"`
	Points    int    `db:"points"`
	Detail    string `db:"detail"`
	SessionID string `db:"session_id"`
}

type sessionRow struct {
	ID           string         `db:"id"`
	StartedAt    string         `db:"started_at"`
	EndedAt      sql.NullString `db:"ended_at"`
	QuietSeconds float64        `db:"quiet_seconds"`
	Spawned      int            `db:"spawned"`
	Removed      int            `db:"removed"`
}

// Load reads the stored snapshot. The bool is false when nothing has been
// saved yet. Undecodable rows yield ErrMalformed.
func (db *SQLiteStore) Load(ctx context.Context) (Snapshot, bool, error) {
	var row statsRow
	err := db.conn.GetContext(ctx, &row, `SELECT total_quiet_seconds, quiet_point_carry, total_fish_caught,
		fish_by_rarity_json, pomodoro_completed, streak_days, last_used_date, total_sessions, points
		FROM stats WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load stats: %w", err)
	}

	byRarity := make(map[rarity.Tier]int)
	if err := json.Unmarshal([]byte(row.FishByRarityJSON), &byRarity); err != nil {
		return Snapshot{}, true, fmt.Errorf("%w: fish_by_rarity: %v", ErrMalformed, err)
	}

	snap := Snapshot{
		Stats: Stats{
			TotalQuietSeconds: row.TotalQuietSeconds,
			QuietPointCarry:   row.QuietPointCarry,
			TotalFishCaught:   row.TotalFishCaught,
			FishByRarity:      byRarity,
			PomodoroCompleted: row.PomodoroCompleted,
			StreakDays:        row.StreakDays,
			LastUsedDate:      row.LastUsedDate.String,
			TotalSessions:     row.TotalSessions,
			Points:            row.Points,
		},
		Achievements: make(map[AchievementID]time.Time),
	}

	var achs []achievementRow
	if err := db.conn.SelectContext(ctx, &achs, "SELECT id, unlocked_at FROM achievements"); err != nil {
		return Snapshot{}, true, fmt.Errorf("load achievements: %w", err)
	}
	for _, a := range achs {
		at, err := time.Parse(time.RFC3339, a.UnlockedAt)
		if err != nil {
			return Snapshot{}, true, fmt.Errorf("%w: achievement %s: %v", ErrMalformed, a.ID, err)
		}
		snap.Achievements[AchievementID(a.ID)] = at
	}
	return snap, true, nil
}

// Save replaces the stored snapshot in one transaction.
func (db *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	byRarity, err := json.Marshal(snap.Stats.FishByRarity)
	if err != nil {
		return fmt.Errorf("encode fish_by_rarity: %w", err)
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	s := snap.Stats
	row := statsRow{
		TotalQuietSeconds: s.TotalQuietSeconds,
		QuietPointCarry:   s.QuietPointCarry,
		TotalFishCaught:   s.TotalFishCaught,
		FishByRarityJSON:  string(byRarity),
		PomodoroCompleted: s.PomodoroCompleted,
		StreakDays:        s.StreakDays,
		LastUsedDate:      sql.NullString{String: s.LastUsedDate, Valid: s.LastUsedDate != ""},
		TotalSessions:     s.TotalSessions,
		Points:            s.Points,
	}
	if _, err := tx.NamedExecContext(ctx, `INSERT OR REPLACE INTO stats
		(id, total_quiet_seconds, quiet_point_carry, total_fish_caught, fish_by_rarity_json,
		 pomodoro_completed, streak_days, last_used_date, total_sessions, points)
		VALUES (1, :total_quiet_seconds, :quiet_point_carry, :total_fish_caught, :fish_by_rarity_json,
		 :pomodoro_completed, :streak_days, :last_used_date, :total_sessions, :points)`, row); err != nil {
		return fmt.Errorf("save stats: %w", err)
	}

	for id, at := range snap.Achievements {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO achievements (id, unlocked_at) VALUES (?, ?)",
			string(id), at.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("save achievement %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// AppendEvents appends catch-log entries.
func (db *SQLiteStore) AppendEvents(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO events (at, kind, tier, points, detail, session_id)
			 VALUES (:at, :kind, :tier, :points, :detail, :session_id)`,
			eventRow{
				At:        e.At.UTC().Format(time.RFC3339Nano),
				Kind:      string(e.Kind),
				Tier:      e.Tier,
				Points:    e.Points,
				Detail:    e.Detail,
				SessionID: e.Session.String(),
			})
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent limit events, newest first. Rows
// that fail to decode are skipped.
func (db *SQLiteStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	var rows []eventRow
	err := db.conn.SelectContext(ctx, &rows,
		"SELECT at, kind, tier, points, detail, session_id FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(rows))
	for _, r := range rows {
		at, err := time.Parse(time.RFC3339Nano, r.At)
		if err != nil {
			slog.Warn("skipping malformed event", "at", r.At, "error", err)
			continue
		}
		sid, _ := uuid.Parse(r.SessionID)
		events = append(events, Event{
			At:      at,
			Kind:    EventKind(r.Kind),
			Tier:    r.Tier,
			Points:  r.Points,
			Detail:  r.Detail,
			Session: sid,
		})
	}
	return events, nil
}

// SaveSession inserts or updates a session row.
func (db *SQLiteStore) SaveSession(ctx context.Context, s Session) error {
	row := sessionRow{
		ID:           s.ID.String(),
		StartedAt:    s.StartedAt.UTC().Format(time.RFC3339),
		QuietSeconds: s.QuietSeconds,
		Spawned:      s.Spawned,
		Removed:      s.Removed,
	}
	if !s.EndedAt.IsZero() {
		row.EndedAt = sql.NullString{String: s.EndedAt.UTC().Format(time.RFC3339), Valid: true}
	}
	_, err := db.conn.NamedExecContext(ctx, `INSERT OR REPLACE INTO sessions
		(id, started_at, ended_at, quiet_seconds, spawned, removed)
		VALUES (:id, :started_at, :ended_at, :quiet_seconds, :spawned, :removed)`, row)
	return err
}

// Sessions returns stored sessions, most recent first.
func (db *SQLiteStore) Sessions(ctx context.Context, limit int) ([]Session, error) {
	var rows []sessionRow
	if err := db.conn.SelectContext(ctx, &rows,
		"SELECT id, started_at, ended_at, quiet_seconds, spawned, removed FROM sessions ORDER BY started_at DESC LIMIT ?",
		limit,
	); err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(rows))
	for _, r := range rows {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			continue
		}
		started, _ := time.Parse(time.RFC3339, r.StartedAt)
		s := Session{ID: id, StartedAt: started, QuietSeconds: r.QuietSeconds, Spawned: r.Spawned, Removed: r.Removed}
		if r.EndedAt.Valid {
			s.EndedAt, _ = time.Parse(time.RFC3339, r.EndedAt.String)
		}
		out = append(out, s)
	}
	return out, nil
}
