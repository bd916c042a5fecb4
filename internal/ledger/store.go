package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrMalformed marks stored state that could not be decoded.
var ErrMalformed = errors.New("malformed ledger state")

// Snapshot is everything the ledger persists as one unit.
type Snapshot struct {
	Stats        Stats                       `json:"stats"`
	Achievements map[AchievementID]time.Time `json:"achievements"` // unlocked ID → when
}

func (s Snapshot) clone() Snapshot {
	out := Snapshot{Stats: s.Stats.clone(), Achievements: make(map[AchievementID]time.Time, len(s.Achievements))}
	for k, v := range s.Achievements {
		out.Achievements[k] = v
	}
	return out
}

// EventKind classifies catch-log entries.
type EventKind string

const (
	EventCatch       EventKind = "catch"
	EventRelease     EventKind = "release"
	EventAchievement EventKind = "achievement"
	EventPomodoro    EventKind = "pomodoro"
)

// Event is one catch-log entry.
type Event struct {
	At      time.Time `json:"at"`
	Kind    EventKind `json:"kind"`
	Tier    string    `json:"tier,omitempty"`
	Points  int       `json:"points,omitempty"`
	Detail  string    `json:"detail,omitempty"`
	Session uuid.UUID `json:"session"`
}

// Session summarizes one process run.
type Session struct {
	ID           uuid.UUID `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	EndedAt      time.Time `json:"ended_at,omitempty"`
	QuietSeconds float64   `json:"quiet_seconds"`
	Spawned      int       `json:"spawned"`
	Removed      int       `json:"removed"`
}

// Store persists ledger state.
type Store interface {
	Load(ctx context.Context) (Snapshot, bool, error)
	Save(ctx context.Context, snap Snapshot) error
	AppendEvents(ctx context.Context, events []Event) error
	RecentEvents(ctx context.Context, limit int) ([]Event, error)
	SaveSession(ctx context.Context, s Session) error
	Close() error
}

// NewStore opens a SQLite store at path, or an in-memory store when path
// is empty.
func NewStore(path string) (Store, error) {
	if path == "" {
		return NewMemoryStore(), nil
	}
	s, err := OpenSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	return s, nil
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	snap     *Snapshot
	events   []Event
	sessions map[uuid.UUID]Session
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[uuid.UUID]Session)}
}

func (m *MemoryStore) Load(_ context.Context) (Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snap == nil {
		return Snapshot{}, false, nil
	}
	return m.snap.clone(), true, nil
}

func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := snap.clone()
	m.snap = &c
	return nil
}

func (m *MemoryStore) AppendEvents(_ context.Context, events []Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (m *MemoryStore) RecentEvents(_ context.Context, limit int) ([]Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, 0, min(limit, len(m.events)))
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.events[i])
	}
	return out, nil
}

func (m *MemoryStore) SaveSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

// Session returns a stored session.
func (m *MemoryStore) Session(id uuid.UUID) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *MemoryStore) Close() error { return nil }
