// Package api provides the read-only HTTP API for observing the aquarium
// and the ledger, plus a websocket stream of live snapshots.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"

	"github.com/talgya/quietfish/internal/engine"
	"github.com/talgya/quietfish/internal/ledger"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
	streamInterval    = time.Second
)

// SnapshotSource publishes aquarium snapshots. *engine.Aquarium satisfies it.
type SnapshotSource interface {
	Snapshot() *engine.Snapshot
}

// LedgerView is the read side of the ledger. *ledger.Ledger satisfies it.
type LedgerView interface {
	Summary() ledger.Summary
	Achievements() []ledger.AchievementStatus
	RecentEvents(ctx context.Context, limit int) ([]ledger.Event, error)
}

// Server serves aquarium state over HTTP.
type Server struct {
	Aquarium SnapshotSource
	Ledger   LedgerView
	Port     int

	hub      *Hub
	limiter  *RateLimiter
	upgrader websocket.Upgrader
	ctx      context.Context
}

// NewServer creates a server. Nothing listens until Start.
func NewServer(aq SnapshotSource, l LedgerView, port int) *Server {
	return &Server{
		Aquarium: aq,
		Ledger:   l,
		Port:     port,
		hub:      NewHub(),
		// Stream connections per IP per minute.
		limiter: NewRateLimiter(10, time.Minute),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		ctx: context.Background(),
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/fish", s.handleFish)
	mux.HandleFunc("GET /api/v1/stats", s.handleStats)
	mux.HandleFunc("GET /api/v1/achievements", s.handleAchievements)
	mux.HandleFunc("GET /api/v1/events", s.handleEvents)
	mux.HandleFunc("GET /api/v1/stream", RateLimitMiddleware(s.limiter, s.handleStream))
	return mux
}

// Start serves the API and the stream broadcaster until ctx is done.
// It returns once the listener is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.ctx = ctx
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go s.hub.Run(ctx)
	go s.broadcastLoop(ctx)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP shutdown error", "error", err)
		}
	}()

	slog.Info("HTTP API starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// broadcastLoop pushes one snapshot per interval to stream viewers.
func (s *Server) broadcastLoop(ctx context.Context) {
	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if msg := s.snapshotJSON(); msg != nil {
				s.hub.Broadcast(msg)
			}
		}
	}
}

func (s *Server) snapshotJSON() []byte {
	snap := s.Aquarium.Snapshot()
	if snap == nil {
		return nil
	}
	data, err := json.Marshal(snap)
	if err != nil {
		slog.Error("failed to encode snapshot", "error", err)
		return nil
	}
	return data
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.Aquarium.Snapshot()
	if snap == nil {
		http.Error(w, "aquarium not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleFish(w http.ResponseWriter, r *http.Request) {
	snap := s.Aquarium.Snapshot()
	if snap == nil {
		writeJSON(w, []engine.FishView{})
		return
	}
	writeJSON(w, snap.Fish)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sum := s.Ledger.Summary()
	quiet := time.Duration(sum.Stats.TotalQuietSeconds * float64(time.Second)).Round(time.Second)

	resp := map[string]any{
		"summary":       sum,
		"points":        humanize.Comma(int64(sum.Stats.Points)),
		"total_quiet":   quiet.String(),
		"fish_caught":   humanize.Comma(int64(sum.Stats.TotalFishCaught)),
		"session_began": humanize.Time(sum.Session.StartedAt),
	}
	if sum.NextLevel != nil {
		resp["to_next_level"] = humanize.Comma(int64(sum.NextLevel.MinPoints - sum.Stats.Points))
	}
	writeJSON(w, resp)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Ledger.Achievements())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxEventLimit {
			limit = n
		}
	}

	events, err := s.Ledger.RecentEvents(r.Context(), limit)
	if err != nil {
		slog.Error("failed to read events", "error", err)
		if len(events) == 0 {
			http.Error(w, "events unavailable", http.StatusInternalServerError)
			return
		}
	}
	if events == nil {
		events = []ledger.Event{}
	}
	writeJSON(w, events)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		slog.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.hub.serve(s.ctx, conn, s.snapshotJSON())
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
