// Command quietfish runs the quiet-driven aquarium: silence in the room
// brings fish, noise sends them away.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/talgya/quietfish/internal/api"
	"github.com/talgya/quietfish/internal/audio"
	"github.com/talgya/quietfish/internal/config"
	"github.com/talgya/quietfish/internal/engine"
	"github.com/talgya/quietfish/internal/entropy"
	"github.com/talgya/quietfish/internal/fish"
	"github.com/talgya/quietfish/internal/ledger"
	"github.com/talgya/quietfish/internal/quiet"
	"github.com/talgya/quietfish/internal/tui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "quietfish:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// No tank without a terminal to draw it in.
	fellBack := false
	if !cfg.Headless && !term.IsTerminal(int(os.Stdin.Fd())) {
		cfg.Headless = true
		fellBack = true
	}

	// ── Logging ───────────────────────────────────────────────────────
	// The terminal belongs to the tank, so logs go to a file unless headless.
	var logOut io.Writer = os.Stdout
	if !cfg.Headless && cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return fmt.Errorf("log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOut = f
	} else if !cfg.Headless {
		logOut = io.Discard
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})))
	slog.Info("quietfish starting",
		"silence_threshold", cfg.SilenceThreshold,
		"fish", fmt.Sprintf("%d-%d", cfg.MinFish, cfg.MaxFish),
		"fps", cfg.FPS,
		"audio", cfg.Audio,
	)
	if fellBack {
		slog.Warn("stdin is not a terminal, running headless")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Ledger ────────────────────────────────────────────────────────
	if cfg.DBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			slog.Warn("cannot create data directory", "path", cfg.DBPath, "error", err)
		}
	}
	store, err := ledger.NewStore(cfg.DBPath)
	if err != nil {
		slog.Warn("ledger store unavailable, progress will not persist", "path", cfg.DBPath, "error", err)
		store = ledger.NewMemoryStore()
	}
	book := ledger.Open(ctx, store, time.Now)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := book.Close(closeCtx); err != nil {
			slog.Error("final save failed", "error", err)
		}
	}()

	// ── Audio ─────────────────────────────────────────────────────────
	opts := audio.DefaultOptions()
	opts.VMax = cfg.VMax
	opts.RMSDivisor = cfg.RMSDivisor
	opts.SmoothFrames = cfg.SmoothFrames
	opts.Timeout = cfg.SampleTimeout
	sampler, err := audio.Open(cfg.Audio, opts)
	if err != nil {
		slog.Warn("no audio input, running silent", "source", cfg.Audio, "error", err)
		sampler = audio.Silent{}
	}
	defer sampler.Close()

	var chime *audio.Chime
	if cfg.Audio != "none" {
		chime, err = audio.NewChime()
		if err != nil {
			slog.Warn("chime disabled", "error", err)
			chime = nil
		}
		defer chime.Close()
	}

	// ── Aquarium ──────────────────────────────────────────────────────
	rng := entropy.Select(entropy.NewClient(cfg.RandomOrgKey), cfg.Seed)
	aquarium, err := engine.NewAquarium(cfg, rng, book)
	if err != nil {
		return fmt.Errorf("aquarium: %w", err)
	}
	aquarium.OnSpawn = func(f *fish.Fish) {
		chime.Play(f.Tier())
	}

	// ── Screen ────────────────────────────────────────────────────────
	var screen tcell.Screen
	var view *tui.View
	if !cfg.Headless {
		screen, err = tcell.NewScreen()
		if err != nil {
			return fmt.Errorf("terminal: %w", err)
		}
		if err := screen.Init(); err != nil {
			return fmt.Errorf("terminal init: %w", err)
		}
		defer screen.Fini()
		screen.HideCursor()
		view = tui.NewView(screen, cfg.Tiers)
	}

	// ── Frame loop ────────────────────────────────────────────────────
	eng := engine.NewEngine(cfg.FrameInterval())
	eng.OnFrame = func(_ uint64, dt time.Duration) {
		res := aquarium.Tick(dt, sampler.Sample())
		if res.Transition != quiet.NoTransition {
			slog.Debug("quiet transition", "edge", res.Transition, "volume", res.Reading.Volume)
		}
		if view != nil {
			view.Render(aquarium.Snapshot(), book.Summary())
		}
	}
	var sinceFlush time.Duration
	eng.OnSecond = func(_ uint64) {
		aquarium.Second(time.Now())
		book.CheckStreak()
		sinceFlush += time.Second
		if sinceFlush >= cfg.FlushInterval {
			sinceFlush = 0
			book.FlushAsync()
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.APIPort > 0 {
		srv := api.NewServer(aquarium, book, cfg.APIPort)
		go func() {
			if err := srv.Start(ctx); err != nil {
				slog.Error("API stopped", "error", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()

	if screen != nil {
		events := tui.Events(screen, done)
	loop:
		for {
			select {
			case <-done:
				break loop
			case ev, ok := <-events:
				if !ok {
					break loop
				}
				switch tui.Translate(ev) {
				case tui.Quit:
					stop()
					break loop
				case tui.TogglePomodoro:
					aquarium.Send(engine.TogglePomodoro)
				case tui.ResetPomodoro:
					aquarium.Send(engine.ResetPomodoro)
				case tui.Redraw:
					screen.Sync()
				}
			}
		}
	} else {
		fmt.Println("quietfish running headless (Ctrl+C to stop)")
		if cfg.APIPort > 0 {
			fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
		}
	}

	<-done
	st := aquarium.State()
	slog.Info("session over",
		"quiet_seconds", fmt.Sprintf("%.0f", st.SessionQuietSeconds),
		"fish", aquarium.Snapshot().Population,
	)
	return nil
}
