// Package config holds the static configuration surface: every tunable of
// the quiet engine, read once at process start from defaults and
// QUIETFISH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/quietfish/internal/fish"
	"github.com/talgya/quietfish/internal/quiet"
	"github.com/talgya/quietfish/internal/rarity"
)

// Config is the full configuration. Zero values are not meaningful; start
// from Default.
type Config struct {
	// Loudness
	VMax             float64 // top of the volume scale
	SilenceThreshold float64 // volume below this is silence
	SmoothFrames     int     // moving-average window of the sampler
	RMSDivisor       float64 // raw int16 RMS / divisor = volume
	SampleTimeout    time.Duration

	// Population
	MinFish     int
	MaxFish     int
	InitialFish int
	RemoveRate  float64 // removal probability per second at quietness 0

	// Progression
	MinRate              float64 // score/s at quietness 0
	MaxRate              float64 // score/s at quietness 1
	CeilingFactor        float64
	UnlockMinutes        [rarity.NumTiers]float64 // quiet minutes at which each tier unlocks
	RequiredBase         float64
	RequiredStep         float64
	RequiredEveryMinutes float64
	RequiredMaxSteps     int
	FullTimeFactor       time.Duration // quiet time at which rarity weights saturate

	Tiers rarity.Table
	Tank  fish.Tank

	BubbleOnSpawn  float64 // chance a spawn releases a bubble
	BubblePerFrame float64 // ambient bubble chance per frame

	// Loop and ledger
	FPS              int
	FlushInterval    time.Duration
	PomodoroWork     time.Duration
	PomodoroBreak    time.Duration
	NightStartHour   int
	NightEndHour     int
	AchievementFlash time.Duration

	// Process
	DBPath       string // empty = in-memory ledger
	Audio        string // auto, none, wav:<path>
	APIPort      int    // 0 = API disabled
	Seed         int64  // 0 = crypto/rand
	RandomOrgKey string
	Headless     bool
	LogLevel     slog.Level
	LogFile      string
}

// Default returns the shipped configuration.
func Default() Config {
	return Config{
		VMax:             100,
		SilenceThreshold: 30,
		SmoothFrames:     30,
		RMSDivisor:       50,
		SampleTimeout:    5 * time.Millisecond,

		MinFish:     3,
		MaxFish:     25,
		InitialFish: 3,
		RemoveRate:  0.5,

		MinRate:              0.2,
		MaxRate:              0.7,
		CeilingFactor:        2,
		UnlockMinutes:        [rarity.NumTiers]float64{0, 2, 5, 10, 20},
		RequiredBase:         10,
		RequiredStep:         5,
		RequiredEveryMinutes: 5,
		RequiredMaxSteps:     12,
		FullTimeFactor:       30 * time.Minute,

		Tiers: rarity.DefaultTable(),
		Tank:  fish.DefaultTank(),

		BubbleOnSpawn:  0.25,
		BubblePerFrame: 0.015,

		FPS:              30,
		FlushInterval:    30 * time.Second,
		PomodoroWork:     25 * time.Minute,
		PomodoroBreak:    5 * time.Minute,
		NightStartHour:   23,
		NightEndHour:     6,
		AchievementFlash: 2 * time.Second,

		DBPath:   "data/quietfish.db",
		Audio:    "auto",
		LogLevel: slog.LevelInfo,
		LogFile:  "data/quietfish.log",
	}
}

// FromEnv returns Default with QUIETFISH_* overrides applied and validated.
func FromEnv() (Config, error) {
	c := Default()
	var errs []error

	c.DBPath = envOrDefault("QUIETFISH_DB", c.DBPath)
	c.Audio = envOrDefault("QUIETFISH_AUDIO", c.Audio)
	c.LogFile = envOrDefault("QUIETFISH_LOG_FILE", c.LogFile)
	c.RandomOrgKey = os.Getenv("RANDOM_ORG_API_KEY")

	c.SilenceThreshold = envFloat("QUIETFISH_SILENCE_THRESHOLD", c.SilenceThreshold, &errs)
	c.RemoveRate = envFloat("QUIETFISH_REMOVE_RATE", c.RemoveRate, &errs)
	c.MinFish = envInt("QUIETFISH_MIN_FISH", c.MinFish, &errs)
	c.MaxFish = envInt("QUIETFISH_MAX_FISH", c.MaxFish, &errs)
	c.InitialFish = envInt("QUIETFISH_INITIAL_FISH", c.InitialFish, &errs)
	c.FPS = envInt("QUIETFISH_FPS", c.FPS, &errs)
	c.APIPort = envInt("QUIETFISH_API_PORT", c.APIPort, &errs)
	c.Seed = int64(envInt("QUIETFISH_SEED", int(c.Seed), &errs))

	if v := os.Getenv("QUIETFISH_HEADLESS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("QUIETFISH_HEADLESS: %w", err))
		}
		c.Headless = b
	}
	if v := os.Getenv("QUIETFISH_LOG_LEVEL"); v != "" {
		if err := c.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("QUIETFISH_LOG_LEVEL: %w", err))
		}
	}
	if v := os.Getenv("QUIETFISH_UNLOCK_MINUTES"); v != "" {
		mins, err := parseUnlockMinutes(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("QUIETFISH_UNLOCK_MINUTES: %w", err))
		} else {
			c.UnlockMinutes = mins
		}
	}

	if err := errors.Join(errs...); err != nil {
		return c, err
	}
	return c, c.Validate()
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.VMax <= 0 {
		errs = append(errs, errors.New("VMax must be positive"))
	}
	if c.SilenceThreshold <= 0 || c.SilenceThreshold > c.VMax {
		errs = append(errs, fmt.Errorf("silence threshold %v outside (0, %v]", c.SilenceThreshold, c.VMax))
	}
	if c.MinFish < 0 || c.MaxFish < c.MinFish {
		errs = append(errs, fmt.Errorf("population bounds [%d, %d] invalid", c.MinFish, c.MaxFish))
	}
	if c.InitialFish < c.MinFish || c.InitialFish > c.MaxFish {
		errs = append(errs, fmt.Errorf("initial population %d outside [%d, %d]", c.InitialFish, c.MinFish, c.MaxFish))
	}
	if c.RemoveRate < 0 {
		errs = append(errs, errors.New("remove rate must not be negative"))
	}
	if c.MinRate < 0 || c.MaxRate < c.MinRate {
		errs = append(errs, fmt.Errorf("accumulation range [%v, %v] invalid", c.MinRate, c.MaxRate))
	}
	if c.RequiredBase <= 0 || c.RequiredStep < 0 {
		errs = append(errs, errors.New("required score must start positive and never shrink"))
	}
	if c.FPS <= 0 {
		errs = append(errs, errors.New("FPS must be positive"))
	}
	if c.SmoothFrames <= 0 || c.RMSDivisor <= 0 {
		errs = append(errs, errors.New("sampler smoothing and divisor must be positive"))
	}
	if c.NightStartHour < 0 || c.NightStartHour > 23 || c.NightEndHour < 0 || c.NightEndHour > 23 {
		errs = append(errs, errors.New("night hours must be within 0-23"))
	}
	if _, err := c.Progression(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Tiers.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tier table: %w", err))
	}
	return errors.Join(errs...)
}

// Evaluator returns the quietness evaluator.
func (c Config) Evaluator() quiet.Evaluator {
	return quiet.Evaluator{VMax: c.VMax, SilenceThreshold: c.SilenceThreshold}
}

// Progression builds the accumulator parameters from the unlock ladder and
// required-score schedule.
func (c Config) Progression() (quiet.Params, error) {
	ladderSteps := make([]quiet.Step[rarity.Tier], 0, rarity.NumTiers)
	for _, t := range rarity.All() {
		ladderSteps = append(ladderSteps, quiet.Step[rarity.Tier]{Minutes: c.UnlockMinutes[t], Value: t})
	}
	ladder, err := quiet.NewStaircase(ladderSteps...)
	if err != nil {
		return quiet.Params{}, fmt.Errorf("unlock ladder: %w", err)
	}

	required, err := quiet.NewStaircase(quiet.LinearSteps(
		c.RequiredBase, c.RequiredStep, c.RequiredEveryMinutes, c.RequiredMaxSteps)...)
	if err != nil {
		return quiet.Params{}, fmt.Errorf("required score schedule: %w", err)
	}

	return quiet.Params{
		Ladder:        ladder,
		Required:      required,
		MinRate:       c.MinRate,
		MaxRate:       c.MaxRate,
		CeilingFactor: c.CeilingFactor,
	}, nil
}

// FrameInterval is the target duration of one frame.
func (c Config) FrameInterval() time.Duration {
	return time.Second / time.Duration(c.FPS)
}

// IsNight reports whether hour falls in the night window, which may wrap
// past midnight.
func (c Config) IsNight(hour int) bool {
	if c.NightStartHour <= c.NightEndHour {
		return hour >= c.NightStartHour && hour < c.NightEndHour
	}
	return hour >= c.NightStartHour || hour < c.NightEndHour
}

func parseUnlockMinutes(s string) ([rarity.NumTiers]float64, error) {
	var out [rarity.NumTiers]float64
	parts := strings.Split(s, ",")
	if len(parts) != rarity.NumTiers {
		return out, fmt.Errorf("want %d comma-separated values, got %d", rarity.NumTiers, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, err
		}
		out[i] = v
	}
	return out, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return n
}

func envFloat(key string, defaultVal float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return f
}
