// Package audio turns microphone input into a smoothed loudness value on
// the 0..VMax scale, and plays the short chimes that mark rare catches.
package audio

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// Sampler yields the current smoothed volume. Sample never blocks for
// longer than the configured timeout.
type Sampler interface {
	Sample() float64
	Close() error
}

// Options tunes how raw samples become a volume.
type Options struct {
	VMax         float64
	RMSDivisor   float64       // raw int16 RMS / divisor = volume
	SmoothFrames int           // moving-average window
	Timeout      time.Duration // how long Sample waits for fresh input
	SampleRate   int
	ChunkSamples int // samples per read; one chunk yields one raw volume
}

// DefaultOptions matches the shipped configuration.
func DefaultOptions() Options {
	return Options{
		VMax:         100,
		RMSDivisor:   50,
		SmoothFrames: 30,
		Timeout:      5 * time.Millisecond,
		SampleRate:   44100,
		ChunkSamples: 1024,
	}
}

// ErrUnknownSource is returned by Open for an unrecognised source spec.
var ErrUnknownSource = errors.New("unknown audio source")

// Open builds a sampler from a source spec: "auto" captures from the first
// available recorder, "none" is permanently silent, "wav:<path>" loops a
// recording.
func Open(spec string, opts Options) (Sampler, error) {
	switch {
	case spec == "" || spec == "none":
		return Silent{}, nil
	case spec == "auto":
		b, err := DetectCapture()
		if err != nil {
			return nil, err
		}
		return StartCapture(b, opts)
	case strings.HasPrefix(spec, "wav:"):
		return OpenWav(strings.TrimPrefix(spec, "wav:"), opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSource, spec)
}

// Silent is a sampler that always reports zero volume.
type Silent struct{}

func (Silent) Sample() float64 { return 0 }
func (Silent) Close() error    { return nil }

// RMSVolume maps signed 16-bit samples to min(vmax, rms/divisor).
func RMSVolume(samples []int16, divisor, vmax float64) float64 {
	if len(samples) == 0 || divisor <= 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s)
		sum += f * f
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	return math.Min(vmax, rms/divisor)
}

// Smoother is a fixed-window moving average.
type Smoother struct {
	buf  []float64
	next int
	n    int
	sum  float64
}

// NewSmoother creates a smoother over the last window values.
func NewSmoother(window int) *Smoother {
	return &Smoother{buf: make([]float64, max(window, 1))}
}

// Add pushes v and returns the new mean.
func (s *Smoother) Add(v float64) float64 {
	if s.n == len(s.buf) {
		s.sum -= s.buf[s.next]
	} else {
		s.n++
	}
	s.buf[s.next] = v
	s.sum += v
	s.next = (s.next + 1) % len(s.buf)
	return s.Mean()
}

// Mean returns the average of the values in the window, 0 when empty.
func (s *Smoother) Mean() float64 {
	if s.n == 0 {
		return 0
	}
	return math.Max(0, s.sum/float64(s.n))
}
