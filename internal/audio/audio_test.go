package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/wav"

	"github.com/talgya/quietfish/internal/rarity"
)

func TestRMSVolume(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
	}{
		{"empty", nil, 0},
		{"silence", []int16{0, 0, 0, 0}, 0},
		{"constant", []int16{500, -500, 500, -500}, 10},
		{"clipped", []int16{math.MaxInt16, math.MinInt16 + 1}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RMSVolume(tt.samples, 50, 100); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMSVolume = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSmootherWindow(t *testing.T) {
	s := NewSmoother(3)
	if s.Mean() != 0 {
		t.Fatal("empty smoother must average to 0")
	}
	s.Add(3)
	s.Add(6)
	if got := s.Add(9); got != 6 {
		t.Errorf("mean of 3,6,9 = %v, want 6", got)
	}
	// 3 falls out of the window.
	if got := s.Add(12); got != 9 {
		t.Errorf("mean of 6,9,12 = %v, want 9", got)
	}
}

func pcmBytes(n int, amp int16) []byte {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		v := amp
		if i%2 == 1 {
			v = -amp
		}
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func TestStreamSampler(t *testing.T) {
	opts := DefaultOptions()
	opts.ChunkSamples = 4
	opts.Timeout = 200 * time.Millisecond

	pr, pw := io.Pipe()
	closed := false
	s := NewStreamSampler(pr, opts, func() error {
		closed = true
		return pr.Close()
	})

	go pw.Write(pcmBytes(4, 1000)) // one chunk at volume 20
	if got := s.Sample(); math.Abs(got-20) > 1e-9 {
		t.Errorf("first sample = %v, want 20", got)
	}

	// Nothing new: the last average is held.
	s.opts.Timeout = time.Millisecond
	if got := s.Sample(); math.Abs(got-20) > 1e-9 {
		t.Errorf("idle sample = %v, want 20", got)
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	if !closed {
		t.Error("closer not called")
	}
	pw.Close()
}

func TestStreamSamplerEndOfInput(t *testing.T) {
	opts := DefaultOptions()
	opts.ChunkSamples = 2
	opts.Timeout = 200 * time.Millisecond

	s := NewStreamSampler(bytes.NewReader(pcmBytes(2, 2500)), opts, nil)
	if got := s.Sample(); math.Abs(got-50) > 1e-9 {
		t.Fatalf("sample = %v, want 50", got)
	}
	// Source exhausted; the sampler degrades to its last value.
	for i := 0; i < 3; i++ {
		if got := s.Sample(); math.Abs(got-50) > 1e-9 {
			t.Errorf("after EOF sample = %v, want 50", got)
		}
	}
}

func TestDetectCapturePriority(t *testing.T) {
	installed := map[string]bool{"arecord": true, "rec": true}
	look := func(name string) (string, error) {
		if installed[name] {
			return "/usr/bin/" + name, nil
		}
		return "", errors.New("not found")
	}

	b, err := detectCapture(look, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if b.Name != "arecord" {
		t.Errorf("backend = %s, want arecord", b.Name)
	}

	installed = map[string]bool{}
	if _, err := detectCapture(look, 44100); !errors.Is(err, ErrNoCaptureBackend) {
		t.Errorf("err = %v, want ErrNoCaptureBackend", err)
	}
}

func TestOpenSpecs(t *testing.T) {
	s, err := Open("none", DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if s.Sample() != 0 {
		t.Error("silent sampler reported sound")
	}
	if _, err := Open("microphone", DefaultOptions()); !errors.Is(err, ErrUnknownSource) {
		t.Errorf("err = %v, want ErrUnknownSource", err)
	}
	if _, err := Open("wav:"+filepath.Join(t.TempDir(), "missing.wav"), DefaultOptions()); err == nil {
		t.Error("expected error for missing wav")
	}
}

func writeWav(t *testing.T, s beep.Streamer) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "room.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	format := beep.Format{SampleRate: 44100, NumChannels: 1, Precision: 2}
	if err := wav.Encode(f, s, format); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWavSampler(t *testing.T) {
	opts := DefaultOptions()
	opts.SmoothFrames = 1

	tone, err := generators.SineTone(44100, 440)
	if err != nil {
		t.Fatal(err)
	}
	loud := writeWav(t, beep.Take(44100/10, tone))
	quiet := writeWav(t, beep.Silence(44100/10))

	ws, err := OpenWav(loud, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer ws.Close()
	// A full-scale sine saturates the scale.
	if got := ws.Sample(); got < 99 {
		t.Errorf("loud sample = %v, want ~100", got)
	}
	// The recording loops past its end.
	for i := 0; i < 10; i++ {
		ws.Sample()
	}
	if got := ws.Sample(); got < 99 {
		t.Errorf("looped sample = %v, want ~100", got)
	}

	qs, err := OpenWav(quiet, opts)
	if err != nil {
		t.Fatal(err)
	}
	defer qs.Close()
	if got := qs.Sample(); got != 0 {
		t.Errorf("silent sample = %v, want 0", got)
	}
}

func TestChimeTone(t *testing.T) {
	for _, tier := range []rarity.Tier{rarity.Rare, rarity.Mythic} {
		s, err := chimeTone(tier, 0)
		if err != nil {
			t.Fatal(err)
		}
		buf := make([][2]float64, 512)
		total := 0
		for {
			n, ok := s.Stream(buf)
			total += n
			if !ok {
				break
			}
		}
		dur := 120*time.Millisecond + time.Duration(tier)*40*time.Millisecond
		want := chimeRate.N(dur)
		if tier >= rarity.Legendary {
			want += chimeRate.N(dur / 2)
		}
		if total != want {
			t.Errorf("%s chime = %d samples, want %d", tier, total, want)
		}
	}

	var c *Chime
	c.Play(rarity.Mythic) // nil chime is a no-op
	c.Close()
}
