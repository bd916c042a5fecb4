package audio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"
)

// ErrNoCaptureBackend is returned when no recorder binary is installed.
var ErrNoCaptureBackend = errors.New("no audio capture backend found")

// Backend is an external recorder that writes raw s16le mono to stdout.
type Backend struct {
	Name string
	Path string
	Args []string
}

// DetectCapture searches for available recorders.
// Priority: parec > pw-record > arecord > rec (sox)
func DetectCapture() (*Backend, error) {
	return detectCapture(exec.LookPath, 44100)
}

func detectCapture(lookPath func(string) (string, error), rate int) (*Backend, error) {
	r := strconv.Itoa(rate)

	// PulseAudio, or PipeWire's pulse shim
	if path, err := lookPath("parec"); err == nil {
		return &Backend{
			Name: "parec",
			Path: path,
			Args: []string{"--raw", "--format=s16le", "--rate=" + r, "--channels=1", "--latency-msec=20"},
		}, nil
	}

	// PipeWire native
	if path, err := lookPath("pw-record"); err == nil {
		return &Backend{
			Name: "pw-record",
			Path: path,
			Args: []string{"--format=s16", "--rate=" + r, "--channels=1", "-"},
		}, nil
	}

	// ALSA
	if path, err := lookPath("arecord"); err == nil {
		return &Backend{
			Name: "arecord",
			Path: path,
			Args: []string{"-t", "raw", "-f", "S16_LE", "-r", r, "-c", "1", "-q"},
		}, nil
	}

	// SoX
	if path, err := lookPath("rec"); err == nil {
		return &Backend{
			Name: "sox",
			Path: path,
			Args: []string{"-q", "-t", "raw", "-e", "signed", "-b", "16", "-c", "1", "-r", r, "-"},
		}, nil
	}

	return nil, ErrNoCaptureBackend
}

// StreamSampler reads raw s16le mono from a stream in the background and
// smooths the per-chunk volume.
type StreamSampler struct {
	opts   Options
	chunks chan float64
	smooth *Smoother
	closer func() error

	closeOnce sync.Once
	closeErr  error
}

// NewStreamSampler starts reading r. closer, if non-nil, is called by Close.
func NewStreamSampler(r io.Reader, opts Options, closer func() error) *StreamSampler {
	s := &StreamSampler{
		opts:   opts,
		chunks: make(chan float64, 64),
		smooth: NewSmoother(opts.SmoothFrames),
		closer: closer,
	}
	go s.read(r)
	return s
}

func (s *StreamSampler) read(r io.Reader) {
	defer close(s.chunks)

	br := bufio.NewReader(r)
	raw := make([]byte, max(s.opts.ChunkSamples, 1)*2)
	pcm := make([]int16, len(raw)/2)
	for {
		if _, err := io.ReadFull(br, raw); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, os.ErrClosed) {
				slog.Warn("audio stream ended", "error", err)
			}
			return
		}
		for i := range pcm {
			pcm[i] = int16(binary.LittleEndian.Uint16(raw[2*i:]))
		}
		v := RMSVolume(pcm, s.opts.RMSDivisor, s.opts.VMax)
		select {
		case s.chunks <- v:
		default:
			// Consumer is behind; drop the chunk.
		}
	}
}

// Sample folds every chunk read since the last call into the moving
// average. With nothing new it waits up to the timeout, then returns the
// last average.
func (s *StreamSampler) Sample() float64 {
	got := false
drain:
	for {
		select {
		case v, ok := <-s.chunks:
			if !ok {
				return s.smooth.Mean()
			}
			s.smooth.Add(v)
			got = true
		default:
			break drain
		}
	}
	if got || s.opts.Timeout <= 0 {
		return s.smooth.Mean()
	}

	t := time.NewTimer(s.opts.Timeout)
	defer t.Stop()
	select {
	case v, ok := <-s.chunks:
		if ok {
			s.smooth.Add(v)
		}
	case <-t.C:
	}
	return s.smooth.Mean()
}

// Close stops the underlying source.
func (s *StreamSampler) Close() error {
	s.closeOnce.Do(func() {
		if s.closer != nil {
			s.closeErr = s.closer()
		}
	})
	return s.closeErr
}

// StartCapture launches the backend recorder and samples its output.
func StartCapture(b *Backend, opts Options) (*StreamSampler, error) {
	cmd := exec.Command(b.Path, b.Args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%s stdout: %w", b.Name, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", b.Name, err)
	}
	slog.Info("audio capture started", "backend", b.Name, "pid", cmd.Process.Pid)

	closer := func() error {
		if err := cmd.Process.Kill(); err != nil {
			return fmt.Errorf("stop %s: %w", b.Name, err)
		}
		// Exit status after a kill is expected to be non-zero.
		_ = cmd.Wait()
		return nil
	}
	return NewStreamSampler(stdout, opts, closer), nil
}
