package audio

import (
	"fmt"
	"math"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// WavSampler replays a recording in a loop, one chunk per Sample call. It
// stands in for a microphone in demos and tests.
type WavSampler struct {
	opts     Options
	source   beep.StreamSeekCloser
	loop     beep.Streamer
	format   beep.Format
	buf      [][2]float64
	pcm      []int16
	smooth   *Smoother
	finished bool
}

// OpenWav decodes path and starts looping it.
func OpenWav(path string, opts Options) (*WavSampler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav: %w", err)
	}
	streamer, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode wav %s: %w", path, err)
	}

	chunk := max(opts.ChunkSamples, 1)
	return &WavSampler{
		opts:   opts,
		source: streamer,
		loop:   beep.Loop(-1, streamer),
		format: format,
		buf:    make([][2]float64, chunk),
		pcm:    make([]int16, chunk),
		smooth: NewSmoother(opts.SmoothFrames),
	}, nil
}

// Format returns the decoded stream format.
func (w *WavSampler) Format() beep.Format { return w.format }

// Sample reads the next chunk and returns the smoothed volume.
func (w *WavSampler) Sample() float64 {
	if w.finished {
		return w.smooth.Mean()
	}
	n, ok := w.loop.Stream(w.buf)
	if !ok || n == 0 {
		w.finished = true
		return w.smooth.Mean()
	}
	for i := 0; i < n; i++ {
		mono := (w.buf[i][0] + w.buf[i][1]) / 2
		w.pcm[i] = int16(math.Max(-1, math.Min(1, mono)) * math.MaxInt16)
	}
	return w.smooth.Add(RMSVolume(w.pcm[:n], w.opts.RMSDivisor, w.opts.VMax))
}

// Close releases the decoder and its file.
func (w *WavSampler) Close() error {
	return w.source.Close()
}
