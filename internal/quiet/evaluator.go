// Package quiet turns smoothed loudness into quietness readings and tracks
// how long, and how well, silence has been held.
package quiet

import "math"

// Reading is the evaluated loudness for one tick.
type Reading struct {
	Volume    float64 `json:"volume"`
	Quietness float64 `json:"quietness"` // 1 = perfectly silent
	Silent    bool    `json:"silent"`
}

// Evaluator maps a volume in [0, VMax] to a Reading.
type Evaluator struct {
	VMax             float64
	SilenceThreshold float64
}

// Evaluate returns quietness = 1 - sqrt(min(1, v/VMax)) and whether v is
// under the silence threshold. The square root makes small noise cheap and
// loud noise collapse quietness quickly. Out-of-range input is clamped.
func (e Evaluator) Evaluate(v float64) Reading {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	ratio := 1.0
	if e.VMax > 0 {
		ratio = math.Min(1, v/e.VMax)
	}
	return Reading{
		Volume:    v,
		Quietness: 1 - math.Sqrt(ratio),
		Silent:    v < e.SilenceThreshold,
	}
}
