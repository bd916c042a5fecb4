package quiet

import (
	"math"
	"testing"
)

func TestEvaluate(t *testing.T) {
	e := Evaluator{VMax: 100, SilenceThreshold: 30}
	cases := []struct {
		name      string
		v         float64
		quietness float64
		silent    bool
	}{
		{"silence", 0, 1, true},
		{"quarter", 25, 0.5, true},
		{"at threshold", 30, 1 - math.Sqrt(0.3), false},
		{"max", 100, 0, false},
		{"over max", 180, 0, false},
		{"negative", -4, 1, true},
		{"nan", math.NaN(), 1, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := e.Evaluate(c.v)
			if math.Abs(r.Quietness-c.quietness) > 1e-9 {
				t.Errorf("quietness = %v, want %v", r.Quietness, c.quietness)
			}
			if r.Silent != c.silent {
				t.Errorf("silent = %v, want %v", r.Silent, c.silent)
			}
		})
	}
}

func TestQuietnessFallsFasterWhenLoud(t *testing.T) {
	e := Evaluator{VMax: 100, SilenceThreshold: 30}
	lowDrop := e.Evaluate(40).Quietness - e.Evaluate(50).Quietness
	highDrop := e.Evaluate(0).Quietness - e.Evaluate(10).Quietness
	if lowDrop >= highDrop {
		t.Fatalf("expected concave response: drop 40→50 %v, drop 0→10 %v", lowDrop, highDrop)
	}
	prev := 2.0
	for v := 0.0; v <= 100; v += 5 {
		q := e.Evaluate(v).Quietness
		if q > prev {
			t.Fatalf("quietness increased at v=%v", v)
		}
		prev = q
	}
}
