package quiet

import "testing"

func TestNewStaircaseValidation(t *testing.T) {
	cases := []struct {
		name  string
		steps []Step[float64]
	}{
		{"empty", nil},
		{"late start", []Step[float64]{{Minutes: 1, Value: 1}}},
		{"unsorted", []Step[float64]{{0, 1}, {5, 2}, {3, 3}}},
		{"duplicate minute", []Step[float64]{{0, 1}, {2, 2}, {2, 3}}},
		{"decreasing", []Step[float64]{{0, 5}, {2, 4}}},
	}
	for _, c := range cases {
		if _, err := NewStaircase(c.steps...); err == nil {
			t.Errorf("%s: expected error", c.name)
		}
	}
}

func TestStaircaseAt(t *testing.T) {
	s := MustStaircase(Step[float64]{0, 10}, Step[float64]{5, 15}, Step[float64]{10, 20})
	cases := []struct {
		seconds, want float64
	}{
		{-1, 10},
		{0, 10},
		{299.9, 10},
		{300, 15},
		{599, 15},
		{600, 20},
		{1e6, 20},
	}
	for _, c := range cases {
		if got := s.At(c.seconds); got != c.want {
			t.Errorf("At(%v) = %v, want %v", c.seconds, got, c.want)
		}
	}
}

func TestStaircaseNextAfter(t *testing.T) {
	s := MustStaircase(LinearSteps(10, 5, 5, 2)...)
	next, ok := s.NextAfter(0)
	if !ok || next.Minutes != 5 || next.Value != 15 {
		t.Fatalf("NextAfter(0) = %+v, %v", next, ok)
	}
	if _, ok := s.NextAfter(600); ok {
		t.Fatal("expected no step after the last one")
	}
}

func TestLinearSteps(t *testing.T) {
	steps := LinearSteps(10, 5, 5, 3)
	want := []Step[float64]{{0, 10}, {5, 15}, {10, 20}, {15, 25}}
	if len(steps) != len(want) {
		t.Fatalf("len = %d, want %d", len(steps), len(want))
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("step %d = %+v, want %+v", i, steps[i], want[i])
		}
	}
}

func TestMustStaircasePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	MustStaircase[int]()
}
