package quiet

import (
	"cmp"
	"fmt"
	"sort"
)

// Step is one row of a staircase: from Minutes of sustained quiet onward
// the staircase reports Value.
type Step[T cmp.Ordered] struct {
	Minutes float64 `json:"minutes"`
	Value   T       `json:"value"`
}

// Staircase is a non-decreasing step function over quiet time, stored as a
// sorted table.
type Staircase[T cmp.Ordered] struct {
	steps []Step[T]
}

// NewStaircase validates steps: at least one, the first at minute 0,
// strictly increasing minutes and non-decreasing values.
func NewStaircase[T cmp.Ordered](steps ...Step[T]) (Staircase[T], error) {
	if len(steps) == 0 {
		return Staircase[T]{}, fmt.Errorf("staircase needs at least one step")
	}
	if steps[0].Minutes != 0 {
		return Staircase[T]{}, fmt.Errorf("first step must start at minute 0, got %v", steps[0].Minutes)
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].Minutes <= steps[i-1].Minutes {
			return Staircase[T]{}, fmt.Errorf("step %d: minutes %v not after %v", i, steps[i].Minutes, steps[i-1].Minutes)
		}
		if steps[i].Value < steps[i-1].Value {
			return Staircase[T]{}, fmt.Errorf("step %d: value %v decreases from %v", i, steps[i].Value, steps[i-1].Value)
		}
	}
	return Staircase[T]{steps: append([]Step[T](nil), steps...)}, nil
}

// MustStaircase is NewStaircase for tables known at compile time.
func MustStaircase[T cmp.Ordered](steps ...Step[T]) Staircase[T] {
	s, err := NewStaircase(steps...)
	if err != nil {
		panic(err)
	}
	return s
}

// At returns the value of the last step reached after seconds of quiet.
func (s Staircase[T]) At(seconds float64) T {
	if len(s.steps) == 0 {
		var zero T
		return zero
	}
	minutes := seconds / 60
	i := sort.Search(len(s.steps), func(i int) bool {
		return s.steps[i].Minutes > minutes
	})
	if i == 0 {
		return s.steps[0].Value
	}
	return s.steps[i-1].Value
}

// Steps returns a copy of the table.
func (s Staircase[T]) Steps() []Step[T] {
	return append([]Step[T](nil), s.steps...)
}

// NextAfter returns the first step strictly beyond seconds of quiet, if any.
func (s Staircase[T]) NextAfter(seconds float64) (Step[T], bool) {
	minutes := seconds / 60
	for _, st := range s.steps {
		if st.Minutes > minutes {
			return st, true
		}
	}
	return Step[T]{}, false
}

// LinearSteps builds base, base+inc, base+2·inc, ... every everyMinutes,
// stopping after count increments.
func LinearSteps(base, inc, everyMinutes float64, count int) []Step[float64] {
	steps := make([]Step[float64], 0, count+1)
	for i := 0; i <= count; i++ {
		steps = append(steps, Step[float64]{
			Minutes: float64(i) * everyMinutes,
			Value:   base + float64(i)*inc,
		})
	}
	return steps
}
