package pomodoro

import (
	"testing"
	"time"
)

func TestNewRejectsEmptyPhases(t *testing.T) {
	if _, err := New(0, time.Minute); err == nil {
		t.Error("zero work phase accepted")
	}
	if _, err := New(time.Minute, -time.Second); err == nil {
		t.Error("negative break accepted")
	}
}

func TestStoppedTimerDoesNotAdvance(t *testing.T) {
	tm, _ := New(25*time.Minute, 5*time.Minute)
	if got := tm.Update(time.Hour); got != None {
		t.Errorf("stopped timer completed %v", got)
	}
	if tm.State().Remaining != 25*time.Minute {
		t.Errorf("remaining = %s", tm.State().Remaining)
	}
}

func TestCycle(t *testing.T) {
	tm, _ := New(25*time.Minute, 5*time.Minute)
	if !tm.Toggle() {
		t.Fatal("toggle did not start the timer")
	}

	frame := time.Second / 30
	var done []Completion
	for elapsed := time.Duration(0); elapsed < 31*time.Minute; elapsed += frame {
		if c := tm.Update(frame); c != None {
			done = append(done, c)
		}
	}
	if len(done) != 2 || done[0] != WorkDone || done[1] != BreakDone {
		t.Fatalf("completions = %v, want [WorkDone BreakDone]", done)
	}
	st := tm.State()
	if st.Phase != Work || !st.Running {
		t.Errorf("state after a cycle = %+v, want running work phase", st)
	}
}

func TestToggleAndReset(t *testing.T) {
	tm, _ := New(time.Minute, time.Minute)
	tm.Toggle()
	tm.Update(20 * time.Second)
	if tm.Toggle() {
		t.Fatal("second toggle should pause")
	}
	tm.Update(time.Hour)
	st := tm.State()
	if st.Remaining != 40*time.Second {
		t.Errorf("paused remaining = %s, want 40s", st.Remaining)
	}
	if st.Progress < 0.33 || st.Progress > 0.34 {
		t.Errorf("progress = %v, want 1/3", st.Progress)
	}

	tm.Reset()
	if st := tm.State(); st.Running || st.Remaining != time.Minute {
		t.Errorf("after reset = %+v", st)
	}
}

func TestClock(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{25 * time.Minute, "25:00"},
		{90*time.Second + 500*time.Millisecond, "01:31"},
		{0, "00:00"},
	}
	for _, tt := range tests {
		if got := (State{Remaining: tt.d}).Clock(); got != tt.want {
			t.Errorf("Clock(%s) = %s, want %s", tt.d, got, tt.want)
		}
	}
}
