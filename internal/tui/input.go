package tui

import "github.com/gdamore/tcell/v2"

// Action is what a terminal event asks the program to do.
type Action uint8

const (
	NoAction Action = iota
	Quit
	TogglePomodoro
	ResetPomodoro
	Redraw
)

// Translate maps a terminal event to an Action.
func Translate(ev tcell.Event) Action {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return Quit
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return Quit
			case ' ':
				return TogglePomodoro
			case 'r', 'R':
				return ResetPomodoro
			}
		}
	case *tcell.EventResize:
		return Redraw
	}
	return NoAction
}

// Events pumps screen events into a channel until quit is closed. The
// channel is closed when the pump exits.
func Events(screen tcell.Screen, quit <-chan struct{}) <-chan tcell.Event {
	out := make(chan tcell.Event, 16)
	go func() {
		defer close(out)
		for {
			ev := screen.PollEvent()
			if ev == nil {
				// Screen finalised.
				return
			}
			select {
			case out <- ev:
			case <-quit:
				return
			}
		}
	}()
	return out
}
