// Package tui draws the aquarium and its side panels on a terminal.
package tui

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/talgya/quietfish/internal/engine"
	"github.com/talgya/quietfish/internal/ledger"
	"github.com/talgya/quietfish/internal/rarity"
)

const panelWidth = 30

var (
	styleBase    = tcell.StyleDefault
	styleWater   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(40, 90, 160))
	styleBubble  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(170, 220, 255))
	styleTitle   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(120, 200, 255)).Bold(true)
	styleDim     = tcell.StyleDefault.Foreground(tcell.NewRGBColor(110, 110, 110))
	styleQuiet   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(80, 220, 120))
	styleLoud    = tcell.StyleDefault.Foreground(tcell.NewRGBColor(240, 90, 80))
	styleFlash   = tcell.StyleDefault.Foreground(tcell.NewRGBColor(255, 215, 0)).Bold(true)
	styleLocked  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(70, 70, 70))
	styleBarFill = tcell.StyleDefault.Foreground(tcell.NewRGBColor(100, 180, 255))
)

// View renders snapshots onto a tcell screen. It never mutates what it is
// given.
type View struct {
	screen tcell.Screen
	tiers  rarity.Table
}

// NewView creates a view over an initialised screen.
func NewView(screen tcell.Screen, tiers rarity.Table) *View {
	return &View{screen: screen, tiers: tiers}
}

// Render draws one frame.
func (v *View) Render(snap *engine.Snapshot, sum ledger.Summary) {
	v.screen.Clear()
	if snap == nil {
		v.screen.Show()
		return
	}

	w, h := v.screen.Size()
	tankW := w - panelWidth - 1
	if tankW < 20 {
		// Too narrow for a side panel; the tank gets the whole screen.
		tankW = w
	}
	v.drawTank(snap, tankW, h-1)
	if tankW < w {
		v.drawPanel(snap, sum, tankW+1, w-tankW-1, h-1)
	}
	v.drawText(0, h-1, w, "q/esc quit · space pomodoro", styleDim)
	v.screen.Show()
}

func (v *View) drawTank(snap *engine.Snapshot, w, h int) {
	if w <= 0 || h <= 0 || snap.Tank.Width <= 0 || snap.Tank.Height <= 0 {
		return
	}
	sx := float64(w) / snap.Tank.Width
	sy := float64(h) / snap.Tank.Height

	surface := int(snap.Tank.WaterTop * sy)
	for x := 0; x < w; x++ {
		v.screen.SetContent(x, surface, '~', nil, styleWater)
	}

	for _, b := range snap.Bubbles {
		x, y := int(b.X*sx), int(b.Y*sy)
		if y <= surface {
			continue
		}
		v.set(x, y, w, h, bubbleGlyph(b.Size), styleBubble)
	}

	for _, f := range snap.Fish {
		glyph := fishGlyph(f.Size, f.Direction)
		x := int(f.X*sx) - len([]rune(glyph))/2
		y := int(f.Y * sy)
		if y <= surface {
			y = surface + 1
		}
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(f.Color.R), int32(f.Color.G), int32(f.Color.B)))
		if f.Glow {
			style = style.Bold(true)
		}
		if f.Fleeing {
			style = style.Dim(true)
		}
		for i, r := range []rune(glyph) {
			v.set(x+i, y, w, h, r, style)
		}
	}
}

// set writes a cell if it falls inside the w×h tank area.
func (v *View) set(x, y, w, h int, r rune, style tcell.Style) {
	if x < 0 || y < 0 || x >= w || y >= h {
		return
	}
	v.screen.SetContent(x, y, r, nil, style)
}

func (v *View) drawPanel(snap *engine.Snapshot, sum ledger.Summary, x0, w, h int) {
	y := 0
	line := func(text string, style tcell.Style) {
		if y < h {
			v.drawText(x0, y, w, text, style)
		}
		y++
	}

	line("QUIET FISH", styleTitle)
	y++

	rd := snap.Reading
	volStyle := styleQuiet
	state := "silent"
	if !rd.Silent {
		volStyle = styleLoud
		state = "noisy"
	}
	line(fmt.Sprintf("volume %5.1f  %s", rd.Volume, state), volStyle)
	v.drawBar(x0, y, w, rd.Volume/100, volStyle)
	y++

	pr := snap.Progress
	line(fmt.Sprintf("quiet  %s", formatSeconds(pr.SessionQuietSeconds)), styleBase)
	line(fmt.Sprintf("spawn  %.1f / %.0f", pr.QuietScore, pr.RequiredScore), styleBase)
	if pr.RequiredScore > 0 {
		v.drawBar(x0, y, w, pr.QuietScore/pr.RequiredScore, styleBarFill)
	}
	y++
	if snap.Next != nil {
		line(fmt.Sprintf("%s in %s", v.tiers.Spec(snap.Next.Tier).Label, formatSeconds(snap.Next.InSeconds)), styleDim)
	} else {
		line("every tier unlocked", styleDim)
	}
	y++

	for _, t := range rarity.All() {
		spec := v.tiers.Spec(t)
		c := spec.Colors[0]
		style := tcell.StyleDefault.Foreground(tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)))
		text := fmt.Sprintf("%-10s %2d  %5.1f%%", spec.Label, snap.ByTier[t], 100*snap.Odds[t])
		if t > snap.Unlocked {
			style = styleLocked
			text = fmt.Sprintf("%-10s %2d  locked", spec.Label, snap.ByTier[t])
		}
		line(text, style)
	}
	line(fmt.Sprintf("fish %d  (%d–%d)", snap.Population, snap.MinFish, snap.MaxFish), styleDim)
	y++

	st := sum.Stats
	line(fmt.Sprintf("%s · %s pts", sum.Level.Name, humanize.Comma(int64(st.Points))), styleTitle)
	line(fmt.Sprintf("caught %s  streak %dd", humanize.Comma(int64(st.TotalFishCaught)), st.StreakDays), styleBase)
	line(fmt.Sprintf("badges %d/%d", sum.Achievements, len(ledger.Catalog)), styleBase)
	y++

	pm := snap.Pomodoro
	pmState := "paused"
	if pm.Running {
		pmState = "running"
	}
	line(fmt.Sprintf("pomodoro %s %s %s", pm.Phase, pm.Clock(), pmState), styleBase)
	v.drawBar(x0, y, w, pm.Progress, styleBarFill)
	y++

	if snap.Flash != nil {
		y++
		line(fmt.Sprintf("%s %s", snap.Flash.Icon, snap.Flash.Name), styleFlash)
	}
}

func (v *View) drawBar(x0, y, w int, frac float64, style tcell.Style) {
	if w <= 2 {
		return
	}
	frac = math.Max(0, math.Min(1, frac))
	inner := w - 2
	filled := int(math.Round(frac * float64(inner)))
	v.screen.SetContent(x0, y, '[', nil, styleDim)
	for i := 0; i < inner; i++ {
		r, st := '·', styleDim
		if i < filled {
			r, st = '█', style
		}
		v.screen.SetContent(x0+1+i, y, r, nil, st)
	}
	v.screen.SetContent(x0+w-1, y, ']', nil, styleDim)
}

func (v *View) drawText(x, y, w int, text string, style tcell.Style) {
	col := 0
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if col+rw > w {
			return
		}
		v.screen.SetContent(x+col, y, r, nil, style)
		col += rw
	}
}

// fishGlyph picks a body by size and heading.
func fishGlyph(size, direction int) string {
	var g string
	switch {
	case size >= 40:
		g = "><(((°>"
	case size >= 28:
		g = "><((°>"
	default:
		g = "><>"
	}
	if direction < 0 {
		return mirror(g)
	}
	return g
}

func mirror(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	for i, c := range r {
		switch c {
		case '>':
			r[i] = '<'
		case '<':
			r[i] = '>'
		case '(':
			r[i] = ')'
		case ')':
			r[i] = '('
		}
	}
	return string(r)
}

func bubbleGlyph(size int) rune {
	switch {
	case size >= 3:
		return 'O'
	case size == 2:
		return 'o'
	default:
		return '°'
	}
}

// formatSeconds renders m:ss.
func formatSeconds(s float64) string {
	total := int(math.Max(0, s))
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
