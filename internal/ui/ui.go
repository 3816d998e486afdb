// Package ui renders the track/clip layout on a terminal screen and
// feeds pointer and key events to the timeline engine.
//
// The view maps one terminal cell to a fixed number of horizontal pixels,
// so all time conversion still goes through the engine's zoom factor and
// snapping behaves exactly as it does for any other front end.
package ui

import (
	"fmt"
	"hash/fnv"

	"github.com/gdamore/tcell/v2"

	"github.com/splicekit/splice/internal/app"
	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/exporter"
	"github.com/splicekit/splice/internal/project"
	"github.com/splicekit/splice/internal/timeline"
)

// cellPixels is the horizontal pixel width one terminal cell stands for.
const cellPixels = 10.0

// labelWidth is the track-name gutter width in cells.
const labelWidth = 10

// View is the interactive timeline surface.
type View struct {
	app    *app.Application
	screen tcell.Screen

	gesture   *timeline.Gesture
	anchorT   float64
	statusMsg string

	unsubscribe []func()
}

// Run opens the screen and blocks in the event loop until quit.
func Run(a *app.Application) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("creating screen: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initializing screen: %w", err)
	}
	defer screen.Fini()
	screen.EnableMouse()

	v := &View{app: a, screen: screen}
	v.subscribe()
	defer v.unsubscribeAll()

	v.draw()
	return v.loop()
}

// subscribe wakes the event loop whenever engine state changes.
func (v *View) subscribe() {
	wake := func(event.Event) {
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}
	bus := v.app.Bus()
	for _, topic := range []string{
		event.TopicProjectChanged,
		event.TopicHistoryChanged,
		event.TopicPlaybackTick,
		event.TopicExportProgress,
	} {
		v.unsubscribe = append(v.unsubscribe, bus.Subscribe(topic, wake))
	}
}

func (v *View) unsubscribeAll() {
	for _, fn := range v.unsubscribe {
		fn()
	}
}

func (v *View) loop() error {
	for {
		ev := v.screen.PollEvent()
		switch ev := ev.(type) {
		case *tcell.EventKey:
			if v.handleKey(ev) {
				return nil
			}
		case *tcell.EventMouse:
			v.handleMouse(ev)
		case *tcell.EventResize:
			v.screen.Sync()
		case *tcell.EventInterrupt:
			v.applyInterrupt(ev)
		}
		v.draw()
	}
}

// statusUpdate carries a status-line message from a worker goroutine.
// statusMsg itself is only ever touched on the event-loop goroutine, so
// workers post one of these instead of writing the field.
type statusUpdate struct{ msg string }

func (v *View) postStatus(msg string) {
	_ = v.screen.PostEvent(tcell.NewEventInterrupt(statusUpdate{msg}))
}

func (v *View) applyInterrupt(ev *tcell.EventInterrupt) {
	if up, ok := ev.Data().(statusUpdate); ok {
		v.statusMsg = up.msg
	}
}

// handleKey returns true when the loop should exit.
func (v *View) handleKey(ev *tcell.EventKey) bool {
	eng := v.app.Timeline()
	switch {
	case ev.Key() == tcell.KeyEscape || ev.Rune() == 'q':
		return true
	case ev.Rune() == ' ':
		v.app.Playback().Toggle()
	case ev.Rune() == 'u':
		if err := v.app.History().Undo(); err == nil {
			v.statusMsg = "undone"
		}
	case ev.Rune() == 'r':
		if err := v.app.History().Redo(); err == nil {
			v.statusMsg = "redone"
		}
	case ev.Rune() == '+' || ev.Rune() == '=':
		eng.SetZoom(eng.Zoom() * 1.25)
	case ev.Rune() == '-':
		eng.SetZoom(eng.Zoom() / 1.25)
	case ev.Rune() == 'f':
		w, _ := v.screen.Size()
		eng.FitZoom(float64(w-labelWidth) * cellPixels)
	case ev.Rune() == 's':
		v.splitSelected()
	case ev.Rune() == 'c':
		v.withSelected(func(sel project.SelectedClip) {
			eng.DuplicateClip(sel.TrackIndex, sel.ClipID)
		})
	case ev.Key() == tcell.KeyDelete || ev.Rune() == 'x':
		v.withSelected(func(sel project.SelectedClip) {
			eng.DeleteClip(sel.TrackIndex, sel.ClipID)
		})
	case ev.Rune() == 'e':
		v.startExport()
	}
	return false
}

func (v *View) splitSelected() {
	p := v.app.Store().State()
	v.withSelected(func(sel project.SelectedClip) {
		v.app.Timeline().SplitClip(sel.TrackIndex, sel.ClipID, p.Playhead)
	})
}

func (v *View) withSelected(fn func(project.SelectedClip)) {
	p := v.app.Store().State()
	if p.Selected == nil {
		v.statusMsg = "no clip selected"
		return
	}
	fn(*p.Selected)
}

func (v *View) startExport() {
	v.statusMsg = "exporting..."
	go func() {
		artifact, err := v.app.Export(exporter.Options{
			OnProgress: func(pr exporter.Progress) {
				v.postStatus(fmt.Sprintf("export %s %d%%", pr.Phase, int(pr.Percent*100)))
			},
		})
		if err != nil {
			v.postStatus(fmt.Sprintf("export failed: %v", err))
			return
		}
		v.postStatus(fmt.Sprintf("exported %s", artifact.SuggestedFilename))
	}()
}

// trackRow returns the screen row of a track lane.
func trackRow(trackIdx int) int { return 2 + trackIdx*2 }

// rowTrack inverts trackRow, returning -1 for rows between lanes.
func rowTrack(row, trackCount int) int {
	if row < 2 || (row-2)%2 != 0 {
		return -1
	}
	ti := (row - 2) / 2
	if ti >= trackCount {
		return -1
	}
	return ti
}

func (v *View) timeAtColumn(x int) float64 {
	return v.app.Timeline().TimeAtX(float64(x-labelWidth) * cellPixels)
}

func (v *View) handleMouse(ev *tcell.EventMouse) {
	x, y := ev.Position()
	buttons := ev.Buttons()

	switch {
	case buttons&tcell.Button1 != 0 && v.gesture == nil:
		v.press(x, y)
	case buttons&tcell.Button1 != 0 && v.gesture != nil:
		v.gesture.Update(v.timeAtColumn(x) - v.anchorT)
	case buttons == tcell.ButtonNone && v.gesture != nil:
		if err := v.gesture.End(); err != nil {
			v.statusMsg = fmt.Sprintf("edit failed: %v", err)
		}
		v.gesture = nil
	}
}

// press starts a gesture or moves the playhead, depending on what is
// under the pointer.
func (v *View) press(x, y int) {
	p := v.app.Store().State()
	eng := v.app.Timeline()

	if y == 1 { // ruler row
		t := v.timeAtColumn(x)
		v.app.Store().SetState(project.Patch{Playhead: &t})
		return
	}

	ti := rowTrack(y, len(p.Tracks))
	if ti < 0 {
		return
	}
	t := v.timeAtColumn(x)
	tr := p.Track(ti)

	for _, c := range tr.Clips {
		if !c.ActiveAt(t) && t != c.End() {
			continue
		}
		sel := project.SelectedClip{TrackIndex: ti, ClipID: c.ID}
		v.app.Store().SetState(project.Patch{Selected: &sel})

		// An edge grab within half a cell trims; anywhere else moves.
		edgeWindow := cellPixels / 2 / eng.Zoom()
		switch {
		case t-c.StartTime < edgeWindow:
			v.gesture = eng.BeginTrim(ti, c.ID, timeline.EdgeLeft)
		case c.End()-t < edgeWindow:
			v.gesture = eng.BeginTrim(ti, c.ID, timeline.EdgeRight)
		default:
			v.gesture = eng.BeginMove(ti, c.ID)
		}
		v.anchorT = t
		return
	}
	v.app.Store().SetState(project.Patch{ClearSelection: true})
}

func (v *View) draw() {
	s := v.screen
	s.Clear()
	w, h := s.Size()
	p := v.app.Store().State()
	eng := v.app.Timeline()

	header := fmt.Sprintf(" %s  %s  %.2fs  %.0f px/s", p.Name, playState(p.IsPlaying), p.Playhead, eng.Zoom())
	drawText(s, 0, 0, w, header, tcell.StyleDefault.Bold(true))

	v.drawRuler(w, &p)
	v.drawTracks(w, &p)

	if h > 2 {
		st := v.app.History().Status()
		status := v.statusMsg
		if st.CanUndo {
			status += fmt.Sprintf("  [u: %s]", st.UndoDescription)
		}
		if st.CanRedo {
			status += fmt.Sprintf("  [r: %s]", st.RedoDescription)
		}
		drawText(s, 0, h-1, w, status, tcell.StyleDefault.Dim(true))
	}
	s.Show()
}

func (v *View) drawRuler(w int, p *project.Project) {
	eng := v.app.Timeline()
	step := eng.RulerStep(4 * cellPixels)
	style := tcell.StyleDefault.Foreground(tcell.ColorGray)
	for t := 0.0; ; t += step {
		x := labelWidth + int(t*eng.Zoom()/cellPixels)
		if x >= w {
			break
		}
		drawText(v.screen, x, 1, w-x, fmt.Sprintf("|%g", t), style)
	}
	// playhead marker
	px := labelWidth + int(eng.PlayheadX(p)/cellPixels)
	if px >= labelWidth && px < w {
		v.screen.SetContent(px, 1, '▼', nil, tcell.StyleDefault.Foreground(tcell.ColorRed))
	}
}

func (v *View) drawTracks(w int, p *project.Project) {
	eng := v.app.Timeline()
	layouts := eng.Layout(p, v.gesture)

	for ti, tr := range p.Tracks {
		row := trackRow(ti)
		label := tr.Name
		if tr.Muted {
			label += " M"
		}
		if tr.Locked {
			label += " L"
		}
		drawText(v.screen, 0, row, labelWidth-1, label, tcell.StyleDefault.Dim(true))

		for ci, rect := range layouts[ti].Clips {
			x0 := labelWidth + int(rect.X/cellPixels)
			cw := int(rect.Width/cellPixels)
			if cw < 1 {
				cw = 1
			}
			style := clipStyle(rect.ClipID)
			if p.Selected != nil && p.Selected.ClipID == rect.ClipID {
				style = style.Reverse(true)
			}
			name := tr.Clips[ci].Name
			for i := 0; i < cw && x0+i < w; i++ {
				ch := ' '
				if i < len(name) {
					ch = rune(name[i])
				}
				if x0+i >= labelWidth {
					v.screen.SetContent(x0+i, row, ch, nil, style)
				}
			}
		}
	}
}

// clipStyle derives a stable background color from the clip id, the
// terminal analogue of the compositor's placeholder swatch.
func clipStyle(clipID string) tcell.Style {
	h := fnv.New32a()
	h.Write([]byte(clipID))
	colors := [6]tcell.Color{
		tcell.ColorDarkBlue, tcell.ColorDarkGreen, tcell.ColorDarkRed,
		tcell.ColorDarkMagenta, tcell.ColorDarkCyan, tcell.ColorDarkGoldenrod,
	}
	return tcell.StyleDefault.Background(colors[h.Sum32()%6]).Foreground(tcell.ColorWhite)
}

func playState(playing bool) string {
	if playing {
		return "▶"
	}
	return "⏸"
}

func drawText(s tcell.Screen, x, y, max int, text string, style tcell.Style) {
	col := x
	for _, r := range text {
		if col >= x+max {
			return
		}
		s.SetContent(col, y, r, nil, style)
		col++
	}
}
