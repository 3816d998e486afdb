package timeline

import (
	"math"

	"github.com/splicekit/splice/internal/history"
	"github.com/splicekit/splice/internal/project"
)

// ClipRect is one clip's horizontal extent in pixels at some zoom.
type ClipRect struct {
	ClipID string
	X      float64
	Width  float64
}

// TrackLayout is the pixel layout of one track's clips.
type TrackLayout struct {
	TrackIndex int
	Clips      []ClipRect
}

// Layout converts the project's tracks into pixel rectangles at the
// current zoom. A live gesture overrides its clip's geometry so front
// ends render the scratch copy instead of the committed state.
func (e *Engine) Layout(p *project.Project, g *Gesture) []TrackLayout {
	pps := e.Zoom()
	out := make([]TrackLayout, len(p.Tracks))
	for ti, tr := range p.Tracks {
		tl := TrackLayout{TrackIndex: ti, Clips: make([]ClipRect, 0, len(tr.Clips))}
		for _, c := range tr.Clips {
			geom := history.TrimGeometry{StartTime: c.StartTime, Duration: c.Duration}
			if g != nil && g.Kind() != GestureNone && g.TrackIndex() == ti && g.ClipID() == c.ID {
				geom = g.Geometry()
			}
			tl.Clips = append(tl.Clips, ClipRect{
				ClipID: c.ID,
				X:      geom.StartTime * pps,
				Width:  math.Max(1, geom.Duration*pps),
			})
		}
		out[ti] = tl
	}
	return out
}

// PlayheadX returns the playhead's pixel position at the current zoom.
func (e *Engine) PlayheadX(p *project.Project) float64 {
	return p.Playhead * e.Zoom()
}

// RulerStep picks a tick spacing in seconds that keeps ruler labels
// readable at the current zoom: at least minPixels apart, rounded up to
// a 1/2/5 sequence.
func (e *Engine) RulerStep(minPixels float64) float64 {
	pps := e.Zoom()
	raw := minPixels / pps
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	for _, m := range [3]float64{1, 2, 5} {
		if m*mag >= raw {
			return m * mag
		}
	}
	return 10 * mag
}
