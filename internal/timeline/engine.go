package timeline

import (
	"errors"
	"math"
	"sync"

	"github.com/splicekit/splice/internal/config"
	"github.com/splicekit/splice/internal/history"
	"github.com/splicekit/splice/internal/project"
)

// Sentinel errors for the drop path. Everything else in the engine
// resolves invalid references as silent no-ops.
var (
	ErrIncompatibleKind = errors.New("timeline: clip kind incompatible with track")
	ErrTrackLocked      = errors.New("timeline: track is locked")
)

// Edge selects which end of a clip a trim operates on.
type Edge int

const (
	// EdgeLeft trims the clip start; the end stays fixed.
	EdgeLeft Edge = iota
	// EdgeRight trims the clip end; the start stays fixed.
	EdgeRight
)

// DropPayload is the shape handed over when an asset is dropped onto a
// track. Duration and Thumbnail are optional.
type DropPayload struct {
	URL       string
	Kind      project.ClipKind
	Name      string
	Duration  float64
	Thumbnail string
}

// Engine translates gestures and drop events into commands against the
// project store.
type Engine struct {
	store *project.Store
	hist  *history.History
	cfg   config.Timeline

	mu              sync.Mutex
	pixelsPerSecond float64
}

// NewEngine creates an engine at the default zoom (100 px/s, clamped to
// the configured range).
func NewEngine(store *project.Store, hist *history.History, cfg config.Timeline) *Engine {
	e := &Engine{store: store, hist: hist, cfg: cfg}
	e.pixelsPerSecond = e.clampZoom(100)
	return e
}

// Zoom returns the current horizontal scale in pixels per second.
func (e *Engine) Zoom() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pixelsPerSecond
}

// SetZoom sets the horizontal scale, clamped to the configured range.
func (e *Engine) SetZoom(pps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pixelsPerSecond = e.clampZoom(pps)
}

// FitZoom picks the zoom that fits the whole project into widthPx pixels.
// An empty project keeps the current zoom.
func (e *Engine) FitZoom(widthPx float64) {
	dur := e.ProjectDuration()
	if dur <= 0 || widthPx <= 0 {
		return
	}
	e.SetZoom(widthPx / dur)
}

func (e *Engine) clampZoom(pps float64) float64 {
	return math.Min(e.cfg.MaxPixelsPerSecond, math.Max(e.cfg.MinPixelsPerSecond, pps))
}

// SnapWindow is the snap tolerance in seconds at the current zoom.
func (e *Engine) SnapWindow() float64 {
	return e.cfg.SnapThresholdPixels / e.Zoom()
}

// TimeAtX converts a pointer x position to a timeline time.
func (e *Engine) TimeAtX(x float64) float64 {
	t := x / e.Zoom()
	if t < 0 {
		t = 0
	}
	return t
}

// ProjectDuration returns the furthest clip end, or 0 for an empty
// project.
func (e *Engine) ProjectDuration() float64 {
	p := e.store.State()
	return p.Duration()
}

// MoveClip shifts a clip by delta seconds, clamps the start at zero,
// snaps the result and commits one command. Unknown references are a
// silent no-op.
func (e *Engine) MoveClip(trackIdx int, clipID string, delta float64) error {
	p := e.store.State()
	clip := p.FindClip(trackIdx, clipID)
	if clip == nil {
		return nil
	}
	moved := clip.Clone()
	moved.StartTime = math.Max(0, clip.StartTime+delta)
	moved.StartTime = e.snapStart(&p, trackIdx, moved)
	if moved.StartTime == clip.StartTime {
		return nil
	}
	return e.hist.Execute(history.NewMoveClip(trackIdx, clipID, clip.StartTime, moved.StartTime))
}

// TrimClip resizes a clip from one edge by delta seconds and commits one
// command. The opposite edge stays fixed and the duration never drops
// below the configured floor.
func (e *Engine) TrimClip(trackIdx int, clipID string, edge Edge, delta float64) error {
	p := e.store.State()
	clip := p.FindClip(trackIdx, clipID)
	if clip == nil {
		return nil
	}
	oldGeom := history.TrimGeometry{StartTime: clip.StartTime, Duration: clip.Duration}
	newGeom := e.trimGeometry(oldGeom, edge, delta)
	if newGeom == oldGeom {
		return nil
	}
	return e.hist.Execute(history.NewTrimClip(trackIdx, clipID, oldGeom, newGeom))
}

// trimGeometry applies the edge rules: the left edge moves the start and
// shrinks or grows the duration inversely so the end stays put; the
// right edge changes duration only. Both clamp to the duration floor and
// the left edge also clamps the start at zero.
func (e *Engine) trimGeometry(g history.TrimGeometry, edge Edge, delta float64) history.TrimGeometry {
	floor := e.cfg.MinClipDuration
	switch edge {
	case EdgeLeft:
		end := g.StartTime + g.Duration
		start := g.StartTime + delta
		if start < 0 {
			start = 0
		}
		if end-start < floor {
			start = end - floor
		}
		return history.TrimGeometry{StartTime: start, Duration: end - start}
	default:
		dur := g.Duration + delta
		if dur < floor {
			dur = floor
		}
		return history.TrimGeometry{StartTime: g.StartTime, Duration: dur}
	}
}

// SplitClip cuts a clip at an interior time and commits one command. The
// right half receives a fresh id, which is returned. Split points at or
// outside the clip bounds are a silent no-op returning an empty id.
func (e *Engine) SplitClip(trackIdx int, clipID string, atTime float64) (string, error) {
	p := e.store.State()
	clip := p.FindClip(trackIdx, clipID)
	if clip == nil || atTime <= clip.StartTime || atTime >= clip.End() {
		return "", nil
	}
	cmd := history.NewSplitClip(trackIdx, clipID, atTime)
	if err := e.hist.Execute(cmd); err != nil {
		return "", err
	}
	return cmd.NewClipID(), nil
}

// DuplicateClip copies a clip with a fresh id right after the source
// interval and commits one command.
func (e *Engine) DuplicateClip(trackIdx int, clipID string) (string, error) {
	p := e.store.State()
	if p.FindClip(trackIdx, clipID) == nil {
		return "", nil
	}
	cmd := history.NewDuplicateClip(trackIdx, clipID)
	if err := e.hist.Execute(cmd); err != nil {
		return "", err
	}
	return cmd.NewClipID(), nil
}

// DeleteClip removes a clip through the command system.
func (e *Engine) DeleteClip(trackIdx int, clipID string) error {
	p := e.store.State()
	if p.FindClip(trackIdx, clipID) == nil {
		return nil
	}
	return e.hist.Execute(history.NewDeleteClip(trackIdx, clipID))
}

// HandleDrop turns an asset drop at a pointer x position into a new clip
// on the target track. Missing payload fields take the documented
// defaults; an incompatible payload kind or a locked track rejects the
// drop before anything is inserted. The new clip snaps against its
// neighbors. Returns the new clip id.
func (e *Engine) HandleDrop(trackIdx int, pointerX float64, payload DropPayload) (string, error) {
	p := e.store.State()
	tr := p.Track(trackIdx)
	if tr == nil {
		return "", nil
	}
	if tr.Locked {
		return "", ErrTrackLocked
	}
	if !tr.Kind.Accepts(payload.Kind) {
		return "", ErrIncompatibleKind
	}

	dur := payload.Duration
	if dur <= 0 {
		dur = e.cfg.DefaultDropDuration
	}
	name := payload.Name
	if name == "" {
		name = "Clip"
	}
	clip := project.Clip{
		ID:        project.NewClipID(),
		Name:      name,
		Kind:      payload.Kind,
		MediaRef:  payload.URL,
		Thumbnail: payload.Thumbnail,
		StartTime: e.TimeAtX(pointerX),
		Duration:  dur,
		Volume:    100,
		Opacity:   100,
	}
	clip.StartTime = e.snapStart(&p, trackIdx, clip)

	cmd := history.NewAddClip(trackIdx, clip)
	if err := e.hist.Execute(cmd); err != nil {
		return "", err
	}
	return clip.ID, nil
}

// snapStart aligns the clip's edges against every other clip edge on the
// same track. Each edge is checked independently against the snap window;
// when the right edge matches, its alignment wins over the left.
func (e *Engine) snapStart(p *project.Project, trackIdx int, clip project.Clip) float64 {
	tr := p.Track(trackIdx)
	if tr == nil {
		return clip.StartTime
	}
	window := e.SnapWindow()
	start := clip.StartTime
	end := clip.StartTime + clip.Duration

	for _, other := range tr.Clips {
		if other.ID == clip.ID {
			continue
		}
		for _, edge := range [2]float64{other.StartTime, other.End()} {
			if math.Abs(edge-clip.StartTime) < window {
				start = edge
			}
		}
	}
	for _, other := range tr.Clips {
		if other.ID == clip.ID {
			continue
		}
		for _, edge := range [2]float64{other.StartTime, other.End()} {
			if math.Abs(edge-end) < window {
				start = edge - clip.Duration
			}
		}
	}
	if start < 0 {
		start = 0
	}
	return start
}
