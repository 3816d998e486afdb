package timeline

import (
	"math"

	"github.com/splicekit/splice/internal/history"
	"github.com/splicekit/splice/internal/project"
)

// GestureKind identifies what a pointer gesture is editing.
type GestureKind int

const (
	// GestureNone means no gesture is in progress.
	GestureNone GestureKind = iota
	// GestureMove drags a whole clip along its track.
	GestureMove
	// GestureTrim drags one clip edge.
	GestureTrim
)

// Gesture tracks one in-progress pointer edit.
//
// At press time it captures an immutable snapshot of the clip geometry.
// Updates mutate only the scratch copy, which front ends render for live
// feedback; the store stays untouched until End commits the net effect as
// exactly one command. Releasing the pointer always commits; there is no
// cancel path.
type Gesture struct {
	engine *Engine

	kind     GestureKind
	trackIdx int
	clipID   string
	edge     Edge

	snapshot history.TrimGeometry
	scratch  history.TrimGeometry
}

// BeginMove starts a move gesture. Returns nil when the clip does not
// exist or its track is locked.
func (e *Engine) BeginMove(trackIdx int, clipID string) *Gesture {
	return e.begin(GestureMove, trackIdx, clipID, EdgeLeft)
}

// BeginTrim starts a trim gesture on one edge. Returns nil when the clip
// does not exist or its track is locked.
func (e *Engine) BeginTrim(trackIdx int, clipID string, edge Edge) *Gesture {
	return e.begin(GestureTrim, trackIdx, clipID, edge)
}

func (e *Engine) begin(kind GestureKind, trackIdx int, clipID string, edge Edge) *Gesture {
	p := e.store.State()
	tr := p.Track(trackIdx)
	if tr == nil || tr.Locked {
		return nil
	}
	clip := p.FindClip(trackIdx, clipID)
	if clip == nil {
		return nil
	}
	geom := history.TrimGeometry{StartTime: clip.StartTime, Duration: clip.Duration}
	return &Gesture{
		engine:   e,
		kind:     kind,
		trackIdx: trackIdx,
		clipID:   clipID,
		edge:     edge,
		snapshot: geom,
		scratch:  geom,
	}
}

// Kind returns the gesture kind, or GestureNone after End.
func (g *Gesture) Kind() GestureKind { return g.kind }

// TrackIndex returns the track being edited.
func (g *Gesture) TrackIndex() int { return g.trackIdx }

// ClipID returns the clip being edited.
func (g *Gesture) ClipID() string { return g.clipID }

// Update recomputes the scratch geometry for a total pointer delta in
// seconds, measured from the gesture start. Deltas are absolute, not
// incremental, so jittery pointer streams cannot accumulate error.
func (g *Gesture) Update(delta float64) {
	switch g.kind {
	case GestureMove:
		g.scratch.StartTime = math.Max(0, g.snapshot.StartTime+delta)
		g.scratch.Duration = g.snapshot.Duration
	case GestureTrim:
		g.scratch = g.engine.trimGeometry(g.snapshot, g.edge, delta)
	}
}

// Geometry returns the scratch geometry for live rendering.
func (g *Gesture) Geometry() history.TrimGeometry { return g.scratch }

// End snaps the edited geometry, diffs it against the press-time snapshot
// and commits the net effect as one command. A gesture that moved nothing
// leaves the history untouched. The gesture is spent afterwards.
func (g *Gesture) End() error {
	if g.kind == GestureNone {
		return nil
	}
	kind := g.kind
	g.kind = GestureNone

	e := g.engine
	p := e.store.State()
	clip := p.FindClip(g.trackIdx, g.clipID)
	if clip == nil {
		return nil
	}

	switch kind {
	case GestureMove:
		moved := clip.Clone()
		moved.StartTime = g.scratch.StartTime
		final := e.snapStart(&p, g.trackIdx, moved)
		if final == g.snapshot.StartTime {
			return nil
		}
		return e.hist.Execute(history.NewMoveClip(g.trackIdx, g.clipID, g.snapshot.StartTime, final))
	default:
		final := e.snapEdge(&p, g.trackIdx, g.clipID, g.scratch, g.edge)
		if final == g.snapshot {
			return nil
		}
		return e.hist.Execute(history.NewTrimClip(g.trackIdx, g.clipID, g.snapshot, final))
	}
}

// snapEdge aligns the edited edge of a trimmed clip with neighboring clip
// edges, keeping the opposite edge fixed and respecting the duration
// floor.
func (e *Engine) snapEdge(p *project.Project, trackIdx int, clipID string, g history.TrimGeometry, edge Edge) history.TrimGeometry {
	tr := p.Track(trackIdx)
	if tr == nil {
		return g
	}
	window := e.SnapWindow()
	floor := e.cfg.MinClipDuration
	end := g.StartTime + g.Duration

	target := g.StartTime
	if edge == EdgeRight {
		target = end
	}
	for _, other := range tr.Clips {
		if other.ID == clipID {
			continue
		}
		for _, cand := range [2]float64{other.StartTime, other.End()} {
			if math.Abs(cand-target) < window {
				target = cand
			}
		}
	}

	if edge == EdgeLeft {
		if target < 0 {
			target = 0
		}
		if end-target < floor {
			target = end - floor
		}
		return history.TrimGeometry{StartTime: target, Duration: end - target}
	}
	if target-g.StartTime < floor {
		target = g.StartTime + floor
	}
	return history.TrimGeometry{StartTime: g.StartTime, Duration: target - g.StartTime}
}
