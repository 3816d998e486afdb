package history

import (
	"fmt"

	"github.com/splicekit/splice/internal/project"
)

// MoveClipCommand repositions a clip on its track. Old and new start
// times are captured at construction, so execute and undo are exact.
type MoveClipCommand struct {
	TrackIndex int
	ClipID     string
	OldStart   float64
	NewStart   float64
}

// NewMoveClip creates a move command from the gesture's before/after
// start times.
func NewMoveClip(trackIdx int, clipID string, oldStart, newStart float64) *MoveClipCommand {
	if oldStart < 0 {
		oldStart = 0
	}
	if newStart < 0 {
		newStart = 0
	}
	return &MoveClipCommand{TrackIndex: trackIdx, ClipID: clipID, OldStart: oldStart, NewStart: newStart}
}

func (c *MoveClipCommand) Execute(s *project.Store) error {
	return setClipStart(s, c.TrackIndex, c.ClipID, c.NewStart)
}

func (c *MoveClipCommand) Undo(s *project.Store) error {
	return setClipStart(s, c.TrackIndex, c.ClipID, c.OldStart)
}

func (c *MoveClipCommand) Description() string { return "Move clip" }

func setClipStart(s *project.Store, trackIdx int, clipID string, start float64) error {
	s.Update(func(p *project.Project) {
		if clip := p.FindClip(trackIdx, clipID); clip != nil {
			clip.StartTime = start
		}
	})
	return nil
}

// TrimGeometry is one {startTime, duration} pair.
type TrimGeometry struct {
	StartTime float64
	Duration  float64
}

// TrimClipCommand resizes a clip, capturing the full geometry on both
// sides of the edit.
type TrimClipCommand struct {
	TrackIndex int
	ClipID     string
	Old        TrimGeometry
	New        TrimGeometry
}

// NewTrimClip creates a trim command from before/after geometry.
func NewTrimClip(trackIdx int, clipID string, oldGeom, newGeom TrimGeometry) *TrimClipCommand {
	return &TrimClipCommand{TrackIndex: trackIdx, ClipID: clipID, Old: oldGeom, New: newGeom}
}

func (c *TrimClipCommand) Execute(s *project.Store) error {
	return applyGeometry(s, c.TrackIndex, c.ClipID, c.New)
}

func (c *TrimClipCommand) Undo(s *project.Store) error {
	return applyGeometry(s, c.TrackIndex, c.ClipID, c.Old)
}

func (c *TrimClipCommand) Description() string { return "Trim clip" }

func applyGeometry(s *project.Store, trackIdx int, clipID string, g TrimGeometry) error {
	s.Update(func(p *project.Project) {
		if clip := p.FindClip(trackIdx, clipID); clip != nil {
			clip.StartTime = g.StartTime
			clip.Duration = g.Duration
		}
	})
	return nil
}

// AddClipCommand inserts a fully-built clip. Undo removes it by id.
type AddClipCommand struct {
	TrackIndex int
	Clip       project.Clip
}

// NewAddClip creates an add command for a clip built by the drop path.
func NewAddClip(trackIdx int, clip project.Clip) *AddClipCommand {
	return &AddClipCommand{TrackIndex: trackIdx, Clip: clip}
}

func (c *AddClipCommand) Execute(s *project.Store) error {
	s.Update(func(p *project.Project) {
		tr := p.Track(c.TrackIndex)
		if tr == nil || tr.ClipByID(c.Clip.ID) >= 0 {
			return
		}
		tr.Clips = append(tr.Clips, c.Clip.Clone())
	})
	return nil
}

func (c *AddClipCommand) Undo(s *project.Store) error {
	removeClip(s, c.TrackIndex, c.Clip.ID)
	return nil
}

func (c *AddClipCommand) Description() string {
	return fmt.Sprintf("Add %s", c.Clip.Name)
}

// DeleteClipCommand removes a clip, capturing it for exact restoration.
type DeleteClipCommand struct {
	TrackIndex int
	ClipID     string

	removed project.Clip
	index   int
	applied bool
}

// NewDeleteClip creates a delete command for an existing clip.
func NewDeleteClip(trackIdx int, clipID string) *DeleteClipCommand {
	return &DeleteClipCommand{TrackIndex: trackIdx, ClipID: clipID}
}

func (c *DeleteClipCommand) Execute(s *project.Store) error {
	c.applied = false
	s.Update(func(p *project.Project) {
		tr := p.Track(c.TrackIndex)
		if tr == nil {
			return
		}
		i := tr.ClipByID(c.ClipID)
		if i < 0 {
			return
		}
		c.removed = tr.Clips[i].Clone()
		c.index = i
		c.applied = true
		tr.Clips = append(tr.Clips[:i:i], tr.Clips[i+1:]...)
		if p.Selected != nil && p.Selected.ClipID == c.ClipID {
			p.Selected = nil
		}
	})
	return nil
}

func (c *DeleteClipCommand) Undo(s *project.Store) error {
	if !c.applied {
		return nil
	}
	s.Update(func(p *project.Project) {
		tr := p.Track(c.TrackIndex)
		if tr == nil || tr.ClipByID(c.ClipID) >= 0 {
			return
		}
		i := c.index
		if i > len(tr.Clips) {
			i = len(tr.Clips)
		}
		tr.Clips = append(tr.Clips[:i], append([]project.Clip{c.removed.Clone()}, tr.Clips[i:]...)...)
	})
	return nil
}

func (c *DeleteClipCommand) Description() string { return "Delete clip" }

// SplitClipCommand cuts a clip in two at an interior time. The right half
// gets an id generated at construction so redo reproduces the same state.
type SplitClipCommand struct {
	TrackIndex int
	ClipID     string
	AtTime     float64

	newID    string
	original project.Clip
	applied  bool
}

// NewSplitClip creates a split command. AtTime must fall strictly inside
// the clip interval at execute time or the command degrades to a no-op.
func NewSplitClip(trackIdx int, clipID string, atTime float64) *SplitClipCommand {
	return &SplitClipCommand{
		TrackIndex: trackIdx,
		ClipID:     clipID,
		AtTime:     atTime,
		newID:      project.NewClipID(),
	}
}

// NewClipID returns the id the right half receives on execute.
func (c *SplitClipCommand) NewClipID() string { return c.newID }

func (c *SplitClipCommand) Execute(s *project.Store) error {
	c.applied = false
	s.Update(func(p *project.Project) {
		tr := p.Track(c.TrackIndex)
		if tr == nil {
			return
		}
		i := tr.ClipByID(c.ClipID)
		if i < 0 {
			return
		}
		clip := &tr.Clips[i]
		if c.AtTime <= clip.StartTime || c.AtTime >= clip.End() {
			return
		}
		c.original = clip.Clone()
		c.applied = true

		right := clip.Clone()
		right.ID = c.newID
		right.Name = fmt.Sprintf("%s (2)", clip.Name)
		right.StartTime = c.AtTime
		right.Duration = c.original.End() - c.AtTime

		clip.Duration = c.AtTime - clip.StartTime

		rest := append([]project.Clip{right}, tr.Clips[i+1:]...)
		tr.Clips = append(tr.Clips[:i+1:i+1], rest...)
	})
	return nil
}

func (c *SplitClipCommand) Undo(s *project.Store) error {
	if !c.applied {
		return nil
	}
	s.Update(func(p *project.Project) {
		tr := p.Track(c.TrackIndex)
		if tr == nil {
			return
		}
		if i := tr.ClipByID(c.newID); i >= 0 {
			tr.Clips = append(tr.Clips[:i:i], tr.Clips[i+1:]...)
		}
		if clip := p.FindClip(c.TrackIndex, c.ClipID); clip != nil {
			*clip = c.original.Clone()
		}
	})
	return nil
}

func (c *SplitClipCommand) Description() string { return "Split clip" }

// DuplicateClipCommand copies a clip with a fresh id, placing the copy
// immediately after the source interval.
type DuplicateClipCommand struct {
	TrackIndex int
	ClipID     string

	newID   string
	applied bool
}

// NewDuplicateClip creates a duplicate command.
func NewDuplicateClip(trackIdx int, clipID string) *DuplicateClipCommand {
	return &DuplicateClipCommand{TrackIndex: trackIdx, ClipID: clipID, newID: project.NewClipID()}
}

// NewClipID returns the id the copy receives on execute.
func (c *DuplicateClipCommand) NewClipID() string { return c.newID }

func (c *DuplicateClipCommand) Execute(s *project.Store) error {
	c.applied = false
	s.Update(func(p *project.Project) {
		tr := p.Track(c.TrackIndex)
		if tr == nil {
			return
		}
		i := tr.ClipByID(c.ClipID)
		if i < 0 || tr.ClipByID(c.newID) >= 0 {
			return
		}
		src := tr.Clips[i]
		dup := src.Clone()
		dup.ID = c.newID
		dup.Name = fmt.Sprintf("%s copy", src.Name)
		dup.StartTime = src.End()
		tr.Clips = append(tr.Clips, dup)
		c.applied = true
	})
	return nil
}

func (c *DuplicateClipCommand) Undo(s *project.Store) error {
	if !c.applied {
		return nil
	}
	removeClip(s, c.TrackIndex, c.newID)
	return nil
}

func (c *DuplicateClipCommand) Description() string { return "Duplicate clip" }

// CompoundCommand groups multiple commands as one undo unit.
type CompoundCommand struct {
	Name     string
	Commands []Command
}

// NewCompound creates a compound command.
func NewCompound(name string, commands ...Command) *CompoundCommand {
	return &CompoundCommand{Name: name, Commands: commands}
}

// Execute runs all commands in order. On failure the already-executed
// prefix is rolled back.
func (c *CompoundCommand) Execute(s *project.Store) error {
	for i, cmd := range c.Commands {
		if err := cmd.Execute(s); err != nil {
			for j := i - 1; j >= 0; j-- {
				_ = c.Commands[j].Undo(s)
			}
			return fmt.Errorf("compound %q step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Undo reverses all commands in reverse order.
func (c *CompoundCommand) Undo(s *project.Store) error {
	for i := len(c.Commands) - 1; i >= 0; i-- {
		if err := c.Commands[i].Undo(s); err != nil {
			return fmt.Errorf("undo compound %q step %d: %w", c.Name, i, err)
		}
	}
	return nil
}

// Description returns the compound command's name.
func (c *CompoundCommand) Description() string {
	if c.Name != "" {
		return c.Name
	}
	if len(c.Commands) == 1 {
		return c.Commands[0].Description()
	}
	return fmt.Sprintf("%d operations", len(c.Commands))
}

func removeClip(s *project.Store, trackIdx int, clipID string) {
	s.Update(func(p *project.Project) {
		tr := p.Track(trackIdx)
		if tr == nil {
			return
		}
		if i := tr.ClipByID(clipID); i >= 0 {
			tr.Clips = append(tr.Clips[:i:i], tr.Clips[i+1:]...)
		}
		if p.Selected != nil && p.Selected.ClipID == clipID {
			p.Selected = nil
		}
	})
}
