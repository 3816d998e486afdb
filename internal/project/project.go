package project

import (
	"time"

	"github.com/google/uuid"
)

// TrackKind identifies what a track lane carries.
type TrackKind string

const (
	// TrackVideo carries raster media (video and still images).
	TrackVideo TrackKind = "video"
	// TrackAudio carries audio-only media.
	TrackAudio TrackKind = "audio"
	// TrackFx carries overlay and effect clips.
	TrackFx TrackKind = "fx"
)

// ClipKind identifies the media type a clip references.
type ClipKind string

const (
	ClipVideo ClipKind = "video"
	ClipImage ClipKind = "image"
	ClipAudio ClipKind = "audio"
	ClipText  ClipKind = "text"
	ClipFx    ClipKind = "fx"
)

// Accepts reports whether a clip of kind ck may be dropped onto a track of
// this kind. Video lanes take raster media, audio lanes audio, fx lanes
// text overlays and effects. The check guards the drop path only; clips
// inserted through other paths are not retroactively validated.
func (k TrackKind) Accepts(ck ClipKind) bool {
	switch k {
	case TrackVideo:
		return ck == ClipVideo || ck == ClipImage
	case TrackAudio:
		return ck == ClipAudio
	case TrackFx:
		return ck == ClipText || ck == ClipFx
	default:
		return false
	}
}

// Clip is a time-bounded reference to media placed on a track.
// ID is unique and immutable once created.
type Clip struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Kind      ClipKind `json:"kind"`
	MediaRef  string   `json:"mediaRef"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	StartTime float64  `json:"startTime"`
	Duration  float64  `json:"duration"`
	Volume    float64  `json:"volume"`
	Opacity   float64  `json:"opacity"`

	// EffectSettings is an opaque blob owned by an external effect
	// provider. The core stores and round-trips it untouched.
	EffectSettings map[string]any `json:"effectSettings,omitempty"`
}

// End returns the exclusive end time of the clip interval.
func (c Clip) End() float64 {
	return c.StartTime + c.Duration
}

// ActiveAt reports whether the clip covers time t (start inclusive,
// end exclusive).
func (c Clip) ActiveAt(t float64) bool {
	return c.StartTime <= t && t < c.End()
}

// Clone returns a deep copy of the clip.
func (c Clip) Clone() Clip {
	out := c
	if c.EffectSettings != nil {
		out.EffectSettings = make(map[string]any, len(c.EffectSettings))
		for k, v := range c.EffectSettings {
			out.EffectSettings[k] = v
		}
	}
	return out
}

// Track is an ordered lane of clips sharing a kind and transport flags.
// For video tracks the slice order doubles as stacking order: a later
// clip paints over an earlier one where they overlap.
type Track struct {
	Name   string    `json:"name"`
	Kind   TrackKind `json:"kind"`
	Muted  bool      `json:"muted"`
	Solo   bool      `json:"solo"`
	Locked bool      `json:"locked"`
	Volume float64   `json:"volume"`
	Pan    float64   `json:"pan"`
	Clips  []Clip    `json:"clips"`
}

// Clone returns a deep copy of the track.
func (t Track) Clone() Track {
	out := t
	out.Clips = make([]Clip, len(t.Clips))
	for i, c := range t.Clips {
		out.Clips[i] = c.Clone()
	}
	return out
}

// ClipByID returns the index of the clip with the given id, or -1.
func (t Track) ClipByID(id string) int {
	for i, c := range t.Clips {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// SelectedClip addresses one clip in the project by track position and id.
type SelectedClip struct {
	TrackIndex int    `json:"trackIndex"`
	ClipID     string `json:"clipId"`
}

// Project is the aggregate root for one editing session.
type Project struct {
	Name      string        `json:"name"`
	FPS       int           `json:"fps"`
	Playhead  float64       `json:"playhead"`
	IsPlaying bool          `json:"isPlaying"`
	Tracks    []Track       `json:"tracks"`
	Selected  *SelectedClip `json:"selectedClip,omitempty"`
}

// Clone returns a deep copy of the project.
func (p Project) Clone() Project {
	out := p
	out.Tracks = make([]Track, len(p.Tracks))
	for i, t := range p.Tracks {
		out.Tracks[i] = t.Clone()
	}
	if p.Selected != nil {
		sel := *p.Selected
		out.Selected = &sel
	}
	return out
}

// Track returns the track at index i, or nil if out of range.
func (p *Project) Track(i int) *Track {
	if i < 0 || i >= len(p.Tracks) {
		return nil
	}
	return &p.Tracks[i]
}

// FindClip returns the clip with the given id on track trackIdx, or nil.
func (p *Project) FindClip(trackIdx int, clipID string) *Clip {
	tr := p.Track(trackIdx)
	if tr == nil {
		return nil
	}
	if i := tr.ClipByID(clipID); i >= 0 {
		return &tr.Clips[i]
	}
	return nil
}

// Duration returns the furthest clip end across all tracks, or 0 for an
// empty project. This bounds the playback loop and fit-to-window zoom.
func (p *Project) Duration() float64 {
	var max float64
	for _, tr := range p.Tracks {
		for _, c := range tr.Clips {
			if end := c.End(); end > max {
				max = end
			}
		}
	}
	return max
}

// NewProject returns an empty project at the given frame rate.
func NewProject(name string, fps int) Project {
	if fps <= 0 {
		fps = 30
	}
	return Project{Name: name, FPS: fps}
}

// DefaultProject returns the startup scaffold: two video lanes, two audio
// lanes and one fx lane.
func DefaultProject() Project {
	p := NewProject("Untitled Project", 30)
	p.Tracks = []Track{
		{Name: "Video 1", Kind: TrackVideo, Volume: 100},
		{Name: "Video 2", Kind: TrackVideo, Volume: 100},
		{Name: "Audio 1", Kind: TrackAudio, Volume: 100},
		{Name: "Audio 2", Kind: TrackAudio, Volume: 100},
		{Name: "Effects", Kind: TrackFx, Volume: 100},
	}
	return p
}

// NewClipID returns a fresh unique clip identifier.
func NewClipID() string {
	return uuid.NewString()
}

// AssetKind mirrors ClipKind for bin entries.
type AssetKind = ClipKind

// Asset is a generated or imported media entry in the bin. Assets live
// independently of the timeline; a clip keeps a copy of the URL, not a
// reference to the asset id.
type Asset struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Kind      AssetKind `json:"kind"`
	Name      string    `json:"name"`
	Prompt    string    `json:"prompt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewAsset builds a bin entry with a fresh id and creation timestamp.
func NewAsset(url string, kind AssetKind, name, prompt string) Asset {
	return Asset{
		ID:        uuid.NewString(),
		URL:       url,
		Kind:      kind,
		Name:      name,
		Prompt:    prompt,
		CreatedAt: time.Now(),
	}
}
