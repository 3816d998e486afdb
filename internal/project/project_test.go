package project

import (
	"testing"
)

func TestTrackKindAccepts(t *testing.T) {
	tests := []struct {
		name  string
		track TrackKind
		clip  ClipKind
		want  bool
	}{
		{"video accepts video", TrackVideo, ClipVideo, true},
		{"video accepts image", TrackVideo, ClipImage, true},
		{"video rejects audio", TrackVideo, ClipAudio, false},
		{"video rejects text", TrackVideo, ClipText, false},
		{"audio accepts audio", TrackAudio, ClipAudio, true},
		{"audio rejects video", TrackAudio, ClipVideo, false},
		{"fx accepts text", TrackFx, ClipText, true},
		{"fx accepts fx", TrackFx, ClipFx, true},
		{"fx rejects image", TrackFx, ClipImage, false},
		{"unknown kind rejects", TrackKind("midi"), ClipAudio, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.track.Accepts(tt.clip); got != tt.want {
				t.Errorf("%s.Accepts(%s) = %v, want %v", tt.track, tt.clip, got, tt.want)
			}
		})
	}
}

func TestClipInterval(t *testing.T) {
	c := Clip{StartTime: 2, Duration: 3}

	if got := c.End(); got != 5 {
		t.Errorf("End() = %v, want 5", got)
	}

	tests := []struct {
		t    float64
		want bool
	}{
		{1.99, false},
		{2, true}, // start inclusive
		{3.5, true},
		{5, false}, // end exclusive
		{6, false},
	}
	for _, tt := range tests {
		if got := c.ActiveAt(tt.t); got != tt.want {
			t.Errorf("ActiveAt(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := Project{
		Name: "orig",
		Tracks: []Track{
			{Name: "Video 1", Kind: TrackVideo, Clips: []Clip{
				{ID: "c1", Name: "clip", EffectSettings: map[string]any{"provider": "text"}},
			}},
		},
		Selected: &SelectedClip{TrackIndex: 0, ClipID: "c1"},
	}

	clone := p.Clone()
	clone.Tracks[0].Clips[0].Name = "mutated"
	clone.Tracks[0].Clips[0].EffectSettings["provider"] = "other"
	clone.Selected.ClipID = "c2"

	if p.Tracks[0].Clips[0].Name != "clip" {
		t.Error("clone shares clip slice with original")
	}
	if p.Tracks[0].Clips[0].EffectSettings["provider"] != "text" {
		t.Error("clone shares effect settings map with original")
	}
	if p.Selected.ClipID != "c1" {
		t.Error("clone shares selection pointer with original")
	}
}

func TestProjectDuration(t *testing.T) {
	empty := NewProject("empty", 30)
	if got := empty.Duration(); got != 0 {
		t.Errorf("empty project Duration() = %v, want 0", got)
	}

	p := Project{Tracks: []Track{
		{Clips: []Clip{{StartTime: 0, Duration: 4}}},
		{Clips: []Clip{{StartTime: 3, Duration: 5}, {StartTime: 1, Duration: 2}}},
	}}
	if got := p.Duration(); got != 8 {
		t.Errorf("Duration() = %v, want 8", got)
	}
}

func TestProjectLookups(t *testing.T) {
	p := Project{Tracks: []Track{
		{Clips: []Clip{{ID: "a"}, {ID: "b"}}},
	}}

	if p.Track(-1) != nil || p.Track(1) != nil {
		t.Error("out-of-range Track() should return nil")
	}
	if p.FindClip(0, "b") == nil {
		t.Error("FindClip missed an existing clip")
	}
	if p.FindClip(0, "zzz") != nil {
		t.Error("FindClip invented a clip")
	}
	if p.FindClip(5, "a") != nil {
		t.Error("FindClip on a missing track should return nil")
	}
}

func TestDefaultProject(t *testing.T) {
	p := DefaultProject()
	if len(p.Tracks) != 5 {
		t.Fatalf("DefaultProject has %d tracks, want 5", len(p.Tracks))
	}
	wantKinds := []TrackKind{TrackVideo, TrackVideo, TrackAudio, TrackAudio, TrackFx}
	for i, want := range wantKinds {
		if p.Tracks[i].Kind != want {
			t.Errorf("track %d kind = %s, want %s", i, p.Tracks[i].Kind, want)
		}
		if p.Tracks[i].Volume != 100 {
			t.Errorf("track %d volume = %v, want 100", i, p.Tracks[i].Volume)
		}
	}
	if p.FPS != 30 {
		t.Errorf("FPS = %d, want 30", p.FPS)
	}
}

func TestNewProjectFPSFallback(t *testing.T) {
	if p := NewProject("x", 0); p.FPS != 30 {
		t.Errorf("FPS = %d, want fallback 30", p.FPS)
	}
	if p := NewProject("x", 60); p.FPS != 60 {
		t.Errorf("FPS = %d, want 60", p.FPS)
	}
}

func TestNewClipIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := NewClipID()
		if id == "" || seen[id] {
			t.Fatalf("duplicate or empty clip id %q", id)
		}
		seen[id] = true
	}
}
