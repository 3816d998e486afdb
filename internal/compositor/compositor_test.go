package compositor

import (
	"image"
	"image/color"
	"math"
	"testing"
	"time"

	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/project"
)

func newTestCompositor() *Compositor {
	// The nil loader never resolves in time for a synchronous Render, so
	// every video clip paints its deterministic placeholder.
	return New(NewMediaCache(func(string) (image.Image, error) {
		return nil, image.ErrFormat
	}, nil), NewRegistry())
}

func testSurface() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 64, 48))
}

func placeholderRGBA(clipID string) color.RGBA {
	r, g, b := PlaceholderColor(clipID).RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// centerPixel avoids the caption strip drawn near the bottom edge.
func centerPixel(img *image.RGBA) color.RGBA {
	b := img.Bounds()
	return img.RGBAAt((b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2)
}

func videoClip(id string, start, dur float64) project.Clip {
	return project.Clip{ID: id, Name: id, Kind: project.ClipVideo, StartTime: start, Duration: dur, Volume: 100, Opacity: 100}
}

func TestRenderEmptyProjectIsBlack(t *testing.T) {
	c := newTestCompositor()
	p := project.DefaultProject()
	dst := testSurface()

	c.Render(&p, 0, dst)

	if got := centerPixel(dst); got != (color.RGBA{A: 255}) {
		t.Errorf("empty frame center = %+v, want opaque black", got)
	}
}

func TestRenderClearsPreviousFrame(t *testing.T) {
	c := newTestCompositor()
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Clips: []project.Clip{videoClip("c1", 0, 1)}},
	}}
	dst := testSurface()

	c.Render(&p, 0.5, dst)
	if got := centerPixel(dst); got == (color.RGBA{A: 255}) {
		t.Fatal("active clip rendered nothing")
	}

	// Past the clip's end the surface must return to black.
	c.Render(&p, 2, dst)
	if got := centerPixel(dst); got != (color.RGBA{A: 255}) {
		t.Errorf("stale pixels survived re-render: %+v", got)
	}
}

func TestPlaceholderIsDeterministic(t *testing.T) {
	if PlaceholderColor("clip-1") != PlaceholderColor("clip-1") {
		t.Error("same id produced different colors")
	}
	if PlaceholderColor("clip-1") == PlaceholderColor("clip-2") {
		t.Error("distinct ids produced the same color")
	}

	c := newTestCompositor()
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Clips: []project.Clip{videoClip("c1", 0, 1)}},
	}}
	dst := testSurface()
	c.Render(&p, 0, dst)

	if got, want := centerPixel(dst), placeholderRGBA("c1"); got != want {
		t.Errorf("placeholder pixel = %+v, want %+v", got, want)
	}
}

func TestStackingTrackZeroOnTop(t *testing.T) {
	c := newTestCompositor()
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Clips: []project.Clip{videoClip("top", 0, 1)}},
		{Kind: project.TrackVideo, Clips: []project.Clip{videoClip("bottom", 0, 1)}},
	}}
	dst := testSurface()
	c.Render(&p, 0, dst)

	if got, want := centerPixel(dst), placeholderRGBA("top"); got != want {
		t.Errorf("center = %+v, want track 0's clip %+v on top", got, want)
	}
}

func TestStackingLaterClipWinsWithinTrack(t *testing.T) {
	c := newTestCompositor()
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Clips: []project.Clip{
			videoClip("early", 0, 2),
			videoClip("late", 0, 2), // later slice index paints over
		}},
	}}
	dst := testSurface()
	c.Render(&p, 1, dst)

	if got, want := centerPixel(dst), placeholderRGBA("late"); got != want {
		t.Errorf("center = %+v, want later clip %+v", got, want)
	}
}

func TestMutedTrackSkipped(t *testing.T) {
	c := newTestCompositor()
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Muted: true, Clips: []project.Clip{videoClip("c1", 0, 1)}},
	}}
	dst := testSurface()
	c.Render(&p, 0, dst)

	if got := centerPixel(dst); got != (color.RGBA{A: 255}) {
		t.Errorf("muted track painted %+v", got)
	}
}

func TestZeroOpacityClipSkipped(t *testing.T) {
	c := newTestCompositor()
	clip := videoClip("c1", 0, 1)
	clip.Opacity = 0
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Clips: []project.Clip{clip}},
	}}
	dst := testSurface()
	c.Render(&p, 0, dst)

	if got := centerPixel(dst); got != (color.RGBA{A: 255}) {
		t.Errorf("zero-opacity clip painted %+v", got)
	}
}

func TestClipActiveWindow(t *testing.T) {
	c := newTestCompositor()
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Clips: []project.Clip{videoClip("c1", 1, 2)}},
	}}

	tests := []struct {
		t      float64
		active bool
	}{
		{0.99, false},
		{1, true},  // start inclusive
		{3, false}, // end exclusive
	}
	for _, tt := range tests {
		dst := testSurface()
		c.Render(&p, tt.t, dst)
		painted := centerPixel(dst) != (color.RGBA{A: 255})
		if painted != tt.active {
			t.Errorf("at t=%v painted=%v, want %v", tt.t, painted, tt.active)
		}
	}
}

func TestRenderWithDecodedMedia(t *testing.T) {
	red := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			red.SetRGBA(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	bus := event.NewBus()
	invalidated := make(chan event.Event, 1)
	bus.Subscribe(event.TopicCompositorInvalidate, func(ev event.Event) { invalidated <- ev })

	cache := NewMediaCache(func(string) (image.Image, error) { return red, nil }, bus)
	c := New(cache, NewRegistry())

	clip := videoClip("c1", 0, 1)
	clip.MediaRef = "asset://red"
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackVideo, Clips: []project.Clip{clip}},
	}}

	// First render kicks off the decode and paints the placeholder.
	dst := testSurface()
	c.Render(&p, 0, dst)

	select {
	case ev := <-invalidated:
		if ev.Payload != "asset://red" {
			t.Errorf("invalidate payload = %v", ev.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("decode never published compositor.invalidate")
	}

	c.Render(&p, 0, dst)
	if got := centerPixel(dst); got != (color.RGBA{R: 255, A: 255}) {
		t.Errorf("decoded media pixel = %+v, want red", got)
	}
}

func TestMediaCacheFailure(t *testing.T) {
	cache := NewMediaCache(func(string) (image.Image, error) {
		return nil, image.ErrFormat
	}, nil)

	if _, ok := cache.Resolve("asset://broken"); ok {
		t.Fatal("first resolve should report not ready")
	}

	deadline := time.Now().Add(2 * time.Second)
	for !cache.Failed("asset://broken") {
		if time.Now().After(deadline) {
			t.Fatal("decode failure never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, ok := cache.Resolve("asset://broken"); ok {
		t.Error("failed media should stay unresolved")
	}
}

func TestMediaFailureSchedulesRedraw(t *testing.T) {
	bus := event.NewBus()
	invalidated := make(chan event.Event, 1)
	bus.Subscribe(event.TopicCompositorInvalidate, func(ev event.Event) {
		select {
		case invalidated <- ev:
		default:
		}
	})

	cache := NewMediaCache(func(string) (image.Image, error) {
		return nil, image.ErrFormat
	}, bus)
	cache.Resolve("asset://broken")

	select {
	case ev := <-invalidated:
		if ev.Payload != "asset://broken" {
			t.Errorf("invalidate payload = %v", ev.Payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("decode failure never invalidated the surface")
	}
}

func TestEntranceProgress(t *testing.T) {
	tests := []struct {
		name string
		clip project.Clip
		t    float64
		want float64
	}{
		{"at start", project.Clip{StartTime: 2, Duration: 4}, 2, 0},
		{"halfway through window", project.Clip{StartTime: 2, Duration: 4}, 2.5, 0.5},
		{"window capped at one second", project.Clip{StartTime: 2, Duration: 4}, 3, 1},
		{"long clip stays entered", project.Clip{StartTime: 2, Duration: 4}, 5.9, 1},
		{"short clip window is its duration", project.Clip{StartTime: 0, Duration: 0.5}, 0.25, 0.5},
		{"zero duration fully entered", project.Clip{StartTime: 0, Duration: 0}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EntranceProgress(tt.t, &tt.clip); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("EntranceProgress = %v, want %v", got, tt.want)
			}
		})
	}
}

// recordingGlyph captures the arguments the fx pass hands to a provider.
type recordingGlyph struct {
	calls    int
	progress float64
}

func (r *recordingGlyph) Settings() map[string]any { return nil }

func (r *recordingGlyph) RenderToCanvas(_ *image.RGBA, _, _ int, progress float64) {
	r.calls++
	r.progress = progress
}

func TestTextClipDrivesGlyphProvider(t *testing.T) {
	reg := NewRegistry()
	def := &recordingGlyph{}
	reg.Register(DefaultGlyphProvider, def)
	c := New(NewMediaCache(nil, nil), reg)

	textClip := project.Clip{ID: "t1", Kind: project.ClipText, StartTime: 0, Duration: 2}
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackFx, Clips: []project.Clip{textClip}},
	}}

	c.Render(&p, 0.5, testSurface())
	if def.calls != 1 {
		t.Fatalf("default provider called %d times, want 1", def.calls)
	}
	if def.progress != 0.5 {
		t.Errorf("progress = %v, want 0.5", def.progress)
	}
}

func TestTextClipSelectsProviderFromSettings(t *testing.T) {
	reg := NewRegistry()
	def := &recordingGlyph{}
	fancy := &recordingGlyph{}
	reg.Register(DefaultGlyphProvider, def)
	reg.Register("fancy", fancy)
	c := New(NewMediaCache(nil, nil), reg)

	textClip := project.Clip{
		ID: "t1", Kind: project.ClipText, StartTime: 0, Duration: 2,
		EffectSettings: map[string]any{"provider": "fancy"},
	}
	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackFx, Clips: []project.Clip{textClip}},
	}}

	c.Render(&p, 0, testSurface())
	if fancy.calls != 1 || def.calls != 0 {
		t.Errorf("fancy=%d default=%d calls, want 1/0", fancy.calls, def.calls)
	}
}

func TestMutedFxTrackSkipsGlyphs(t *testing.T) {
	reg := NewRegistry()
	def := &recordingGlyph{}
	reg.Register(DefaultGlyphProvider, def)
	c := New(NewMediaCache(nil, nil), reg)

	p := project.Project{Tracks: []project.Track{
		{Kind: project.TrackFx, Muted: true, Clips: []project.Clip{
			{ID: "t1", Kind: project.ClipText, StartTime: 0, Duration: 2},
		}},
	}}

	c.Render(&p, 0, testSurface())
	if def.calls != 0 {
		t.Error("muted fx track still drove the glyph provider")
	}
}

func TestTitleBannerEntrance(t *testing.T) {
	title := NewTitle("Opening")

	if got := title.Settings()["text"]; got != "Opening" {
		t.Errorf("settings text = %v", got)
	}

	white := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	fill := func(dst *image.RGBA) {
		b := dst.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.SetRGBA(x, y, white)
			}
		}
	}

	dst := testSurface()
	fill(dst)
	title.RenderToCanvas(dst, 64, 48, 0)
	if got := dst.RGBAAt(32, 40); got != white {
		t.Errorf("banner visible at zero progress: %+v", got)
	}

	fill(dst)
	title.RenderToCanvas(dst, 64, 48, 1)
	// At full progress the banner rests in the lower third and darkens
	// the surface under it.
	if got := dst.RGBAAt(2, 48-48/3+4); got == white {
		t.Error("banner missing at full progress")
	}
}

// markerProcessor implements FrameProcessor for registry ordering tests.
type markerProcessor struct {
	name  string
	order *[]string
}

func (m *markerProcessor) Settings() map[string]any { return nil }

func (m *markerProcessor) ProcessFrame(src, dst *image.RGBA) {
	copy(dst.Pix, src.Pix)
	*m.order = append(*m.order, m.name)
}

func TestRegistryProcessorsSortedByName(t *testing.T) {
	reg := NewRegistry()
	var order []string
	reg.Register("zeta", &markerProcessor{name: "zeta", order: &order})
	reg.Register("alpha", &markerProcessor{name: "alpha", order: &order})
	reg.Register("title", &recordingGlyph{}) // not a processor

	procs := reg.Processors()
	if len(procs) != 2 {
		t.Fatalf("Processors() returned %d, want 2", len(procs))
	}
	for _, fp := range procs {
		fp.ProcessFrame(testSurface(), testSurface())
	}
	if order[0] != "alpha" || order[1] != "zeta" {
		t.Errorf("processor order = %v, want alphabetical", order)
	}
}

func TestRegistryGlyphLookup(t *testing.T) {
	reg := NewRegistry()
	reg.Register("text", &recordingGlyph{})
	reg.Register("grade", &markerProcessor{name: "grade", order: new([]string)})

	if _, ok := reg.Glyph("text"); !ok {
		t.Error("registered glyph not found")
	}
	if _, ok := reg.Glyph("grade"); ok {
		t.Error("a frame processor should not satisfy the glyph lookup")
	}
	if _, ok := reg.Glyph("missing"); ok {
		t.Error("unknown name should not resolve")
	}

	reg.Unregister("text")
	if _, ok := reg.Glyph("text"); ok {
		t.Error("unregistered provider still resolves")
	}
}
