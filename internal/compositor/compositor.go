// Package compositor evaluates project state at a point in time into one
// rendered frame.
//
// Render is a pure function of (project snapshot, time, registered
// providers): it never mutates the project and produces the same pixels
// for the same inputs once media has resolved. Stacking is fixed: video
// tracks paint in reverse declaration order so track 0 ends up on top,
// and within one track a clip later in the slice paints over an earlier
// overlapping one.
//
// Full-surface filters (chroma key, color grading) do not run here. The
// surrounding application applies registered FrameProcessors to the
// finished frame, in registry order, immediately after Render returns.
package compositor

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/splicekit/splice/internal/project"
)

// DefaultGlyphProvider is the registry key consulted for Text clips that
// do not name a provider in their effect settings.
const DefaultGlyphProvider = "text"

// Compositor paints frames from project snapshots.
type Compositor struct {
	media     *MediaCache
	providers *Registry
}

// New creates a compositor around a media cache and provider registry.
func New(media *MediaCache, providers *Registry) *Compositor {
	return &Compositor{media: media, providers: providers}
}

// Providers exposes the registry so the application can run the
// FrameProcessor pipeline after each Render.
func (c *Compositor) Providers() *Registry { return c.providers }

// Render paints the frame for time t onto dst. The surface is cleared
// first; muted tracks contribute nothing.
func (c *Compositor) Render(p *project.Project, t float64, dst *image.RGBA) {
	clearSurface(dst)

	bounds := dst.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	// Reverse declaration order: track 0 painted last, on top.
	for ti := len(p.Tracks) - 1; ti >= 0; ti-- {
		tr := &p.Tracks[ti]
		if tr.Kind != project.TrackVideo || tr.Muted {
			continue
		}
		for i := range tr.Clips {
			clip := &tr.Clips[i]
			if !clip.ActiveAt(t) {
				continue
			}
			c.drawVideoClip(clip, dst)
		}
	}

	for ti := range p.Tracks {
		tr := &p.Tracks[ti]
		if tr.Kind != project.TrackFx || tr.Muted {
			continue
		}
		for i := range tr.Clips {
			clip := &tr.Clips[i]
			if clip.Kind != project.ClipText || !clip.ActiveAt(t) {
				continue
			}
			c.drawTextClip(clip, t, dst, w, h)
		}
	}
}

func (c *Compositor) drawVideoClip(clip *project.Clip, dst *image.RGBA) {
	alpha := clampUnit(clip.Opacity/100.0)
	if alpha <= 0 {
		return
	}

	img, ready := c.media.Resolve(clip.MediaRef)
	if !ready {
		c.drawPlaceholder(clip, dst, alpha)
		return
	}

	bounds := dst.Bounds()
	if alpha >= 1 {
		draw.ApproxBiLinear.Scale(dst, bounds, img, img.Bounds(), draw.Over, nil)
		return
	}

	// Scale into a scratch layer, then composite with the clip opacity
	// as a uniform alpha mask.
	layer := image.NewRGBA(bounds)
	draw.ApproxBiLinear.Scale(layer, bounds, img, img.Bounds(), draw.Src, nil)
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(alpha * 255))})
	stddraw.DrawMask(dst, bounds, layer, bounds.Min, mask, image.Point{}, stddraw.Over)
}

// drawPlaceholder fills the frame with the clip's deterministic swatch
// and a caption naming the clip, shown while media is still decoding or
// after it failed.
func (c *Compositor) drawPlaceholder(clip *project.Clip, dst *image.RGBA, alpha float64) {
	col := PlaceholderColor(clip.ID)
	r, g, b := col.RGB255()
	a := uint8(math.Round(alpha * 255))
	fill := color.RGBA{
		R: uint8(float64(r) * alpha),
		G: uint8(float64(g) * alpha),
		B: uint8(float64(b) * alpha),
		A: a,
	}
	stddraw.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{}, stddraw.Over)

	caption := clip.Name
	if c.media.Failed(clip.MediaRef) {
		caption = fmt.Sprintf("%s (unavailable)", clip.Name)
	} else if clip.MediaRef != "" {
		caption = fmt.Sprintf("%s (loading)", clip.Name)
	}
	drawCaption(dst, caption)
}

func (c *Compositor) drawTextClip(clip *project.Clip, t float64, dst *image.RGBA, w, h int) {
	name := DefaultGlyphProvider
	if clip.EffectSettings != nil {
		if s, ok := clip.EffectSettings["provider"].(string); ok && s != "" {
			name = s
		}
	}
	glyph, ok := c.providers.Glyph(name)
	if !ok {
		return
	}
	glyph.RenderToCanvas(dst, w, h, EntranceProgress(t, clip))
}

// EntranceProgress maps evaluation time to the overlay entrance position
// in [0,1]. The animation window is the clip duration capped at one
// second, so long titles still finish entering after a second.
func EntranceProgress(t float64, clip *project.Clip) float64 {
	window := math.Min(1, clip.Duration)
	if window <= 0 {
		return 1
	}
	return math.Min(1, (t-clip.StartTime)/window)
}

func clearSurface(dst *image.RGBA) {
	stddraw.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{}, stddraw.Src)
}

func clampUnit(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

// drawCaption paints a small label strip in the lower-left corner.
func drawCaption(dst *image.RGBA, text string) {
	b := dst.Bounds()
	DrawLabel(dst, text, b.Min.X+8, b.Max.Y-10)
}

// DrawLabel paints text at a pixel baseline position using the built-in
// bitmap face. Overlay providers use it for captions and titles.
func DrawLabel(dst *image.RGBA, text string, x, y int) {
	if text == "" {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.White),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}
