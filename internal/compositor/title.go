package compositor

import (
	"image"
	"image/color"
	"image/draw"
	"math"
)

const titleBannerHeight = 28

// Title is the built-in overlay bound under DefaultGlyphProvider: a
// caption banner that slides up from the bottom edge as the entrance
// progress advances, coming to rest in the lower third of the frame.
// Lua-scripted providers replace it by registering under the same name.
type Title struct {
	Text string
}

// NewTitle creates a banner provider for the given caption text.
func NewTitle(text string) *Title {
	return &Title{Text: text}
}

// Settings returns the banner's configuration blob.
func (t *Title) Settings() map[string]any {
	return map[string]any{"text": t.Text}
}

// RenderToCanvas draws the banner at its entrance position.
func (t *Title) RenderToCanvas(surface *image.RGBA, width, height int, progress float64) {
	progress = math.Min(1, math.Max(0, progress))
	travel := float64(height) / 3
	y := height - int(progress*travel)

	rect := image.Rect(0, y, width, y+titleBannerHeight).Intersect(surface.Bounds())
	if rect.Empty() {
		return
	}
	banner := image.NewUniform(color.NRGBA{A: 180})
	draw.Draw(surface, rect, banner, image.Point{}, draw.Over)
	DrawLabel(surface, t.Text, rect.Min.X+16, rect.Min.Y+18)
}
