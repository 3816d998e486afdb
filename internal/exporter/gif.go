package exporter

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
)

// GIFEncoder is the guaranteed-supported fallback container, built
// entirely on the standard library. The high tier dithers onto the
// 256-color Plan9 palette; the standard tier uses the smaller web-safe
// palette for faster quantization and smaller output.
type GIFEncoder struct {
	anim    gif.GIF
	delay   int
	quality Quality
	started bool
}

// NewGIFEncoder creates an unstarted encoder.
func NewGIFEncoder() *GIFEncoder {
	return &GIFEncoder{}
}

// Begin fixes the frame timing and encoding tier.
func (e *GIFEncoder) Begin(width, height, fps int, q Quality) error {
	if width <= 0 || height <= 0 || fps <= 0 {
		return fmt.Errorf("gif: invalid geometry %dx%d@%d", width, height, fps)
	}
	// GIF delays are centiseconds; very high frame rates floor at 1.
	e.delay = 100 / fps
	if e.delay < 1 {
		e.delay = 1
	}
	e.quality = q
	e.started = true
	return nil
}

// WriteFrame quantizes one frame onto the tier's palette.
func (e *GIFEncoder) WriteFrame(frame *image.RGBA) error {
	if !e.started {
		return errors.New("gif: WriteFrame before Begin")
	}
	pal := palette.Plan9
	if e.quality == QualityStandard {
		pal = palette.WebSafe
	}
	paletted := image.NewPaletted(frame.Bounds(), pal)
	draw.FloydSteinberg.Draw(paletted, frame.Bounds(), frame, image.Point{})
	e.anim.Image = append(e.anim.Image, paletted)
	e.anim.Delay = append(e.anim.Delay, e.delay)
	return nil
}

// Finish serializes the animation.
func (e *GIFEncoder) Finish() ([]byte, string, string, error) {
	if !e.started {
		return nil, "", "", errors.New("gif: Finish before Begin")
	}
	if len(e.anim.Image) == 0 {
		return nil, "", "", errors.New("gif: no frames captured")
	}
	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &e.anim); err != nil {
		return nil, "", "", fmt.Errorf("gif: encoding: %w", err)
	}
	return buf.Bytes(), "image/gif", "gif", nil
}
