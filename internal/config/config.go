// Package config holds the editing engine's tunable settings, loaded from
// an optional TOML file over built-in defaults.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Timeline holds interval-editing tunables.
type Timeline struct {
	// MinClipDuration is the floor any edit clamps a clip duration to,
	// in seconds.
	MinClipDuration float64 `toml:"min_clip_duration"`

	// DefaultDropDuration is used when a drop payload carries no
	// duration, in seconds.
	DefaultDropDuration float64 `toml:"default_drop_duration"`

	// SnapThresholdPixels converts to a time window by dividing by the
	// current zoom (pixels per second).
	SnapThresholdPixels float64 `toml:"snap_threshold_pixels"`

	// MinPixelsPerSecond and MaxPixelsPerSecond clamp the zoom range.
	MinPixelsPerSecond float64 `toml:"min_pixels_per_second"`
	MaxPixelsPerSecond float64 `toml:"max_pixels_per_second"`
}

// History holds undo ledger tunables.
type History struct {
	// MaxEntries bounds the undo stack; oldest entries drop past it.
	MaxEntries int `toml:"max_entries"`
}

// Render holds compositor surface tunables.
type Render struct {
	SurfaceWidth  int `toml:"surface_width"`
	SurfaceHeight int `toml:"surface_height"`
}

// Export holds export pipeline tunables.
type Export struct {
	// Format is the requested container; the exporter falls back to its
	// guaranteed default when the format is unknown.
	Format string `toml:"format"`

	// Quality selects the encoding tier: "high" or "standard".
	Quality string `toml:"quality"`

	// FlushDelayMS is the pause between the last captured frame and
	// artifact assembly, in milliseconds.
	FlushDelayMS int `toml:"flush_delay_ms"`
}

// Config is the root configuration document.
type Config struct {
	// StoragePath locates the SQLite document store.
	StoragePath string `toml:"storage_path"`

	LogLevel string   `toml:"log_level"`
	Timeline Timeline `toml:"timeline"`
	History  History  `toml:"history"`
	Render   Render   `toml:"render"`
	Export   Export   `toml:"export"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		StoragePath: "splice.db",
		LogLevel:    "info",
		Timeline: Timeline{
			MinClipDuration:     0.1,
			DefaultDropDuration: 4.0,
			SnapThresholdPixels: 10,
			MinPixelsPerSecond:  10,
			MaxPixelsPerSecond:  200,
		},
		History: History{MaxEntries: 100},
		Render:  Render{SurfaceWidth: 1280, SurfaceHeight: 720},
		Export: Export{
			Format:       "avi",
			Quality:      "high",
			FlushDelayMS: 100,
		},
	}
}

// Load reads a TOML file over the defaults. A missing file is not an
// error; the defaults are returned unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("parsing config file %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize clamps nonsense values back to the defaults so a bad config
// file cannot wedge the editor.
func (c *Config) normalize() {
	def := Default()
	if c.Timeline.MinClipDuration <= 0 {
		c.Timeline.MinClipDuration = def.Timeline.MinClipDuration
	}
	if c.Timeline.DefaultDropDuration <= 0 {
		c.Timeline.DefaultDropDuration = def.Timeline.DefaultDropDuration
	}
	if c.Timeline.SnapThresholdPixels < 0 {
		c.Timeline.SnapThresholdPixels = def.Timeline.SnapThresholdPixels
	}
	if c.Timeline.MinPixelsPerSecond <= 0 || c.Timeline.MaxPixelsPerSecond < c.Timeline.MinPixelsPerSecond {
		c.Timeline.MinPixelsPerSecond = def.Timeline.MinPixelsPerSecond
		c.Timeline.MaxPixelsPerSecond = def.Timeline.MaxPixelsPerSecond
	}
	if c.History.MaxEntries <= 0 {
		c.History.MaxEntries = def.History.MaxEntries
	}
	if c.Render.SurfaceWidth <= 0 || c.Render.SurfaceHeight <= 0 {
		c.Render = def.Render
	}
	if c.Export.FlushDelayMS < 0 {
		c.Export.FlushDelayMS = def.Export.FlushDelayMS
	}
}
