// Package app wires the editing engine together: config, logging, event
// bus, project store, command history, timeline engine, compositor and
// exporter, owned by one Application value.
//
// There are no package-level singletons; everything reachable from the
// running program hangs off the Application the entry point constructs.
package app

import (
	"image"
	"io"
	"time"

	"github.com/splicekit/splice/internal/compositor"
	"github.com/splicekit/splice/internal/config"
	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/exporter"
	"github.com/splicekit/splice/internal/history"
	"github.com/splicekit/splice/internal/project"
	"github.com/splicekit/splice/internal/storage"
	"github.com/splicekit/splice/internal/timeline"
)

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the TOML configuration file. Empty
	// skips file loading and uses the defaults.
	ConfigPath string

	// StoragePath overrides the configured database location. Empty
	// keeps the config value; ":memory:" gives a throwaway session.
	StoragePath string

	// LogOutput receives log lines. Nil means stderr.
	LogOutput io.Writer

	// LogLevel overrides the configured level when non-empty.
	LogLevel string

	// MediaLoader overrides how clip media URLs resolve to images.
	// Nil uses the local-file loader.
	MediaLoader compositor.Loader

	// WatchConfig reloads tunables when the config file changes.
	WatchConfig bool
}

// Application is the central coordinator for all engine components.
type Application struct {
	cfg config.Config
	log *Logger
	bus *event.Bus

	storage  *storage.Store
	store    *project.Store
	history  *history.History
	timeline *timeline.Engine
	comp     *compositor.Compositor
	exporter *exporter.Exporter
	playback *Playback

	watcher *config.Watcher
}

// New creates an application with all components wired in dependency
// order. Storage failures are non-fatal: the session runs memory-only
// and the first save after the problem clears will persist again.
func New(opts Options) (*Application, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.StoragePath != "" {
		cfg.StoragePath = opts.StoragePath
	}

	level := ParseLogLevel(cfg.LogLevel)
	if opts.LogLevel != "" {
		level = ParseLogLevel(opts.LogLevel)
	}
	log := NewLogger(opts.LogOutput, level)

	a := &Application{cfg: cfg, log: log}

	a.bus = event.NewBus()
	a.bus.SetPanicHandler(func(topic string, recovered any) {
		log.Error("event handler panic on %s: %v", topic, recovered)
	})

	var persister project.Persister
	store, err := storage.Open(cfg.StoragePath)
	if err != nil {
		log.Warn("opening storage at %s: %v (running without persistence)", cfg.StoragePath, err)
	} else {
		a.storage = store
		persister = store
	}

	a.store = project.NewStore(project.StoreOptions{
		Persister: persister,
		Bus:       a.bus,
		Logger:    log.WithComponent("store"),
	})
	a.history = history.New(a.store, a.bus, cfg.History.MaxEntries)
	a.timeline = timeline.NewEngine(a.store, a.history, cfg.Timeline)

	media := compositor.NewMediaCache(opts.MediaLoader, a.bus)
	registry := compositor.NewRegistry()
	registry.Register(compositor.DefaultGlyphProvider, compositor.NewTitle(""))
	a.comp = compositor.New(media, registry)
	a.exporter = exporter.New(a.store, a.comp, a.bus, cfg.Render.SurfaceWidth, cfg.Render.SurfaceHeight)
	a.playback = NewPlayback(a.store, a.bus)

	if opts.WatchConfig && opts.ConfigPath != "" {
		w, err := config.Watch(opts.ConfigPath, func(next config.Config) {
			log.Info("config reloaded from %s", opts.ConfigPath)
			log.SetLevel(ParseLogLevel(next.LogLevel))
		})
		if err != nil {
			log.Warn("watching config: %v", err)
		} else {
			a.watcher = w
		}
	}

	return a, nil
}

// Shutdown stops playback and releases resources. Safe to call once.
func (a *Application) Shutdown() {
	a.playback.Pause()
	if a.watcher != nil {
		a.watcher.Close()
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.log.Warn("closing storage: %v", err)
		}
	}
}

// Config returns the effective configuration.
func (a *Application) Config() config.Config { return a.cfg }

// Logger returns the root logger.
func (a *Application) Logger() *Logger { return a.log }

// Bus returns the event bus.
func (a *Application) Bus() *event.Bus { return a.bus }

// Store returns the project store.
func (a *Application) Store() *project.Store { return a.store }

// History returns the command history.
func (a *Application) History() *history.History { return a.history }

// Timeline returns the timeline engine.
func (a *Application) Timeline() *timeline.Engine { return a.timeline }

// Compositor returns the frame compositor.
func (a *Application) Compositor() *compositor.Compositor { return a.comp }

// Exporter returns the export engine.
func (a *Application) Exporter() *exporter.Exporter { return a.exporter }

// Playback returns the transport controller.
func (a *Application) Playback() *Playback { return a.playback }

// RenderFrame evaluates the current project at time t into a fresh
// surface and runs the frame-processor pipeline over it.
func (a *Application) RenderFrame(t float64) *image.RGBA {
	p := a.store.State()
	surface := image.NewRGBA(image.Rect(0, 0, a.cfg.Render.SurfaceWidth, a.cfg.Render.SurfaceHeight))
	a.comp.Render(&p, t, surface)
	exporter.ApplyProcessors(a.comp.Providers(), surface)
	return surface
}

// Export runs a full export with the configured format and quality,
// honoring overrides from opts.
func (a *Application) Export(opts exporter.Options) (*exporter.Artifact, error) {
	if opts.Format == "" {
		opts.Format = a.cfg.Export.Format
	}
	if opts.Quality == "" {
		opts.Quality = exporter.Quality(a.cfg.Export.Quality)
	}
	if opts.FlushDelay == 0 {
		opts.FlushDelay = time.Duration(a.cfg.Export.FlushDelayMS) * time.Millisecond
	}
	a.log.Info("export started: format=%s quality=%s", opts.Format, opts.Quality)
	artifact, err := a.exporter.Export(opts)
	if err != nil {
		a.log.Error("export failed: %v", err)
		return nil, err
	}
	a.log.Info("export finished: %s (%d bytes)", artifact.SuggestedFilename, len(artifact.Data))
	return artifact, nil
}
