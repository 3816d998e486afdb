// Package exporter captures compositor output across the project's full
// duration into one encoded media artifact.
//
// The frame loop drives its own counter at the project frame rate; the
// reported percentage is frames-captured over frames-total, which
// approximates but is not true encoder progress. Edits made while an
// export runs are picked up by later frames (last-writer-wins); callers
// wanting a frozen result should not edit during export. There is no
// cancellation or partial resume: any failure rejects the whole export
// and the caller restarts from the beginning.
package exporter

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strings"
	"time"

	"github.com/splicekit/splice/internal/compositor"
	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/project"
)

// Export phases reported through the progress callback.
const (
	PhaseRendering  = "rendering"
	PhaseFinalizing = "finalizing"
	PhaseDone       = "done"
)

// ErrEmptyProject rejects exports of projects with no clips, before any
// capture starts.
var ErrEmptyProject = errors.New("exporter: project has no content to export")

// Quality selects the encoding tier.
type Quality string

const (
	QualityHigh     Quality = "high"
	QualityStandard Quality = "standard"
)

// Progress is one progress report. Percent is the captured-frame ratio,
// an approximation of encoder progress, not an exact measure.
type Progress struct {
	Percent     float64
	Phase       string
	Frame       int
	TotalFrames int
}

// ProgressFunc receives progress reports during an export.
type ProgressFunc func(Progress)

// Artifact is the finished export: one encoded blob, its media type and
// a timestamped filename suggestion. Delivery is the caller's problem.
type Artifact struct {
	Data              []byte
	MediaType         string
	SuggestedFilename string
}

// Encoder collects rendered frames and assembles the final blob.
type Encoder interface {
	Begin(width, height, fps int, q Quality) error
	WriteFrame(frame *image.RGBA) error
	// Finish assembles the collected data. ext is the filename
	// extension without the dot.
	Finish() (data []byte, mediaType, ext string, err error)
}

// EncoderFactory builds a fresh encoder per export.
type EncoderFactory func() Encoder

// DefaultFormat is the guaranteed-supported fallback container.
const DefaultFormat = "gif"

// Options configures one export run.
type Options struct {
	// Format names the requested container. Unknown formats fall back
	// to DefaultFormat.
	Format string

	// Quality selects the encoding tier; empty means QualityHigh.
	Quality Quality

	// FlushDelay pauses between the last frame and blob assembly.
	FlushDelay time.Duration

	// OnProgress, when set, receives per-frame progress reports.
	OnProgress ProgressFunc

	// RealTime paces the frame loop at the project frame rate instead
	// of rendering as fast as possible.
	RealTime bool
}

// Exporter drives frame capture for one store/compositor pair.
type Exporter struct {
	store   *project.Store
	comp    *compositor.Compositor
	bus     *event.Bus
	width   int
	height  int
	formats map[string]EncoderFactory
}

// New creates an exporter rendering at the given surface size, with the
// built-in AVI (MJPEG) and GIF encoders registered.
func New(store *project.Store, comp *compositor.Compositor, bus *event.Bus, width, height int) *Exporter {
	x := &Exporter{
		store:   store,
		comp:    comp,
		bus:     bus,
		width:   width,
		height:  height,
		formats: make(map[string]EncoderFactory),
	}
	x.RegisterFormat("avi", func() Encoder { return NewAVIEncoder() })
	x.RegisterFormat("gif", func() Encoder { return NewGIFEncoder() })
	return x
}

// RegisterFormat adds or replaces a container format.
func (x *Exporter) RegisterFormat(name string, f EncoderFactory) {
	x.formats[name] = f
}

// negotiate picks the encoder for a requested format, falling back to
// the guaranteed default.
func (x *Exporter) negotiate(format string) (Encoder, string) {
	if f, ok := x.formats[format]; ok {
		return f(), format
	}
	return x.formats[DefaultFormat](), DefaultFormat
}

// Export captures ceil(duration x fps) frames and assembles the artifact.
func (x *Exporter) Export(opts Options) (*Artifact, error) {
	p := x.store.State()
	duration := p.Duration()
	if duration <= 0 {
		return nil, ErrEmptyProject
	}
	fps := p.FPS
	if fps <= 0 {
		fps = 30
	}
	total := int(math.Ceil(duration * float64(fps)))

	quality := opts.Quality
	if quality == "" {
		quality = QualityHigh
	}

	enc, format := x.negotiate(opts.Format)
	if err := enc.Begin(x.width, x.height, fps, quality); err != nil {
		return nil, fmt.Errorf("starting %s encoder: %w", format, err)
	}

	surface := image.NewRGBA(image.Rect(0, 0, x.width, x.height))
	var ticker *time.Ticker
	if opts.RealTime {
		ticker = time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()
	}

	for frame := 0; frame < total; frame++ {
		// Last-writer-wins: each frame renders the state current at
		// its tick, so concurrent edits show up in later frames.
		snapshot := x.store.State()
		t := float64(frame) / float64(fps)
		x.comp.Render(&snapshot, t, surface)
		ApplyProcessors(x.comp.Providers(), surface)

		if err := enc.WriteFrame(surface); err != nil {
			return nil, fmt.Errorf("capturing frame %d/%d: %w", frame+1, total, err)
		}
		x.report(opts.OnProgress, Progress{
			Percent:     float64(frame+1) / float64(total),
			Phase:       PhaseRendering,
			Frame:       frame + 1,
			TotalFrames: total,
		})
		if ticker != nil {
			<-ticker.C
		}
	}

	x.report(opts.OnProgress, Progress{Percent: 1, Phase: PhaseFinalizing, Frame: total, TotalFrames: total})
	if opts.FlushDelay > 0 {
		time.Sleep(opts.FlushDelay)
	}

	data, mediaType, ext, err := enc.Finish()
	if err != nil {
		return nil, fmt.Errorf("assembling %s artifact: %w", format, err)
	}

	x.report(opts.OnProgress, Progress{Percent: 1, Phase: PhaseDone, Frame: total, TotalFrames: total})
	return &Artifact{
		Data:              data,
		MediaType:         mediaType,
		SuggestedFilename: suggestedFilename(p.Name, ext),
	}, nil
}

func (x *Exporter) report(fn ProgressFunc, pr Progress) {
	if fn != nil {
		fn(pr)
	}
	if x.bus != nil {
		x.bus.Publish(event.TopicExportProgress, pr)
	}
}

// ApplyProcessors runs every registered frame processor over the surface
// in registry order, the fixed pipeline slot after compositing.
func ApplyProcessors(reg *compositor.Registry, surface *image.RGBA) {
	procs := reg.Processors()
	if len(procs) == 0 {
		return
	}
	scratch := image.NewRGBA(surface.Bounds())
	for _, fp := range procs {
		fp.ProcessFrame(surface, scratch)
		copy(surface.Pix, scratch.Pix)
	}
}

func suggestedFilename(projectName, ext string) string {
	name := strings.TrimSpace(projectName)
	if name == "" {
		name = "export"
	}
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, name)
	return fmt.Sprintf("%s-%s.%s", name, time.Now().Format("20060102-150405"), ext)
}
