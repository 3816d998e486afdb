package compositor

import (
	"image"
	"sort"
	"sync"
)

// Provider is an external effect component. Every provider exposes its
// opaque settings; rendering capability is declared by additionally
// implementing GlyphRenderer or FrameProcessor. The compositor dispatches
// on which capability a provider implements instead of probing for
// method presence.
type Provider interface {
	// Settings returns the provider's opaque settings blob. The core
	// stores and forwards it without interpretation.
	Settings() map[string]any
}

// GlyphRenderer draws overlay content (titles, captions) directly onto
// the frame during the fx pass.
type GlyphRenderer interface {
	Provider

	// RenderToCanvas draws onto the surface. progress is the entrance
	// animation position in [0,1].
	RenderToCanvas(surface *image.RGBA, width, height int, progress float64)
}

// FrameProcessor filters a whole frame (chroma key, color grading). It is
// not invoked by the compositor itself; the surrounding application runs
// registered processors in registration order after the compositor pass.
type FrameProcessor interface {
	Provider

	// ProcessFrame reads src and writes the filtered result to dst.
	ProcessFrame(src, dst *image.RGBA)
}

// Registry holds named effect providers.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register binds a provider to a name, replacing any previous binding.
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// Unregister removes a named provider.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.providers, name)
}

// Glyph returns the named provider if it renders overlays.
func (r *Registry) Glyph(name string) (GlyphRenderer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.providers[name].(GlyphRenderer)
	return g, ok
}

// Processors returns every registered frame processor in name order, the
// fixed pipeline order the surrounding application applies them in.
func (r *Registry) Processors() []FrameProcessor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	var out []FrameProcessor
	for _, name := range names {
		if fp, ok := r.providers[name].(FrameProcessor); ok {
			out = append(out, fp)
		}
	}
	return out
}
