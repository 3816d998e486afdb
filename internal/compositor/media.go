package compositor

import (
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/splicekit/splice/internal/event"
)

// mediaState tracks one URL through its decode lifecycle.
type mediaState int

const (
	mediaPending mediaState = iota
	mediaReady
	mediaFailed
)

type mediaEntry struct {
	state mediaState
	img   image.Image
}

// Loader resolves a media URL to a decoded image. The default loader
// treats the URL as a local file path.
type Loader func(url string) (image.Image, error)

// FileLoader decodes a raster image from a local path.
func FileLoader(url string) (image.Image, error) {
	f, err := os.Open(url)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", url, err)
	}
	return img, nil
}

// MediaCache resolves clip media references asynchronously. A lookup for
// an unseen URL kicks off a background decode and reports not-ready; the
// current frame never blocks on it. When a decode finishes, on success
// or failure, the cache publishes compositor.invalidate so the surface is
// redrawn with the outcome. Decode failures are isolated per URL; the
// clip keeps its placeholder and the rest of the frame is unaffected.
type MediaCache struct {
	mu      sync.Mutex
	entries map[string]*mediaEntry

	load Loader
	bus  *event.Bus
}

// NewMediaCache creates a cache around a loader. A nil loader uses
// FileLoader. The bus may be nil when no re-render scheduling is wanted.
func NewMediaCache(load Loader, bus *event.Bus) *MediaCache {
	if load == nil {
		load = FileLoader
	}
	return &MediaCache{
		entries: make(map[string]*mediaEntry),
		load:    load,
		bus:     bus,
	}
}

// Resolve returns the decoded image for a URL when ready. The boolean is
// false while the decode is pending or after it failed.
func (m *MediaCache) Resolve(url string) (image.Image, bool) {
	if url == "" {
		return nil, false
	}
	m.mu.Lock()
	entry, seen := m.entries[url]
	if !seen {
		entry = &mediaEntry{state: mediaPending}
		m.entries[url] = entry
		go m.decode(url)
	}
	state, img := entry.state, entry.img
	m.mu.Unlock()

	if state == mediaReady {
		return img, true
	}
	return nil, false
}

// Failed reports whether a URL's decode has failed permanently.
func (m *MediaCache) Failed(url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[url]
	return ok && entry.state == mediaFailed
}

func (m *MediaCache) decode(url string) {
	img, err := m.load(url)

	m.mu.Lock()
	entry := m.entries[url]
	if err != nil {
		entry.state = mediaFailed
	} else {
		entry.state = mediaReady
		entry.img = img
	}
	m.mu.Unlock()

	// Invalidate on either outcome, so a pending placeholder flips to
	// the real pixels or to the unavailable caption without waiting for
	// an unrelated redraw.
	if m.bus != nil {
		m.bus.Publish(event.TopicCompositorInvalidate, url)
	}
}

// PlaceholderColor derives a stable color from a clip id, so the same
// clip always shows the same swatch while its media decodes.
func PlaceholderColor(clipID string) colorful.Color {
	h := fnv.New32a()
	h.Write([]byte(clipID))
	hue := float64(h.Sum32()%360)
	return colorful.Hsv(hue, 0.55, 0.40)
}
