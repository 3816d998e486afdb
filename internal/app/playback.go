package app

import (
	"sync"
	"time"

	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/project"
)

// Playback advances the playhead on a repeating timer approximating the
// project frame rate. The playhead loops back to zero at the project's
// end; stopping is just toggling IsPlaying off.
type Playback struct {
	store *project.Store
	bus   *event.Bus

	mu   sync.Mutex
	stop chan struct{}
}

// NewPlayback creates a transport controller for a store.
func NewPlayback(store *project.Store, bus *event.Bus) *Playback {
	return &Playback{store: store, bus: bus}
}

// Playing reports whether the transport loop is running.
func (pb *Playback) Playing() bool {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	return pb.stop != nil
}

// Play starts advancing the playhead. A second call is a no-op.
func (pb *Playback) Play() {
	pb.mu.Lock()
	if pb.stop != nil {
		pb.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	pb.stop = stop
	pb.mu.Unlock()

	playing := true
	pb.store.SetState(project.Patch{IsPlaying: &playing})
	go pb.run(stop)
}

// Pause stops advancing the playhead, leaving it in place.
func (pb *Playback) Pause() {
	pb.mu.Lock()
	stop := pb.stop
	pb.stop = nil
	pb.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)

	playing := false
	pb.store.SetState(project.Patch{IsPlaying: &playing})
}

// Toggle flips between playing and paused.
func (pb *Playback) Toggle() {
	if pb.Playing() {
		pb.Pause()
	} else {
		pb.Play()
	}
}

func (pb *Playback) run(stop chan struct{}) {
	p := pb.store.State()
	fps := p.FPS
	if fps <= 0 {
		fps = 30
	}
	step := 1.0 / float64(fps)
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p := pb.store.State()
			next := p.Playhead + step
			if dur := p.Duration(); next >= dur {
				next = 0
			}
			pb.store.SetState(project.Patch{Playhead: &next})
			if pb.bus != nil {
				pb.bus.Publish(event.TopicPlaybackTick, next)
			}
		}
	}
}
