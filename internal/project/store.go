package project

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/storage"
)

// Persister is the durable document backend the store writes through.
// *storage.Store satisfies it.
type Persister interface {
	Save(key string, doc []byte) error
	Load(key string) ([]byte, int, error)
}

// Logger is the subset of the application logger the store needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Warn(string, ...any)  {}

// Patch is a partial project update. Nil fields are left untouched;
// non-nil fields replace the current value. ClearSelection beats
// Selected when both are set.
type Patch struct {
	Name           *string
	FPS            *int
	Playhead       *float64
	IsPlaying      *bool
	Tracks         []Track
	Selected       *SelectedClip
	ClearSelection bool
}

// Store owns the mutable project aggregate and the asset bin.
//
// Persistence is fire-and-forget: a failed save is logged and the
// in-memory state stays authoritative for the rest of the session.
type Store struct {
	mu      sync.RWMutex
	project Project
	assets  []Asset

	// persistMu serializes saves in mutation order. It is acquired
	// before mu is released, so a later mutation can never land on disk
	// before an earlier one.
	persistMu sync.Mutex

	persist Persister
	bus     *event.Bus
	log     Logger

	nextSubID uint64
	subs      map[uint64]func(Project)
}

// StoreOptions configures a Store.
type StoreOptions struct {
	// Persister backs durable saves. Nil disables persistence.
	Persister Persister
	// Bus receives project.changed / assets.changed events. Nil disables.
	Bus *event.Bus
	// Logger receives persistence warnings. Nil discards.
	Logger Logger
}

// NewStore creates a store seeded from durable storage, falling back to
// the default five-track scaffold when nothing is persisted or the
// persisted document is unreadable.
func NewStore(opts StoreOptions) *Store {
	s := &Store{
		persist: opts.Persister,
		bus:     opts.Bus,
		log:     opts.Logger,
		subs:    make(map[uint64]func(Project)),
	}
	if s.log == nil {
		s.log = nopLogger{}
	}
	s.project = s.loadProject()
	s.assets = s.loadAssets()
	return s
}

func (s *Store) loadProject() Project {
	if s.persist == nil {
		return DefaultProject()
	}
	doc, _, err := s.persist.Load(storage.KeyProject)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("loading project: %v", err)
		}
		return DefaultProject()
	}
	var p Project
	if err := json.Unmarshal(doc, &p); err != nil {
		s.log.Warn("decoding persisted project: %v", err)
		return DefaultProject()
	}
	if p.FPS <= 0 {
		p.FPS = 30
	}
	return p
}

func (s *Store) loadAssets() []Asset {
	if s.persist == nil {
		return nil
	}
	doc, _, err := s.persist.Load(storage.KeyAssets)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn("loading assets: %v", err)
		}
		return nil
	}
	var wrapper struct {
		Assets []Asset `json:"assets"`
	}
	if err := json.Unmarshal(doc, &wrapper); err != nil {
		s.log.Warn("decoding persisted assets: %v", err)
		return nil
	}
	return wrapper.Assets
}

// State returns a deep defensive copy of the current project.
func (s *Store) State() Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project.Clone()
}

// SetState merges a partial update, then persists, notifies subscribers
// and emits project.changed, in that fixed order.
func (s *Store) SetState(p Patch) {
	s.Update(func(proj *Project) {
		if p.Name != nil {
			proj.Name = *p.Name
		}
		if p.FPS != nil && *p.FPS > 0 {
			proj.FPS = *p.FPS
		}
		if p.Playhead != nil {
			ph := *p.Playhead
			if ph < 0 {
				ph = 0
			}
			proj.Playhead = ph
		}
		if p.IsPlaying != nil {
			proj.IsPlaying = *p.IsPlaying
		}
		if p.Tracks != nil {
			proj.Tracks = p.Tracks
		}
		switch {
		case p.ClearSelection:
			proj.Selected = nil
		case p.Selected != nil:
			sel := *p.Selected
			proj.Selected = &sel
		}
	})
}

// Update applies fn to the live project under the write lock, then runs
// the persist / notify / emit sequence. Commands mutate through here.
func (s *Store) Update(fn func(*Project)) {
	s.mu.Lock()
	fn(&s.project)
	snapshot := s.project.Clone()
	subs := make([]func(Project), 0, len(s.subs))
	for _, cb := range s.subs {
		subs = append(subs, cb)
	}
	s.persistMu.Lock()
	s.mu.Unlock()

	s.persistProject(snapshot)
	s.persistMu.Unlock()
	for _, cb := range subs {
		cb(snapshot.Clone())
	}
	if s.bus != nil {
		s.bus.Publish(event.TopicProjectChanged, snapshot)
	}
}

func (s *Store) persistProject(p Project) {
	if s.persist == nil {
		return
	}
	doc, err := json.Marshal(p)
	if err != nil {
		s.log.Warn("encoding project: %v", err)
		return
	}
	if err := s.persist.Save(storage.KeyProject, doc); err != nil {
		s.log.Warn("persisting project: %v", err)
	}
}

// Subscribe registers a callback invoked with a snapshot after every
// mutation. The returned function removes the subscription.
func (s *Store) Subscribe(cb func(Project)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = cb
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// AssetFilter narrows Assets results. Zero value matches everything.
type AssetFilter struct {
	// Kind restricts to one asset kind when non-empty.
	Kind AssetKind
	// Search is a case-insensitive substring match over name and prompt.
	Search string
}

// AddAsset appends an asset to the bin and persists it.
func (s *Store) AddAsset(a Asset) {
	s.mu.Lock()
	s.assets = append(s.assets, a)
	snapshot := s.assetsLocked()
	s.persistMu.Lock()
	s.mu.Unlock()
	s.persistAssets(snapshot)
	s.persistMu.Unlock()
	if s.bus != nil {
		s.bus.Publish(event.TopicAssetsChanged, snapshot)
	}
}

// RemoveAsset deletes the asset with the given id. Unknown ids are a
// silent no-op. Clips already referencing the asset's URL keep playing;
// the bin and the timeline share media by value, not by reference.
func (s *Store) RemoveAsset(id string) {
	s.mu.Lock()
	removed := false
	for i, a := range s.assets {
		if a.ID == id {
			s.assets = append(s.assets[:i:i], s.assets[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		s.mu.Unlock()
		return
	}
	snapshot := s.assetsLocked()
	s.persistMu.Lock()
	s.mu.Unlock()
	s.persistAssets(snapshot)
	s.persistMu.Unlock()
	if s.bus != nil {
		s.bus.Publish(event.TopicAssetsChanged, snapshot)
	}
}

// Assets returns bin entries matching the filter, newest intact order.
func (s *Store) Assets(f AssetFilter) []Asset {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(f.Search)
	var out []Asset
	for _, a := range s.assets {
		if f.Kind != "" && a.Kind != f.Kind {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Name), needle) &&
			!strings.Contains(strings.ToLower(a.Prompt), needle) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (s *Store) assetsLocked() []Asset {
	out := make([]Asset, len(s.assets))
	copy(out, s.assets)
	return out
}

func (s *Store) persistAssets(assets []Asset) {
	if s.persist == nil {
		return
	}
	doc, err := json.Marshal(struct {
		Assets []Asset `json:"assets"`
	}{Assets: assets})
	if err != nil {
		s.log.Warn("encoding assets: %v", err)
		return
	}
	if err := s.persist.Save(storage.KeyAssets, doc); err != nil {
		s.log.Warn("persisting assets: %v", err)
	}
}
