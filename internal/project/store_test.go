package project

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/splicekit/splice/internal/event"
	"github.com/splicekit/splice/internal/storage"
)

// memPersister is an in-memory Persister with injectable failures.
type memPersister struct {
	docs    map[string][]byte
	saveErr error
	onSave  func(key string)
}

func newMemPersister() *memPersister {
	return &memPersister{docs: make(map[string][]byte)}
}

func (m *memPersister) Save(key string, doc []byte) error {
	if m.onSave != nil {
		m.onSave(key)
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.docs[key] = append([]byte(nil), doc...)
	return nil
}

func (m *memPersister) Load(key string) ([]byte, int, error) {
	doc, ok := m.docs[key]
	if !ok {
		return nil, 0, storage.ErrNotFound
	}
	return doc, storage.SchemaVersion, nil
}

// gatedPersister blocks every Save on a gate so a test can hold one
// write open while another mutation runs.
type gatedPersister struct {
	mu      sync.Mutex
	docs    []string
	gate    chan struct{}
	entered chan struct{}
}

func (g *gatedPersister) Save(_ string, doc []byte) error {
	g.entered <- struct{}{}
	<-g.gate
	g.mu.Lock()
	g.docs = append(g.docs, string(doc))
	g.mu.Unlock()
	return nil
}

func (g *gatedPersister) Load(string) ([]byte, int, error) {
	return nil, 0, storage.ErrNotFound
}

type recordLogger struct {
	warns []string
}

func (r *recordLogger) Debug(string, ...any)      {}
func (r *recordLogger) Warn(msg string, _ ...any) { r.warns = append(r.warns, msg) }

func TestNewStoreDefaults(t *testing.T) {
	s := NewStore(StoreOptions{})
	p := s.State()
	if len(p.Tracks) != 5 {
		t.Fatalf("fresh store has %d tracks, want default scaffold of 5", len(p.Tracks))
	}
}

func TestNewStoreLoadsPersistedProject(t *testing.T) {
	mp := newMemPersister()
	doc, _ := json.Marshal(Project{Name: "saved", FPS: 24, Tracks: []Track{{Name: "V", Kind: TrackVideo}}})
	mp.docs[storage.KeyProject] = doc

	s := NewStore(StoreOptions{Persister: mp})
	p := s.State()
	if p.Name != "saved" || p.FPS != 24 || len(p.Tracks) != 1 {
		t.Errorf("loaded project = %q fps=%d tracks=%d, want saved/24/1", p.Name, p.FPS, len(p.Tracks))
	}
}

func TestNewStoreCorruptDocumentFallsBack(t *testing.T) {
	mp := newMemPersister()
	mp.docs[storage.KeyProject] = []byte("{not json")
	log := &recordLogger{}

	s := NewStore(StoreOptions{Persister: mp, Logger: log})
	if len(s.State().Tracks) != 5 {
		t.Error("corrupt document should fall back to the default scaffold")
	}
	if len(log.warns) == 0 {
		t.Error("corrupt document should be logged")
	}
}

func TestSetStateMergesPatch(t *testing.T) {
	s := NewStore(StoreOptions{})

	name := "My Cut"
	fps := 60
	ph := 2.5
	s.SetState(Patch{Name: &name, FPS: &fps, Playhead: &ph})

	p := s.State()
	if p.Name != "My Cut" || p.FPS != 60 || p.Playhead != 2.5 {
		t.Errorf("patch not applied: %q fps=%d playhead=%v", p.Name, p.FPS, p.Playhead)
	}

	// Invalid values are rejected field by field.
	badFPS := 0
	negPH := -3.0
	s.SetState(Patch{FPS: &badFPS, Playhead: &negPH})
	p = s.State()
	if p.FPS != 60 {
		t.Errorf("non-positive fps overwrote the previous value: %d", p.FPS)
	}
	if p.Playhead != 0 {
		t.Errorf("negative playhead should clamp to 0, got %v", p.Playhead)
	}
}

func TestSetStateSelection(t *testing.T) {
	s := NewStore(StoreOptions{})

	sel := SelectedClip{TrackIndex: 1, ClipID: "c9"}
	s.SetState(Patch{Selected: &sel})
	if got := s.State().Selected; got == nil || got.ClipID != "c9" {
		t.Fatalf("selection not applied: %+v", got)
	}

	// ClearSelection beats Selected when both are set.
	s.SetState(Patch{Selected: &sel, ClearSelection: true})
	if s.State().Selected != nil {
		t.Error("ClearSelection should win over Selected")
	}
}

func TestStateIsDefensiveCopy(t *testing.T) {
	s := NewStore(StoreOptions{})
	p := s.State()
	p.Tracks[0].Name = "hacked"
	p.Tracks[0].Clips = append(p.Tracks[0].Clips, Clip{ID: "rogue"})

	if got := s.State(); got.Tracks[0].Name == "hacked" || len(got.Tracks[0].Clips) != 0 {
		t.Error("mutating a State() snapshot leaked into the store")
	}
}

func TestUpdateSequence(t *testing.T) {
	var order []string
	mp := newMemPersister()
	mp.onSave = func(key string) {
		if key == storage.KeyProject {
			order = append(order, "persist")
		}
	}
	bus := event.NewBus()
	bus.Subscribe(event.TopicProjectChanged, func(event.Event) {
		order = append(order, "event")
	})

	s := NewStore(StoreOptions{Persister: mp, Bus: bus})
	s.Subscribe(func(Project) { order = append(order, "notify") })

	name := "seq"
	s.SetState(Patch{Name: &name})

	want := []string{"persist", "notify", "event"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("mutation sequence = %v, want %v", order, want)
	}
}

func TestUpdatePersistsInMutationOrder(t *testing.T) {
	gp := &gatedPersister{gate: make(chan struct{}), entered: make(chan struct{}, 2)}
	s := NewStore(StoreOptions{Persister: gp})

	var wg sync.WaitGroup
	wg.Add(2)

	first := "first"
	go func() {
		defer wg.Done()
		s.SetState(Patch{Name: &first})
	}()
	<-gp.entered // first save is open and holding its slot

	second := "second"
	go func() {
		defer wg.Done()
		s.SetState(Patch{Name: &second})
	}()

	// The second mutation has run, but its save must queue behind the
	// one still in flight.
	select {
	case <-gp.entered:
		t.Fatal("second save started while the first was still in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(gp.gate)
	<-gp.entered
	wg.Wait()

	if len(gp.docs) != 2 ||
		!strings.Contains(gp.docs[0], `"first"`) ||
		!strings.Contains(gp.docs[1], `"second"`) {
		t.Fatalf("persisted order wrong: %d docs, want first then second", len(gp.docs))
	}
}

func TestPersistFailureKeepsStateAuthoritative(t *testing.T) {
	mp := newMemPersister()
	mp.saveErr = errors.New("disk full")
	log := &recordLogger{}
	s := NewStore(StoreOptions{Persister: mp, Logger: log})

	name := "unsaved"
	s.SetState(Patch{Name: &name})

	if s.State().Name != "unsaved" {
		t.Error("failed persistence must not roll back in-memory state")
	}
	if len(log.warns) == 0 {
		t.Error("failed persistence should be logged")
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := NewStore(StoreOptions{})
	calls := 0
	cancel := s.Subscribe(func(Project) { calls++ })

	name := "one"
	s.SetState(Patch{Name: &name})
	cancel()
	s.SetState(Patch{Name: &name})

	if calls != 1 {
		t.Errorf("subscriber called %d times, want 1", calls)
	}
}

func TestAssets(t *testing.T) {
	s := NewStore(StoreOptions{})
	s.AddAsset(Asset{ID: "a1", Kind: ClipVideo, Name: "Sunset Beach", Prompt: "golden hour"})
	s.AddAsset(Asset{ID: "a2", Kind: ClipAudio, Name: "Rain Loop"})
	s.AddAsset(Asset{ID: "a3", Kind: ClipVideo, Name: "City Drone"})

	tests := []struct {
		name   string
		filter AssetFilter
		want   []string
	}{
		{"all", AssetFilter{}, []string{"a1", "a2", "a3"}},
		{"by kind", AssetFilter{Kind: ClipVideo}, []string{"a1", "a3"}},
		{"search name case-insensitive", AssetFilter{Search: "beach"}, []string{"a1"}},
		{"search prompt", AssetFilter{Search: "GOLDEN"}, []string{"a1"}},
		{"kind and search", AssetFilter{Kind: ClipVideo, Search: "drone"}, []string{"a3"}},
		{"no match", AssetFilter{Search: "volcano"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, a := range s.Assets(tt.filter) {
				got = append(got, a.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Assets(%+v) = %v, want %v", tt.filter, got, tt.want)
			}
		})
	}
}

func TestRemoveAsset(t *testing.T) {
	bus := event.NewBus()
	events := 0
	bus.Subscribe(event.TopicAssetsChanged, func(event.Event) { events++ })

	s := NewStore(StoreOptions{Bus: bus})
	s.AddAsset(Asset{ID: "a1", Name: "keep"})
	s.AddAsset(Asset{ID: "a2", Name: "drop"})

	s.RemoveAsset("a2")
	if got := s.Assets(AssetFilter{}); len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("after remove, assets = %v", got)
	}

	before := events
	s.RemoveAsset("missing") // silent no-op
	if events != before {
		t.Error("removing an unknown asset should not publish assets.changed")
	}
}
