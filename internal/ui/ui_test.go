package ui

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/splicekit/splice/internal/app"
)

func newSimView(t *testing.T) *View {
	t.Helper()
	a, err := app.New(app.Options{
		StoragePath: filepath.Join(t.TempDir(), "splice.db"),
		LogOutput:   &bytes.Buffer{},
		MediaLoader: func(string) (image.Image, error) { return nil, image.ErrFormat },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Shutdown)

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("screen init: %v", err)
	}
	t.Cleanup(screen.Fini)
	return &View{app: a, screen: screen}
}

func TestTrackRowMapping(t *testing.T) {
	tests := []struct {
		row        int
		trackCount int
		want       int
	}{
		{2, 5, 0},
		{4, 5, 1},
		{10, 5, 4},
		{3, 5, -1},  // between lanes
		{1, 5, -1},  // ruler row
		{0, 5, -1},  // header
		{12, 5, -1}, // past the last track
	}
	for _, tt := range tests {
		if got := rowTrack(tt.row, tt.trackCount); got != tt.want {
			t.Errorf("rowTrack(%d, %d) = %d, want %d", tt.row, tt.trackCount, got, tt.want)
		}
	}
}

func TestTrackRowRoundTrip(t *testing.T) {
	for ti := 0; ti < 8; ti++ {
		if got := rowTrack(trackRow(ti), 8); got != ti {
			t.Errorf("rowTrack(trackRow(%d)) = %d", ti, got)
		}
	}
}

func TestClipStyleStable(t *testing.T) {
	if clipStyle("clip-1") != clipStyle("clip-1") {
		t.Error("same id produced different styles")
	}
}

func TestPlayState(t *testing.T) {
	if playState(true) == playState(false) {
		t.Error("play and pause glyphs should differ")
	}
}

// The export goroutine must never touch statusMsg directly; it posts an
// interrupt and the event loop applies it between draws.
func TestExportStatusDeliveredOnEventLoop(t *testing.T) {
	v := newSimView(t)

	// An empty project makes the export worker report failure almost
	// immediately.
	v.startExport()

	wake := time.AfterFunc(2*time.Second, func() {
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer wake.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(v.statusMsg, "export failed") {
		if time.Now().After(deadline) {
			t.Fatalf("status never delivered, last %q", v.statusMsg)
		}
		if ev, ok := v.screen.PollEvent().(*tcell.EventInterrupt); ok {
			v.applyInterrupt(ev)
		}
		v.draw()
	}
}

func TestApplyInterruptIgnoresBareWakes(t *testing.T) {
	v := newSimView(t)
	v.statusMsg = "keep"

	v.applyInterrupt(tcell.NewEventInterrupt(nil))
	if v.statusMsg != "keep" {
		t.Errorf("bare wake clobbered status to %q", v.statusMsg)
	}

	v.applyInterrupt(tcell.NewEventInterrupt(statusUpdate{msg: "replaced"}))
	if v.statusMsg != "replaced" {
		t.Errorf("status update not applied, got %q", v.statusMsg)
	}
}
