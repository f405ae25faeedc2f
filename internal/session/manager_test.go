package session

import (
	"errors"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/export"
)

func newTestManager() *Manager {
	return NewManager(Config{FrameInterval: time.Hour})
}

func TestManager_CreateRequiresBaseVideo(t *testing.T) {
	m := newTestManager()
	if _, err := m.Create(Params{}); !errors.Is(err, ErrNoBaseVideo) {
		t.Errorf("Create without video = %v, want ErrNoBaseVideo", err)
	}
	if m.Count() != 0 {
		t.Errorf("Count = %d", m.Count())
	}
}

func TestManager_Lifecycle(t *testing.T) {
	m := newTestManager()

	a, err := m.Create(Params{BaseVideo: "a.mp4"})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := m.Create(Params{BaseVideo: "b.mp4", Duration: 12})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if a.ID() == b.ID() {
		t.Fatal("session ids collide")
	}
	if m.Count() != 2 {
		t.Errorf("Count = %d, want 2", m.Count())
	}

	got, err := m.Get(b.ID())
	if err != nil || got != b {
		t.Fatalf("Get(b) = %v, %v", got, err)
	}
	if got.Playback().Duration != 12 {
		t.Errorf("initial duration = %v", got.Playback().Duration)
	}

	list := m.List()
	if len(list) != 2 || list[0] != a || list[1] != b {
		t.Errorf("List not ordered by creation")
	}

	if err := m.Close(a.ID()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Close(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Close twice = %v", err)
	}
	if _, err := m.Get(a.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Get closed = %v", err)
	}
	if a.poller.Running() {
		t.Error("poller still running after close")
	}

	m.CloseAll()
	if m.Count() != 0 {
		t.Errorf("Count after CloseAll = %d", m.Count())
	}
	if b.poller.Running() {
		t.Error("poller still running after CloseAll")
	}
}

func TestManager_ActiveExportsWithStubRenderer(t *testing.T) {
	m := newTestManager()
	s, _ := m.Create(Params{BaseVideo: "a.mp4"})
	defer m.CloseAll()

	if _, err := s.Export(); err != nil {
		t.Fatalf("Export: %v", err)
	}
	j := s.WaitExport()
	if !j.Phase.Terminal() || j.Error == "" {
		t.Errorf("stub renderer job = %+v, want failed", j)
	}
	if n := m.ActiveExports(); n != 0 {
		t.Errorf("ActiveExports = %d", n)
	}
}

func TestManager_CancelExports(t *testing.T) {
	r := &fakeRenderer{block: make(chan struct{})}
	m := NewManager(Config{Renderer: r, FrameInterval: time.Hour, PollInterval: time.Millisecond, MaxPolls: 5})
	defer m.CloseAll()

	s, _ := m.Create(Params{BaseVideo: "a.mp4"})
	if _, err := m.Create(Params{BaseVideo: "b.mp4"}); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Export(); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if n := m.ActiveExports(); n != 1 {
		t.Fatalf("ActiveExports = %d, want 1", n)
	}

	if n := m.CancelExports(); n != 1 {
		t.Errorf("CancelExports = %d, want 1", n)
	}
	j := s.WaitExport()
	if j.FailureKind != export.FailureCancelled {
		t.Errorf("failure kind = %q, want cancelled", j.FailureKind)
	}
}
