package timeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/overlay"
)

type fakeProvider struct {
	mu     sync.Mutex
	failAt map[int64]bool
	calls  []int64
}

func (p *fakeProvider) Thumbnail(_ context.Context, source string, ms int64) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, ms)
	if p.failAt[ms] {
		return "", errors.New("decode failed")
	}
	return fmt.Sprintf("file:///thumbs/%s@%d.jpg", source, ms), nil
}

func TestBaseStrip_SwallowsFailures(t *testing.T) {
	p := &fakeProvider{failAt: map[int64]bool{0: true}}
	layout := NewLayout(300, 30)

	s := BaseStrip(context.Background(), p, "base", layout)

	if s.Requested != 19 {
		t.Fatalf("Requested = %d, want ceil(900/48) = 19", s.Requested)
	}
	if s.Placeholder != layout.TrackLength {
		t.Fatalf("Placeholder = %v, want %v", s.Placeholder, layout.TrackLength)
	}
	if len(s.Frames) != 18 {
		t.Fatalf("frames = %d, want 18 after one failure", len(s.Frames))
	}
	for i := 1; i < len(s.Frames); i++ {
		if s.Frames[i].TimestampMs <= s.Frames[i-1].TimestampMs {
			t.Fatalf("frames out of order at %d: %+v", i, s.Frames)
		}
	}
}

func TestClipStrip(t *testing.T) {
	p := &fakeProvider{}
	o := overlay.Overlay{ID: "v1", Kind: overlay.KindVideo, Content: "clip", Timing: overlay.Timing{Start: 0, End: 4}}

	s := ClipStrip(context.Background(), p, o, 30)

	if s.Placeholder != 120 || s.Requested != 2 || s.OverlayID != "v1" {
		t.Fatalf("strip = %+v", s)
	}
	if len(s.Frames) != 2 || s.Frames[1].TimestampMs != 2000 || s.Frames[1].X != 60 {
		t.Fatalf("frames = %+v", s.Frames)
	}

	short := ClipStrip(context.Background(), p, overlay.Overlay{Content: "clip", Timing: overlay.Timing{End: 1}}, 10)
	if short.Requested != 1 {
		t.Fatalf("short clip Requested = %d, want 1", short.Requested)
	}
}

func TestStrip_NoProvider(t *testing.T) {
	s := BaseStrip(context.Background(), nil, "base", NewLayout(300, 30))
	if len(s.Frames) != 0 || s.Placeholder != 900 {
		t.Fatalf("strip = %+v", s)
	}
}
