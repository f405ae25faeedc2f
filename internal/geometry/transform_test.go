package geometry

import (
	"math"
	"testing"

	"github.com/heimdex/heimdex-editor/internal/overlay"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestToPixels_ToNormalized_RoundTrip(t *testing.T) {
	overlays := []overlay.Overlay{
		{Position: overlay.Position{X: 0, Y: 0}, Size: overlay.Size{Width: 100, Height: 100}},
		{Position: overlay.Position{X: 12.5, Y: 33.3}, Size: overlay.Size{Width: 20, Height: 7.25}},
		{Position: overlay.Position{X: 99.9, Y: 0.1}, Size: overlay.Size{Width: 0.5, Height: 64}},
		{Position: overlay.Position{X: 120, Y: -10}, Size: overlay.Size{Width: 3, Height: 3}},
	}
	surfaces := []Surface{
		{Width: 1, Height: 1},
		{Width: 390, Height: 240},
		{Width: 1920, Height: 1080},
		{Width: 333.3, Height: 77.7},
	}

	for _, o := range overlays {
		for _, s := range surfaces {
			pos, size := ToNormalized(ToPixels(o, s), s)
			if !almostEqual(pos.X, o.Position.X) || !almostEqual(pos.Y, o.Position.Y) {
				t.Errorf("position round trip on %+v: got %+v, want %+v", s, pos, o.Position)
			}
			if !almostEqual(size.Width, o.Size.Width) || !almostEqual(size.Height, o.Size.Height) {
				t.Errorf("size round trip on %+v: got %+v, want %+v", s, size, o.Size)
			}
		}
	}
}

func TestToNormalized_DegenerateSurface(t *testing.T) {
	pos, size := ToNormalized(Rect{X: 10, Y: 10, Width: 10, Height: 10}, Surface{})
	if pos != (overlay.Position{}) || size != (overlay.Size{}) {
		t.Fatalf("degenerate surface = %+v %+v, want zero", pos, size)
	}
}

func TestResolveDrag_Clamps(t *testing.T) {
	s := Surface{Width: 400, Height: 300}
	start := Rect{X: 100, Y: 100, Width: 80, Height: 60}

	tests := []struct {
		name   string
		tx, ty float64
		wantX  float64
		wantY  float64
	}{
		{name: "inside", tx: 20, ty: -30, wantX: 120, wantY: 70},
		{name: "past left and top", tx: -500, ty: -500, wantX: 0, wantY: 0},
		{name: "past right and bottom", tx: 1000, ty: 1000, wantX: 320, wantY: 240},
		{name: "exact edge", tx: 220, ty: 140, wantX: 320, wantY: 240},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ResolveDrag(start, tc.tx, tc.ty, s)
			if got.X != tc.wantX || got.Y != tc.wantY {
				t.Fatalf("ResolveDrag = (%v, %v), want (%v, %v)", got.X, got.Y, tc.wantX, tc.wantY)
			}
			if got.Width != start.Width || got.Height != start.Height {
				t.Fatalf("drag changed size: %+v", got)
			}
		})
	}
}

func TestResolveDrag_InvariantHoldsForSequences(t *testing.T) {
	s := Surface{Width: 390, Height: 240}
	r := Rect{X: 50, Y: 50, Width: 150, Height: 100}
	deltas := [][2]float64{{30, 10}, {-400, 12}, {999, -5}, {-1, -1}, {0.5, 300}, {-77, -77}}

	for _, d := range deltas {
		r = ResolveDrag(r, d[0], d[1], s)
		if r.X < 0 || r.X > s.Width-r.Width {
			t.Fatalf("x = %v outside [0, %v]", r.X, s.Width-r.Width)
		}
		if r.Y < 0 || r.Y > s.Height-r.Height {
			t.Fatalf("y = %v outside [0, %v]", r.Y, s.Height-r.Height)
		}
	}
}

func TestResolveDrag_OversizedPinnedToOrigin(t *testing.T) {
	s := Surface{Width: 100, Height: 100}
	got := ResolveDrag(Rect{X: 0, Y: 0, Width: 200, Height: 50}, 30, 10, s)
	if got.X != 0 {
		t.Fatalf("oversized x = %v, want 0", got.X)
	}
	if got.Y != 10 {
		t.Fatalf("y = %v, want 10", got.Y)
	}
}

func TestResolveResize_FloorAndCeiling(t *testing.T) {
	s := Surface{Width: 400, Height: 300}
	start := Rect{X: 300, Y: 200, Width: 60, Height: 60}

	shrunk := ResolveResize(start, -500, -500, s)
	if shrunk.Width != MinSizePx || shrunk.Height != MinSizePx {
		t.Fatalf("shrunk = %+v, want %v floor", shrunk, MinSizePx)
	}

	grown := ResolveResize(start, 500, 500, s)
	if grown.Width != 100 || grown.Height != 100 {
		t.Fatalf("grown = %+v, want 100x100", grown)
	}
	if grown.X != start.X || grown.Y != start.Y {
		t.Fatalf("resize moved top-left: %+v", grown)
	}
}

func TestResolveResize_InvariantHoldsForSequences(t *testing.T) {
	s := Surface{Width: 390, Height: 240}
	r := Rect{X: 40, Y: 30, Width: 150, Height: 100}
	deltas := [][2]float64{{500, 500}, {-1000, -1000}, {33, 12}, {-20, 400}, {1, -1}}

	for _, d := range deltas {
		r = ResolveResize(r, d[0], d[1], s)
		if r.Width < MinSizePx || r.Height < MinSizePx {
			t.Fatalf("size %+v below floor", r)
		}
		if r.X+r.Width > s.Width || r.Y+r.Height > s.Height {
			t.Fatalf("bottom-right %+v beyond surface %+v", r, s)
		}
	}
}

func TestResolveResize_NoRoomKeepsFloor(t *testing.T) {
	s := Surface{Width: 100, Height: 100}
	got := ResolveResize(Rect{X: 90, Y: 90, Width: 10, Height: 10}, 5, 5, s)
	if got.Width != MinSizePx || got.Height != MinSizePx {
		t.Fatalf("got %+v, want floor %v", got, MinSizePx)
	}
}

func TestDragEnd_ProducesNormalizedPosition(t *testing.T) {
	s := Surface{Width: 200, Height: 100}
	o := overlay.Overlay{
		Position: overlay.Position{X: 10, Y: 10},
		Size:     overlay.Size{Width: 25, Height: 50},
	}

	c := DragEnd(o, 1000, 1000, s)
	if c.Position == nil || c.Size != nil || c.Timing != nil {
		t.Fatalf("DragEnd changes = %+v, want position only", c)
	}
	if !almostEqual(c.Position.X, 75) || !almostEqual(c.Position.Y, 50) {
		t.Fatalf("position = %+v, want {75 50}", *c.Position)
	}
}

func TestResizeEnd_ProducesNormalizedSize(t *testing.T) {
	s := Surface{Width: 200, Height: 100}
	o := overlay.Overlay{
		Position: overlay.Position{X: 50, Y: 0},
		Size:     overlay.Size{Width: 30, Height: 60},
	}

	c := ResizeEnd(o, 1000, -1000, s)
	if c.Size == nil || c.Position != nil {
		t.Fatalf("ResizeEnd changes = %+v, want size only", c)
	}
	if !almostEqual(c.Size.Width, 50) || !almostEqual(c.Size.Height, 50) {
		t.Fatalf("size = %+v, want {50 50}", *c.Size)
	}
}
