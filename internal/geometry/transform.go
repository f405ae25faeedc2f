// Package geometry converts overlay geometry between normalized percent
// coordinates and the pixel space of the live preview surface, and resolves
// drag and resize gestures against the surface bounds.
package geometry

import (
	"math"

	"github.com/heimdex/heimdex-editor/internal/overlay"
)

// MinSizePx is the smallest width or height a resize can produce.
const MinSizePx = 50.0

// Surface is the pixel size of the preview the overlays are drawn on.
type Surface struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (s Surface) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Rect is an overlay's pixel geometry with its origin at the top-left.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) Contains(px, py float64) bool {
	return px >= r.X && px <= r.X+r.Width && py >= r.Y && py <= r.Y+r.Height
}

func ToPixels(o overlay.Overlay, s Surface) Rect {
	return Rect{
		X:      o.Position.X / 100 * s.Width,
		Y:      o.Position.Y / 100 * s.Height,
		Width:  o.Size.Width / 100 * s.Width,
		Height: o.Size.Height / 100 * s.Height,
	}
}

// ToNormalized is the inverse of ToPixels. A degenerate surface yields the
// zero geometry.
func ToNormalized(r Rect, s Surface) (overlay.Position, overlay.Size) {
	if !s.Valid() {
		return overlay.Position{}, overlay.Size{}
	}
	return overlay.Position{
			X: r.X / s.Width * 100,
			Y: r.Y / s.Height * 100,
		}, overlay.Size{
			Width:  r.Width / s.Width * 100,
			Height: r.Height / s.Height * 100,
		}
}

// ResolveDrag moves start by (tx, ty) and clamps the top-left so the rect
// stays on the surface. A rect larger than the surface is pinned to 0.
func ResolveDrag(start Rect, tx, ty float64, s Surface) Rect {
	maxX := math.Max(0, s.Width-start.Width)
	maxY := math.Max(0, s.Height-start.Height)

	out := start
	out.X = clamp(start.X+tx, 0, maxX)
	out.Y = clamp(start.Y+ty, 0, maxY)
	return out
}

// ResolveResize grows start by (tw, th). The top-left never moves; the
// size is floored at MinSizePx and capped by the space left to the surface
// edge.
func ResolveResize(start Rect, tw, th float64, s Surface) Rect {
	maxW := math.Max(MinSizePx, s.Width-start.X)
	maxH := math.Max(MinSizePx, s.Height-start.Y)

	out := start
	out.Width = clamp(start.Width+tw, MinSizePx, maxW)
	out.Height = clamp(start.Height+th, MinSizePx, maxH)
	return out
}

// DragEnd resolves a finished drag of o into a store edit.
func DragEnd(o overlay.Overlay, tx, ty float64, s Surface) overlay.Changes {
	r := ResolveDrag(ToPixels(o, s), tx, ty, s)
	pos, _ := ToNormalized(r, s)
	return overlay.Changes{Position: &pos}
}

// ResizeEnd resolves a finished resize of o into a store edit.
func ResizeEnd(o overlay.Overlay, tw, th float64, s Surface) overlay.Changes {
	r := ResolveResize(ToPixels(o, s), tw, th, s)
	_, size := ToNormalized(r, s)
	return overlay.Changes{Size: &size}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
