package geometry

import "github.com/heimdex/heimdex-editor/internal/overlay"

// Default placement for newly created overlays, in pixels of the surface.
const (
	DefaultOffsetPx      = 50.0
	DefaultTextWidthPx   = 200.0
	DefaultTextHeightPx  = 80.0
	DefaultMediaWidthPx  = 150.0
	DefaultMediaHeightPx = 100.0
	DefaultTimingEnd     = 5.0
)

// Visible reports whether o is on screen at t. Both ends are inclusive.
func Visible(o overlay.Overlay, t float64) bool {
	return t >= o.Timing.Start && t <= o.Timing.End
}

// VisibleOverlays filters list down to the overlays rendered at t,
// preserving z-order.
func VisibleOverlays(list []overlay.Overlay, t float64) []overlay.Overlay {
	out := make([]overlay.Overlay, 0, len(list))
	for _, o := range list {
		if Visible(o, t) {
			out = append(out, o)
		}
	}
	return out
}

// HitTest returns the topmost overlay rendered at t whose pixel rect
// contains (px, py). Overlays outside their time window have no hit area.
func HitTest(list []overlay.Overlay, s Surface, t, px, py float64) (string, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		o := list[i]
		if !Visible(o, t) {
			continue
		}
		if ToPixels(o, s).Contains(px, py) {
			return o.ID, true
		}
	}
	return "", false
}

// DefaultGeometry returns the position, size and timing a new overlay of
// kind gets on surface s.
func DefaultGeometry(kind overlay.Kind, s Surface) (overlay.Position, overlay.Size, overlay.Timing) {
	w, h := DefaultMediaWidthPx, DefaultMediaHeightPx
	if kind == overlay.KindText {
		w, h = DefaultTextWidthPx, DefaultTextHeightPx
	}
	pos, size := ToNormalized(Rect{X: DefaultOffsetPx, Y: DefaultOffsetPx, Width: w, Height: h}, s)
	return pos, size, overlay.Timing{Start: 0, End: DefaultTimingEnd}
}
