package timeline

import (
	"fmt"

	"github.com/heimdex/heimdex-editor/internal/overlay"
)

// Bar is the on-track representation of one overlay's timing window.
type Bar struct {
	OverlayID string       `json:"overlay_id"`
	Kind      overlay.Kind `json:"type"`
	X         float64      `json:"x"`
	Width     float64      `json:"width"`
	// Row 0 sits next to the base track and holds the newest overlay.
	Row int `json:"row"`
}

// Bars lays out one bar per overlay.
func Bars(overlays []overlay.Overlay, scale float64) []Bar {
	n := len(overlays)
	bars := make([]Bar, 0, n)
	for i, o := range overlays {
		bars = append(bars, Bar{
			OverlayID: o.ID,
			Kind:      o.Kind,
			X:         o.Timing.Start * scale,
			Width:     o.Timing.Duration() * scale,
			Row:       n - 1 - i,
		})
	}
	return bars
}

type Handle string

const (
	HandleBody  Handle = "body"
	HandleLeft  Handle = "left"
	HandleRight Handle = "right"
)

func ParseHandle(s string) (Handle, error) {
	switch h := Handle(s); h {
	case HandleBody, HandleLeft, HandleRight:
		return h, nil
	default:
		return "", fmt.Errorf("unknown handle %q", s)
	}
}

// BarGesture tracks one drag on a timing bar. Intermediate frames only move
// the visual bar; the overlay's timing changes when the result of Commit is
// written back.
type BarGesture struct {
	handle   Handle
	scale    float64
	limit    float64
	startX   float64
	startW   float64
	x        float64
	width    float64
	overlay  string
	original overlay.Timing
}

func BeginBarGesture(o overlay.Overlay, handle Handle, layout Layout) *BarGesture {
	x := o.Timing.Start * layout.Scale
	w := o.Timing.Duration() * layout.Scale
	return &BarGesture{
		handle:   handle,
		scale:    layout.Scale,
		limit:    layout.Duration,
		startX:   x,
		startW:   w,
		x:        x,
		width:    w,
		overlay:  o.ID,
		original: o.Timing,
	}
}

// Update applies the gesture's cumulative translation. A frame that would
// break the bar's bounds is rejected and the last legal frame is kept.
func (g *BarGesture) Update(translationX float64) bool {
	switch g.handle {
	case HandleBody:
		x := g.startX + translationX
		if x < 0 || (x+g.width)/g.scale > g.limit {
			return false
		}
		g.x = x
	case HandleLeft:
		w := g.startW - translationX
		x := g.startX + translationX
		if w <= MinBarWidth || x < 0 {
			return false
		}
		g.x, g.width = x, w
	case HandleRight:
		w := g.startW + translationX
		if w <= MinBarWidth || (g.x+w)/g.scale > g.limit {
			return false
		}
		g.width = w
	default:
		return false
	}
	return true
}

// Frame returns the bar as currently drawn.
func (g *BarGesture) Frame() (x, width float64) {
	return g.x, g.width
}

func (g *BarGesture) OverlayID() string {
	return g.overlay
}

// Commit converts the last legal frame back to seconds. A gesture that never
// moved returns the overlay's timing unchanged.
func (g *BarGesture) Commit() overlay.Timing {
	if g.x == g.startX && g.width == g.startW {
		return g.original
	}
	return overlay.Timing{
		Start: g.x / g.scale,
		End:   (g.x + g.width) / g.scale,
	}
}
