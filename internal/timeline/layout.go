// Package timeline maps playback time onto a horizontally scrolling,
// time-proportional track and back, and resolves gestures on the track and
// on per-overlay timing bars.
package timeline

import (
	"fmt"
	"math"
)

const (
	// FallbackDuration stands in for an unknown base duration, in seconds.
	FallbackDuration = 30.0
	MinScale         = 10.0
	MaxScale         = 60.0
	// TrackMultiple caps the track at this many viewport widths.
	TrackMultiple = 3.0
	MinBarWidth   = 20.0
	ThumbWidth    = 48.0
)

// EffectiveDuration returns d, or FallbackDuration when d is unknown.
func EffectiveDuration(d float64) float64 {
	if d > 0 && !math.IsInf(d, 0) && !math.IsNaN(d) {
		return d
	}
	return FallbackDuration
}

// Scale returns pixels per second for a viewport of the given width. Before
// the viewport is measured the scale is MaxScale.
func Scale(viewport, duration float64) float64 {
	if viewport <= 0 || math.IsNaN(viewport) {
		return MaxScale
	}
	s := TrackMultiple * viewport / EffectiveDuration(duration)
	return math.Min(MaxScale, math.Max(MinScale, s))
}

// Layout is the derived geometry of the track for one viewport width and
// base duration.
type Layout struct {
	Viewport     float64 `json:"viewport"`
	Duration     float64 `json:"duration"`
	Scale        float64 `json:"scale"`
	TrackLength  float64 `json:"track_length"`
	Spacer       float64 `json:"spacer"`
	ContentWidth float64 `json:"content_width"`
}

func NewLayout(viewport, duration float64) Layout {
	if viewport < 0 || math.IsNaN(viewport) {
		viewport = 0
	}
	eff := EffectiveDuration(duration)
	scale := Scale(viewport, duration)
	track := math.Max(viewport, eff*scale)
	spacer := viewport / 2
	return Layout{
		Viewport:     viewport,
		Duration:     eff,
		Scale:        scale,
		TrackLength:  track,
		Spacer:       spacer,
		ContentWidth: spacer + track + spacer,
	}
}

// ScrollOffset is the scroll position that centers t under the playhead.
func (l Layout) ScrollOffset(t float64) float64 {
	return l.Spacer + t*l.Scale - l.Viewport/2
}

// TimeAt is the inverse of ScrollOffset, floored at zero.
func (l Layout) TimeAt(offset float64) float64 {
	return math.Max(0, (offset+l.Viewport/2-l.Spacer)/l.Scale)
}

// MaxOffset is the largest scroll offset the content allows.
func (l Layout) MaxOffset() float64 {
	return math.Max(0, l.ContentWidth-l.Viewport)
}

// FormatTime renders seconds as m:ss, rounding up to whole seconds.
func FormatTime(sec float64) string {
	if math.IsNaN(sec) || sec < 0 {
		sec = 0
	}
	s := int(math.Ceil(sec))
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
