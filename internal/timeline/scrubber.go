package timeline

import (
	"math"
	"sync"
	"time"
)

// SeekInterval is the minimum spacing between seeks issued while dragging.
const SeekInterval = 80 * time.Millisecond

type Mode string

const (
	ModeAutoFollow Mode = "auto_follow"
	ModeUserDrag   Mode = "user_drag"
)

// Seeker moves the underlying player.
type Seeker interface {
	Seek(seconds float64)
}

// Scrubber owns the track's scroll offset. While the user drags the track
// it seeks the player; otherwise it follows playback time. Exactly one of
// the two writes the offset at any moment.
type Scrubber struct {
	mu         sync.Mutex
	layout     Layout
	offset     float64
	dragging   bool
	dragOrigin float64
	lastSeek   time.Time
	seeker     Seeker
	now        func() time.Time
}

func NewScrubber(seeker Seeker) *Scrubber {
	return &Scrubber{
		layout: NewLayout(0, 0),
		seeker: seeker,
		now:    time.Now,
	}
}

// Resize recomputes the layout after the viewport or duration changed and
// keeps the current time under the playhead.
func (s *Scrubber) Resize(viewport, duration float64) Layout {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.layout.TimeAt(s.offset)
	s.layout = NewLayout(viewport, duration)
	s.offset = s.clampOffset(s.layout.ScrollOffset(t))
	return s.layout
}

func (s *Scrubber) Layout() Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout
}

// Follow applies playback time t in auto-follow mode. It reports false and
// leaves the offset alone while a drag is in progress.
func (s *Scrubber) Follow(t float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dragging {
		return false
	}
	s.offset = s.clampOffset(s.layout.ScrollOffset(t))
	return true
}

// BeginDrag suspends auto-follow.
func (s *Scrubber) BeginDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dragging = true
	s.dragOrigin = s.offset
}

// DragBy moves the track by the gesture's cumulative translation. Content
// moves with the finger, so a positive translation scrolls back in time.
// It reports whether a seek was issued; seeks are throttled to SeekInterval.
func (s *Scrubber) DragBy(translationX float64) bool {
	s.mu.Lock()
	if !s.dragging {
		s.mu.Unlock()
		return false
	}
	s.offset = s.clampOffset(s.dragOrigin - translationX)

	now := s.now()
	if now.Sub(s.lastSeek) < SeekInterval {
		s.mu.Unlock()
		return false
	}
	s.lastSeek = now
	t := s.layout.TimeAt(s.offset)
	seeker := s.seeker
	s.mu.Unlock()

	if seeker != nil {
		seeker.Seek(t)
	}
	return true
}

// EndDrag resumes auto-follow.
func (s *Scrubber) EndDrag() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dragging = false
}

func (s *Scrubber) Offset() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offset
}

// Time is the playback time currently under the playhead.
func (s *Scrubber) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layout.TimeAt(s.offset)
}

func (s *Scrubber) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dragging {
		return ModeUserDrag
	}
	return ModeAutoFollow
}

func (s *Scrubber) clampOffset(x float64) float64 {
	return math.Min(s.layout.MaxOffset(), math.Max(0, x))
}
