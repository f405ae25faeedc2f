package overlay

import (
	"strconv"
	"sync"
	"time"
)

type Kind string

const (
	KindText    Kind = "text"
	KindImage   Kind = "image"
	KindSticker Kind = "sticker"
	KindVideo   Kind = "video"
)

// Valid reports whether k is one of the known overlay kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindSticker, KindVideo:
		return true
	default:
		return false
	}
}

// HasAsset reports whether overlays of this kind reference a media file
// that has to travel with an export.
func (k Kind) HasAsset() bool {
	return k == KindImage || k == KindVideo
}

// Position is the top-left corner in percent of the preview surface.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is expressed in percent of the preview surface.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Timing is the visibility window in seconds of the base video.
type Timing struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (t Timing) Duration() float64 {
	return t.End - t.Start
}

type Overlay struct {
	ID       string   `json:"id"`
	Kind     Kind     `json:"type"`
	Content  string   `json:"content"`
	Position Position `json:"position"`
	Size     Size     `json:"size"`
	Timing   Timing   `json:"timing"`
}

// Changes is a partial edit. Nil fields are left untouched.
type Changes struct {
	Content  *string   `json:"content,omitempty"`
	Position *Position `json:"position,omitempty"`
	Size     *Size     `json:"size,omitempty"`
	Timing   *Timing   `json:"timing,omitempty"`
}

func (c Changes) apply(o *Overlay) {
	if c.Content != nil {
		o.Content = *c.Content
	}
	if c.Position != nil {
		o.Position = *c.Position
	}
	if c.Size != nil {
		o.Size = *c.Size
	}
	if c.Timing != nil {
		o.Timing = *c.Timing
	}
}

var (
	idMu   sync.Mutex
	lastID int64
)

// NewID returns a process-unique id derived from the wall clock in
// milliseconds. Ids are strictly increasing even when two overlays are
// created within the same millisecond.
func NewID() string {
	idMu.Lock()
	defer idMu.Unlock()

	now := time.Now().UnixMilli()
	if now <= lastID {
		now = lastID + 1
	}
	lastID = now
	return strconv.FormatInt(now, 10)
}
