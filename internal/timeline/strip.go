package timeline

import (
	"context"
	"math"
	"sync"

	"github.com/heimdex/heimdex-editor/internal/overlay"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
)

const stripWorkers = 4

// Frame is one resolved preview cell.
type Frame struct {
	TimestampMs int64   `json:"timestamp_ms"`
	X           float64 `json:"x"`
	URI         string  `json:"uri"`
}

// Strip is a row of preview frames. Placeholder is the width drawn before
// any frame resolves. Frames that failed are absent.
type Strip struct {
	Source      string  `json:"source"`
	OverlayID   string  `json:"overlay_id,omitempty"`
	Placeholder float64 `json:"placeholder_width"`
	Requested   int     `json:"requested"`
	Frames      []Frame `json:"frames"`
}

// BaseStrip samples the base video evenly across its effective duration.
func BaseStrip(ctx context.Context, p thumbnail.Provider, source string, layout Layout) Strip {
	count := max(1, int(math.Ceil(layout.Duration*layout.Scale/ThumbWidth)))
	interval := layout.Duration / float64(count)
	return Strip{
		Source:      source,
		Placeholder: layout.TrackLength,
		Requested:   count,
		Frames:      resolve(ctx, p, source, count, interval, layout.Scale),
	}
}

// ClipStrip samples a video overlay across its own clip duration.
func ClipStrip(ctx context.Context, p thumbnail.Provider, o overlay.Overlay, scale float64) Strip {
	width := math.Max(0, o.Timing.Duration()*scale)
	count := max(1, int(math.Floor(width/ThumbWidth)))
	interval := 0.0
	if scale > 0 {
		interval = width / scale / float64(count)
	}
	return Strip{
		Source:      o.Content,
		OverlayID:   o.ID,
		Placeholder: width,
		Requested:   count,
		Frames:      resolve(ctx, p, o.Content, count, interval, scale),
	}
}

func resolve(ctx context.Context, p thumbnail.Provider, source string, count int, interval, scale float64) []Frame {
	if p == nil || source == "" {
		return []Frame{}
	}

	results := make([]*Frame, count)
	sem := make(chan struct{}, stripWorkers)
	var wg sync.WaitGroup

	for i := 0; i < count; i++ {
		sec := float64(i) * interval
		ms := int64(math.Round(sec * 1000))

		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			uri, err := p.Thumbnail(ctx, source, ms)
			if err != nil {
				return
			}
			results[i] = &Frame{TimestampMs: ms, X: sec * scale, URI: uri}
		}(i)
	}
	wg.Wait()

	frames := make([]Frame, 0, count)
	for _, f := range results {
		if f != nil {
			frames = append(frames, *f)
		}
	}
	return frames
}
