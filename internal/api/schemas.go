package api

import (
	"time"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/overlay"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/session"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	UptimeS  int64  `json:"uptime_s"`
	DeviceID string `json:"device_id"`
}

type StatusResponse struct {
	State         string      `json:"state"`
	Sessions      int         `json:"sessions"`
	ActiveExports int         `json:"active_exports"`
	LastExport    *export.Job `json:"last_export,omitempty"`
}

type CreateSessionRequest struct {
	BaseVideo string  `json:"base_video"`
	Duration  float64 `json:"duration,omitempty"`
}

type SessionSummary struct {
	ID        string `json:"id"`
	BaseVideo string `json:"base_video"`
	Overlays  int    `json:"overlays"`
	CreatedAt string `json:"created_at"`
}

type SessionsResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

type SurfaceRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

type ViewportRequest struct {
	Width float64 `json:"width"`
}

// AddOverlayRequest creates a text overlay, or an overlay from a picked
// media uri for image, video and sticker types.
type AddOverlayRequest struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

type OverlaysResponse struct {
	Overlays        []overlay.Overlay `json:"overlays"`
	ActiveOverlayID string            `json:"active_overlay_id,omitempty"`
}

type SelectRequest struct {
	OverlayID string `json:"overlay_id"`
}

type SelectResponse struct {
	ActiveOverlayID string `json:"active_overlay_id"`
}

type TapRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type DragRequest struct {
	TX float64 `json:"tx"`
	TY float64 `json:"ty"`
}

type ResizeRequest struct {
	TW float64 `json:"tw"`
	TH float64 `json:"th"`
}

// TimingRequest replays a gesture on a timing bar. Frames lists the
// cumulative translations seen while dragging; TX alone is a one-frame
// gesture.
type TimingRequest struct {
	Handle string    `json:"handle"`
	TX     *float64  `json:"tx,omitempty"`
	Frames []float64 `json:"frames,omitempty"`
}

type PlayerResponse struct {
	Playback playback.State `json:"playback"`
	Seek     *float64       `json:"seek,omitempty"`
}

type SeekRequest struct {
	Time float64 `json:"time"`
}

type ScrubMoveRequest struct {
	TX float64 `json:"tx"`
}

type ExportsResponse struct {
	Exports []*export.Job `json:"exports"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func SessionToSummary(s *session.Session) SessionSummary {
	v := s.View()
	return SessionSummary{
		ID:        v.ID,
		BaseVideo: v.BaseVideo,
		Overlays:  len(v.Overlays),
		CreatedAt: v.CreatedAt.Format(time.RFC3339),
	}
}
