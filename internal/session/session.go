// Package session ties the editor's models together for one open
// composition: the overlay store, the playback clock fed by the preview
// client, the timeline scrubber and the export orchestrator.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/geometry"
	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/overlay"
	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/renderer"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrOverlayNotFound = errors.New("overlay not found")
	ErrNoSurface       = errors.New("preview surface has not been measured")
	ErrInvalidSurface  = errors.New("surface width and height must be positive")
	ErrInvalidKind     = errors.New("unsupported overlay type")
	ErrNoBaseVideo     = errors.New("base video is required")
	ErrOverlayHidden   = errors.New("overlay is not on screen at the current time")
	ErrPlaying         = errors.New("selection is disabled during playback")
)

// Config carries the collaborators every session of a manager shares.
type Config struct {
	Renderer      renderer.Client
	Thumbnails    thumbnail.Provider
	FrameInterval time.Duration
	PollInterval  time.Duration
	MaxPolls      int
	// Observers receive every export snapshot of every session.
	Observers []export.Observer
	Logger    *slog.Logger
}

// Params describe the composition a session edits.
type Params struct {
	BaseVideo string  `json:"base_video"`
	Duration  float64 `json:"duration,omitempty"`
}

// Session is one editing session. Mutations and gestures are serialised by
// mu; the clock listener runs on the poller goroutine and only touches the
// internally synchronised store and scrubber.
type Session struct {
	id        string
	seq       uint64
	baseVideo string
	createdAt time.Time
	logger    *slog.Logger

	store    *overlay.Store
	clock    *playback.Clock
	player   *playback.RemotePlayer
	poller   *playback.Poller
	scrubber *timeline.Scrubber
	exporter *export.Orchestrator
	thumbs   thumbnail.Provider

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	mu      sync.Mutex
	surface geometry.Surface
}

func newSession(id string, p Params, cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logging.WithSessionID(logger, id)

	ctx, cancel := context.WithCancel(context.Background())
	player := playback.NewRemotePlayer()
	clock := playback.NewClock()

	s := &Session{
		id:        id,
		baseVideo: p.BaseVideo,
		createdAt: time.Now().UTC(),
		logger:    logger,
		store:     overlay.NewStore(),
		clock:     clock,
		player:    player,
		poller:    playback.NewPoller(player, clock, cfg.FrameInterval, logger),
		scrubber:  timeline.NewScrubber(player),
		exporter: export.New(cfg.Renderer, export.Options{
			SessionID:    id,
			PollInterval: cfg.PollInterval,
			MaxPolls:     cfg.MaxPolls,
			Logger:       logger,
			Observers:    cfg.Observers,
		}),
		thumbs: cfg.Thumbnails,
		ctx:    ctx,
		cancel: cancel,
	}

	clock.OnChange(s.onClock)
	if p.Duration > 0 {
		player.Report(playback.State{Duration: p.Duration})
	}
	s.poller.Tick()
	s.poller.Start(ctx)
	return s
}

// onClock keeps derived state in step with playback: selection is cleared
// while playing, the track follows the playhead and the layout tracks the
// reported duration.
func (s *Session) onClock(st playback.State) {
	if st.IsPlaying && s.store.ActiveID() != "" {
		s.store.SetActive("")
	}
	layout := s.scrubber.Layout()
	if timeline.EffectiveDuration(st.Duration) != layout.Duration {
		s.scrubber.Resize(layout.Viewport, st.Duration)
	}
	s.scrubber.Follow(st.CurrentTime)
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) BaseVideo() string {
	return s.baseVideo
}

func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// VisibleOverlay is an overlay rendered at the current time. Rect is set
// once the surface is known; ClipTime is the playback position inside a
// video overlay's own clip.
type VisibleOverlay struct {
	Overlay  overlay.Overlay `json:"overlay"`
	Rect     *geometry.Rect  `json:"rect,omitempty"`
	ClipTime *float64        `json:"clip_time,omitempty"`
}

// View is a snapshot of the whole session.
type View struct {
	ID              string            `json:"id"`
	BaseVideo       string            `json:"base_video"`
	Surface         geometry.Surface  `json:"surface"`
	Overlays        []overlay.Overlay `json:"overlays"`
	ActiveOverlayID string            `json:"active_overlay_id,omitempty"`
	Playback        playback.State    `json:"playback"`
	Visible         []VisibleOverlay  `json:"visible"`
	Export          export.Job        `json:"export"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (s *Session) View() View {
	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()

	state := s.store.Snapshot()
	st := s.clock.State()
	return View{
		ID:              s.id,
		BaseVideo:       s.baseVideo,
		Surface:         surface,
		Overlays:        state.Overlays,
		ActiveOverlayID: state.ActiveOverlayID,
		Playback:        st,
		Visible:         visible(state.Overlays, surface, st.CurrentTime),
		Export:          s.exporter.Current(),
		CreatedAt:       s.createdAt,
	}
}

func visible(list []overlay.Overlay, surface geometry.Surface, t float64) []VisibleOverlay {
	shown := geometry.VisibleOverlays(list, t)
	out := make([]VisibleOverlay, 0, len(shown))
	for _, o := range shown {
		v := VisibleOverlay{Overlay: o}
		if surface.Valid() {
			r := geometry.ToPixels(o, surface)
			v.Rect = &r
		}
		if o.Kind == overlay.KindVideo {
			ct := t - o.Timing.Start
			v.ClipTime = &ct
		}
		out = append(out, v)
	}
	return out
}

// SetSurface records the measured pixel size of the preview.
func (s *Session) SetSurface(surface geometry.Surface) error {
	if !surface.Valid() || math.IsInf(surface.Width, 0) || math.IsInf(surface.Height, 0) {
		return ErrInvalidSurface
	}
	s.mu.Lock()
	s.surface = surface
	s.mu.Unlock()
	s.logger.Debug("surface measured", "width", surface.Width, "height", surface.Height)
	return nil
}

func (s *Session) Surface() geometry.Surface {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.surface
}

// SetViewport relayouts the timeline for a new viewport width.
func (s *Session) SetViewport(width float64) (timeline.Layout, error) {
	if math.IsNaN(width) || math.IsInf(width, 0) || width < 0 {
		return timeline.Layout{}, fmt.Errorf("invalid viewport width %v", width)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrubber.Resize(width, s.clock.State().Duration), nil
}

// AddOverlay creates an overlay of kind with default geometry on top of the
// z-order and selects it.
func (s *Session) AddOverlay(kind overlay.Kind, content string) (overlay.Overlay, error) {
	if !kind.Valid() {
		return overlay.Overlay{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.surface.Valid() {
		return overlay.Overlay{}, ErrNoSurface
	}
	pos, size, timing := geometry.DefaultGeometry(kind, s.surface)
	o := overlay.Overlay{
		ID:       overlay.NewID(),
		Kind:     kind,
		Content:  content,
		Position: pos,
		Size:     size,
		Timing:   timing,
	}
	s.store.Add(o)
	if s.clock.State().IsPlaying {
		s.store.SetActive("")
	}
	logging.WithOverlayID(s.logger, o.ID).Info("overlay added", "type", kind)
	return o, nil
}

// AddText adds an empty text overlay unless content is given.
func (s *Session) AddText(content string) (overlay.Overlay, error) {
	return s.AddOverlay(overlay.KindText, content)
}

// AddMedia adds the result of a media pick. Only images and videos can be
// picked.
func (s *Session) AddMedia(uri string, kind overlay.Kind) (overlay.Overlay, error) {
	if kind != overlay.KindImage && kind != overlay.KindVideo {
		return overlay.Overlay{}, fmt.Errorf("%w: picked media must be image or video, got %q", ErrInvalidKind, kind)
	}
	if uri == "" {
		return overlay.Overlay{}, errors.New("picked media has no uri")
	}
	return s.AddOverlay(kind, uri)
}

func (s *Session) Overlay(id string) (overlay.Overlay, error) {
	o, ok := s.store.Get(id)
	if !ok {
		return overlay.Overlay{}, ErrOverlayNotFound
	}
	return o, nil
}

func (s *Session) DeleteOverlay(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Delete(id) {
		return ErrOverlayNotFound
	}
	logging.WithOverlayID(s.logger, id).Info("overlay deleted")
	return nil
}

// DeleteActive removes the selected overlay, if any.
func (s *Session) DeleteActive() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.store.ActiveID()
	if id == "" || !s.store.Delete(id) {
		return "", false
	}
	logging.WithOverlayID(s.logger, id).Info("overlay deleted")
	return id, true
}

func (s *Session) EditOverlay(id string, c overlay.Changes) (overlay.Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.Edit(id, c) {
		return overlay.Overlay{}, ErrOverlayNotFound
	}
	o, _ := s.store.Get(id)
	return o, nil
}

// Select makes id the active overlay. An empty id clears the selection.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" && s.clock.State().IsPlaying {
		return ErrPlaying
	}
	if !s.store.SetActive(id) {
		return ErrOverlayNotFound
	}
	return nil
}

// Tap selects the topmost overlay under the pixel point, or clears the
// selection when the tap hits nothing. Taps during playback select nothing.
func (s *Session) Tap(x, y float64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.surface.Valid() {
		return "", ErrNoSurface
	}
	st := s.clock.State()
	if st.IsPlaying {
		s.store.SetActive("")
		return "", nil
	}
	id, _ := geometry.HitTest(s.store.List(), s.surface, st.CurrentTime, x, y)
	s.store.SetActive(id)
	return id, nil
}

// Drag commits a finished drag gesture with total translation (tx, ty).
func (s *Session) Drag(id string, tx, ty float64) (overlay.Overlay, error) {
	return s.gesture(id, func(o overlay.Overlay, surface geometry.Surface) overlay.Changes {
		return geometry.DragEnd(o, tx, ty, surface)
	})
}

// Resize commits a finished resize gesture with total translation (tw, th).
func (s *Session) Resize(id string, tw, th float64) (overlay.Overlay, error) {
	return s.gesture(id, func(o overlay.Overlay, surface geometry.Surface) overlay.Changes {
		return geometry.ResizeEnd(o, tw, th, surface)
	})
}

// gesture applies a surface gesture. Only overlays on screen have a
// gesture area.
func (s *Session) gesture(id string, end func(overlay.Overlay, geometry.Surface) overlay.Changes) (overlay.Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.surface.Valid() {
		return overlay.Overlay{}, ErrNoSurface
	}
	o, ok := s.store.Get(id)
	if !ok {
		return overlay.Overlay{}, ErrOverlayNotFound
	}
	if !geometry.Visible(o, s.clock.State().CurrentTime) {
		return overlay.Overlay{}, ErrOverlayHidden
	}
	s.store.Edit(id, end(o, s.surface))
	o, _ = s.store.Get(id)
	return o, nil
}

// EditTiming replays a timing bar gesture. frames are the cumulative
// translations reported while the finger moved; illegal frames are skipped
// and the last legal one is committed.
func (s *Session) EditTiming(id string, handle timeline.Handle, frames ...float64) (overlay.Overlay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.store.Get(id)
	if !ok {
		return overlay.Overlay{}, ErrOverlayNotFound
	}
	g := timeline.BeginBarGesture(o, handle, s.scrubber.Layout())
	for _, tx := range frames {
		g.Update(tx)
	}
	timing := g.Commit()
	s.store.Edit(id, overlay.Changes{Timing: &timing})
	o.Timing = timing
	return o, nil
}

// ReportPlayer records the preview player's state and returns a seek the
// client still has to perform, if one is queued.
func (s *Session) ReportPlayer(st playback.State) (playback.State, *float64) {
	s.player.Report(st)
	out := s.poller.Tick()
	if t, ok := s.player.PendingSeek(); ok {
		return out, &t
	}
	return out, nil
}

// Seek moves playback to t seconds.
func (s *Session) Seek(t float64) playback.State {
	s.player.Seek(t)
	return s.poller.Tick()
}

func (s *Session) Playback() playback.State {
	return s.clock.State()
}

// ScrubState is the track position after a scrub step.
type ScrubState struct {
	Offset float64       `json:"offset"`
	Time   float64       `json:"time"`
	Mode   timeline.Mode `json:"mode"`
	Seeked bool          `json:"seeked"`
}

func (s *Session) scrubState(seeked bool) ScrubState {
	return ScrubState{
		Offset: s.scrubber.Offset(),
		Time:   s.scrubber.Time(),
		Mode:   s.scrubber.Mode(),
		Seeked: seeked,
	}
}

func (s *Session) BeginScrub() ScrubState {
	s.scrubber.BeginDrag()
	return s.scrubState(false)
}

// ScrubBy moves the track by the drag's cumulative translation.
func (s *Session) ScrubBy(translationX float64) ScrubState {
	seeked := s.scrubber.DragBy(translationX)
	if seeked {
		s.poller.Tick()
	}
	return s.scrubState(seeked)
}

func (s *Session) EndScrub() ScrubState {
	s.scrubber.EndDrag()
	return s.scrubState(false)
}

// TimelineView is everything needed to draw the timeline.
type TimelineView struct {
	Layout   timeline.Layout  `json:"layout"`
	Offset   float64          `json:"offset"`
	Mode     timeline.Mode    `json:"mode"`
	Playback playback.State   `json:"playback"`
	Elapsed  string           `json:"elapsed"`
	Total    string           `json:"total"`
	Bars     []timeline.Bar   `json:"bars"`
	Visible  []VisibleOverlay `json:"visible"`
}

func (s *Session) TimelineView() TimelineView {
	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()

	layout := s.scrubber.Layout()
	st := s.clock.State()
	list := s.store.List()
	return TimelineView{
		Layout:   layout,
		Offset:   s.scrubber.Offset(),
		Mode:     s.scrubber.Mode(),
		Playback: st,
		Elapsed:  timeline.FormatTime(st.CurrentTime),
		Total:    timeline.FormatTime(st.Duration),
		Bars:     timeline.Bars(list, layout.Scale),
		Visible:  visible(list, surface, st.CurrentTime),
	}
}

// Thumbnails holds the base track strip and one strip per video overlay.
type Thumbnails struct {
	Base  timeline.Strip   `json:"base"`
	Clips []timeline.Strip `json:"clips"`
}

func (s *Session) Thumbnails(ctx context.Context) Thumbnails {
	layout := s.scrubber.Layout()
	out := Thumbnails{
		Base:  timeline.BaseStrip(ctx, s.thumbs, s.baseVideo, layout),
		Clips: []timeline.Strip{},
	}
	for _, o := range s.store.List() {
		if o.Kind == overlay.KindVideo {
			out.Clips = append(out.Clips, timeline.ClipStrip(ctx, s.thumbs, o, layout.Scale))
		}
	}
	return out
}

// Export submits the current composition. The job is bound to the session,
// not to the caller, and ends cancelled when the session closes.
func (s *Session) Export() (export.Job, error) {
	if s.baseVideo == "" {
		return export.Job{}, ErrNoBaseVideo
	}
	sub := renderer.Submission{
		BaseVideo: s.baseVideo,
		Overlays:  s.store.List(),
	}
	return s.exporter.Start(s.ctx, sub)
}

func (s *Session) ExportStatus() export.Job {
	return s.exporter.Current()
}

func (s *Session) CancelExport() {
	s.exporter.Cancel()
}

// WaitExport blocks until the current export finishes.
func (s *Session) WaitExport() export.Job {
	return s.exporter.Wait()
}

// Close stops the player poller and cancels any running export. It is safe
// to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.poller.Stop()
		s.exporter.Cancel()
		s.cancel()
		s.exporter.Wait()
		s.logger.Info("session closed")
	})
}
