package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/geometry"
	"github.com/heimdex/heimdex-editor/internal/overlay"
	"github.com/heimdex/heimdex-editor/internal/session"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

func createSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.BaseVideo == "" {
			WriteError(w, http.StatusBadRequest, "base_video is required", "BAD_REQUEST")
			return
		}

		s, err := cfg.Sessions.Create(session.Params{BaseVideo: req.BaseVideo, Duration: req.Duration})
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, s.View())
	}
}

func listSessionsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions := cfg.Sessions.List()
		resp := SessionsResponse{Sessions: make([]SessionSummary, len(sessions))}
		for i, s := range sessions {
			resp.Sessions[i] = SessionToSummary(s)
		}
		WriteJSON(w, http.StatusOK, resp)
	}
}

func getSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, s.View())
	}
}

func closeSessionHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := cfg.Sessions.Close(chi.URLParam(r, "id")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func surfaceHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req SurfaceRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := s.SetSurface(geometry.Surface{Width: req.Width, Height: req.Height}); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, s.View())
	}
}

func viewportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req ViewportRequest
		if !decodeBody(w, r, &req) {
			return
		}
		layout, err := s.SetViewport(req.Width)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		WriteJSON(w, http.StatusOK, layout)
	}
}

func listOverlaysHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		v := s.View()
		WriteJSON(w, http.StatusOK, OverlaysResponse{Overlays: v.Overlays, ActiveOverlayID: v.ActiveOverlayID})
	}
}

func addOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req AddOverlayRequest
		if !decodeBody(w, r, &req) {
			return
		}

		kind := overlay.Kind(req.Type)
		var (
			o   overlay.Overlay
			err error
		)
		switch kind {
		case overlay.KindText:
			o, err = s.AddText(req.Content)
		case overlay.KindImage, overlay.KindVideo:
			o, err = s.AddMedia(req.Content, kind)
		default:
			if kind.Valid() && req.Content == "" {
				WriteError(w, http.StatusBadRequest, "content is required", "BAD_REQUEST")
				return
			}
			o, err = s.AddOverlay(kind, req.Content)
		}
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusCreated, o)
	}
}

func getOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		o, err := s.Overlay(chi.URLParam(r, "oid"))
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, o)
	}
}

func editOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var changes overlay.Changes
		if !decodeBody(w, r, &changes) {
			return
		}
		o, err := s.EditOverlay(chi.URLParam(r, "oid"), changes)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, o)
	}
}

func deleteOverlayHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		if err := s.DeleteOverlay(chi.URLParam(r, "oid")); err != nil {
			writeSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func deleteActiveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		if _, deleted := s.DeleteActive(); !deleted {
			WriteError(w, http.StatusNotFound, "no overlay is selected", "NO_SELECTION")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func selectHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req SelectRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := s.Select(req.OverlayID); err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SelectResponse{ActiveOverlayID: s.View().ActiveOverlayID})
	}
}

func tapHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req TapRequest
		if !decodeBody(w, r, &req) {
			return
		}
		id, err := s.Tap(req.X, req.Y)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, SelectResponse{ActiveOverlayID: id})
	}
}

func dragHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req DragRequest
		if !decodeBody(w, r, &req) {
			return
		}
		o, err := s.Drag(chi.URLParam(r, "oid"), req.TX, req.TY)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, o)
	}
}

func resizeHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req ResizeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		o, err := s.Resize(chi.URLParam(r, "oid"), req.TW, req.TH)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, o)
	}
}

func timingHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req TimingRequest
		if !decodeBody(w, r, &req) {
			return
		}
		handle, err := timeline.ParseHandle(req.Handle)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
			return
		}
		frames := req.Frames
		if req.TX != nil {
			frames = append(frames, *req.TX)
		}
		o, err := s.EditTiming(chi.URLParam(r, "oid"), handle, frames...)
		if err != nil {
			writeSessionError(w, err)
			return
		}
		WriteJSON(w, http.StatusOK, o)
	}
}
