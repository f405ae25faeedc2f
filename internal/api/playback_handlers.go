package api

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/playback"
	"github.com/heimdex/heimdex-editor/internal/timeline"
)

// playerReportHandler receives the preview player's state. The response
// carries a seek the client has to apply to its player.
func playerReportHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var st playback.State
		if !decodeBody(w, r, &st) {
			return
		}
		state, seek := s.ReportPlayer(st)
		WriteJSON(w, http.StatusOK, PlayerResponse{Playback: state, Seek: seek})
	}
}

func seekHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req SeekRequest
		if !decodeBody(w, r, &req) {
			return
		}
		WriteJSON(w, http.StatusOK, PlayerResponse{Playback: s.Seek(req.Time)})
	}
}

func scrubBeginHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, s.BeginScrub())
	}
}

func scrubMoveHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		var req ScrubMoveRequest
		if !decodeBody(w, r, &req) {
			return
		}
		WriteJSON(w, http.StatusOK, s.ScrubBy(req.TX))
	}
}

func scrubEndHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, s.EndScrub())
	}
}

func timelineHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		WriteJSON(w, http.StatusOK, s.TimelineView())
	}
}

// thumbnailsHandler extracts the timeline strips. Frames cached on disk are
// rewritten to /thumbnails URLs for browser clients.
func thumbnailsHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		th := s.Thumbnails(r.Context())
		rewriteFrames(cfg.ThumbnailDir, &th.Base)
		for i := range th.Clips {
			rewriteFrames(cfg.ThumbnailDir, &th.Clips[i])
		}
		WriteJSON(w, http.StatusOK, th)
	}
}

func rewriteFrames(dir string, strip *timeline.Strip) {
	if dir == "" {
		return
	}
	for i, f := range strip.Frames {
		path := playback.LocalPath(f.URI)
		if filepath.Dir(path) == filepath.Clean(dir) {
			strip.Frames[i].URI = "/thumbnails/" + filepath.Base(path)
		}
	}
}

func thumbnailFileHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if cfg.ThumbnailDir == "" || name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
			WriteError(w, http.StatusNotFound, "thumbnail not found", "NOT_FOUND")
			return
		}
		serveMedia(cfg, w, r, filepath.Join(cfg.ThumbnailDir, name))
	}
}

func baseMediaHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := lookupSession(cfg, w, r)
		if !ok {
			return
		}
		serveMedia(cfg, w, r, s.BaseVideo())
	}
}

// overlayMediaHandler streams the picked asset behind an image or video
// overlay.
func overlayMediaHandler(cfg ServerConfig) http.HandlerFunc {
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
		if !o.Kind.HasAsset() {
			WriteError(w, http.StatusNotFound, "overlay has no media", "NOT_FOUND")
			return
		}
		serveMedia(cfg, w, r, o.Content)
	}
}

func serveMedia(cfg ServerConfig, w http.ResponseWriter, r *http.Request, ref string) {
	media := cfg.Media
	if media == nil {
		media = playback.NewMediaServer(cfg.Logger)
	}
	if err := media.ServeMedia(w, r, ref); err != nil {
		cfg.Logger.Error("media error", "error", err, "path", ref)
	}
}
