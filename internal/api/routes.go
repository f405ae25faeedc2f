package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heimdex/heimdex-editor/internal/config"
	"github.com/heimdex/heimdex-editor/internal/export"
	"github.com/heimdex/heimdex-editor/internal/metrics"
	"github.com/heimdex/heimdex-editor/internal/session"
)

func NewRouter(cfg ServerConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware())
	r.Use(RecoveryMiddleware(cfg.Logger))
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(metrics.RequestMiddleware(cfg.Metrics))
	}
	r.Use(CORSAllowlist())

	r.Get("/health", healthHandler(cfg))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler(func() {
			cfg.Metrics.SetActiveSessions(cfg.Sessions.Count())
		}))
	}

	auth := AuthMiddleware(cfg.History, cfg.Logger)

	// Media elements cannot send bearer tokens; these routes are limited to
	// local clients instead.
	r.With(LoopbackGuard()).Get("/thumbnails/{name}", thumbnailFileHandler(cfg))

	r.Group(func(r chi.Router) {
		r.Use(auth)

		r.Get("/status", statusHandler(cfg))
		r.Post("/sessions", createSessionHandler(cfg))
		r.Get("/sessions", listSessionsHandler(cfg))
		r.Get("/exports", listExportsHandler(cfg))
		r.Get("/exports/{id}", getExportHandler(cfg))
	})

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(LoopbackGuard())

			r.Get("/media", baseMediaHandler(cfg))
			r.Head("/media", baseMediaHandler(cfg))
			r.Get("/overlays/{oid}/media", overlayMediaHandler(cfg))
			r.Head("/overlays/{oid}/media", overlayMediaHandler(cfg))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Get("/", getSessionHandler(cfg))
			r.Delete("/", closeSessionHandler(cfg))
			r.Put("/surface", surfaceHandler(cfg))
			r.Put("/viewport", viewportHandler(cfg))

			r.Get("/overlays", listOverlaysHandler(cfg))
			r.Post("/overlays", addOverlayHandler(cfg))
			r.Get("/overlays/{oid}", getOverlayHandler(cfg))
			r.Patch("/overlays/{oid}", editOverlayHandler(cfg))
			r.Delete("/overlays/{oid}", deleteOverlayHandler(cfg))
			r.Post("/overlays/{oid}/drag", dragHandler(cfg))
			r.Post("/overlays/{oid}/resize", resizeHandler(cfg))
			r.Post("/overlays/{oid}/timing", timingHandler(cfg))

			r.Put("/active", selectHandler(cfg))
			r.Delete("/active", deleteActiveHandler(cfg))
			r.Post("/tap", tapHandler(cfg))

			r.Put("/player", playerReportHandler(cfg))
			r.Post("/seek", seekHandler(cfg))
			r.Post("/scrub/begin", scrubBeginHandler(cfg))
			r.Post("/scrub/move", scrubMoveHandler(cfg))
			r.Post("/scrub/end", scrubEndHandler(cfg))
			r.Get("/timeline", timelineHandler(cfg))
			r.Get("/timeline/thumbnails", thumbnailsHandler(cfg))

			r.Post("/export", startExportHandler(cfg))
			r.Get("/export", exportStatusHandler(cfg))
			r.Delete("/export", cancelExportHandler(cfg))
			r.Get("/exports", sessionExportsHandler(cfg))
		})
	})

	return r
}

func healthHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uptime := int64(time.Since(cfg.StartTime).Seconds())
		WriteJSON(w, http.StatusOK, HealthResponse{
			Status:   "ok",
			Version:  config.Version,
			UptimeS:  uptime,
			DeviceID: cfg.DeviceID,
		})
	}
}

func statusHandler(cfg ServerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := StatusResponse{
			State:         "idle",
			Sessions:      cfg.Sessions.Count(),
			ActiveExports: cfg.Sessions.ActiveExports(),
		}
		if resp.ActiveExports > 0 {
			resp.State = "exporting"
		}

		jobs, err := cfg.History.ListExports(r.Context(), 1)
		if err != nil {
			cfg.Logger.Warn("failed to read export history", "error", err)
		} else if len(jobs) > 0 {
			resp.LastExport = jobs[0]
			if resp.State == "idle" && jobs[0].Phase == export.PhaseFailed {
				resp.State = "error"
			}
		}

		WriteJSON(w, http.StatusOK, resp)
	}
}

// lookupSession resolves {id} or writes a 404.
func lookupSession(cfg ServerConfig, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := cfg.Sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return s, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}

// writeSessionError maps domain errors onto HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "SESSION_NOT_FOUND")
	case errors.Is(err, session.ErrOverlayNotFound):
		WriteError(w, http.StatusNotFound, err.Error(), "OVERLAY_NOT_FOUND")
	case errors.Is(err, session.ErrNoSurface):
		WriteError(w, http.StatusConflict, err.Error(), "SURFACE_UNKNOWN")
	case errors.Is(err, session.ErrOverlayHidden):
		WriteError(w, http.StatusConflict, err.Error(), "OVERLAY_HIDDEN")
	case errors.Is(err, session.ErrPlaying):
		WriteError(w, http.StatusConflict, err.Error(), "PLAYING")
	case errors.Is(err, export.ErrExportInProgress):
		WriteError(w, http.StatusConflict, err.Error(), "EXPORT_IN_PROGRESS")
	case errors.Is(err, session.ErrInvalidKind),
		errors.Is(err, session.ErrInvalidSurface),
		errors.Is(err, session.ErrNoBaseVideo):
		WriteError(w, http.StatusBadRequest, err.Error(), "BAD_REQUEST")
	default:
		WriteError(w, http.StatusInternalServerError, err.Error(), "INTERNAL_ERROR")
	}
}
