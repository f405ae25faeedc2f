// Package renderer talks to the remote render service that composites
// overlays onto the base video.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heimdex/heimdex-editor/internal/overlay"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusError     = "error"
)

var ErrNotConfigured = errors.New("renderer url not configured")

type Client interface {
	Upload(ctx context.Context, sub Submission) (*UploadResponse, error)
	Status(ctx context.Context, statusURL string) (*StatusResponse, error)
	Result(ctx context.Context, resultURL string) (*ResultResponse, error)
	// ResolveURL turns a renderer-relative path into an absolute URL.
	ResolveURL(path string) string
}

// Submission is everything one render needs: the base video and the overlay
// list at the moment the export started.
type Submission struct {
	BaseVideo string            `json:"base_video"`
	Overlays  []overlay.Overlay `json:"overlays"`
}

type UploadResponse struct {
	JobID     string `json:"job_id"`
	StatusURL string `json:"status_url"`
	ResultURL string `json:"result_url"`
}

type StatusResponse struct {
	Status   string   `json:"status"`
	Progress *float64 `json:"progress,omitempty"`
	Message  string   `json:"message,omitempty"`
}

type ResultResponse struct {
	JobID string `json:"job_id"`
	URL   string `json:"url"`
}

// HTTPError is a non-success response from the renderer.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx). Client errors are
// permanent.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// StubClient is used when no renderer is configured. Every upload fails.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Upload(_ context.Context, sub Submission) (*UploadResponse, error) {
	c.logger.Info("renderer stub: upload requested", "overlay_count", len(sub.Overlays))
	return nil, ErrNotConfigured
}

func (c *StubClient) Status(_ context.Context, statusURL string) (*StatusResponse, error) {
	return nil, ErrNotConfigured
}

func (c *StubClient) Result(_ context.Context, resultURL string) (*ResultResponse, error) {
	return nil, ErrNotConfigured
}

func (c *StubClient) ResolveURL(path string) string {
	return path
}
