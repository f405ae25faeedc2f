package renderer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/playback"
)

const (
	uploadPath      = "/api/upload"
	maxErrorBody    = 4096
	defaultTimeout  = 60 * time.Second
	requestIDHeader = "X-Request-Id"
)

// HTTPClient is the production renderer client. Uploads use a client without
// a timeout since they may outlast it; ctx is their only bound.
type HTTPClient struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client
	logger       *slog.Logger
}

// NewHTTPClient builds a client for the renderer at baseURL. The timeout
// bounds the polling and result requests; uploads are bounded only by ctx
// since the body may be large.
func NewHTTPClient(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPClient {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &HTTPClient{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		uploadClient: &http.Client{},
		logger:       logger,
	}
}

func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

func (c *HTTPClient) ResolveURL(p string) string {
	if u, err := url.Parse(p); err == nil && u.IsAbs() {
		return p
	}
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return c.baseURL + p
}

// Upload streams the multipart submission. The body is produced while it is
// sent, so asset files are never buffered in memory.
func (c *HTTPClient) Upload(ctx context.Context, sub Submission) (*UploadResponse, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeSubmission(mw, sub))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+uploadPath, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	c.logger.Info("uploading export to renderer",
		"url", req.URL.String(),
		"overlay_count", len(sub.Overlays),
	)

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	var out UploadResponse
	if err := decode(resp, "upload", &out); err != nil {
		return nil, err
	}
	if out.StatusURL == "" || out.ResultURL == "" {
		return nil, fmt.Errorf("upload response missing status or result url")
	}

	c.logger.Info("renderer accepted export", "render_job_id", out.JobID)
	return &out, nil
}

func (c *HTTPClient) Status(ctx context.Context, statusURL string) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.get(ctx, "status", statusURL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Result(ctx context.Context, resultURL string) (*ResultResponse, error) {
	var out ResultResponse
	if err := c.get(ctx, "result", resultURL, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) get(ctx context.Context, op, p string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ResolveURL(p), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	return decode(resp, op, v)
}

func decode(resp *http.Response, op string, v any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func writeSubmission(mw *multipart.Writer, sub Submission) error {
	meta, err := json.Marshal(BuildMetadata(sub.Overlays))
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := mw.WriteField("metadata", string(meta)); err != nil {
		return err
	}

	if err := writeFile(mw, "video", baseVideoName, "video/mp4", sub.BaseVideo); err != nil {
		return err
	}

	for _, o := range sub.Overlays {
		if !o.Kind.HasAsset() {
			continue
		}
		name := AssetName(o)
		if err := writeFile(mw, "assets", name, assetContentType(o, name), o.Content); err != nil {
			return err
		}
	}
	return mw.Close()
}

func writeFile(mw *multipart.Writer, field, name, contentType, ref string) error {
	f, err := os.Open(playback.LocalPath(ref))
	if err != nil {
		return fmt.Errorf("open %s asset: %w", field, err)
	}
	defer f.Close()

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy %s asset: %w", field, err)
	}
	return nil
}
