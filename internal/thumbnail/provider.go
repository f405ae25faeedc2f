// Package thumbnail produces preview frames for the timeline strips.
package thumbnail

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/heimdex/heimdex-editor/internal/playback"
)

const (
	maxStderrBytes = 4 * 1024
	// FrameWidth is the pixel width frames are scaled to, twice the
	// on-track cell width so strips stay sharp on dense displays.
	FrameWidth     = 96
	defaultTimeout = 20 * time.Second
)

var ErrUnavailable = errors.New("thumbnailing unavailable")

// Provider maps a source asset and a timestamp to an image URI. Calls may
// fail individually.
type Provider interface {
	Thumbnail(ctx context.Context, sourceURI string, timestampMs int64) (string, error)
}

type Config struct {
	FFmpegPath string // empty = look up on PATH
	CacheDir   string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// FFmpegProvider extracts single frames with an ffmpeg subprocess and keeps
// them in a content-addressed cache directory.
type FFmpegProvider struct {
	cfg    Config
	ffmpeg string
}

func NewFFmpegProvider(cfg Config) (*FFmpegProvider, error) {
	bin, err := resolveFFmpeg(cfg.FFmpegPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail cache: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	cfg.Logger.Info("thumbnail provider initialised", "ffmpeg", bin, "cache_dir", cfg.CacheDir)
	return &FFmpegProvider{cfg: cfg, ffmpeg: bin}, nil
}

func (p *FFmpegProvider) CacheDir() string {
	return p.cfg.CacheDir
}

func (p *FFmpegProvider) Thumbnail(ctx context.Context, sourceURI string, timestampMs int64) (string, error) {
	out := filepath.Join(p.cfg.CacheDir, CacheName(sourceURI, timestampMs))
	if _, err := os.Stat(out); err == nil {
		return "file://" + out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-ss", strconv.FormatFloat(float64(timestampMs)/1000, 'f', 3, 64),
		"-i", playback.LocalPath(sourceURI),
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:-1", FrameWidth),
		out,
	}
	cmd := exec.CommandContext(ctx, p.ffmpeg, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderr, limit: maxStderrBytes}
	cmd.Stdout = io.Discard

	start := time.Now()
	if err := cmd.Run(); err != nil {
		p.cfg.Logger.Debug("thumbnail extraction failed",
			"timestamp_ms", timestampMs,
			"duration_ms", time.Since(start).Milliseconds(),
			"stderr_tail", truncate(stderr.String(), 256),
		)
		return "", fmt.Errorf("ffmpeg at %dms: %w", timestampMs, err)
	}
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("ffmpeg produced no frame at %dms", timestampMs)
	}
	return "file://" + out, nil
}

// CacheName is the file name a frame is cached under.
func CacheName(sourceURI string, timestampMs int64) string {
	sum := sha256.Sum256([]byte(sourceURI))
	return fmt.Sprintf("%s_%d.jpg", hex.EncodeToString(sum[:8]), timestampMs)
}

// StubProvider is used when ffmpeg is not installed. Every call fails, so
// strips stay on their placeholder.
type StubProvider struct {
	logger *slog.Logger
}

func NewStubProvider(logger *slog.Logger) *StubProvider {
	return &StubProvider{logger: logger}
}

func (p *StubProvider) Thumbnail(_ context.Context, sourceURI string, timestampMs int64) (string, error) {
	if p.logger != nil {
		p.logger.Debug("thumbnail stub: frame requested", "timestamp_ms", timestampMs)
	}
	return "", ErrUnavailable
}

// New returns an ffmpeg-backed provider, or the stub when ffmpeg cannot be
// found.
func New(cfg Config) Provider {
	p, err := NewFFmpegProvider(cfg)
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("ffmpeg not available, timeline thumbnails disabled", "error", err)
		}
		return NewStubProvider(cfg.Logger)
	}
	return p
}

func resolveFFmpeg(preferred string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured ffmpeg %q not found", preferred)
	}
	p, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("no ffmpeg binary found on PATH")
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter keeps only the last limit bytes written to it.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
