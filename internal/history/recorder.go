package history

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/heimdex/heimdex-editor/internal/export"
)

const (
	writeTimeout = 5 * time.Second

	KeyAuthToken = "auth_token"
	KeyDeviceID  = "device_id"
)

// Recorder is an export observer that keeps a row per job in sync with the
// job's latest snapshot.
type Recorder struct {
	repo   Repository
	logger *slog.Logger
}

func NewRecorder(repo Repository, logger *slog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

func (r *Recorder) OnJobUpdate(j export.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.UpsertExport(ctx, j); err != nil && r.logger != nil {
		r.logger.Error("failed to record export", "job_id", j.ID, "phase", j.Phase, "error", err)
	}
}

// EnsureSecret returns the hex secret stored under key, generating and
// storing one of the given byte length on first use.
func EnsureSecret(ctx context.Context, repo Repository, key string, n int) (string, error) {
	existing, err := repo.GetConfig(ctx, key)
	if err == nil && existing != "" {
		return existing, nil
	}

	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(b)

	if err := repo.SetConfig(ctx, key, secret); err != nil {
		return "", err
	}
	return secret, nil
}
