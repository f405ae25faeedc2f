// Package history persists export job records and small agent settings.
package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/heimdex/heimdex-editor/internal/export"
)

const defaultListLimit = 50

type Repository interface {
	UpsertExport(ctx context.Context, j export.Job) error
	GetExport(ctx context.Context, id string) (*export.Job, error)
	ListExports(ctx context.Context, limit int) ([]*export.Job, error)
	ListSessionExports(ctx context.Context, sessionID string, limit int) ([]*export.Job, error)

	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const exportColumns = `id, session_id, render_job_id, phase, progress, message, result_url, error, failure_kind, retryable, created_at, updated_at`

func (r *SQLiteRepository) UpsertExport(ctx context.Context, j export.Job) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO exports (`+exportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			render_job_id = excluded.render_job_id,
			phase = excluded.phase,
			progress = excluded.progress,
			message = excluded.message,
			result_url = excluded.result_url,
			error = excluded.error,
			failure_kind = excluded.failure_kind,
			retryable = excluded.retryable,
			updated_at = excluded.updated_at
	`,
		j.ID, j.SessionID, nullString(j.RenderJobID), string(j.Phase), j.Progress,
		nullString(j.Message), nullString(j.ResultURL), nullString(j.Error),
		nullString(string(j.FailureKind)), boolToInt(j.Retryable),
		formatTime(j.StartedAt), formatTime(j.UpdatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetExport(ctx context.Context, id string) (*export.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+exportColumns+` FROM exports WHERE id = ?`, id)
	j, err := scanExport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return j, err
}

func (r *SQLiteRepository) ListExports(ctx context.Context, limit int) ([]*export.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+exportColumns+` FROM exports ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExports(rows)
}

func (r *SQLiteRepository) ListSessionExports(ctx context.Context, sessionID string, limit int) ([]*export.Job, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+exportColumns+` FROM exports WHERE session_id = ? ORDER BY created_at DESC, id LIMIT ?
	`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanExports(rows)
}

func (r *SQLiteRepository) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return value, err
}

func (r *SQLiteRepository) SetConfig(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExport(s scanner) (*export.Job, error) {
	var (
		j                                          export.Job
		phase                                      string
		renderID, msg, resultURL, errMsg, failKind sql.NullString
		retryable                                  int
		createdAt, updatedAt                       string
	)
	err := s.Scan(&j.ID, &j.SessionID, &renderID, &phase, &j.Progress, &msg, &resultURL,
		&errMsg, &failKind, &retryable, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	j.Phase = export.Phase(phase)
	j.RenderJobID = renderID.String
	j.Message = msg.String
	j.ResultURL = resultURL.String
	j.Error = errMsg.String
	j.FailureKind = export.FailureKind(failKind.String)
	j.Retryable = retryable == 1
	j.StartedAt = parseTime(createdAt)
	j.UpdatedAt = parseTime(updatedAt)
	return &j, nil
}

func scanExports(rows *sql.Rows) ([]*export.Job, error) {
	jobs := []*export.Job{}
	for rows.Next() {
		j, err := scanExport(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
