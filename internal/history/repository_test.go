package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/heimdex/heimdex-editor/internal/db"
	"github.com/heimdex/heimdex-editor/internal/export"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "editor.db"), nil)
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewRepository(database.Conn())
}

func TestRecorder_TracksLatestSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	job := export.Job{
		ID:        "job-1",
		SessionID: "sess-1",
		Phase:     export.PhaseUploading,
		Progress:  0.02,
		Message:   "Preparing upload...",
		StartedAt: start,
		UpdatedAt: start,
	}
	rec.OnJobUpdate(job)

	job.Phase = export.PhaseFailed
	job.Error = "ffmpeg exploded"
	job.FailureKind = export.FailureTransport
	job.Retryable = true
	job.UpdatedAt = start.Add(3 * time.Second)
	rec.OnJobUpdate(job)

	got, err := repo.GetExport(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetExport() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetExport() = nil")
	}
	if got.Phase != export.PhaseFailed || got.Error != "ffmpeg exploded" || !got.Retryable ||
		got.FailureKind != export.FailureTransport || got.SessionID != "sess-1" {
		t.Fatalf("record = %+v", got)
	}
	if !got.StartedAt.Equal(start) || !got.UpdatedAt.Equal(start.Add(3*time.Second)) {
		t.Fatalf("timestamps = %v / %v", got.StartedAt, got.UpdatedAt)
	}
}

func TestListExports_NewestFirst(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Millisecond * 500)
		err := repo.UpsertExport(ctx, export.Job{ID: id, SessionID: "s", Phase: export.PhaseCompleted, StartedAt: at, UpdatedAt: at})
		if err != nil {
			t.Fatalf("UpsertExport(%s) error = %v", id, err)
		}
	}
	if err := repo.UpsertExport(ctx, export.Job{ID: "other", SessionID: "t", Phase: export.PhaseIdle, StartedAt: base, UpdatedAt: base}); err != nil {
		t.Fatal(err)
	}

	jobs, err := repo.ListExports(ctx, 2)
	if err != nil {
		t.Fatalf("ListExports() error = %v", err)
	}
	if len(jobs) != 2 || jobs[0].ID != "c" || jobs[1].ID != "b" {
		t.Fatalf("ListExports() = %v", ids(jobs))
	}

	session, err := repo.ListSessionExports(ctx, "t", 0)
	if err != nil {
		t.Fatalf("ListSessionExports() error = %v", err)
	}
	if len(session) != 1 || session[0].ID != "other" {
		t.Fatalf("ListSessionExports() = %v", ids(session))
	}
}

func TestGetExport_Missing(t *testing.T) {
	got, err := newTestRepo(t).GetExport(context.Background(), "nope")
	if err != nil || got != nil {
		t.Fatalf("GetExport(missing) = %v, %v", got, err)
	}
}

func TestEnsureSecret_Stable(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := EnsureSecret(ctx, repo, KeyAuthToken, 32)
	if err != nil {
		t.Fatalf("EnsureSecret() error = %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("secret length = %d, want 64", len(first))
	}

	second, err := EnsureSecret(ctx, repo, KeyAuthToken, 32)
	if err != nil || second != first {
		t.Fatalf("second EnsureSecret() = %q, %v; want %q", second, err, first)
	}
}

func ids(jobs []*export.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}
