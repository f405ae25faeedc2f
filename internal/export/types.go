package export

import (
	"errors"
	"fmt"
	"time"
)

var ErrExportInProgress = errors.New("an export is already in progress")

type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseUploading Phase = "uploading"
	PhasePolling   Phase = "polling"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// Active reports whether a job in this phase is still in flight.
func (p Phase) Active() bool {
	return p == PhaseUploading || p == PhasePolling
}

func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseFailed
}

type FailureKind string

const (
	FailureTransport FailureKind = "transport"
	FailureRemote    FailureKind = "remote"
	FailureTimedOut  FailureKind = "timed_out"
	FailureCancelled FailureKind = "cancelled"
)

// Failure is the terminal error of a job.
type Failure struct {
	Kind      FailureKind
	Message   string
	Retryable bool
}

func (f *Failure) Error() string {
	return fmt.Sprintf("export %s: %s", f.Kind, f.Message)
}

// Job is a point-in-time snapshot of one export.
type Job struct {
	ID          string      `json:"id"`
	SessionID   string      `json:"session_id,omitempty"`
	Phase       Phase       `json:"phase"`
	Progress    float64     `json:"progress"`
	Message     string      `json:"message,omitempty"`
	ResultURL   string      `json:"result_url,omitempty"`
	Error       string      `json:"error,omitempty"`
	FailureKind FailureKind `json:"failure_kind,omitempty"`
	Retryable   bool        `json:"retryable,omitempty"`
	RenderJobID string      `json:"render_job_id,omitempty"`
	Polls       int         `json:"polls"`
	StartedAt   time.Time   `json:"started_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Observer receives every snapshot of a job, in order, from the goroutine
// running it.
type Observer interface {
	OnJobUpdate(Job)
}

type ObserverFunc func(Job)

func (f ObserverFunc) OnJobUpdate(j Job) { f(j) }
