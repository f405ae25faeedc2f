// Package export drives one render job at a time through upload, status
// polling and result resolution against the remote renderer.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/renderer"
)

const (
	DefaultPollInterval = time.Second
	DefaultMaxPolls     = 600

	initialProgress = 0.02
	msgPreparing    = "Preparing upload..."
	msgRendering    = "Rendering..."
	msgRenderError  = "render error"
)

type Options struct {
	SessionID    string
	PollInterval time.Duration
	MaxPolls     int
	Logger       *slog.Logger
	// Observers see every job this orchestrator runs.
	Observers []Observer
}

// Orchestrator owns at most one in-flight export. A new export may start
// once the previous one reached a terminal phase and replaces it.
type Orchestrator struct {
	client renderer.Client
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	job    Job
	done   chan struct{}
	cancel context.CancelFunc
}

func New(client renderer.Client, opts Options) *Orchestrator {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPolls <= 0 {
		opts.MaxPolls = DefaultMaxPolls
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Orchestrator{
		client: client,
		opts:   opts,
		logger: logger,
		job:    Job{Phase: PhaseIdle},
	}
}

// Start begins an export in the background and returns its first snapshot.
// The job lives until ctx is cancelled or it reaches a terminal phase.
func (o *Orchestrator) Start(ctx context.Context, sub renderer.Submission, observers ...Observer) (Job, error) {
	r, err := o.begin(ctx, observers)
	if err != nil {
		return Job{}, err
	}
	go r.run(sub)
	return r.first, nil
}

// Run performs an export synchronously. The returned error is a *Failure
// when the job failed.
func (o *Orchestrator) Run(ctx context.Context, sub renderer.Submission, observers ...Observer) (Job, error) {
	r, err := o.begin(ctx, observers)
	if err != nil {
		return Job{}, err
	}
	r.run(sub)

	final := o.Current()
	if final.Phase == PhaseFailed {
		return final, &Failure{Kind: final.FailureKind, Message: final.Error, Retryable: final.Retryable}
	}
	return final, nil
}

func (o *Orchestrator) Current() Job {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job
}

// Wait blocks until the current job finishes and returns its final snapshot.
func (o *Orchestrator) Wait() Job {
	o.mu.Lock()
	done := o.done
	o.mu.Unlock()

	if done != nil {
		<-done
	}
	return o.Current()
}

// Cancel stops an in-flight job. The job ends failed with kind cancelled.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	cancel := o.cancel
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type run struct {
	o         *Orchestrator
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	observers []Observer
	first     Job
}

func (o *Orchestrator) begin(ctx context.Context, observers []Observer) (*run, error) {
	o.mu.Lock()
	if o.job.Phase.Active() {
		o.mu.Unlock()
		return nil, ErrExportInProgress
	}

	now := time.Now().UTC()
	ctx, cancel := context.WithCancel(ctx)
	r := &run{
		o:         o,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		observers: append(append([]Observer{}, o.opts.Observers...), observers...),
	}
	o.job = Job{
		ID:        uuid.NewString(),
		SessionID: o.opts.SessionID,
		Phase:     PhaseUploading,
		Progress:  initialProgress,
		Message:   msgPreparing,
		StartedAt: now,
		UpdatedAt: now,
	}
	o.done = r.done
	o.cancel = cancel
	r.first = o.job
	o.mu.Unlock()

	o.logger.Info("export started", "job_id", r.first.ID, "session_id", o.opts.SessionID)
	r.notify(r.first)
	return r, nil
}

func (r *run) run(sub renderer.Submission) {
	defer close(r.done)
	defer r.cancel()

	up, err := r.o.client.Upload(r.ctx, sub)
	if err != nil {
		r.fail(r.classify(err))
		return
	}

	r.update(func(j *Job) {
		j.Phase = PhasePolling
		j.Message = msgRendering
		j.RenderJobID = up.JobID
	})

	if f := r.poll(up.StatusURL); f != nil {
		r.fail(f)
		return
	}

	res, err := r.o.client.Result(r.ctx, up.ResultURL)
	if err != nil {
		r.fail(r.classify(err))
		return
	}

	url := r.o.client.ResolveURL(res.URL)
	j := r.update(func(j *Job) {
		j.Phase = PhaseCompleted
		j.Progress = 1
		j.ResultURL = url
	})
	r.o.logger.Info("export completed", "job_id", j.ID, "result_url", url)
}

// poll queries the status endpoint until the renderer reports a terminal
// status or the poll budget runs out.
func (r *run) poll(statusURL string) *Failure {
	ticker := time.NewTicker(r.o.opts.PollInterval)
	defer ticker.Stop()

	for n := r.o.opts.MaxPolls; n > 0; n-- {
		select {
		case <-r.ctx.Done():
			return &Failure{Kind: FailureCancelled, Message: r.ctx.Err().Error()}
		case <-ticker.C:
		}

		st, err := r.o.client.Status(r.ctx, statusURL)
		if err != nil {
			return r.classify(err)
		}

		r.update(func(j *Job) {
			j.Polls++
			if st.Progress != nil {
				j.Progress = math.Max(j.Progress, clamp01(*st.Progress))
			}
			if st.Message != "" {
				j.Message = st.Message
			}
		})

		switch st.Status {
		case renderer.StatusCompleted:
			return nil
		case renderer.StatusError:
			msg := st.Message
			if msg == "" {
				msg = msgRenderError
			}
			return &Failure{Kind: FailureRemote, Message: msg}
		}
	}

	return &Failure{
		Kind:    FailureTimedOut,
		Message: fmt.Sprintf("render did not finish after %d status checks", r.o.opts.MaxPolls),
	}
}

func (r *run) classify(err error) *Failure {
	if r.ctx.Err() != nil {
		return &Failure{Kind: FailureCancelled, Message: r.ctx.Err().Error()}
	}
	var httpErr *renderer.HTTPError
	if errors.As(err, &httpErr) {
		msg := httpErr.Body
		if msg == "" {
			msg = httpErr.Error()
		}
		return &Failure{Kind: FailureTransport, Message: msg, Retryable: httpErr.IsRetryable()}
	}
	return &Failure{Kind: FailureTransport, Message: err.Error(), Retryable: true}
}

func (r *run) fail(f *Failure) {
	j := r.update(func(j *Job) {
		j.Phase = PhaseFailed
		j.Error = f.Message
		j.FailureKind = f.Kind
		j.Retryable = f.Retryable
	})
	r.o.logger.Warn("export failed", "job_id", j.ID, "kind", f.Kind, "error", f.Message)
}

// update mutates the current job under the lock and publishes the result.
func (r *run) update(fn func(*Job)) Job {
	r.o.mu.Lock()
	fn(&r.o.job)
	r.o.job.UpdatedAt = time.Now().UTC()
	snap := r.o.job
	if snap.Phase.Terminal() {
		r.o.cancel = nil
	}
	r.o.mu.Unlock()

	r.notify(snap)
	return snap
}

func (r *run) notify(j Job) {
	for _, obs := range r.observers {
		obs.OnJobUpdate(j)
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}
