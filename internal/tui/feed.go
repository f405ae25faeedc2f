package tui

import (
	"sync"

	"github.com/heimdex/heimdex-editor/internal/export"
)

// Feed is an export observer that hands job snapshots to the progress view.
// Once closed, snapshots are dropped so the export never blocks on a view
// that has gone away.
type Feed struct {
	ch        chan export.Job
	closed    chan struct{}
	closeOnce sync.Once
}

func NewFeed() *Feed {
	return &Feed{
		ch:     make(chan export.Job, 16),
		closed: make(chan struct{}),
	}
}

func (f *Feed) OnJobUpdate(j export.Job) {
	select {
	case f.ch <- j:
	case <-f.closed:
	}
}

// Updates delivers snapshots in the order the export produced them.
func (f *Feed) Updates() <-chan export.Job {
	return f.ch
}

func (f *Feed) Close() {
	f.closeOnce.Do(func() { close(f.closed) })
}
