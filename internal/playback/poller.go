package playback

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// DefaultFrameInterval approximates one animation frame at 60Hz.
const DefaultFrameInterval = 16 * time.Millisecond

// Player is the externally owned media player. Only the Poller reads it;
// the rest of the editor sees the Clock.
type Player interface {
	CurrentTime() float64
	Duration() float64
	Playing() bool
	Seek(seconds float64)
}

// Poller republishes player state into a Clock once per frame until it is
// stopped. It must be stopped before the player is disposed.
type Poller struct {
	player   Player
	clock    *Clock
	interval time.Duration
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPoller(player Player, clock *Clock, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Poller{
		player:   player,
		clock:    clock,
		interval: interval,
		logger:   logger,
	}
}

// Start arms the repeating task. Calling Start on a running poller is a
// no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.loop(ctx, p.done)
}

// Stop disarms the task and waits for the loop to exit, so no tick reads
// the player after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if p.logger != nil {
		p.logger.Debug("player poller started", "interval", p.interval)
	}

	for {
		select {
		case <-ctx.Done():
			if p.logger != nil {
				p.logger.Debug("player poller stopped")
			}
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick reads the player once and publishes into the clock. Duration is
// rounded up to whole seconds.
func (p *Poller) Tick() State {
	st := State{
		CurrentTime: p.player.CurrentTime(),
		Duration:    math.Ceil(p.player.Duration()),
		IsPlaying:   p.player.Playing(),
	}
	return p.clock.Apply(Full(st))
}
