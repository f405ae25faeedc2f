package playback

import "sync"

// RemotePlayer stands in for a player that lives in the preview client.
// The client reports its state; seeks requested by the editor are queued
// until the client picks them up with its next report.
type RemotePlayer struct {
	mu      sync.Mutex
	state   State
	seek    float64
	hasSeek bool
}

func NewRemotePlayer() *RemotePlayer {
	return &RemotePlayer{}
}

// Report records the client's latest player state.
func (p *RemotePlayer) Report(st State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = st
	if p.hasSeek {
		p.state.CurrentTime = p.seek
	}
}

func (p *RemotePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.CurrentTime
}

func (p *RemotePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.Duration
}

func (p *RemotePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state.IsPlaying
}

// Seek moves the shadow immediately and queues the seek for the client.
func (p *RemotePlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if seconds < 0 {
		seconds = 0
	}
	p.state.CurrentTime = seconds
	p.seek = seconds
	p.hasSeek = true
}

// PendingSeek returns and clears the queued seek, if any.
func (p *RemotePlayer) PendingSeek() (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasSeek {
		return 0, false
	}
	s := p.seek
	p.seek, p.hasSeek = 0, false
	return s, true
}
