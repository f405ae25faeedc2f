package playback

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestClock_ApplyPartial(t *testing.T) {
	c := NewClock()
	c.Apply(Full(State{CurrentTime: 1, Duration: 10, IsPlaying: true}))

	now := 4.5
	st := c.Apply(Update{CurrentTime: &now})

	if st.CurrentTime != 4.5 || st.Duration != 10 || !st.IsPlaying {
		t.Fatalf("state = %+v", st)
	}
}

func TestClock_OnChangeReceivesState(t *testing.T) {
	c := NewClock()
	var got []State
	c.OnChange(func(st State) { got = append(got, st) })

	playing := true
	c.Apply(Update{IsPlaying: &playing})

	if len(got) != 1 || !got[0].IsPlaying {
		t.Fatalf("listener got %+v", got)
	}
}

type fakePlayer struct {
	mu       sync.Mutex
	current  float64
	duration float64
	playing  bool
	reads    int
}

func (p *fakePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	return p.current
}

func (p *fakePlayer) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

func (p *fakePlayer) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = seconds
}

func (p *fakePlayer) readCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

func TestPoller_TickRoundsDurationUp(t *testing.T) {
	player := &fakePlayer{current: 2.5, duration: 12.2, playing: true}
	clock := NewClock()
	p := NewPoller(player, clock, time.Millisecond, nil)

	st := p.Tick()
	if st.Duration != 13 || st.CurrentTime != 2.5 || !st.IsPlaying {
		t.Fatalf("Tick() = %+v", st)
	}
	if clock.State() != st {
		t.Fatalf("clock = %+v, want %+v", clock.State(), st)
	}
}

func TestPoller_PublishesUntilStopped(t *testing.T) {
	player := &fakePlayer{current: 3, duration: 10}
	clock := NewClock()
	p := NewPoller(player, clock, time.Millisecond, nil)

	p.Start(context.Background())
	if !p.Running() {
		t.Fatal("poller not running after Start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for clock.State().CurrentTime != 3 {
		if time.Now().After(deadline) {
			t.Fatal("poller never published player state")
		}
		time.Sleep(time.Millisecond)
	}

	p.Stop()
	if p.Running() {
		t.Fatal("poller running after Stop")
	}

	reads := player.readCount()
	time.Sleep(20 * time.Millisecond)
	if player.readCount() != reads {
		t.Fatal("player read after Stop returned")
	}
}

func TestPoller_StopsWithContext(t *testing.T) {
	player := &fakePlayer{}
	p := NewPoller(player, NewClock(), time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	// Stop still returns after the loop already exited on its own.
	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked after context cancel")
	}
}

func TestRemotePlayer_SeekQueuedForClient(t *testing.T) {
	p := NewRemotePlayer()
	p.Report(State{CurrentTime: 1, Duration: 20, IsPlaying: true})

	p.Seek(7)
	if p.CurrentTime() != 7 {
		t.Fatalf("CurrentTime() = %v, want 7", p.CurrentTime())
	}

	// A stale report does not undo a queued seek.
	p.Report(State{CurrentTime: 1.2, Duration: 20, IsPlaying: true})
	if p.CurrentTime() != 7 {
		t.Fatalf("CurrentTime() after stale report = %v, want 7", p.CurrentTime())
	}

	s, ok := p.PendingSeek()
	if !ok || s != 7 {
		t.Fatalf("PendingSeek() = %v %v, want 7 true", s, ok)
	}
	if _, ok := p.PendingSeek(); ok {
		t.Fatal("PendingSeek() should clear after read")
	}

	p.Seek(-3)
	if p.CurrentTime() != 0 {
		t.Fatalf("negative seek = %v, want 0", p.CurrentTime())
	}
}
