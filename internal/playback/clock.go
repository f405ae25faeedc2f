// Package playback mirrors the media player into a clock model that the
// rest of the editor reads, and serves media files to the preview player.
package playback

import "sync"

// State is the shadow of the live player. CurrentTime is expected to stay
// within [0, Duration] but the player may violate that transiently.
type State struct {
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	IsPlaying   bool    `json:"is_playing"`
}

// Update is a partial state change; nil fields are kept.
type Update struct {
	CurrentTime *float64 `json:"current_time,omitempty"`
	Duration    *float64 `json:"duration,omitempty"`
	IsPlaying   *bool    `json:"is_playing,omitempty"`
}

// Clock holds the latest State and notifies listeners after every Apply.
type Clock struct {
	mu        sync.RWMutex
	state     State
	listeners []func(State)
}

func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Apply merges u into the current state and returns the result.
func (c *Clock) Apply(u Update) State {
	c.mu.Lock()
	if u.CurrentTime != nil {
		c.state.CurrentTime = *u.CurrentTime
	}
	if u.Duration != nil {
		c.state.Duration = *u.Duration
	}
	if u.IsPlaying != nil {
		c.state.IsPlaying = *u.IsPlaying
	}
	st := c.state
	listeners := make([]func(State), len(c.listeners))
	copy(listeners, c.listeners)
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(st)
	}
	return st
}

// OnChange registers fn to run after every Apply. Listeners run on the
// goroutine that called Apply, outside the clock's lock.
func (c *Clock) OnChange(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Full builds an Update that sets every field of st.
func Full(st State) Update {
	return Update{CurrentTime: &st.CurrentTime, Duration: &st.Duration, IsPlaying: &st.IsPlaying}
}
