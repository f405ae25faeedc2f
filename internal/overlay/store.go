// Package overlay holds the overlay data model and the ordered store that
// an editing session mutates.
package overlay

import "sync"

// State is a point-in-time copy of the store.
type State struct {
	Overlays        []Overlay `json:"overlays"`
	ActiveOverlayID string    `json:"active_overlay_id,omitempty"`
}

// Store keeps overlays in insertion order, which is also z-order: later
// entries render on top. Operations on unknown ids are no-ops and report
// false instead of failing.
type Store struct {
	mu       sync.RWMutex
	overlays []Overlay
	activeID string
}

func NewStore() *Store {
	return &Store{}
}

// Add appends o on top of the z-order and makes it the active overlay.
// Geometry is not validated.
func (s *Store) Add(o Overlay) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overlays = append(s.overlays, o)
	s.activeID = o.ID
}

// Delete removes the overlay and clears the selection if it was active.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	s.overlays = append(s.overlays[:idx], s.overlays[idx+1:]...)
	if s.activeID == id {
		s.activeID = ""
	}
	return true
}

// SetActive selects id. An empty id clears the selection; an unknown id
// leaves the selection untouched and returns false.
func (s *Store) SetActive(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.activeID = ""
		return true
	}
	if s.indexOf(id) < 0 {
		return false
	}
	s.activeID = id
	return true
}

// Edit shallow-merges c into the overlay.
func (s *Store) Edit(id string, c Changes) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return false
	}
	c.apply(&s.overlays[idx])
	return true
}

func (s *Store) Get(id string) (Overlay, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return Overlay{}, false
	}
	return s.overlays[idx], true
}

// List returns a copy of the overlays in z-order.
func (s *Store) List() []Overlay {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Overlay, len(s.overlays))
	copy(out, s.overlays)
	return out
}

func (s *Store) ActiveID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.overlays)
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Overlay, len(s.overlays))
	copy(out, s.overlays)
	return State{Overlays: out, ActiveOverlayID: s.activeID}
}

func (s *Store) indexOf(id string) int {
	for i := range s.overlays {
		if s.overlays[i].ID == id {
			return i
		}
	}
	return -1
}
