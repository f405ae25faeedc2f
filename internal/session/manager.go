package session

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/heimdex/heimdex-editor/internal/logging"
	"github.com/heimdex/heimdex-editor/internal/renderer"
	"github.com/heimdex/heimdex-editor/internal/thumbnail"
)

// Manager keeps the open sessions of the agent. Sessions live in memory
// only and are gone after a restart.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	seq      uint64
}

func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = renderer.NewStubClient(cfg.Logger)
	}
	if cfg.Thumbnails == nil {
		cfg.Thumbnails = thumbnail.NewStubProvider(cfg.Logger)
	}
	return &Manager{
		cfg:      cfg,
		logger:   logging.WithComponent(cfg.Logger, "sessions"),
		sessions: make(map[string]*Session),
	}
}

// Create opens a session on a base video and starts polling its player.
func (m *Manager) Create(p Params) (*Session, error) {
	if p.BaseVideo == "" {
		return nil, ErrNoBaseVideo
	}

	s := newSession(uuid.NewString(), p, m.cfg)

	m.mu.Lock()
	m.seq++
	s.seq = m.seq
	m.sessions[s.id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info("session opened",
		"session_id", s.id,
		"base_video", logging.SanitizePath(p.BaseVideo),
		"open", n,
	)
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close tears down one session.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	return nil
}

// CloseAll tears down every session. Used on shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
	if len(all) > 0 {
		m.logger.Info("all sessions closed", "count", len(all))
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// List returns the open sessions, oldest first.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].seq < out[j].seq
	})
	return out
}

// ActiveExports counts sessions with an export in flight.
func (m *Manager) ActiveExports() int {
	n := 0
	for _, s := range m.List() {
		if s.ExportStatus().Phase.Active() {
			n++
		}
	}
	return n
}

// CancelExports cancels every in-flight export and returns how many were
// running.
func (m *Manager) CancelExports() int {
	n := 0
	for _, s := range m.List() {
		if s.ExportStatus().Phase.Active() {
			s.CancelExport()
			n++
		}
	}
	if n > 0 {
		m.logger.Info("exports cancelled", "count", n)
	}
	return n
}
