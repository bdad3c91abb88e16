// Package session hosts wizard sessions for the API and the CLI
package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foxzi/groupsend/internal/metrics"
	"github.com/foxzi/groupsend/internal/sender"
	"github.com/foxzi/groupsend/internal/template"
	"github.com/foxzi/groupsend/internal/workflow"
)

var (
	// ErrNotFound is returned for an unknown session id
	ErrNotFound = errors.New("session not found")
	// ErrLimitReached is returned when MaxSessions sessions are live
	ErrLimitReached = errors.New("session limit reached")
)

// Options configures a Manager
type Options struct {
	TickInterval    time.Duration
	AutoApprove     bool
	TTL             time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	Clock           sender.Clock
	Logger          *slog.Logger
}

// Manager owns the live sessions
type Manager struct {
	opts   Options
	engine *template.Engine
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a session manager
func NewManager(opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = sender.DefaultInterval
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = time.Minute
	}

	return &Manager{
		opts:     opts,
		engine:   template.NewEngine(),
		logger:   opts.Logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}
}

// Create starts a new session seeded from data
func (m *Manager) Create(data workflow.FlowData) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		return nil, ErrLimitReached
	}

	id := uuid.New().String()
	s := newSession(id, m.engine, data, m.opts, m.now)
	m.sessions[id] = s

	metrics.IncSessionsCreated()
	m.logger.Info("session created", "session", id, "recipients", len(s.workflow.Recipients()), "ready", data.Ready)

	return s, nil
}

// Get returns a session and records activity on it
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	s.Touch()
	return s, nil
}

// List returns every session, oldest first
func (m *Manager) List() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].createdAt.Equal(out[j].createdAt) {
			return out[i].id < out[j].id
		}
		return out[i].createdAt.Before(out[j].createdAt)
	})
	return out
}

// Count returns the number of live sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Delete tears down and removes a session
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	s.Close()
	m.logger.Info("session deleted", "session", id)
	return nil
}

// Start runs the janitor that expires idle sessions. It does nothing
// when TTL is zero.
func (m *Manager) Start(ctx context.Context) {
	if m.opts.TTL <= 0 {
		return
	}

	m.wg.Add(1)
	go m.janitor(ctx)

	m.logger.Info("session janitor started", "ttl", m.opts.TTL, "interval", m.opts.CleanupInterval)
}

func (m *Manager) janitor(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			if n := m.expire(m.now()); n > 0 {
				m.logger.Info("expired idle sessions", "count", n)
			}
		}
	}
}

// expire removes sessions idle since before now-TTL
func (m *Manager) expire(now time.Time) int {
	cutoff := now.Add(-m.opts.TTL)

	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.LastSeen().Before(cutoff) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
		metrics.IncSessionsExpired()
		m.logger.Debug("session expired", "session", s.id)
	}
	return len(expired)
}

// Close stops the janitor and tears down every session
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()

	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.logger.Info("session manager stopped", "closed", len(sessions))
}
