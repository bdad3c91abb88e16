package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/foxzi/groupsend/internal/email"
	"github.com/foxzi/groupsend/internal/metrics"
	"github.com/foxzi/groupsend/internal/sender"
	"github.com/foxzi/groupsend/internal/template"
	"github.com/foxzi/groupsend/internal/workflow"
)

// SendState tells where a session is in the send hand-off
type SendState string

const (
	SendIdle             SendState = "idle"
	SendAwaitingApproval SendState = "awaiting-approval"
	SendSending          SendState = "sending"
	SendDone             SendState = "sent"
)

// Session is one hosted wizard with its own send simulator
type Session struct {
	id          string
	createdAt   time.Time
	workflow    *workflow.Workflow
	sim         *sender.Simulator
	autoApprove bool
	now         func() time.Time
	logger      *slog.Logger

	mu           sync.Mutex
	lastSeen     time.Time
	awaiting     bool
	requested    int
	authorizedAt time.Time
}

// View is the rendering of a session returned by the API
type View struct {
	ID           string     `json:"id"`
	CreatedAt    time.Time  `json:"created_at"`
	SendState    SendState  `json:"send_state"`
	Requested    int        `json:"requested,omitempty"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty"`
	workflow.Snapshot
}

func newSession(id string, engine *template.Engine, data workflow.FlowData, opts Options, now func() time.Time) *Session {
	s := &Session{
		id:          id,
		createdAt:   now(),
		sim:         sender.New(opts.TickInterval, opts.Clock, opts.Logger.With("session", id)),
		autoApprove: opts.AutoApprove,
		now:         now,
		logger:      opts.Logger.With("session", id),
	}
	s.lastSeen = s.createdAt

	s.workflow = workflow.New(engine, data, workflow.Hooks{
		OnStepsUpdate: s.onStepsUpdate,
		OnRequestSend: s.onRequestSend,
	})
	return s
}

// ID returns the session id
func (s *Session) ID() string {
	return s.id
}

// CreatedAt returns when the session was created
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Workflow returns the wizard state
func (s *Session) Workflow() *workflow.Workflow {
	return s.workflow
}

// Touch records activity on the session
func (s *Session) Touch() {
	s.mu.Lock()
	s.lastSeen = s.now()
	s.mu.Unlock()
}

// LastSeen returns the time of the last activity
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) onStepsUpdate(steps []workflow.Step) {
	if cur := workflow.Current(steps); cur >= 0 {
		s.logger.Debug("steps updated", "current", steps[cur].ID, "completed", workflow.CompletedCount(steps))
		return
	}
	s.logger.Debug("steps updated", "completed", workflow.CompletedCount(steps))
}

func (s *Session) onRequestSend(count int) {
	s.mu.Lock()
	s.awaiting = true
	s.requested = count
	s.mu.Unlock()

	s.logger.Info("send requested", "messages", count, "auto_approve", s.autoApprove)

	if s.autoApprove {
		if err := s.Approve(s.now()); err != nil {
			s.logger.Error("failed to auto-approve send", "error", err)
		}
	}
}

// Approve is the authorization signal for sending. A new timestamp
// (re)starts the simulated send and tears down any run in flight. The
// same timestamp delivered again is ignored.
func (s *Session) Approve(at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.authorizedAt.IsZero() && at.Equal(s.authorizedAt) {
		s.logger.Debug("duplicate authorization ignored", "at", at)
		return nil
	}

	ticket, err := s.workflow.BeginSend()
	if err != nil {
		return fmt.Errorf("failed to start send: %w", err)
	}
	s.authorizedAt = at
	s.awaiting = false

	domains := s.messageDomains()
	s.sim.Activate(ticket.Total, sender.Listener{
		OnTick: func(p sender.Progress) {
			if !s.workflow.RecordProgress(ticket, p.Current) {
				return
			}
			if i := p.Current - 1; i >= 0 && i < len(domains) {
				metrics.IncMessagesSent(domains[i])
			}
		},
		OnDone: func(p sender.Progress) {
			if s.workflow.CompleteSend(ticket) {
				s.logger.Info("all messages sent", "total", p.Total)
			}
		},
	})

	s.logger.Info("send authorized", "at", at, "messages", ticket.Total)
	return nil
}

// messageDomains returns the recipient domain of every message, in order
func (s *Session) messageDomains() []string {
	byID := map[string]string{}
	for _, r := range s.workflow.Recipients() {
		byID[r.ID] = email.Domain(r.Email)
	}

	msgs := s.workflow.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		d := byID[m.RecipientID]
		if d == "" {
			d = "unknown"
		}
		out[i] = d
	}
	return out
}

// SendState returns the current send hand-off state
func (s *Session) SendState() SendState {
	if s.workflow.Progress().Done {
		return SendDone
	}
	if s.sim.Active() != nil {
		return SendSending
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.awaiting {
		return SendAwaitingApproval
	}
	return SendIdle
}

// View renders the session
func (s *Session) View() View {
	v := View{
		ID:        s.id,
		CreatedAt: s.createdAt,
		SendState: s.SendState(),
		Snapshot:  s.workflow.Snapshot(),
	}

	s.mu.Lock()
	v.Requested = s.requested
	if !s.authorizedAt.IsZero() {
		at := s.authorizedAt
		v.AuthorizedAt = &at
	}
	s.mu.Unlock()

	return v
}

// WaitSent blocks until the running send finishes or timeout elapses.
// It reports whether every message was sent.
func (s *Session) WaitSent(timeout time.Duration) bool {
	if run := s.sim.Active(); run != nil {
		done := make(chan struct{})
		go func() {
			run.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(timeout):
		}
	}
	return s.workflow.Progress().Done
}

// Close tears down the send simulator
func (s *Session) Close() {
	s.sim.Stop()
}
