package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/foxzi/groupsend/internal/metrics"
	"github.com/foxzi/groupsend/internal/sender"
	"github.com/foxzi/groupsend/internal/workflow"
)

const waitTimeout = 2 * time.Second

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func readyData() workflow.FlowData {
	return workflow.FlowData{
		Purpose:       "Backend Engineer",
		RawRecipients: "Alice – Acme Corp – alice@acme.com\nBob – Globex – bob@globex.io",
		Ready:         true,
	}
}

func newTestManager(opts Options) (*Manager, *sender.ManualClock) {
	clock := sender.NewManualClock()
	opts.Clock = clock
	opts.Logger = newTestLogger()
	return NewManager(opts), clock
}

func authorize(t *testing.T, s *Session) {
	t.Helper()
	w := s.Workflow()
	for _, step := range []func() error{w.ConfirmRecipients, w.UseDraft, w.AcceptAll, w.FinishPersonalize, w.Authorize} {
		if err := step(); err != nil {
			t.Fatalf("workflow step failed: %v", err)
		}
	}
}

func tick(t *testing.T, clock *sender.ManualClock) {
	t.Helper()
	if !clock.Tick(waitTimeout) {
		t.Fatal("tick was not received")
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestManager_CreateGetDelete(t *testing.T) {
	m, _ := newTestManager(Options{})
	defer m.Close()

	s, err := m.Create(readyData())
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if s.ID() == "" {
		t.Fatal("session id is empty")
	}
	if m.Count() != 1 {
		t.Errorf("Count() = %d, want 1", m.Count())
	}

	got, err := m.Get(s.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != s {
		t.Error("Get() returned a different session")
	}

	if err := m.Delete(s.ID()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := m.Get(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete = %v, want ErrNotFound", err)
	}
	if err := m.Delete(s.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestManager_Limit(t *testing.T) {
	m, _ := newTestManager(Options{MaxSessions: 2})
	defer m.Close()

	for i := 0; i < 2; i++ {
		if _, err := m.Create(readyData()); err != nil {
			t.Fatalf("Create() #%d error = %v", i, err)
		}
	}
	if _, err := m.Create(readyData()); !errors.Is(err, ErrLimitReached) {
		t.Errorf("Create() over limit = %v, want ErrLimitReached", err)
	}
}

func TestManager_ListOrder(t *testing.T) {
	m, _ := newTestManager(Options{})
	defer m.Close()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	var ids []string
	for i := 0; i < 3; i++ {
		s, err := m.Create(readyData())
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		ids = append(ids, s.ID())
		now = now.Add(time.Second)
	}

	list := m.List()
	if len(list) != 3 {
		t.Fatalf("List() returned %d sessions", len(list))
	}
	for i, s := range list {
		if s.ID() != ids[i] {
			t.Errorf("List()[%d] = %s, want %s", i, s.ID(), ids[i])
		}
	}
}

func TestManager_Expire(t *testing.T) {
	m, _ := newTestManager(Options{TTL: time.Minute})
	defer m.Close()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, _ := m.Create(readyData())
	busy, _ := m.Create(readyData())

	now = now.Add(50 * time.Second)
	if _, err := m.Get(busy.ID()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	now = now.Add(20 * time.Second)
	if n := m.expire(now); n != 1 {
		t.Fatalf("expire() = %d, want 1", n)
	}
	if _, err := m.Get(idle.ID()); !errors.Is(err, ErrNotFound) {
		t.Errorf("idle session still present: %v", err)
	}
	if _, err := m.Get(busy.ID()); err != nil {
		t.Errorf("busy session expired: %v", err)
	}
}

func TestManager_StartStop(t *testing.T) {
	m, _ := newTestManager(Options{TTL: time.Minute, CleanupInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	m.Start(ctx)
	if _, err := m.Create(readyData()); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	m.Close()
	if m.Count() != 0 {
		t.Errorf("Count() after Close = %d, want 0", m.Count())
	}
}

func TestSession_ApproveRunsSend(t *testing.T) {
	mt := metrics.New()
	metrics.SetGlobal(mt)
	defer metrics.SetGlobal(nil)

	m, clock := newTestManager(Options{})
	defer m.Close()

	s, _ := m.Create(readyData())
	if s.SendState() != SendIdle {
		t.Errorf("SendState() = %s, want idle", s.SendState())
	}

	authorize(t, s)
	if s.SendState() != SendAwaitingApproval {
		t.Fatalf("SendState() = %s, want awaiting-approval", s.SendState())
	}
	if clock.Active() != 0 {
		t.Fatalf("simulator started before approval")
	}

	if err := s.Approve(time.Now()); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	if s.SendState() != SendSending {
		t.Errorf("SendState() = %s, want sending", s.SendState())
	}

	tick(t, clock)
	tick(t, clock)
	if !s.WaitSent(waitTimeout) {
		t.Fatal("send did not complete")
	}

	v := s.View()
	if v.SendState != SendDone {
		t.Errorf("SendState = %s, want sent", v.SendState)
	}
	if v.Progress != (workflow.Progress{Current: 2, Total: 2, Done: true}) {
		t.Errorf("Progress = %+v", v.Progress)
	}
	if v.Steps[4].Status != workflow.StatusCompleted {
		t.Errorf("send step = %s, want completed", v.Steps[4].Status)
	}
	if v.AuthorizedAt == nil {
		t.Error("AuthorizedAt not set")
	}

	for domain, want := range map[string]float64{"acme.com": 1, "globex.io": 1} {
		var metric dto.Metric
		if err := mt.MessagesSentTotal.WithLabelValues(domain).Write(&metric); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if got := metric.GetCounter().GetValue(); got != want {
			t.Errorf("messages sent to %s = %v, want %v", domain, got, want)
		}
	}
}

func TestSession_ApproveBeforeAuthorize(t *testing.T) {
	m, clock := newTestManager(Options{})
	defer m.Close()

	s, _ := m.Create(readyData())
	if err := s.Approve(time.Now()); !errors.Is(err, workflow.ErrUnavailable) {
		t.Errorf("Approve() = %v, want ErrUnavailable", err)
	}
	if clock.Active() != 0 {
		t.Error("simulator started without authorization")
	}
}

func TestSession_DuplicateApprovalIgnored(t *testing.T) {
	m, clock := newTestManager(Options{})
	defer m.Close()

	s, _ := m.Create(readyData())
	authorize(t, s)

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Approve(at); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	tick(t, clock)
	eventually(t, func() bool { return s.Workflow().Progress().Current == 1 })

	if err := s.Approve(at); err != nil {
		t.Fatalf("repeated Approve() error = %v", err)
	}
	if p := s.Workflow().Progress(); p.Current != 1 {
		t.Errorf("repeated approval restarted the run: %+v", p)
	}
	if clock.Active() != 1 {
		t.Errorf("Active() = %d tickers, want 1", clock.Active())
	}
}

func TestSession_ReapprovalRestarts(t *testing.T) {
	m, clock := newTestManager(Options{})
	defer m.Close()

	s, _ := m.Create(readyData())
	authorize(t, s)

	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	if err := s.Approve(at); err != nil {
		t.Fatalf("Approve() error = %v", err)
	}
	tick(t, clock)

	if err := s.Approve(at.Add(time.Second)); err != nil {
		t.Fatalf("second Approve() error = %v", err)
	}
	if p := s.Workflow().Progress(); p.Current != 0 || p.Total != 2 || p.Done {
		t.Errorf("progress after restart = %+v, want reset", p)
	}

	tick(t, clock)
	tick(t, clock)
	if !s.WaitSent(waitTimeout) {
		t.Fatal("restarted send did not complete")
	}

	if steps := workflow.CompletedCount(s.Workflow().Steps()); steps != 5 {
		t.Errorf("completed steps = %d, want 5", steps)
	}

	if err := s.Approve(at.Add(2 * time.Second)); !errors.Is(err, workflow.ErrUnavailable) {
		t.Errorf("Approve() after completion = %v, want ErrUnavailable", err)
	}
}

func TestSession_AutoApprove(t *testing.T) {
	m, clock := newTestManager(Options{AutoApprove: true})
	defer m.Close()

	s, _ := m.Create(readyData())
	authorize(t, s)

	if s.SendState() != SendSending {
		t.Fatalf("SendState() = %s, want sending", s.SendState())
	}
	tick(t, clock)
	tick(t, clock)
	if !s.WaitSent(waitTimeout) {
		t.Error("auto-approved send did not complete")
	}
}

func TestSession_CloseStopsSend(t *testing.T) {
	m, clock := newTestManager(Options{AutoApprove: true})

	s, _ := m.Create(readyData())
	authorize(t, s)
	tick(t, clock)

	m.Close()

	if clock.Active() != 0 {
		t.Errorf("Active() = %d tickers after Close, want 0", clock.Active())
	}
	if clock.Tick(10 * time.Millisecond) {
		t.Error("tick delivered after Close")
	}
	if s.Workflow().Progress().Done {
		t.Error("torn down send completed")
	}
}
