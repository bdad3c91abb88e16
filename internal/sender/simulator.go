// Package sender simulates progressive delivery of a batch of messages.
// Nothing leaves the process: a ticker advances a counter until every
// message of the batch is counted as sent.
package sender

import (
	"log/slog"
	"sync"
	"time"

	"github.com/foxzi/groupsend/internal/metrics"
)

// DefaultInterval is the time between two simulated deliveries
const DefaultInterval = 400 * time.Millisecond

// Run outcomes reported to metrics
const (
	ResultCompleted = "completed"
	ResultCancelled = "cancelled"
)

// Progress is the state of a send run
type Progress struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	Done    bool `json:"done"`
}

// Listener receives progress of a single run. Either func may be nil.
// Callbacks run on the run's goroutine.
type Listener struct {
	OnTick func(Progress)
	OnDone func(Progress)
}

// Simulator owns at most one run at a time
type Simulator struct {
	interval time.Duration
	clock    Clock
	logger   *slog.Logger

	mu     sync.Mutex
	active *Run
	seq    int
}

// New creates a simulator. A non-positive interval falls back to
// DefaultInterval and a nil clock to the real one.
func New(interval time.Duration, clock Clock, logger *slog.Logger) *Simulator {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &Simulator{
		interval: interval,
		clock:    clock,
		logger:   logger,
	}
}

// Interval returns the tick period
func (s *Simulator) Interval() time.Duration {
	return s.interval
}

// Activate tears down the run in flight, if any, and starts a new one over
// total messages. With total <= 0 nothing is started and nil is returned.
func (s *Simulator) Activate(total int, l Listener) *Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.active.Cancel()
		s.active = nil
	}

	if total <= 0 {
		s.logger.Debug("send run not started, nothing to send")
		return nil
	}

	s.seq++
	r := &Run{
		id:       s.seq,
		listener: l,
		ticker:   s.clock.NewTicker(s.interval),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
		progress: Progress{Total: total},
		logger:   s.logger.With("run", s.seq, "total", total),
	}
	s.active = r

	metrics.IncSendRunsActive()
	r.logger.Info("send run started", "interval", s.interval)

	go r.loop()
	return r
}

// Active returns the run in flight, or nil
func (s *Simulator) Active() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil && s.active.Finished() {
		return nil
	}
	return s.active
}

// Stop cancels the active run and waits for it to exit
func (s *Simulator) Stop() {
	s.mu.Lock()
	r := s.active
	s.active = nil
	s.mu.Unlock()

	if r != nil {
		r.Cancel()
		r.Wait()
	}
}

// Run is the handle of one send run
type Run struct {
	id       int
	listener Listener
	ticker   Ticker
	logger   *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu       sync.Mutex
	progress Progress
}

// ID returns the sequence number of the run within its simulator
func (r *Run) ID() int {
	return r.id
}

// Cancel stops the run. It is safe to call more than once and does not
// wait for the run goroutine.
func (r *Run) Cancel() {
	r.stopOnce.Do(func() { close(r.stopCh) })
}

// Wait blocks until the run goroutine has exited
func (r *Run) Wait() {
	<-r.done
}

// Finished reports whether the run goroutine has exited
func (r *Run) Finished() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Progress returns a copy of the current progress
func (r *Run) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

func (r *Run) cancelled() bool {
	select {
	case <-r.stopCh:
		return true
	default:
		return false
	}
}

func (r *Run) loop() {
	defer close(r.done)
	defer r.ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.finish(ResultCancelled)
			return
		case <-r.ticker.C():
			// A tick may race with Cancel; drop it.
			if r.cancelled() {
				r.finish(ResultCancelled)
				return
			}

			r.mu.Lock()
			r.progress.Current++
			if r.progress.Current >= r.progress.Total {
				r.progress.Done = true
			}
			p := r.progress
			r.mu.Unlock()

			if r.listener.OnTick != nil {
				r.listener.OnTick(p)
			}

			if p.Done {
				r.ticker.Stop()
				if r.listener.OnDone != nil {
					r.listener.OnDone(p)
				}
				r.finish(ResultCompleted)
				return
			}
		}
	}
}

func (r *Run) finish(result string) {
	metrics.SendRunFinished(result)
	p := r.Progress()
	r.logger.Info("send run finished", "result", result, "current", p.Current)
}
