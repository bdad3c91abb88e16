package sender

import (
	"sync"
	"time"
)

// Ticker delivers ticks until stopped
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Clock creates tickers
type Clock interface {
	NewTicker(d time.Duration) Ticker
}

// RealClock is backed by time.Ticker
type RealClock struct{}

// NewTicker creates a time.Ticker
func (RealClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct {
	t *time.Ticker
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// ManualClock hands out tickers that only fire when Tick is called.
// It lets callers step a simulation deterministically.
type ManualClock struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

// NewManualClock creates a clock with no tickers
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// NewTicker registers a new manual ticker
func (c *ManualClock) NewTicker(d time.Duration) Ticker {
	t := &manualTicker{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
	}
	c.mu.Lock()
	c.tickers = append(c.tickers, t)
	c.mu.Unlock()
	return t
}

// Tick fires the newest running ticker and returns once the tick has been
// received. It returns false if no ticker is running or nobody received
// the tick within timeout.
func (c *ManualClock) Tick(timeout time.Duration) bool {
	t := c.active()
	if t == nil {
		return false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case t.c <- time.Now():
		return true
	case <-t.stopped:
		return false
	case <-timer.C:
		return false
	}
}

// Active returns how many tickers have not been stopped
func (c *ManualClock) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for _, t := range c.tickers {
		if !t.isStopped() {
			n++
		}
	}
	return n
}

func (c *ManualClock) active() *manualTicker {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := len(c.tickers) - 1; i >= 0; i-- {
		if !c.tickers[i].isStopped() {
			return c.tickers[i]
		}
	}
	return nil
}

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.once.Do(func() { close(t.stopped) })
}

func (t *manualTicker) isStopped() bool {
	select {
	case <-t.stopped:
		return true
	default:
		return false
	}
}
