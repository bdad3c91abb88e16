package metrics

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// SessionCounter reports how many wizard sessions are live
type SessionCounter interface {
	Count() int
}

// Collector periodically refreshes gauges that are sampled rather than counted
type Collector struct {
	metrics   *Metrics
	sessions  SessionCounter
	interval  time.Duration
	startTime time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCollector creates a new metrics collector
func NewCollector(m *Metrics, sessions SessionCounter, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Collector{
		metrics:   m,
		sessions:  sessions,
		interval:  interval,
		startTime: time.Now(),
		stopCh:    make(chan struct{}),
	}
}

// Start begins the sampling loop
func (c *Collector) Start(ctx context.Context) {
	c.collect()

	c.wg.Add(1)
	go c.loop(ctx)
}

// Stop stops the sampling loop
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.wg.Wait()
}

func (c *Collector) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// collect samples current system and session state
func (c *Collector) collect() {
	c.metrics.UptimeSeconds.Set(time.Since(c.startTime).Seconds())
	c.metrics.Goroutines.Set(float64(runtime.NumGoroutine()))

	if c.sessions != nil {
		c.metrics.SessionsActive.Set(float64(c.sessions.Count()))
	}
}
