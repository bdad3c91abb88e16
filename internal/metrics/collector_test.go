package metrics

import (
	"context"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

type fixedSessions int

func (f fixedSessions) Count() int { return int(f) }

func TestCollectorCollect(t *testing.T) {
	m := New()
	c := NewCollector(m, fixedSessions(7), 0)

	c.collect()

	var sessions dto.Metric
	if err := m.SessionsActive.Write(&sessions); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if sessions.Gauge.GetValue() != 7 {
		t.Errorf("Expected active sessions 7, got %f", sessions.Gauge.GetValue())
	}

	var goroutines dto.Metric
	if err := m.Goroutines.Write(&goroutines); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if goroutines.Gauge.GetValue() < 1 {
		t.Errorf("Expected at least one goroutine, got %f", goroutines.Gauge.GetValue())
	}
}

func TestCollectorStartStop(t *testing.T) {
	m := New()
	c := NewCollector(m, nil, 0)

	c.Start(context.Background())
	c.Stop()
	// Second stop must not panic
	c.Stop()

	var uptime dto.Metric
	if err := m.UptimeSeconds.Write(&uptime); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if uptime.Gauge.GetValue() < 0 {
		t.Errorf("Expected non-negative uptime, got %f", uptime.Gauge.GetValue())
	}
}
