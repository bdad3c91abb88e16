package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Fatal("New() returned nil")
	}

	if m.Registry() == nil {
		t.Error("Registry() returned nil")
	}

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() failed: %v", err)
	}
	for _, f := range families {
		if len(f.GetName()) < len("groupsend_") || f.GetName()[:len("groupsend_")] != "groupsend_" {
			t.Errorf("metric %q is not namespaced", f.GetName())
		}
	}
}

func TestGlobalMetrics(t *testing.T) {
	if Global() != nil {
		t.Error("Global() should be nil before SetGlobal")
	}

	m := New()
	SetGlobal(m)

	if Global() != m {
		t.Error("Global() did not return the set metrics")
	}

	SetGlobal(nil)
}

func TestIncMessagesSent(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncMessagesSent("acme.com")
	IncMessagesSent("acme.com")
	IncMessagesSent("globex.io")

	counter, err := m.MessagesSentTotal.GetMetricWithLabelValues("acme.com")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}

	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}

	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected counter value 2, got %f", metric.Counter.GetValue())
	}
}

func TestSendRunGauge(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	IncSendRunsActive()
	IncSendRunsActive()
	SendRunFinished("completed")

	var active dto.Metric
	if err := m.SendRunsActive.Write(&active); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if active.Gauge.GetValue() != 1 {
		t.Errorf("Expected active runs 1, got %f", active.Gauge.GetValue())
	}

	counter, err := m.SendRunsTotal.GetMetricWithLabelValues("completed")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	var done dto.Metric
	if err := counter.Write(&done); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if done.Counter.GetValue() != 1 {
		t.Errorf("Expected completed runs 1, got %f", done.Counter.GetValue())
	}
}

func TestAddRecipientsParsed(t *testing.T) {
	m := New()
	SetGlobal(m)
	defer SetGlobal(nil)

	AddRecipientsParsed("ready", 3)
	AddRecipientsParsed("ready", 0)
	AddRecipientsParsed("missing", 1)

	counter, err := m.RecipientsParsedTotal.GetMetricWithLabelValues("ready")
	if err != nil {
		t.Fatalf("Failed to get counter: %v", err)
	}
	var metric dto.Metric
	if err := counter.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 3 {
		t.Errorf("Expected 3 ready recipients, got %f", metric.Counter.GetValue())
	}
}

func TestGlobalNilSafe(t *testing.T) {
	SetGlobal(nil)

	// These should not panic when global is nil
	IncSessionsCreated()
	IncSessionsExpired()
	AddRecipientsParsed("ready", 1)
	IncStepTransition("review", "completed")
	IncSendRequests()
	IncMessagesSent("acme.com")
	IncSendRunsActive()
	SendRunFinished("cancelled")
}
