package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	globalMetrics *Metrics
	globalMu      sync.RWMutex
)

// Metrics holds all Prometheus metrics for groupsend
type Metrics struct {
	// Session counters/gauges
	SessionsCreatedTotal prometheus.Counter
	SessionsExpiredTotal prometheus.Counter
	SessionsActive       prometheus.Gauge

	// Workflow counters
	RecipientsParsedTotal *prometheus.CounterVec
	StepTransitionsTotal  *prometheus.CounterVec
	SendRequestsTotal     prometheus.Counter

	// Simulated delivery
	MessagesSentTotal *prometheus.CounterVec
	SendRunsTotal     *prometheus.CounterVec
	SendRunsActive    prometheus.Gauge

	// API metrics
	APIRequestsTotal          *prometheus.CounterVec
	APIRequestDurationSeconds *prometheus.HistogramVec
	APIErrorsTotal            *prometheus.CounterVec

	// System metrics
	UptimeSeconds prometheus.Gauge
	Goroutines    prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		SessionsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "groupsend_sessions_created_total",
				Help: "Total number of wizard sessions created",
			},
		),
		SessionsExpiredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "groupsend_sessions_expired_total",
				Help: "Total number of wizard sessions removed for inactivity",
			},
		),
		SessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "groupsend_sessions_active",
				Help: "Number of live wizard sessions",
			},
		),

		RecipientsParsedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsend_recipients_parsed_total",
				Help: "Total number of recipient lines parsed",
			},
			[]string{"status"},
		),
		StepTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsend_step_transitions_total",
				Help: "Total number of workflow step status changes",
			},
			[]string{"step", "status"},
		),
		SendRequestsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "groupsend_send_requests_total",
				Help: "Total number of send authorization requests",
			},
		),

		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsend_messages_sent_total",
				Help: "Total number of messages marked sent by the simulator",
			},
			[]string{"domain"},
		),
		SendRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsend_send_runs_total",
				Help: "Total number of simulated send runs by outcome",
			},
			[]string{"result"},
		),
		SendRunsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "groupsend_send_runs_active",
				Help: "Number of simulated send runs in flight",
			},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsend_api_requests_total",
				Help: "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		APIRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "groupsend_api_request_duration_seconds",
				Help:    "API request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		APIErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "groupsend_api_errors_total",
				Help: "Total number of API errors",
			},
			[]string{"error_type"},
		),

		UptimeSeconds: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "groupsend_uptime_seconds",
				Help: "Server uptime in seconds",
			},
		),
		Goroutines: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "groupsend_goroutines",
				Help: "Number of active goroutines",
			},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.SessionsCreatedTotal,
		m.SessionsExpiredTotal,
		m.SessionsActive,
		m.RecipientsParsedTotal,
		m.StepTransitionsTotal,
		m.SendRequestsTotal,
		m.MessagesSentTotal,
		m.SendRunsTotal,
		m.SendRunsActive,
		m.APIRequestsTotal,
		m.APIRequestDurationSeconds,
		m.APIErrorsTotal,
		m.UptimeSeconds,
		m.Goroutines,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// SetGlobal sets the global metrics instance
func SetGlobal(m *Metrics) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalMetrics = m
}

// Global returns the global metrics instance
func Global() *Metrics {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalMetrics
}

// IncSessionsCreated counts a new session
func IncSessionsCreated() {
	if m := Global(); m != nil {
		m.SessionsCreatedTotal.Inc()
	}
}

// IncSessionsExpired counts a session removed by the janitor
func IncSessionsExpired() {
	if m := Global(); m != nil {
		m.SessionsExpiredTotal.Inc()
	}
}

// AddRecipientsParsed counts parsed recipients by status
func AddRecipientsParsed(status string, n int) {
	if n <= 0 {
		return
	}
	if m := Global(); m != nil {
		m.RecipientsParsedTotal.WithLabelValues(status).Add(float64(n))
	}
}

// IncStepTransition counts a step entering a status
func IncStepTransition(step, status string) {
	if m := Global(); m != nil {
		m.StepTransitionsTotal.WithLabelValues(step, status).Inc()
	}
}

// IncSendRequests counts a send authorization request
func IncSendRequests() {
	if m := Global(); m != nil {
		m.SendRequestsTotal.Inc()
	}
}

// IncMessagesSent increments the sent message counter
func IncMessagesSent(domain string) {
	if m := Global(); m != nil {
		m.MessagesSentTotal.WithLabelValues(domain).Inc()
	}
}

// IncSendRunsActive marks a send run as started
func IncSendRunsActive() {
	if m := Global(); m != nil {
		m.SendRunsActive.Inc()
	}
}

// SendRunFinished records how a send run ended and releases the active gauge
func SendRunFinished(result string) {
	if m := Global(); m != nil {
		m.SendRunsTotal.WithLabelValues(result).Inc()
		m.SendRunsActive.Dec()
	}
}
