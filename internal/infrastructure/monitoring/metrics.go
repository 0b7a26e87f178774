package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded by the request queue
const (
	DropDisabled = "disabled"
	DropBot      = "bot"
	DropStorage  = "storage"
)

// Send outcomes recorded by the request queue
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Tracker call results. Submitted means handed to the queue, which may still
// drop the request.
const (
	EventSubmitted = "submitted"
	EventInvalid   = "invalid"
	EventDuplicate = "duplicate"
)

// Metrics holds the Prometheus collectors of the tracking client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Queue metrics
	Enqueued     prometheus.Counter
	Dropped      *prometheus.CounterVec
	Sent         *prometheus.CounterVec
	SendDuration *prometheus.HistogramVec
	Backlog      prometheus.Gauge
	Flushes      prometheus.Counter

	// Tracker metrics
	Events *prometheus.CounterVec

	snapshot Snapshot
	mu       sync.Mutex
}

// Snapshot holds running totals for summaries outside Prometheus
type Snapshot struct {
	Enqueued int64
	Dropped  int64
	Sent     int64
	Failed   int64
}

// NewMetrics registers the collectors on reg.
// Pass prometheus.DefaultRegisterer to expose them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Enqueued: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cio_queue_enqueued_total",
				Help: "Total number of tracking requests added to the backlog",
			},
		),
		Dropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cio_queue_dropped_total",
				Help: "Total number of tracking requests dropped before queueing",
			},
			[]string{"reason"},
		),
		Sent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cio_queue_sent_total",
				Help: "Total number of tracking requests dispatched",
			},
			[]string{"method", "outcome"},
		),
		SendDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cio_queue_send_duration_seconds",
				Help:    "Tracking request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		Backlog: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cio_queue_backlog",
				Help: "Number of tracking requests waiting in the persisted backlog",
			},
		),
		Flushes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cio_queue_flushes_total",
				Help: "Total number of unload flushes",
			},
		),
		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cio_tracker_events_total",
				Help: "Total number of tracker calls by event and result",
			},
			[]string{"event", "result"},
		),
	}
}

// RecordEnqueued records an entry added to the backlog
func (m *Metrics) RecordEnqueued(backlog int) {
	if m == nil {
		return
	}
	m.Enqueued.Inc()
	m.Backlog.Set(float64(backlog))

	m.mu.Lock()
	m.snapshot.Enqueued++
	m.mu.Unlock()
}

// RecordDropped records an entry rejected before queueing
func (m *Metrics) RecordDropped(reason string) {
	if m == nil {
		return
	}
	m.Dropped.WithLabelValues(reason).Inc()

	m.mu.Lock()
	m.snapshot.Dropped++
	m.mu.Unlock()
}

// RecordSent records a dispatched entry and its outcome
func (m *Metrics) RecordSent(method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.Sent.WithLabelValues(method, outcome).Inc()
	m.SendDuration.WithLabelValues(method).Observe(duration.Seconds())

	m.mu.Lock()
	if outcome == OutcomeSuccess {
		m.snapshot.Sent++
	} else {
		m.snapshot.Failed++
	}
	m.mu.Unlock()
}

// SetBacklog sets the backlog gauge
func (m *Metrics) SetBacklog(n int) {
	if m == nil {
		return
	}
	m.Backlog.Set(float64(n))
}

// IncFlushes increments the flush counter
func (m *Metrics) IncFlushes() {
	if m == nil {
		return
	}
	m.Flushes.Inc()
}

// RecordEvent records a tracker call
func (m *Metrics) RecordEvent(event, result string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(event, result).Inc()
}

// Snapshot returns a copy of the running totals
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}
