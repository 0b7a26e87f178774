package monitoring

import "time"

// Timer measures a single dispatch
type Timer struct {
	start   time.Time
	metrics *Metrics
	method  string
}

// NewTimer starts a timer for a request with the given HTTP method
func NewTimer(metrics *Metrics, method string) *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: metrics,
		method:  method,
	}
}

// Stop records the elapsed time with the given outcome
func (t *Timer) Stop(outcome string) time.Duration {
	duration := time.Since(t.start)
	t.metrics.RecordSent(t.method, outcome, duration)
	return duration
}
