/*
Package resilience provides the circuit breaker guarding tracking requests.

# Overview

Tracking is best-effort and requests are never retried, so when the tracking
endpoint is down every queued request would still cost a full timeout. The
breaker short-circuits those calls: after FailureThreshold consecutive
failures it opens and rejects requests with ErrCircuitOpen until Cooldown
has elapsed, then lets a single probe through. A successful probe closes the
breaker; a failed one reopens it.

# Usage

	breaker := resilience.New("tracking", resilience.Settings{
		FailureThreshold: 10,
		Cooldown:         30 * time.Second,
	})

	err := breaker.Do(func() error {
		return send(ctx, entry)
	})
*/
package resilience
