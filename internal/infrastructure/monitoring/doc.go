/*
Package monitoring provides Prometheus metrics for the tracking client.

# Overview

Collectors cover the request queue (enqueued, dropped by reason, dispatched
by method and outcome, dispatch latency, backlog size, unload flushes) and
the tracker facade (calls by event and result). Collectors are registered
on an injected prometheus.Registerer so several clients, or tests, can use
separate registries.

Every recording method is safe on a nil *Metrics, which lets components
treat metrics as optional.

# Usage

	metrics := monitoring.NewMetrics(prometheus.DefaultRegisterer)

	timer := monitoring.NewTimer(metrics, "POST")
	err := sender.Send(ctx, entry)
	timer.Stop(monitoring.OutcomeSuccess)

# Metrics Endpoint

	import "github.com/prometheus/client_golang/prometheus/promhttp"
	http.Handle("/metrics", promhttp.Handler())
*/
package monitoring
