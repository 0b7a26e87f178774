// Package server exposes the tracking client's status over HTTP.
//
// Routes:
//   - GET /health: liveness and uptime
//   - GET /metrics: Prometheus exposition of the queue and tracker metrics
//   - GET /backlog: the persisted request backlog shared by all queues
package server
