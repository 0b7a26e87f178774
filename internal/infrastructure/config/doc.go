// Package config provides 12-factor configuration for the tracking client.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables.
//
// Configuration Sections:
//   - Tracker: API key, service url, user id and segments
//   - Queue: whether tracking is enabled and the send delay
//   - Storage: backlog database path and local quota
//   - Transport: request timeout and rate limit
//   - Status: listen address of the status server
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
//
// Environment Variables:
//   - CIO_API_KEY, CIO_SERVICE_URL, CIO_USER_ID, CIO_SEGMENTS, CIO_USER_AGENT
//   - CIO_SEND_TRACKING_EVENTS, CIO_TRACKING_SEND_DELAY
//   - CIO_STORAGE_PATH, CIO_LOCAL_QUOTA_BYTES
//   - CIO_REQUEST_TIMEOUT, CIO_RATE_LIMIT_RPS
//   - CIO_STATUS_ADDR
//   - LOG_LEVEL, LOG_DEV
package config
