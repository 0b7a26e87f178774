// Package logging provides structured logging using uber/zap.
//
// Two encodings are available:
//   - Production: JSON on stderr for machine parsing
//   - Development: colored console output for human readability
//
// Tracking is best-effort, so most of what the client logs (dropped events,
// swallowed transport and storage errors) is emitted at debug level.
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("tracker ready", zap.String("service_url", cfg.ServiceURL))
//	logger.Debug("tracking request failed", zap.Error(err))
package logging
