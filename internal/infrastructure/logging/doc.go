// Package logging provides structured logging using uber/zap.
//
// Two modes are offered:
//   - Production: JSON output for machine parsing
//   - Development: colored console output for human readability
//
// Example Usage:
//
//	logger := logging.NewDefault()
//	logger.Info("Session initialized", zap.Int("images", n))
//	logger.Error("Commit move failed", zap.Error(err))
package logging
