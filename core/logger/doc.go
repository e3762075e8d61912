// Package logger provides a structured logging facility based on Zap.
//
// The WithRayID helper extracts the RayID from a Fiber context and attaches it
// to the log entry, so every log line of a request can be correlated.
//
// # Configuration
//
//   - Level: debug (development config) or info, warn, error (production config)
//   - Format: json or console
//
// # Usage
//
//	log, _ := logger.New(&cfg.Log)
//	log.Info("Server started")
//
//	l := logger.WithRayID(log, c)
//	l.Error("Handler failed", zap.Error(err))
package logger
