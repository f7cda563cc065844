// Package logging defines the Logger interface every anchorkit component
// accepts, plus two implementations:
//
//   - StructuredLogger, a slog-backed JSON or text logger that carries
//     component, anchor key and session id attributes
//   - NoOpLogger, the default when no logger is configured
//
// LogAssetLoad, LogPlacement and LogSnapshot give asset loads, placements and
// environment captures a consistent shape on any Logger.
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	kit := anchorkit.New(func(o *anchorkit.Options) { o.Logger = logger })
package logging
