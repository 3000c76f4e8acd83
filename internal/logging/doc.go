// Package logging assembles structured slog loggers and formatting helpers used
// across shelfmark.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so request handlers can tag log
// lines with the acting user, the pending row, and a correlation ID. The
// package also provides a no-op logger for tests and wiring code that cannot fail.
package logging
