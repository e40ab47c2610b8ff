// Package logging assembles structured slog loggers and formatting helpers
// used across darkroom services.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so stage code can automatically
// tag log lines with workflow and event identifiers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so every service
// emits data with the same shape.
package logging
