// Package logging builds slog loggers with console and JSON handlers and
// provides shared attribute helpers for consistent structured output.
package logging
