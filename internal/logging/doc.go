// Package logging assembles the structured slog loggers used by the driver,
// the CLI and the bundled processes.
//
// It owns the console and JSON handlers, level parsing and output plumbing,
// and exposes context helpers so the driver can tag every line with the run
// identifier and the process currently executing. A no-op logger is provided
// for tests and wiring code that cannot fail.
package logging
