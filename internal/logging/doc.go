// Package logging constructs the slog loggers used by the daemon and CLI.
//
// Two output formats are supported: a line-oriented console format for
// interactive use (colored only when attached to a terminal) and JSON for
// log aggregation. Component loggers are derived with WithComponent so
// every record carries its originating subsystem.
package logging
