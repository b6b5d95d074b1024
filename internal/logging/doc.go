// Package logging builds the slog loggers used across transcripter.
//
// Two handlers are available: a compact console format that promotes the
// component name into the line prefix, and JSON for machine ingestion. Both
// share the field keys declared in fields.go so the dispatcher, upload
// attempts and proxy loader can be correlated by run, attempt, job and proxy.
package logging
