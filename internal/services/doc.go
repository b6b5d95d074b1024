// Package services defines shared utilities consumed by the dispatcher, the
// upload state machine and the proxy sources.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, attempt IDs, job names and proxy
//     identifiers for logging and the attempt journal.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified into attempt outcomes without string matching.
//   - Small timing helpers (context-aware sleeps, retry classification).
package services
