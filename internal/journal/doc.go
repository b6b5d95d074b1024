// Package journal records every upload attempt in a SQLite database so
// operators can review what each proxy did across runs.
//
// The journal is an audit trail only. Job completion is never read from it;
// the output artifact on disk remains the source of truth.
package journal
