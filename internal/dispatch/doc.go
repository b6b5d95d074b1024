// Package dispatch matches pending jobs against the proxy pool.
//
// Each pass walks the incomplete jobs in order. For one job, an attempt is
// started through every proxy in a pool snapshot, bounded by a worker limit,
// and outcomes are consumed in completion order: the first success settles
// the job, connection errors evict the proxy at once, and generic errors
// evict it after a run of consecutive failures. Passes repeat until every
// job is complete, the pool is empty or the context ends.
package dispatch
