// Package proxy owns the pool of egress resources attempts are routed
// through.
//
// The pool is loaded from a JSON cache when it is fresh and non-empty, and
// otherwise fetched from one or more plain-text providers. Eviction removes a
// proxy for the rest of the run and rewrites the cache under the same lock,
// so a crash never resurrects a proxy that was already judged dead.
package proxy
