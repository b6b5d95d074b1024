package proxy

import (
	"sync"
	"time"
)

// Origin describes where a pool's contents came from.
type Origin string

const (
	OriginCache  Origin = "cache"
	OriginFetch  Origin = "fetch"
	OriginDirect Origin = "direct"
)

// Pool is the run-scoped set of usable proxies. Every mutation and its cache
// write happen under one lock; readers work from snapshots.
type Pool struct {
	mu        sync.Mutex
	path      string
	proxies   []Proxy
	fetchedAt time.Time
	origin    Origin
}

// NewPool builds a pool persisted at path. An empty path disables persistence.
func NewPool(path string, proxies []Proxy, fetchedAt time.Time, origin Origin) *Pool {
	return &Pool{
		path:      path,
		proxies:   dedupe(proxies),
		fetchedAt: fetchedAt,
		origin:    origin,
	}
}

// DirectPool returns a one-element, unpersisted pool holding the direct connection.
func DirectPool() *Pool {
	return NewPool("", []Proxy{Direct()}, time.Now(), OriginDirect)
}

// Snapshot returns a copy of the current proxies in pool order.
func (p *Pool) Snapshot() []Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Proxy, len(p.proxies))
	copy(out, p.proxies)
	return out
}

// Len returns the number of proxies still in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Contains reports whether a proxy with the given ID is still pooled.
func (p *Pool) Contains(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.indexOf(id) >= 0
}

// FetchedAt reports when the pool contents were obtained.
func (p *Pool) FetchedAt() time.Time {
	return p.fetchedAt
}

// Path is the cache file the pool writes through to.
func (p *Pool) Path() string {
	return p.path
}

// Origin reports whether the pool came from the cache, a fetch or bypass mode.
func (p *Pool) Origin() Origin {
	return p.origin
}

// Evict removes the proxy and rewrites the cache before returning. It reports
// whether the proxy was present. The in-memory removal stands even when the
// write fails; the error is returned for logging.
func (p *Pool) Evict(id string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := p.indexOf(id)
	if idx < 0 {
		return false, nil
	}
	p.proxies = append(p.proxies[:idx:idx], p.proxies[idx+1:]...)
	return true, p.persistLocked()
}

// Persist writes the current contents to the cache.
func (p *Pool) Persist() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.persistLocked()
}

func (p *Pool) persistLocked() error {
	if p.path == "" || p.origin == OriginDirect {
		return nil
	}
	return WriteCache(p.path, p.proxies)
}

func (p *Pool) indexOf(id string) int {
	for i, proxy := range p.proxies {
		if proxy.ID() == id {
			return i
		}
	}
	return -1
}

func dedupe(proxies []Proxy) []Proxy {
	seen := make(map[string]struct{}, len(proxies))
	out := make([]Proxy, 0, len(proxies))
	for _, proxy := range proxies {
		if _, ok := seen[proxy.ID()]; ok {
			continue
		}
		seen[proxy.ID()] = struct{}{}
		out = append(out, proxy)
	}
	return out
}
