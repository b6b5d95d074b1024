package proxy

import (
	"context"
	"log/slog"
	"time"

	"transcripter/internal/logging"
	"transcripter/internal/services"
)

// Loader resolves the pool for a run.
type Loader struct {
	CachePath string
	MaxAge    time.Duration
	Bypass    bool
	Source    Source
	Logger    *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

// Load returns the direct pool in bypass mode, the cached pool when the cache
// is younger than MaxAge and non-empty, and a freshly fetched pool otherwise.
// A failed fetch yields an empty pool rather than an error; only context
// cancellation is returned.
func (l *Loader) Load(ctx context.Context) (*Pool, error) {
	logger := logging.NewComponentLogger(l.Logger, "proxy")
	if l.Bypass {
		logger.Info("proxy bypass enabled, using direct connection",
			logging.String(logging.FieldEventType, "proxy_bypass"))
		return DirectPool(), nil
	}

	proxies, modTime, ok, err := ReadCache(l.CachePath)
	switch {
	case err != nil:
		logging.WarnWithContext(logger, "proxy cache unreadable, refetching", "proxy_cache_invalid",
			logging.String("path", l.CachePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "cached proxies are discarded"),
		)
	case ok && len(proxies) > 0 && l.now().Sub(modTime) < l.MaxAge:
		logger.Info("using cached proxies",
			logging.String(logging.FieldEventType, "proxy_cache_hit"),
			logging.Int("count", len(proxies)),
			logging.Duration("age", l.now().Sub(modTime).Round(time.Second)),
		)
		return NewPool(l.CachePath, proxies, modTime, OriginCache), nil
	}

	return l.Refresh(ctx)
}

// Refresh fetches a new list regardless of cache age and persists it.
func (l *Loader) Refresh(ctx context.Context) (*Pool, error) {
	logger := logging.NewComponentLogger(l.Logger, "proxy")
	var proxies []Proxy
	if l.Source != nil {
		fetched, err := l.Source.Fetch(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if err != nil {
			logging.WarnWithContext(logger, "proxy fetch failed", "proxy_fetch_failed",
				logging.String("source", l.Source.Name()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, services.Hint(err)),
				logging.String(logging.FieldImpact, "continuing with an empty proxy pool"),
			)
		}
		proxies = fetched
	}

	pool := NewPool(l.CachePath, proxies, l.now(), OriginFetch)
	if err := pool.Persist(); err != nil {
		logging.WarnWithContext(logger, "proxy cache write failed", "proxy_cache_write_failed",
			logging.String("path", l.CachePath),
			logging.Error(err),
			logging.String(logging.FieldImpact, "the next run will refetch proxies"),
		)
	}
	logger.Info("fetched proxies",
		logging.String(logging.FieldEventType, "proxy_fetched"),
		logging.Int("count", pool.Len()),
	)
	return pool, nil
}

func (l *Loader) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
