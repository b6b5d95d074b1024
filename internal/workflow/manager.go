package workflow

import (
	"log/slog"

	"github.com/gofrs/flock"

	"transcripter/internal/config"
	"transcripter/internal/logging"
	"transcripter/internal/proxy"
	"transcripter/internal/services"
	"transcripter/internal/upload"
)

// Manager coordinates runs for one configuration.
type Manager struct {
	cfg     *config.Config
	base    *slog.Logger
	logger  *slog.Logger
	opener  upload.Opener
	loader  *proxy.Loader
	timings upload.Timings
	lock    *flock.Flock
}

// Option configures optional Manager behavior.
type Option func(*Manager)

// WithLoader replaces the proxy loader derived from configuration.
func WithLoader(loader *proxy.Loader) Option {
	return func(m *Manager) {
		m.loader = loader
	}
}

// WithTimings replaces the upload timings derived from configuration.
func WithTimings(t upload.Timings) Option {
	return func(m *Manager) {
		m.timings = t
	}
}

// NewManager constructs a manager that opens remote sessions through opener.
func NewManager(cfg *config.Config, opener upload.Opener, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:     cfg,
		base:    logger,
		logger:  logging.NewComponentLogger(logger, "workflow"),
		opener:  opener,
		timings: TimingsFromConfig(cfg),
		lock:    flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.loader == nil {
		m.loader = NewLoader(cfg, logger)
	}
	return m
}

// NewLoader builds the proxy loader described by cfg. Sources are tried in
// order until one yields proxies.
func NewLoader(cfg *config.Config, logger *slog.Logger) *proxy.Loader {
	timeout := services.Seconds(cfg.Proxy.FetchTimeoutSeconds)
	sources := make(proxy.MultiSource, 0, len(cfg.Proxy.Sources))
	for _, url := range cfg.Proxy.Sources {
		sources = append(sources, proxy.NewHTTPSource(url, timeout, cfg.Proxy.FetchRetries, logger))
	}
	var source proxy.Source
	if len(sources) > 0 {
		source = sources
	}
	return &proxy.Loader{
		CachePath: cfg.Proxy.CachePath,
		MaxAge:    services.Seconds(cfg.Proxy.MaxAgeSeconds),
		Bypass:    cfg.Proxy.Bypass,
		Source:    source,
		Logger:    logger,
	}
}

// TimingsFromConfig applies the configured remote wait bounds to the
// default pacing.
func TimingsFromConfig(cfg *config.Config) upload.Timings {
	t := upload.DefaultTimings()
	t.Open = services.Seconds(cfg.Upload.OpenTimeoutSeconds)
	t.Ready = services.Seconds(cfg.Upload.ReadyTimeoutSeconds)
	t.Probe = services.Seconds(cfg.Upload.ProbeTimeoutSeconds)
	t.Click = services.Seconds(cfg.Upload.ClickTimeoutSeconds)
	return t
}

// Loader exposes the proxy loader used for rounds.
func (m *Manager) Loader() *proxy.Loader {
	return m.loader
}

func (m *Manager) newMachine() *upload.Machine {
	return upload.NewMachine(m.opener, upload.Options{
		URL:               m.cfg.Upload.URL,
		Page:              upload.DefaultPage(),
		RetryBudget:       m.cfg.Upload.RetryBudget,
		Timings:           m.timings,
		LaunchesPerSecond: m.cfg.Dispatch.LaunchesPerSecond,
		Logger:            m.base,
	})
}
