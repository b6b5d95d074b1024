package testsupport

import (
	"path/filepath"
	"testing"

	"transcripter/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Proxy fetching is bypassed and every remote wait is shortened; options may
// override either.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.InputDir = filepath.Join(base, "input")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Proxy.CachePath = filepath.Join(base, "state", "proxy_list.json")
	cfgVal.Proxy.Bypass = true
	cfgVal.Proxy.Sources = nil
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")
	cfgVal.Dispatch.PassDelaySeconds = 0
	cfgVal.Dispatch.LaunchesPerSecond = 0
	cfgVal.Upload.OpenTimeoutSeconds = 1
	cfgVal.Upload.ReadyTimeoutSeconds = 1
	cfgVal.Upload.ProbeTimeoutSeconds = 1
	cfgVal.Upload.ClickTimeoutSeconds = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithProxySources disables bypass and points the loader at the given URLs.
func WithProxySources(urls ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Proxy.Bypass = false
		b.cfg.Proxy.Sources = urls
	}
}

// WithJournalDisabled turns the attempt journal off.
func WithJournalDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// WithMaxRounds bounds the number of dispatch rounds.
func WithMaxRounds(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Dispatch.MaxRounds = n
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
