package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"transcripter/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TRANSCRIPTER_BYPASS_PROXY", "")
	t.Setenv("TRANSCRIPTER_PROXY_SOURCES", "")
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "state", "transcripter")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Proxy.CachePath != filepath.Join(wantState, "proxy_list.json") {
		t.Fatalf("unexpected proxy cache path: %q", cfg.Proxy.CachePath)
	}
	if cfg.Journal.Path != filepath.Join(wantState, "journal.db") {
		t.Fatalf("unexpected journal path: %q", cfg.Journal.Path)
	}
	if cfg.Proxy.MaxAgeSeconds != 1800 {
		t.Fatalf("unexpected proxy max age: %d", cfg.Proxy.MaxAgeSeconds)
	}
	if cfg.Proxy.GenericFailureLimit != 3 {
		t.Fatalf("unexpected failure limit: %d", cfg.Proxy.GenericFailureLimit)
	}
	if cfg.Dispatch.MaxWorkers != 8 {
		t.Fatalf("unexpected max workers: %d", cfg.Dispatch.MaxWorkers)
	}
	if cfg.Upload.RetryBudget != 3 {
		t.Fatalf("unexpected retry budget: %d", cfg.Upload.RetryBudget)
	}
	if !cfg.Browser.Headless {
		t.Fatal("expected headless browser by default")
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.OutputDir, cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.InputDir); !os.IsNotExist(err) {
		t.Fatalf("input dir should not be created, stat err = %v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "transcripter.toml")
	t.Setenv("TRANSCRIPTER_BYPASS_PROXY", "")
	t.Setenv("TRANSCRIPTER_PROXY_SOURCES", "")

	type payload struct {
		Paths struct {
			InputDir  string `toml:"input_dir"`
			OutputDir string `toml:"output_dir"`
			StateDir  string `toml:"state_dir"`
		} `toml:"paths"`
		Proxy struct {
			Bypass              bool `toml:"bypass"`
			GenericFailureLimit int  `toml:"generic_failure_limit"`
		} `toml:"proxy"`
		Dispatch struct {
			MaxWorkers int `toml:"max_workers"`
		} `toml:"dispatch"`
	}
	custom := payload{}
	custom.Paths.InputDir = filepath.Join(tempDir, "in")
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Proxy.Bypass = true
	custom.Proxy.GenericFailureLimit = 5
	custom.Dispatch.MaxWorkers = 2

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if !cfg.Proxy.Bypass {
		t.Fatal("expected bypass from file")
	}
	if cfg.Proxy.GenericFailureLimit != 5 {
		t.Fatalf("unexpected failure limit %d", cfg.Proxy.GenericFailureLimit)
	}
	if cfg.Dispatch.MaxWorkers != 2 {
		t.Fatalf("unexpected max workers %d", cfg.Dispatch.MaxWorkers)
	}
	if cfg.Proxy.CachePath != filepath.Join(tempDir, "state", "proxy_list.json") {
		t.Fatalf("cache path should follow state dir, got %q", cfg.Proxy.CachePath)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(configPath, []byte("[proxy]\nmax_age = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected unknown key to fail parsing")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TRANSCRIPTER_BYPASS_PROXY", "true")
	t.Setenv("TRANSCRIPTER_PROXY_SOURCES", "https://a.example/list, https://a.example/list ,http://b.example/list")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.Proxy.Bypass {
		t.Fatal("expected bypass from environment")
	}
	want := []string{"https://a.example/list", "http://b.example/list"}
	if strings.Join(cfg.Proxy.Sources, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected sources %v", cfg.Proxy.Sources)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"workers", func(c *config.Config) { c.Dispatch.MaxWorkers = 0 }, "dispatch.max_workers"},
		{"limit", func(c *config.Config) { c.Proxy.GenericFailureLimit = 0 }, "proxy.generic_failure_limit"},
		{"url", func(c *config.Config) { c.Upload.URL = "ftp://example.com" }, "upload.url"},
		{"sources", func(c *config.Config) { c.Proxy.Sources = nil }, "proxy.sources"},
		{"format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"same dirs", func(c *config.Config) { c.Paths.OutputDir = c.Paths.InputDir }, "paths.output_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestBypassAllowsEmptySources(t *testing.T) {
	cfg := config.Default()
	cfg.Proxy.Bypass = true
	cfg.Proxy.Sources = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("bypass config should validate: %v", err)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("TRANSCRIPTER_BYPASS_PROXY", "")
	t.Setenv("TRANSCRIPTER_PROXY_SOURCES", "")
	t.Setenv("HOME", t.TempDir())
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if len(cfg.Proxy.Sources) != 2 {
		t.Fatalf("expected two sample sources, got %d", len(cfg.Proxy.Sources))
	}
}
