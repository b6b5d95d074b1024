package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
}

// Proxy contains configuration for the egress pool.
type Proxy struct {
	// Bypass replaces the fetched pool with a single direct connection.
	Bypass              bool     `toml:"bypass"`
	CachePath           string   `toml:"cache_path"`
	MaxAgeSeconds       int      `toml:"max_age_seconds"`
	Sources             []string `toml:"sources"`
	FetchTimeoutSeconds int      `toml:"fetch_timeout_seconds"`
	FetchRetries        int      `toml:"fetch_retries"`
	GenericFailureLimit int      `toml:"generic_failure_limit"`
}

// Dispatch contains configuration for the job/proxy scheduler.
type Dispatch struct {
	MaxWorkers        int     `toml:"max_workers"`
	PassDelaySeconds  int     `toml:"pass_delay_seconds"`
	MaxRounds         int     `toml:"max_rounds"`
	LaunchesPerSecond float64 `toml:"launches_per_second"`
}

// Upload contains configuration for the remote upload flow.
type Upload struct {
	URL                 string `toml:"url"`
	RetryBudget         int    `toml:"retry_budget"`
	OpenTimeoutSeconds  int    `toml:"open_timeout_seconds"`
	ReadyTimeoutSeconds int    `toml:"ready_timeout_seconds"`
	ProbeTimeoutSeconds int    `toml:"probe_timeout_seconds"`
	ClickTimeoutSeconds int    `toml:"click_timeout_seconds"`
}

// Browser contains configuration for the headless browser adapter.
type Browser struct {
	Headless bool   `toml:"headless"`
	ExecPath string `toml:"exec_path"`
}

// Journal contains configuration for the attempt history database.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for transcripter.
//
// Configuration sections by subsystem:
//   - Paths: media input tree, transcript output tree, state and logs
//   - Proxy: egress pool cache, sources and failure threshold
//   - Dispatch: worker bound, pacing and round limits
//   - Upload: target URL, retry budget and remote wait bounds
//   - Browser: headless browser launch options
//   - Journal: attempt history database
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Proxy    Proxy    `toml:"proxy"`
	Dispatch Dispatch `toml:"dispatch"`
	Upload   Upload   `toml:"upload"`
	Browser  Browser  `toml:"browser"`
	Journal  Journal  `toml:"journal"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/transcripter/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("transcripter.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run writes into. The input
// directory is never created; a missing input tree is a configuration error
// reported by job discovery.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir, filepath.Dir(c.Proxy.CachePath)}
	if c.Journal.Enabled {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the run lock location inside the state directory.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "transcripter.lock")
}

// BrowserBinaries lists executable names probed when no explicit browser path is configured.
func (c *Config) BrowserBinaries() []string {
	if path := strings.TrimSpace(c.Browser.ExecPath); path != "" {
		return []string{path}
	}
	return []string{"google-chrome", "chromium", "chromium-browser", "google-chrome-stable"}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
