package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeProxy(); err != nil {
		return err
	}
	if err := c.normalizeJournal(); err != nil {
		return err
	}
	c.normalizeUpload()
	c.normalizeBrowser()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.InputDir, err = expandPath(c.Paths.InputDir); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeProxy() error {
	if value, ok := os.LookupEnv("TRANSCRIPTER_BYPASS_PROXY"); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.Proxy.Bypass = parsed
		}
	}
	if value, ok := os.LookupEnv("TRANSCRIPTER_PROXY_SOURCES"); ok && strings.TrimSpace(value) != "" {
		c.Proxy.Sources = strings.Split(value, ",")
	}

	if strings.TrimSpace(c.Proxy.CachePath) == "" {
		c.Proxy.CachePath = filepath.Join(c.Paths.StateDir, defaultProxyCacheName)
	}
	var err error
	if c.Proxy.CachePath, err = expandPath(c.Proxy.CachePath); err != nil {
		return fmt.Errorf("proxy.cache_path: %w", err)
	}

	seen := make(map[string]struct{}, len(c.Proxy.Sources))
	sources := make([]string, 0, len(c.Proxy.Sources))
	for _, source := range c.Proxy.Sources {
		trimmed := strings.TrimSpace(source)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		sources = append(sources, trimmed)
	}
	c.Proxy.Sources = sources
	return nil
}

func (c *Config) normalizeJournal() error {
	if strings.TrimSpace(c.Journal.Path) == "" {
		c.Journal.Path = filepath.Join(c.Paths.StateDir, defaultJournalName)
	}
	var err error
	if c.Journal.Path, err = expandPath(c.Journal.Path); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeUpload() {
	c.Upload.URL = strings.TrimSpace(c.Upload.URL)
	if c.Upload.URL == "" {
		c.Upload.URL = defaultUploadURL
	}
}

func (c *Config) normalizeBrowser() {
	c.Browser.ExecPath = strings.TrimSpace(c.Browser.ExecPath)
	if c.Browser.ExecPath == "" {
		return
	}
	if expanded, err := expandPath(c.Browser.ExecPath); err == nil && strings.ContainsRune(c.Browser.ExecPath, filepath.Separator) {
		c.Browser.ExecPath = expanded
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
