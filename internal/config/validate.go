package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProxy(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateUpload(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		return errors.New("paths.input_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.output_dir must differ from paths.input_dir")
	}
	return nil
}

func (c *Config) validateProxy() error {
	if c.Proxy.MaxAgeSeconds <= 0 {
		return errors.New("proxy.max_age_seconds must be positive")
	}
	if c.Proxy.GenericFailureLimit <= 0 {
		return errors.New("proxy.generic_failure_limit must be positive")
	}
	if c.Proxy.FetchTimeoutSeconds <= 0 {
		return errors.New("proxy.fetch_timeout_seconds must be positive")
	}
	if c.Proxy.FetchRetries < 0 {
		return errors.New("proxy.fetch_retries must be >= 0")
	}
	if !c.Proxy.Bypass && len(c.Proxy.Sources) == 0 {
		return errors.New("proxy.sources must list at least one URL unless proxy.bypass is true")
	}
	for _, source := range c.Proxy.Sources {
		if err := validateHTTPURL(source); err != nil {
			return fmt.Errorf("proxy.sources: %w", err)
		}
	}
	return nil
}

func (c *Config) validateDispatch() error {
	if c.Dispatch.MaxWorkers <= 0 {
		return errors.New("dispatch.max_workers must be positive")
	}
	if c.Dispatch.PassDelaySeconds < 0 {
		return errors.New("dispatch.pass_delay_seconds must be >= 0")
	}
	if c.Dispatch.MaxRounds < 0 {
		return errors.New("dispatch.max_rounds must be >= 0 (0 means unlimited)")
	}
	if c.Dispatch.LaunchesPerSecond < 0 {
		return errors.New("dispatch.launches_per_second must be >= 0 (0 disables pacing)")
	}
	return nil
}

func (c *Config) validateUpload() error {
	if err := validateHTTPURL(c.Upload.URL); err != nil {
		return fmt.Errorf("upload.url: %w", err)
	}
	if c.Upload.RetryBudget <= 0 {
		return errors.New("upload.retry_budget must be positive")
	}
	timeouts := map[string]int{
		"upload.open_timeout_seconds":  c.Upload.OpenTimeoutSeconds,
		"upload.ready_timeout_seconds": c.Upload.ReadyTimeoutSeconds,
		"upload.probe_timeout_seconds": c.Upload.ProbeTimeoutSeconds,
		"upload.click_timeout_seconds": c.Upload.ClickTimeoutSeconds,
	}
	for key, value := range timeouts {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse %q: %w", raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%q must use http or https", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%q is missing a host", raw)
	}
	return nil
}
