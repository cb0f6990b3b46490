package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/mirrorsync/config.toml"
		}
		return fmt.Errorf("remote.base_url is required. Edit %s (create with 'mirrorsync config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Remote.BaseURL)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("remote.base_url %q must be an http(s) URL", c.Remote.BaseURL)
	}
	if c.Remote.APIKey == "" {
		return errors.New("remote.api_key is required")
	}
	if c.Remote.Bucket == "" || strings.Contains(c.Remote.Bucket, "/") {
		return fmt.Errorf("remote.bucket %q must be a single path segment", c.Remote.Bucket)
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.MaxAttempts < 1 {
		return errors.New("sync.max_attempts must be at least 1")
	}
	if c.Sync.ProbeTimeout >= c.Sync.ProbeInterval {
		return fmt.Errorf("sync.probe_timeout (%ds) must be shorter than sync.probe_interval (%ds)", c.Sync.ProbeTimeout, c.Sync.ProbeInterval)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}
