package config

import "strings"

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	c.Remote.APIKey = strings.TrimSpace(c.Remote.APIKey)
	c.Remote.Bucket = strings.Trim(strings.TrimSpace(c.Remote.Bucket), "/")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRemoteTimeout
	}
	if c.Sync.ProbeInterval <= 0 {
		c.Sync.ProbeInterval = defaultProbeInterval
	}
	if c.Sync.ProbeTimeout <= 0 {
		c.Sync.ProbeTimeout = defaultProbeTimeout
	}
	if c.Sync.ErrorRetryInterval <= 0 {
		c.Sync.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}
