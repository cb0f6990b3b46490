package config

const (
	defaultDataDir            = "~/.local/share/mirrorsync"
	defaultLogDir             = "~/.local/share/mirrorsync/logs"
	defaultBucket             = "submission"
	defaultRemoteTimeout      = 30
	defaultMaxAttempts        = 3
	defaultProbeInterval      = 15
	defaultProbeTimeout       = 5
	defaultErrorRetryInterval = 10
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Remote: Remote{
			Bucket:         defaultBucket,
			RequestTimeout: defaultRemoteTimeout,
		},
		Sync: Sync{
			MaxAttempts:        defaultMaxAttempts,
			ProbeInterval:      defaultProbeInterval,
			ProbeTimeout:       defaultProbeTimeout,
			ErrorRetryInterval: defaultErrorRetryInterval,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
