package config

const (
	defaultConfigPath       = "~/.config/batchproc/config.toml"
	projectConfigName       = "batchproc.toml"
	defaultLogDir           = "~/.local/share/batchproc/logs"
	defaultHistoryPath      = "~/.local/share/batchproc/history.db"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultNotifyTimeout    = 10
	defaultHistoryListLimit = 20
	envNtfyTopic            = "BATCHPROC_NTFY_TOPIC"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:      defaultLogDir,
			HistoryPath: defaultHistoryPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			Queue:          true,
			Errors:         true,
		},
		History: History{
			Enabled:   true,
			ListLimit: defaultHistoryListLimit,
		},
		Driver: Driver{
			ObserveExceptions: true,
			Preflight:         true,
		},
	}
}
