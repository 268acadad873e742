package config

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Lock: LockConfig{
			SocketFile:    "/dev/shm/homekey-ipc.socket",
			Default:       "locked",
			SyncOnConnect: true,
		},
		Metrics: MetricsConfig{},
	}
}
