// Package config resolves, parses, validates, and defaults lockbridge configuration.
package config

// Config is the fully materialized runtime configuration used by lockbridge.
type Config struct {
	Logging LoggingConfig
	Lock    LockConfig
	Metrics MetricsConfig
}

// LoggingConfig controls log level, encoding, and destination.
type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

// LockConfig controls the bridge endpoint and the startup lock target.
type LockConfig struct {
	SocketFile    string
	Default       string
	SyncOnConnect bool
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Listen string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
