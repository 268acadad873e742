package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Overrides carries command-line values that win over the config file.
type Overrides struct {
	SocketFile string
}

// Load resolves, reads, parses, and validates the runtime configuration,
// then applies overrides and validates again.
func Load(explicitPath string, overrides Overrides) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	loaded := Loaded{Path: resolvedPath, Config: Default()}
	content, err := os.ReadFile(resolvedPath)
	switch {
	case err == nil:
		cfg, warnings, parseErr := Parse(string(content), loaded.Config)
		if parseErr != nil {
			return Loaded{}, fmt.Errorf("parse config %q: %w", resolvedPath, parseErr)
		}
		loaded.Config = cfg
		loaded.Warnings = warnings
		loaded.Exists = true
	case errors.Is(err, os.ErrNotExist):
		loaded.Warnings = []Warning{{
			Message: fmt.Sprintf("config file %q not found; using defaults", resolvedPath),
		}}
	default:
		return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
	}

	if socket := strings.TrimSpace(overrides.SocketFile); socket != "" {
		loaded.Config.Lock.SocketFile = socket
		warnings, err := Validate(loaded.Config)
		if err != nil {
			return Loaded{}, fmt.Errorf("socket override: %w", err)
		}
		loaded.Warnings = append(withoutSocketWarnings(loaded.Warnings), socketWarnings(warnings)...)
	}

	return loaded, nil
}

// socketWarnings keeps the lock.socketfile entries of warnings.
func socketWarnings(warnings []Warning) []Warning {
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		if strings.HasPrefix(w.Message, socketWarningPrefix) {
			out = append(out, w)
		}
	}
	return out
}

// withoutSocketWarnings drops warnings about a socket path that was overridden.
func withoutSocketWarnings(warnings []Warning) []Warning {
	out := make([]Warning, 0, len(warnings))
	for _, w := range warnings {
		if !strings.HasPrefix(w.Message, socketWarningPrefix) {
			out = append(out, w)
		}
	}
	return out
}
