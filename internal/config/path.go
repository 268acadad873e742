package config

import (
	"os"
	"path/filepath"
	"strings"
)

// EnvConfigPath names the environment variable that points at a config file
// when --config is not given. Service managers set it for the bridge unit.
const EnvConfigPath = "LOCKBRIDGE_CONFIG"

// SystemConfigPath is used when the bridge runs without a resolvable home,
// as it does under a system service manager.
const SystemConfigPath = "/etc/lockbridge/config.jsonc"

// ResolvePath picks the config file: --config, then $LOCKBRIDGE_CONFIG, then
// the XDG or home location, then SystemConfigPath.
func ResolvePath(explicit string) (string, error) {
	if path := strings.TrimSpace(explicit); path != "" {
		return path, nil
	}
	if path := strings.TrimSpace(os.Getenv(EnvConfigPath)); path != "" {
		return path, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "lockbridge", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "/" {
		return SystemConfigPath, nil
	}
	return filepath.Join(home, ".config", "lockbridge", "config.jsonc"), nil
}
