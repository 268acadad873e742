package config

import (
	"fmt"
	"net"
	"path/filepath"
	"strings"

	"github.com/rbright/lockbridge/internal/lock"
)

// maxSocketPathLen is the usable sun_path length on Linux.
const maxSocketPathLen = 107

const socketWarningPrefix = "lock.socketfile "

var validLevels = map[string]struct{}{
	"debug":   {},
	"info":    {},
	"warn":    {},
	"warning": {},
	"error":   {},
}

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	level := strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if _, ok := validLevels[level]; !ok {
		return nil, fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	format := strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if format != "json" && format != "text" {
		return nil, fmt.Errorf("logging.format must be one of: json, text")
	}

	socket := strings.TrimSpace(cfg.Lock.SocketFile)
	if socket == "" {
		return nil, fmt.Errorf("lock.socketfile must not be empty")
	}
	if !filepath.IsAbs(socket) {
		return nil, fmt.Errorf("lock.socketfile must be an absolute path")
	}
	if len(socket) > maxSocketPathLen {
		return nil, fmt.Errorf("lock.socketfile is %d bytes; unix sockets allow at most %d", len(socket), maxSocketPathLen)
	}
	if !isVolatileDir(filepath.Dir(socket)) {
		warnings = append(warnings, Warning{Message: fmt.Sprintf(socketWarningPrefix+"directory %q is not /dev/shm or /run; a stale socket may survive a reboot", filepath.Dir(socket))})
	}

	if _, err := lock.ParseDefault(cfg.Lock.Default); err != nil {
		return nil, fmt.Errorf("lock.default: %w", err)
	}

	if listen := strings.TrimSpace(cfg.Metrics.Listen); listen != "" {
		if _, _, err := net.SplitHostPort(listen); err != nil {
			return nil, fmt.Errorf("metrics.listen must be host:port: %w", err)
		}
	}

	return warnings, nil
}

func isVolatileDir(dir string) bool {
	dir = filepath.Clean(dir)
	for _, root := range []string{"/dev/shm", "/run", "/var/run"} {
		if dir == root || strings.HasPrefix(dir, root+"/") {
			return true
		}
	}
	return false
}
