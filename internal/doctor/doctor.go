// Package doctor runs readiness diagnostics for config, the bridge socket, and metrics.
package doctor

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/rbright/lockbridge/internal/config"
	"github.com/rbright/lockbridge/internal/lock"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes config and environment checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	message := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		message = fmt.Sprintf("%q not found; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: message})

	socket := cfg.Config.Lock.SocketFile
	checks = append(checks, checkWritableDir("lock.socketfile.dir", filepath.Dir(socket)))
	checks = append(checks, checkSocketPath(socket))
	checks = append(checks, checkLockDefault(cfg.Config.Lock.Default))

	if logFile := strings.TrimSpace(cfg.Config.Logging.File); logFile != "" {
		checks = append(checks, checkWritableDir("logging.file.dir", filepath.Dir(logFile)))
	}
	if listen := strings.TrimSpace(cfg.Config.Metrics.Listen); listen != "" {
		checks = append(checks, checkListenAddr(listen))
	}

	return Report{Checks: checks}
}

// checkWritableDir validates that dir exists and the current user may create entries in it.
func checkWritableDir(name, dir string) Check {
	info, err := os.Stat(dir)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("stat %s: %v", dir, err)}
	}
	if !info.IsDir() {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not a directory", dir)}
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is writable", dir)}
}

// checkSocketPath reports what serve will find at the endpoint path.
func checkSocketPath(path string) Check {
	const name = "lock.socketfile"

	info, err := os.Lstat(path)
	if errors.Is(err, os.ErrNotExist) {
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s is free", path)}
	}
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("stat %s: %v", path, err)}
	}

	switch {
	case info.IsDir():
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("%s is a directory", path)}
	case info.Mode()&os.ModeSocket != 0:
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("socket present at %s; it is replaced when serve starts", path)}
	default:
		return Check{Name: name, Pass: true, Message: fmt.Sprintf("non-socket file at %s; it is removed when serve starts", path)}
	}
}

func checkLockDefault(value string) Check {
	state, err := lock.ParseDefault(value)
	if err != nil {
		return Check{Name: "lock.default", Pass: false, Message: err.Error()}
	}
	return Check{Name: "lock.default", Pass: true, Message: fmt.Sprintf("startup target is %s", state)}
}

// checkListenAddr verifies the metrics address can be bound right now.
func checkListenAddr(addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{Name: "metrics.listen", Pass: false, Message: fmt.Sprintf("cannot listen on %s: %v", addr, err)}
	}
	_ = ln.Close()
	return Check{Name: "metrics.listen", Pass: true, Message: fmt.Sprintf("%s is available", addr)}
}
