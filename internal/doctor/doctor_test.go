package doctor

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/rbright/lockbridge/internal/config"
	"github.com/stretchr/testify/require"
)

func TestReportOKAndString(t *testing.T) {
	report := Report{Checks: []Check{
		{Name: "one", Pass: true, Message: "good"},
		{Name: "two", Pass: false, Message: "bad"},
	}}

	require.False(t, report.OK())
	text := report.String()
	require.Contains(t, text, "[OK] one: good")
	require.Contains(t, text, "[FAIL] two: bad")
}

func TestCheckWritableDir(t *testing.T) {
	dir := t.TempDir()
	require.True(t, checkWritableDir("dir", dir).Pass)

	missing := checkWritableDir("dir", filepath.Join(dir, "missing"))
	require.False(t, missing.Pass)
	require.Contains(t, missing.Message, "stat")

	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o600))
	notDir := checkWritableDir("dir", file)
	require.False(t, notDir.Pass)
	require.Contains(t, notDir.Message, "not a directory")
}

func TestCheckSocketPath(t *testing.T) {
	dir := t.TempDir()

	free := checkSocketPath(filepath.Join(dir, "free.sock"))
	require.True(t, free.Pass)
	require.Contains(t, free.Message, "is free")

	socketPath := filepath.Join(dir, "live.sock")
	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)
	defer listener.Close()
	live := checkSocketPath(socketPath)
	require.True(t, live.Pass)
	require.Contains(t, live.Message, "socket present")

	stale := filepath.Join(dir, "stale.sock")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0o600))
	regular := checkSocketPath(stale)
	require.True(t, regular.Pass)
	require.Contains(t, regular.Message, "removed when serve starts")

	directory := checkSocketPath(dir)
	require.False(t, directory.Pass)
	require.Contains(t, directory.Message, "is a directory")
}

func TestCheckLockDefault(t *testing.T) {
	require.True(t, checkLockDefault("unlocked").Pass)
	require.Contains(t, checkLockDefault("locked").Message, "secured")
	require.False(t, checkLockDefault("ajar").Pass)
}

func TestCheckListenAddr(t *testing.T) {
	require.True(t, checkListenAddr("127.0.0.1:0").Pass)

	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	check := checkListenAddr(busy.Addr().String())
	require.False(t, check.Pass)
	require.Contains(t, check.Message, "cannot listen")
}

func TestRunUsesLoadedConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Lock.SocketFile = filepath.Join(dir, "bridge.sock")
	cfg.Logging.File = filepath.Join(dir, "lockbridge.log")
	cfg.Metrics.Listen = "127.0.0.1:0"

	report := Run(config.Loaded{Path: filepath.Join(dir, "config.jsonc"), Config: cfg, Exists: false})
	require.True(t, report.OK(), report.String())

	text := report.String()
	require.Contains(t, text, "using defaults")
	require.Contains(t, text, "lock.socketfile.dir")
	require.Contains(t, text, "logging.file.dir")
	require.Contains(t, text, "metrics.listen")
}
