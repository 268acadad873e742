package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"

	"golang.org/x/sys/unix"
)

// DefaultSocketPath lives on tmpfs so a stale endpoint never survives a reboot.
const DefaultSocketPath = "/dev/shm/homekey-ipc.socket"

// listenBacklog admits the next peer only; the bridge serves one driver.
const listenBacklog = 1

// Listen removes any stale endpoint at path and binds a stream unix socket
// with a single-slot accept backlog.
func Listen(path string) (*net.UnixListener, error) {
	if err := removeEndpoint(path); err != nil {
		return nil, err
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("create unix socket: %w", err)
	}
	unix.CloseOnExec(fd)

	if err := unix.Bind(fd, &unix.SockaddrUnix{Name: path}); err != nil {
		_ = unix.Close(fd)
		return nil, fmt.Errorf("bind unix %s: %w", path, err)
	}
	if err := unix.Listen(fd, listenBacklog); err != nil {
		_ = unix.Close(fd)
		_ = os.Remove(path)
		return nil, fmt.Errorf("listen unix %s: %w", path, err)
	}

	file := os.NewFile(uintptr(fd), path)
	defer file.Close()

	ln, err := net.FileListener(file)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("wrap unix listener %s: %w", path, err)
	}
	unixLn, ok := ln.(*net.UnixListener)
	if !ok {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, fmt.Errorf("wrap unix listener %s: unexpected type %T", path, ln)
	}
	_ = os.Chmod(path, 0o660)
	return unixLn, nil
}

// removeEndpoint unlinks path, tolerating its absence. Directories are refused.
func removeEndpoint(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat socket path %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("socket path %s is a directory", path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket %s: %w", path, err)
	}
	return nil
}
