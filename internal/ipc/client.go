package ipc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"syscall"
	"time"
)

// Peer is the driver side of the bridge socket.
type Peer struct {
	conn   net.Conn
	reader *bufio.Reader
	mu     sync.Mutex
}

// Dial connects to the bridge endpoint at path as the physical lock driver.
func Dial(ctx context.Context, path string, timeout time.Duration) (*Peer, error) {
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, err
	}
	return &Peer{conn: conn, reader: bufio.NewReader(conn)}, nil
}

// SendState reports value to the bridge as one newline-terminated message.
func (p *Peer) SendState(value int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := p.conn.Write(EncodeState(value)); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// ReadState blocks for the next newline-terminated state code from the bridge.
func (p *Peer) ReadState() (int, error) {
	line, err := p.reader.ReadBytes('\n')
	if err != nil {
		return 0, fmt.Errorf("read state: %w", err)
	}
	return ParseState(line)
}

// SetReadDeadline bounds the next ReadState call.
func (p *Peer) SetReadDeadline(t time.Time) error {
	return p.conn.SetReadDeadline(t)
}

func (p *Peer) Close() error {
	return p.conn.Close()
}

// IsUnavailable reports dial failures meaning no bridge is listening yet.
func IsUnavailable(err error) bool {
	return isSocketMissing(err) || isConnectionRefused(err)
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist)
}

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
