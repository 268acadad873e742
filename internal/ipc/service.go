// Package ipc bridges lock state codes between this process and the
// physical lock driver over a single-peer unix socket.
package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/rbright/lockbridge/internal/fsm"
)

// DefaultAcceptRetryDelay paces accept retries after unexpected failures.
const DefaultAcceptRetryDelay = 5 * time.Second

var (
	ErrAlreadyStarted = errors.New("bridge service already started")
	ErrStopped        = errors.New("bridge service stopped")

	// errClosed marks accept results observed while the service is shutting down.
	errClosed = errors.New("bridge endpoint closed")
)

// PeerCredentials identifies the connected driver process.
type PeerCredentials struct {
	PID int32
	UID uint32
	GID uint32
}

// Observer receives bridge lifecycle and traffic notifications.
//
// Calls arrive on the supervisor goroutine (connect, disconnect, receive)
// or on the Send caller's goroutine (sent, dropped).
type Observer interface {
	PeerConnected()
	PeerDisconnected()
	Received(value int)
	Malformed()
	Sent(value int)
	Dropped()
}

type nopObserver struct{}

func (nopObserver) PeerConnected()    {}
func (nopObserver) PeerDisconnected() {}
func (nopObserver) Received(int)      {}
func (nopObserver) Malformed()        {}
func (nopObserver) Sent(int)          {}
func (nopObserver) Dropped()          {}

// Option customizes a Service at construction.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithReceiveHandler registers the callback for inbound state codes. It runs
// synchronously on the supervisor goroutine, so slow handlers delay reads.
func WithReceiveHandler(fn func(value int)) Option {
	return func(s *Service) { s.onReceived = fn }
}

// WithConnectHandler registers a callback run on the supervisor goroutine
// right after a peer is accepted, before its first read.
func WithConnectHandler(fn func()) Option {
	return func(s *Service) { s.onConnect = fn }
}

func WithObserver(observer Observer) Option {
	return func(s *Service) {
		if observer != nil {
			s.observer = observer
		}
	}
}

func WithAcceptRetryDelay(delay time.Duration) Option {
	return func(s *Service) {
		if delay > 0 {
			s.retryDelay = delay
		}
	}
}

// Service supervises the single driver connection on a unix socket endpoint.
// It is one-shot: once stopped it cannot be started again.
type Service struct {
	path       string
	logger     *slog.Logger
	onReceived func(int)
	onConnect  func()
	observer   Observer
	retryDelay time.Duration
	listen     func(path string) (net.Listener, error)

	mu       sync.Mutex
	listener net.Listener
	conn     net.Conn
	state    fsm.State
	started  bool
	stopped  bool
	cancel   context.CancelFunc

	writeMu sync.Mutex
	wg      sync.WaitGroup
}

// New builds a Service bound to path, or DefaultSocketPath when path is empty.
func New(path string, opts ...Option) *Service {
	if strings.TrimSpace(path) == "" {
		path = DefaultSocketPath
	}

	s := &Service{
		path:       path,
		logger:     slog.Default(),
		observer:   nopObserver{},
		retryDelay: DefaultAcceptRetryDelay,
		state:      fsm.StateAwaitingPeer,
		listen:     listenEndpoint,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "ipc")
	if s.onReceived == nil {
		s.onReceived = func(value int) {
			s.logger.Info("state received", "value", value)
		}
	}
	return s
}

// Path returns the endpoint path.
func (s *Service) Path() string {
	return s.path
}

// State returns the current supervisor state.
func (s *Service) State() fsm.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connected reports whether a driver is currently attached.
func (s *Service) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// ConfigurationState is the accessory configuration query hook. The bridge
// carries no configuration of its own.
func (s *Service) ConfigurationState() int {
	s.logger.Debug("configuration state queried")
	return 0
}

// Start binds the endpoint and launches the supervisor loop without blocking.
// Bind and listen failures are returned; everything after is logged.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return ErrAlreadyStarted
	}

	listener, err := s.listen(s.path)
	if err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.listener = listener
	s.cancel = cancel
	s.started = true

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		<-loopCtx.Done()
		s.release()
	}()
	go func() {
		defer s.wg.Done()
		s.run(loopCtx, listener)
	}()

	s.logger.Info("bridge service starting", "socket", s.path)
	return nil
}

// Stop shuts down the peer and the listener, removes the endpoint, and waits
// for the supervisor loop to exit. It is safe to call repeatedly or before Start.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	started := s.started
	cancel := s.cancel
	if !started {
		s.transitionLocked(fsm.EventStop)
	}
	s.mu.Unlock()

	s.logger.Info("stopping bridge service")
	if !started {
		return
	}

	cancel()
	s.release()
	s.wg.Wait()

	if err := removeEndpoint(s.path); err != nil {
		s.logger.Warn("remove socket endpoint failed", "socket", s.path, "error", err.Error())
	}
	s.logger.Info("bridge service stopped")
}

// Send writes value to the driver. Without a connected driver the value is
// logged and dropped; callers get no delivery guarantee.
func (s *Service) Send(value int) {
	s.logger.Info("sending state to physical lock", "value", value)
	if value < 0 {
		s.logger.Error("refusing to send negative state", "value", value)
		s.observer.Dropped()
		return
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		s.logger.Error("physical lock driver not connected to socket", "value", value)
		s.observer.Dropped()
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := conn.Write(EncodeState(value)); err != nil {
		s.logger.Error("write to physical lock driver failed", "value", value, "error", err.Error())
		s.observer.Dropped()
		return
	}
	s.observer.Sent(value)
}

func (s *Service) run(ctx context.Context, listener net.Listener) {
	defer func() {
		s.mu.Lock()
		s.transitionLocked(fsm.EventStop)
		s.mu.Unlock()
		s.logger.Info("bridge supervisor exited")
	}()

	for ctx.Err() == nil {
		conn, err := s.accept(ctx, listener)
		if errors.Is(err, errClosed) {
			return
		}
		if err != nil {
			continue
		}
		s.serve(ctx, conn)
	}
}

// accept blocks for the next driver. errClosed means the loop should exit;
// any other error has already been logged and backed off.
func (s *Service) accept(ctx context.Context, listener net.Listener) (net.Conn, error) {
	s.logger.Info("waiting for physical lock driver to connect", "socket", s.path)

	conn, err := listener.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
			s.logger.Info("socket closed while accepting connection")
			return nil, errClosed
		}
		s.logger.Error("accept physical lock driver failed",
			"error", err.Error(),
			"retry_in", s.retryDelay.String(),
		)
		select {
		case <-ctx.Done():
			return nil, errClosed
		case <-time.After(s.retryDelay):
		}
		return nil, err
	}

	s.mu.Lock()
	if s.listener == nil || ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return nil, errClosed
	}
	s.conn = conn
	s.transitionLocked(fsm.EventAccept)
	s.mu.Unlock()

	fields := []any{"socket", s.path}
	if cred, ok := peerCredentials(conn); ok {
		fields = append(fields, "peer_pid", cred.PID, "peer_uid", cred.UID, "peer_gid", cred.GID)
	}
	s.logger.Info("physical lock driver connected", fields...)
	s.observer.PeerConnected()

	if s.onConnect != nil {
		s.onConnect()
	}
	return conn, nil
}

// serve reads chunks from conn until the driver leaves or the service stops.
func (s *Service) serve(ctx context.Context, conn net.Conn) {
	defer s.disconnect(conn)

	buf := make([]byte, ReadChunkSize)
	for ctx.Err() == nil {
		n, err := conn.Read(buf)
		if n > 0 {
			s.dispatch(buf[:n])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, io.EOF) {
			s.logger.Info("physical lock driver closed the connection")
		} else {
			s.logger.Error("read from physical lock driver failed", "error", err.Error())
		}
		return
	}
}

func (s *Service) dispatch(chunk []byte) {
	value, err := ParseState(chunk)
	if err != nil {
		s.logger.Warn("received invalid data", "payload", string(chunk), "error", err.Error())
		s.observer.Malformed()
		return
	}
	s.observer.Received(value)
	s.onReceived(value)
}

func (s *Service) disconnect(conn net.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	if s.state == fsm.StateConnected {
		s.transitionLocked(fsm.EventDisconnect)
	}
	s.mu.Unlock()

	_ = conn.Close()
	s.observer.PeerDisconnected()
}

// release detaches and closes the peer connection and the listener,
// unblocking any pending Accept or Read on the supervisor goroutine.
func (s *Service) release() {
	s.mu.Lock()
	conn, listener := s.conn, s.listener
	s.conn, s.listener = nil, nil
	s.mu.Unlock()

	if conn != nil {
		shutdownConn(conn)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func listenEndpoint(path string) (net.Listener, error) {
	listener, err := Listen(path)
	if err != nil {
		return nil, err
	}
	return listener, nil
}

func (s *Service) transitionLocked(event fsm.Event) {
	if s.state == fsm.StateStopped && event == fsm.EventStop {
		return
	}
	next, err := fsm.Transition(s.state, event)
	if err != nil {
		s.logger.Warn("ignored supervisor transition", "error", err.Error())
		return
	}
	s.state = next
}

func shutdownConn(conn net.Conn) {
	if unixConn, ok := conn.(*net.UnixConn); ok {
		_ = unixConn.CloseRead()
		_ = unixConn.CloseWrite()
	}
	_ = conn.Close()
}
