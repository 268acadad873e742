package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rbright/lockbridge/internal/cli"
	"github.com/rbright/lockbridge/internal/config"
	"github.com/rbright/lockbridge/internal/doctor"
	"github.com/rbright/lockbridge/internal/ipc"
	"github.com/rbright/lockbridge/internal/lock"
	"github.com/rbright/lockbridge/internal/logging"
	"github.com/rbright/lockbridge/internal/metrics"
	"github.com/rbright/lockbridge/internal/version"
)

const (
	metricsShutdownTimeout = 5 * time.Second
	simulateDialTimeout    = time.Second
	simulateRetryInterval  = 250 * time.Millisecond
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("lockbridge"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("lockbridge"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath, config.Overrides{SocketFile: parsed.SocketPath})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	logRuntime, err := logging.New(cfgLoaded.Config.Logging, r.Stdout)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"socket", cfgLoaded.Config.Lock.SocketFile,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded.Config, logger)
	case cli.CommandSimulate:
		return r.commandSimulate(ctx, cfgLoaded.Config.Lock.SocketFile, parsed.Report, logger)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// commandServe runs the bridge until ctx is cancelled, then shuts down the
// metrics endpoint before the bridge itself.
func (r Runner) commandServe(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	target, err := lock.ParseDefault(cfg.Lock.Default)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	collector := metrics.NewCollector()

	var tracker *lock.Tracker
	opts := []ipc.Option{
		ipc.WithLogger(logger),
		ipc.WithObserver(collector),
		ipc.WithReceiveHandler(func(value int) { tracker.Report(value) }),
	}
	if cfg.Lock.SyncOnConnect {
		opts = append(opts, ipc.WithConnectHandler(func() { tracker.Resync() }))
	}
	service := ipc.New(cfg.Lock.SocketFile, opts...)
	tracker = lock.NewTracker(target, service, logger)
	tracker.OnChange(func(state lock.State) { collector.ObserveLockState(int(state)) })

	var metricsServer *metrics.Server
	if cfg.Metrics.Listen != "" {
		metricsServer, err = metrics.Serve(cfg.Metrics.Listen, collector, logger)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}

	// Stop below is the only teardown path for the bridge; the signal
	// context must not close the driver connection ahead of it.
	if err := service.Start(context.WithoutCancel(ctx)); err != nil {
		fmt.Fprintf(r.Stderr, "error: start bridge: %v\n", err)
		logger.Error("start bridge failed", "error", err.Error())
		shutdownMetrics(metricsServer, logger)
		return 1
	}

	logger.Info("lock bridge serving",
		"socket", service.Path(),
		"target", target.String(),
		"sync_on_connect", cfg.Lock.SyncOnConnect,
		"version", version.String(),
	)

	<-ctx.Done()
	logger.Info("shutdown requested", "reason", context.Cause(ctx).Error())

	shutdownMetrics(metricsServer, logger)
	service.Stop()

	logger.Info("lock bridge exited",
		"current", tracker.Current().String(),
		"target", tracker.Target().String(),
	)
	return 0
}

func shutdownMetrics(server *metrics.Server, logger *slog.Logger) {
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("metrics shutdown failed", "error", err.Error())
		return
	}
	logger.Info("metrics stopped")
}

// commandSimulate acts as a physical lock driver: every target received from
// the bridge is actuated immediately and reported back as the current state.
func (r Runner) commandSimulate(ctx context.Context, socketPath string, report int, logger *slog.Logger) int {
	peer, err := dialBridge(ctx, socketPath, logger)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		fmt.Fprintf(r.Stderr, "error: connect bridge: %v\n", err)
		return 1
	}
	defer peer.Close()

	stop := context.AfterFunc(ctx, func() { _ = peer.Close() })
	defer stop()

	logger.Info("simulated driver connected", "socket", socketPath)
	if report != cli.NoReport {
		if err := peer.SendState(report); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
		fmt.Fprintf(r.Stdout, "reported %d\n", report)
	}

	for {
		value, err := peer.ReadState()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return 0
			case errors.Is(err, ipc.ErrInvalidState):
				logger.Warn("ignoring invalid target from bridge", "error", err.Error())
				continue
			case errors.Is(err, io.EOF):
				fmt.Fprintln(r.Stderr, "error: bridge closed the connection")
				return 1
			default:
				fmt.Fprintf(r.Stderr, "error: %v\n", err)
				return 1
			}
		}

		fmt.Fprintf(r.Stdout, "target %d (%s)\n", value, lock.State(value))
		if err := peer.SendState(value); err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			return 1
		}
	}
}

// dialBridge connects to socketPath, retrying while no bridge is listening.
func dialBridge(ctx context.Context, socketPath string, logger *slog.Logger) (*ipc.Peer, error) {
	waiting := false
	for {
		peer, err := ipc.Dial(ctx, socketPath, simulateDialTimeout)
		if err == nil {
			return peer, nil
		}
		if !ipc.IsUnavailable(err) {
			return nil, err
		}
		if !waiting {
			logger.Info("waiting for bridge socket", "socket", socketPath)
			waiting = true
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(simulateRetryInterval):
		}
	}
}
