// Package main is the entry point for the devexplorer application.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term" //nolint:depguard // Required for TTY detection

	"github.com/joe/device-explorer/internal/cli"
	"github.com/joe/device-explorer/internal/config"
	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/internal/logging"
	"github.com/joe/device-explorer/internal/metrics"
	"github.com/joe/device-explorer/internal/tui"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

const shutdownTimeout = 2 * time.Second

func main() {
	// Parse configuration
	cfg, err := config.ParseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err = run(ctx, cfg)

	stop()

	if err != nil {
		// Partial failures were already reported with the operation's result
		if !errors.Is(err, errors.ErrPartialFailure) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	store, err := filesystem.NewOSStore(cfg.MirrorRoot)
	if err != nil {
		return err
	}

	remote, closeRemote, err := filesystem.OpenDevice(ctx, cfg.DeviceURL, store, cfg.ConnectOptions())
	if err != nil {
		return err
	}
	defer closeRemote()

	queue := events.NewQueue()

	x, err := explorer.New(explorer.Options{
		Remote:   metrics.Instrument(remote),
		Local:    store,
		Device:   cfg.DeviceURL.Name(),
		RootPath: cfg.DeviceURL.Root,
		Emitter:  queue,
		Settings: cfg.Settings(),
		Logger:   &logger,
		Hidden:   cfg.Hidden,
	})
	if err != nil {
		return err
	}
	defer x.Close()
	defer queue.Close()

	logger.Info().Str("device", cfg.DeviceURL.Name()).Str("root", cfg.DeviceURL.Root).Msg("device opened")

	group, ctx := errgroup.WithContext(ctx)
	runCtx, cancel := context.WithCancel(ctx)

	if cfg.MetricsAddr != "" {
		group.Go(func() error { return serveMetrics(runCtx, cfg.MetricsAddr, logger) })
	}

	group.Go(func() error {
		defer cancel()

		if cfg.Interactive {
			return runInteractive(runCtx, x, queue, store, cfg)
		}

		var progress io.Writer
		if term.IsTerminal(int(os.Stderr.Fd())) {
			progress = os.Stderr
		}

		return cli.New(cli.Options{
			Explorer: x,
			Queue:    queue,
			Out:      os.Stdout,
			Progress: progress,
			Logger:   &logger,
		}).Run(runCtx, cfg)
	})

	return group.Wait()
}

func runInteractive(
	ctx context.Context, x *explorer.Explorer, queue *events.Queue, store *filesystem.BillyStore, cfg *config.Config,
) error {
	model := tui.New(ctx, tui.Options{
		Explorer: x,
		Queue:    queue,
		Local:    store,
		Title:    "Device Explorer: " + cfg.DeviceURL.Name(),
	})

	// Only use alt screen if stdout is a TTY
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if term.IsTerminal(int(os.Stdout.Fd())) {
		opts = append(opts, tea.WithAltScreen())
	}

	p := tea.NewProgram(model, opts...)

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	if m, ok := final.(tui.Model); ok && m.Quitting() {
		x.Preempt("quit")
	}

	return nil
}

func serveMetrics(ctx context.Context, addr string, logger zerolog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("serving metrics")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server: %w", err)
	}

	return nil
}

// newLogger writes to the log file when one is set. The interactive explorer
// owns the terminal, so without a file it logs nowhere.
func newLogger(cfg *config.Config) (zerolog.Logger, func(), error) {
	var (
		out     io.Writer = os.Stderr
		closeFn           = func() {}
	)

	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec,mnd // User-chosen log file
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}

		out = f
		closeFn = func() { _ = f.Close() }
	case cfg.Interactive:
		out = io.Discard
	}

	console := cfg.LogFile == "" && term.IsTerminal(int(os.Stderr.Fd()))

	logger, err := logging.New(out, cfg.LogLevel, console)
	if err != nil {
		closeFn()
		return zerolog.Nop(), nil, err
	}

	return logger, closeFn, nil
}
