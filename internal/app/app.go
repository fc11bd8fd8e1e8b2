package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/specialistvlad/simgridgo/internal/ctxlog"
	"github.com/specialistvlad/simgridgo/internal/job"
	"github.com/specialistvlad/simgridgo/internal/poller"
	"github.com/specialistvlad/simgridgo/internal/scheduler"
	"github.com/specialistvlad/simgridgo/internal/transport"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW      io.Writer
	logger    *slog.Logger
	config    *Config
	transport *transport.Client
	jobs      *job.Client
	poller    *poller.Poller
}

// NewApp is the constructor for the main application. Results are printed to
// outW, logs go to logW. A nil clock selects the wall clock.
func NewApp(outW, logW io.Writer, cfg *Config, clock scheduler.Clock) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	logger.Debug("Logger configured successfully.")

	tc, err := transport.New(cfg.TransportConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}
	jobs := job.NewClient(tc, cfg.APIVersion)
	p, err := poller.New(jobs, cfg.PollerConfig(), clock)
	if err != nil {
		_ = tc.Close()
		return nil, fmt.Errorf("failed to create poller: %w", err)
	}
	logger.Debug("Client stack ready.", "api_url", cfg.APIURL, "api_version", cfg.APIVersion, "encoding", cfg.Encoding, "gzip", cfg.Gzip)

	return &App{
		outW:      outW,
		logger:    logger,
		config:    cfg,
		transport: tc,
		jobs:      jobs,
		poller:    p,
	}, nil
}

// Close releases the HTTP connections held by the app.
func (a *App) Close() error {
	return a.transport.Close()
}

// withLogger attaches the app logger to ctx.
func (a *App) withLogger(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
