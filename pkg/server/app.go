package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"VolScan/internal/domain/models"
	"VolScan/internal/usecase"
	"VolScan/pkg/config"
	xhttp "VolScan/pkg/http"
	applogger "VolScan/pkg/logger"
	"VolScan/pkg/util"
)

// Closer releases one infrastructure resource on shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	runner     usecase.Runner
	httpServer *xhttp.Server
	closers    []Closer
}

// New creates a new App instance with all dependencies. httpServer may be
// nil when the API is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	runner usecase.Runner,
	httpServer *xhttp.Server,
	closers ...Closer,
) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        log,
		runner:     runner,
		httpServer: httpServer,
		closers:    closers,
	}
}

// Run starts the application and blocks until interrupted. With once set, or
// with neither a schedule nor an HTTP server, it runs a single batch and
// returns that batch's error.
func (a *App) Run(once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx, once)
}

func (a *App) run(ctx context.Context, once bool) error {
	if once || (a.cfg.Schedule.Interval <= 0 && a.httpServer == nil) {
		err := a.RunBatch(ctx)
		a.shutdown()
		return err
	}

	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			a.shutdown()
			return err
		}
	}

	if err := a.RunBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.log.Warn("initial batch failed", applogger.Error(err))
	}

	if a.cfg.Schedule.Interval > 0 {
		a.schedule(ctx, a.cfg.Schedule.Interval)
	} else {
		<-ctx.Done()
	}

	a.log.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// schedule re-runs the batch every interval until ctx is done.
func (a *App) schedule(ctx context.Context, interval time.Duration) {
	a.log.Info("scheduler started", applogger.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.RunBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("scheduled batch failed", applogger.Error(err))
			}
		}
	}
}

// RunBatch runs one scan with the configured observation date. A run already
// in progress elsewhere is skipped without error.
func (a *App) RunBatch(ctx context.Context) error {
	rp := usecase.RunParams{}
	if d, ok := util.ParseDate(a.cfg.Analysis.IVDate); ok {
		rp.Date = d
	}
	start := time.Now()
	report, err := a.runner.Run(ctx, rp)
	if errors.Is(err, models.ErrRunInProgress) {
		a.log.Info("batch skipped: run in progress")
		return nil
	}
	if err != nil {
		a.log.Error("batch failed", applogger.Error(err))
		return err
	}
	a.log.Info("batch complete",
		applogger.String("run_id", report.RunID),
		applogger.Int("tickers", len(report.Tickers)),
		applogger.Int("skips", len(report.Skips)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// shutdown gracefully stops the server and closes every resource.
func (a *App) shutdown() {
	a.log.Info("shutting down...")

	if a.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout+time.Second)
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
		cancel()
	}

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
