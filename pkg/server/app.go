package server

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	domrepo "FinPredict/internal/domain/repository"
	pkgch "FinPredict/pkg/clickhouse"
	"FinPredict/pkg/config"
	xhttp "FinPredict/pkg/http"
	applogger "FinPredict/pkg/logger"
	"FinPredict/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	consumer    *queue.RedisQueue
	chClient    *pkgch.Client
	events      domrepo.EventPublisher
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	handler xhttp.Handler,
	consumer *queue.RedisQueue,
	chClient *pkgch.Client,
	events domrepo.EventPublisher,
) *App {
	return &App{
		cfg:         cfg,
		httpHandler: handler,
		consumer:    consumer,
		chClient:    chClient,
		events:      events,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// init app logger (console info by default)
	l, _ := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start training queue workers
	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			l.Error("training queue start error", applogger.Error(err))
			return err
		}
		l.Info("training queue started",
			applogger.Int("workers", a.cfg.Training.QueueWorkers))
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		l.Error("http server start error", applogger.Error(err))
		return err
	}
	l.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	l.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	l, err := applogger.New(&applogger.Config{Level: "info", Format: "console", Output: "stdout"})
	if err != nil {
		log.Printf("failed to create logger: %v", err)
		return err
	}
	l.Info("shutting down...")

	// Shutdown HTTP server first so no new training requests arrive
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		l.Error("http shutdown error", applogger.Error(err))
	}

	// Drain queue workers; an in-flight training run finishes or times out
	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			l.Warn("training queue stop error", applogger.Error(err))
		}
	}

	// Close infrastructure clients
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			l.Warn("event publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	l.Info("shutdown complete")
	return nil
}
