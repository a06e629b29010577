package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"PriceWatch/internal/usecase"
	"PriceWatch/pkg/config"
	xhttp "PriceWatch/pkg/http"
	pkgkafka "PriceWatch/pkg/kafka"
	applogger "PriceWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	sessions   *usecase.SessionManager
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server, sessions *usecase.SessionManager) *App {
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		sessions:   sessions,
	}
}

// WithConsumer attaches the Kafka consumer and the handler it feeds.
func (a *App) WithConsumer(consumer *pkgkafka.Consumer, kh pkgkafka.MessageHandler) *App {
	a.consumer = consumer
	a.kh = kh
	return a
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	if keys := a.cfg.Poll.DefaultItemKeys; len(keys) > 0 {
		a.sessions.OpenAll(ctx, keys)
		a.log.Info("watchlist opening", applogger.Strings("items", keys))
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then lets in-flight poll ticks finish.
func (a *App) shutdown() error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.log.Info("shutting down...")

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if err := a.sessions.CloseAll(ctx); err != nil {
		a.log.Warn("poll scheduler stop error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
