// Package server initializes and runs the directory server: it builds the
// object-store client, the entry repository and the HTTP endpoint, and
// handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/reseauechanges/annuaire/internal/logging"
	"github.com/reseauechanges/annuaire/internal/server/auth"
	"github.com/reseauechanges/annuaire/internal/server/blob"
	"github.com/reseauechanges/annuaire/internal/server/config"
	"github.com/reseauechanges/annuaire/internal/server/httpapi"
	"github.com/reseauechanges/annuaire/internal/server/metrics"
	"github.com/reseauechanges/annuaire/internal/server/repositories/entries"
)

type App struct {
	config *config.Config
	logger logging.Logger
	server *httpapi.Server
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	layout := entries.Layout(cfg.Layout)
	if layout != entries.LayoutPerEntry && layout != entries.LayoutAggregate {
		return nil, fmt.Errorf("unknown storage layout %q", cfg.Layout)
	}
	if cfg.AdminToken == "" {
		logger.Warn(ctx, "no admin token configured, all mutations will be rejected")
	}

	store, err := blob.NewS3Store(ctx, blob.S3Config{
		RootUser:     cfg.S3RootUser,
		RootPassword: cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		Region:       cfg.S3Region,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}

	m := metrics.New(metrics.Registry)

	repo := entries.NewBlobRepository(metrics.InstrumentStore(store, m), entries.Config{
		Layout:       layout,
		EntryPrefix:  cfg.EntryPrefix,
		AggregateKey: cfg.AggregateKey,
		BackupPrefix: cfg.BackupPrefix,
	}, logger)

	srv := httpapi.NewServer(
		cfg.EndpointAddr,
		repo,
		auth.NewGate(cfg.AdminToken),
		logger,
		m,
		metrics.Registry,
		cfg.StoreTimeout,
	)

	return &App{config: cfg, logger: logger, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "starting app", "address", app.config.EndpointAddr, "layout", app.config.Layout)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()
}
