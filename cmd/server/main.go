package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yangwenmai/storyverse/internal/api"
	"github.com/yangwenmai/storyverse/internal/app"
	"github.com/yangwenmai/storyverse/internal/config"
	"github.com/yangwenmai/storyverse/internal/logger"
	"github.com/yangwenmai/storyverse/internal/notify"
	"github.com/yangwenmai/storyverse/internal/preview"
	"github.com/yangwenmai/storyverse/internal/store"
	"github.com/yangwenmai/storyverse/internal/upload"
	"github.com/yangwenmai/storyverse/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	quotaInterval   = time.Minute
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, store.ContextConfirmer, log)
	if err != nil {
		return err
	}
	defer a.Close()

	deps := api.Deps{
		Characters:  a.Characters,
		Storyboards: a.Storyboards,
		History:     a.History,
		Recent:      a.Recent,
		Notifier:    a.Notifier,
		Backend:     app.Backend(cfg, log),
		Previewer:   newPreviewer(cfg, log),
		Logger:      log,
		CORSOrigin:  cfg.CORSOrigin,
	}
	if !cfg.UseStubBackend() {
		deps.Uploader = upload.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.UploadTimeout, log)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.New(deps).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("storyverse server listening", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Graceful shutdown.
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		worker.New(a.Storage, a.Keys(), cfg.StorageQuotaBytes, quotaInterval, log).Start(gctx)
		return nil
	})

	if a.Redis != nil {
		relay := notify.NewRedisRelay(a.Redis, a.Notifier, cfg.RedisPrefix+"notify", log)
		g.Go(func() error {
			if err := relay.Run(gctx); err != nil && gctx.Err() == nil {
				return fmt.Errorf("notify relay: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func newPreviewer(cfg config.Config, log *zap.Logger) *preview.Fetcher {
	var opts []preview.Option
	if cfg.PreviewAllowPrivate {
		log.Warn("previews may reach private addresses")
		opts = append(opts, preview.WithPrivateAddresses())
	}
	return preview.NewFetcher(cfg.PreviewMaxRunes, log, opts...)
}
