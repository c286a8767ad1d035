// Package main boots the shopmesh marketplace server and the per-store
// mailbox watchers.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/shopmesh/shopmesh/internal/catalog"
	"github.com/shopmesh/shopmesh/internal/config"
	httpapi "github.com/shopmesh/shopmesh/internal/http"
	"github.com/shopmesh/shopmesh/internal/ingest"
	"github.com/shopmesh/shopmesh/internal/mailbox"
	"github.com/shopmesh/shopmesh/internal/notify"
	"github.com/shopmesh/shopmesh/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger.Fatal("config load failed", zap.Error(err))
	}
	obs.InitLogger(cfg.Log.Level, cfg.Log.Format)
	obs.Logger.Info("service starting", zap.String("env", cfg.App.Env))

	cat := catalog.Seeded()
	dispatcher := notify.New(notify.LogSender{}, cfg.Notify.Buffer)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	dispatcher.Start(ctx, cfg.Notify.HighWatermark)

	processor := ingest.NewProcessor(cat, dispatcher)
	var watchers sync.WaitGroup
	for _, settings := range mailbox.FromConfig(cfg.Mailbox) {
		watchers.Add(1)
		go func(s mailbox.Settings) {
			defer watchers.Done()
			// Errors are already logged; a failed watcher stays down.
			_ = mailbox.NewWatcher(s, processor).Run(ctx)
		}(settings)
	}

	app := httpapi.NewServer(cat, dispatcher)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           app.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		obs.Logger.Info("http listen", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error("http server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigc
	obs.Logger.Info("shutdown signal", zap.String("signal", s.String()))

	dispatcher.CloseIntake()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer drainCancel()
	if drained := dispatcher.DrainUntil(drainCtx); !drained {
		obs.Logger.Warn("confirmation drain timeout")
	}
	cancel()

	srvCtx, srvCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer srvCancel()
	if err := srv.Shutdown(srvCtx); err != nil {
		obs.Logger.Error("http shutdown error", zap.Error(err))
	}
	watchers.Wait()
	obs.Logger.Info("service stopped")
}
