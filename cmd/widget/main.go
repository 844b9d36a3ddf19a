package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"storefront-cart/internal/clients/storefront"
	"storefront-cart/internal/config"
	"storefront-cart/internal/httpserver"
	"storefront-cart/internal/logger"
	"storefront-cart/internal/scheduler"
	"storefront-cart/internal/storage"
	"storefront-cart/internal/widget"
)

const cookieMaxAge = 365 * 24 * time.Hour

// sessionSource lets the scheduler walk the registry's live sessions.
type sessionSource struct {
	registry *widget.Registry
}

func (s sessionSource) Each(fn func(visitorID string, r scheduler.Refresher)) {
	s.registry.Each(func(visitorID string, sess *widget.Session) {
		fn(visitorID, sess)
	})
}

func main() {
	envFile := flag.String("env", "", "optional .env file")
	secure := flag.Bool("secure-cookie", false, "mark the visitor cookie Secure")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}
	log := logger.Must(logger.New(cfg.LogLevel)).Named("widget")
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage, log.Named("storage"))
	if err != nil {
		log.Fatal("open storage", zap.Error(err))
	}
	defer store.Close()

	upstream := storefront.NewClient(cfg.Upstream)
	opts := widget.Options{JustAddedFor: cfg.Widget.JustAddedFor}

	registry := widget.NewRegistry(func(visitorID string) (*widget.Session, error) {
		kv := storage.WithNamespace(store, "visitor:"+visitorID)
		return widget.NewSession(kv, upstream, opts, log.Named("session").With(zap.String("visitor_id", visitorID))), nil
	}, cfg.Widget.SessionTTL, log.Named("registry"))
	registry.Start()
	defer registry.Close()

	if cfg.Widget.CatalogRefreshCron != "" {
		sched, err := scheduler.New(cfg.Widget.CatalogRefreshCron, sessionSource{registry: registry}, log.Named("scheduler"))
		if err != nil {
			log.Fatal("init scheduler", zap.Error(err))
		}
		if err := sched.Start(); err != nil {
			log.Fatal("start scheduler", zap.Error(err))
		}
		defer sched.Stop()
	}

	router := httpserver.BuildWidgetRouter(log, httpserver.WidgetDeps{
		Sessions:       registry,
		AllowedOrigins: cfg.Widget.AllowedOrigins,
		CookieMaxAge:   cookieMaxAge,
		SecureCookie:   *secure,
	})
	srv := httpserver.New(cfg.WidgetAddr, router, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting widget server", zap.String("addr", cfg.WidgetAddr), zap.String("upstream", cfg.Upstream.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}
