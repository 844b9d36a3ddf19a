package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/httpserver"
	"storefront-cart/internal/logger"
	orderrepo "storefront-cart/internal/repository/order"
	productrepo "storefront-cart/internal/repository/product"
	shippingtyperepo "storefront-cart/internal/repository/shippingtype"
	ordersvc "storefront-cart/internal/service/order"
	ratessvc "storefront-cart/internal/service/rates"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		panic(err)
	}
	log := logger.Must(logger.New(cfg.LogLevel)).Named("api")
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, log.Named("products"))
	shippingTypeRepo := shippingtyperepo.NewPostgres(dbpool, log.Named("shipping_types"))
	orderRepo := orderrepo.NewPostgres(dbpool, log.Named("orders"))

	router := httpserver.BuildRouter(log, httpserver.Deps{
		DB:            dbpool,
		Products:      productRepo,
		ShippingTypes: shippingTypeRepo,
		Rates:         ratessvc.New(productRepo, shippingTypeRepo, log.Named("rates")),
		Orders:        ordersvc.New(orderRepo, log.Named("checkout")),
	})
	srv := httpserver.New(cfg.HTTPAddr, router, log)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", zap.String("addr", cfg.HTTPAddr))
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
