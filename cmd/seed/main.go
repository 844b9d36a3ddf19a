package main

import (
	"context"

	"go.uber.org/zap"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/logger"
	productrepo "storefront-cart/internal/repository/product"
	shippingtyperepo "storefront-cart/internal/repository/shippingtype"
	"storefront-cart/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	log := logger.Must(logger.New(cfg.LogLevel)).Named("seed")
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	products := productrepo.NewPostgres(pool, log.Named("products"))
	types := shippingtyperepo.NewPostgres(pool, log.Named("shipping_types"))
	if err := seed.Apply(ctx, products, types, log); err != nil {
		log.Fatal("seed apply", zap.Error(err))
	}
}
