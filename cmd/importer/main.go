package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/importer"
	"storefront-cart/internal/logger"
	productrepo "storefront-cart/internal/repository/product"
	shippingtyperepo "storefront-cart/internal/repository/shippingtype"
)

func main() {
	var filePath string
	flag.StringVar(&filePath, "file", "", "Path to a productos or tipos_envio CSV export")
	flag.Parse()

	if filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.FromEnv()
	log := logger.Must(logger.New(cfg.LogLevel)).Named("importer")
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	imp := importer.NewCSVImporter(f,
		productrepo.NewPostgres(pool, log.Named("products")),
		shippingtyperepo.NewPostgres(pool, log.Named("shipping_types")),
		log)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatal("import failed", zap.Error(err))
	}

	fmt.Printf("Imported %d records from %s in %s\n", count, filePath, time.Since(start).Truncate(time.Millisecond))
}
