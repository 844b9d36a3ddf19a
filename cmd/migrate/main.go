package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront-cart/internal/config"
	"storefront-cart/internal/db"
	"storefront-cart/internal/logger"
	"storefront-cart/internal/migrate"
)

func main() {
	envFile := flag.String("env", "", "optional .env file")
	steps := flag.Int("steps", 1, "migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: migrate [flags] up|down|version\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cmd := "up"
	if flag.NArg() > 0 {
		cmd = flag.Arg(0)
	}

	cfg := config.FromEnv()
	if *envFile != "" {
		var err error
		if cfg, err = config.Load(*envFile); err != nil {
			panic(err)
		}
	}
	log := logger.Must(logger.New(cfg.LogLevel)).Named("migrate")
	defer log.Sync() //nolint:errcheck

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	switch cmd {
	case "up":
		if err := migrate.Apply(ctx, pool); err != nil {
			log.Fatal("apply migrations", zap.Error(err))
		}
		log.Info("migrations applied")
	case "down":
		if err := migrate.Rollback(ctx, pool, *steps); err != nil {
			log.Fatal("roll back migrations", zap.Error(err))
		}
		log.Info("migrations rolled back", zap.Int("steps", *steps))
	case "version":
		version, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			log.Fatal("read migration version", zap.Error(err))
		}
		log.Info("migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
