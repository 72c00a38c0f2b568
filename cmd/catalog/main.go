package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rocketshoes/cart/internal/config"
	h "github.com/rocketshoes/cart/internal/http"
	"github.com/rocketshoes/cart/internal/inventory"
	"github.com/rocketshoes/cart/internal/logging"
	"github.com/rocketshoes/cart/internal/shutdown"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadCatalog()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		ServiceName: "catalog",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)
	zap.ReplaceGlobals(logger)

	seed, err := inventory.LoadSeedFile(cfg.SeedFile)
	if err != nil {
		return err
	}
	store := inventory.NewMemoryStore()
	store.Load(seed)
	logger.Info("catalog seeded",
		zap.String("file", cfg.SeedFile),
		zap.Int("products", len(seed.Products)),
		zap.Int("stock_entries", len(seed.Stock)))

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.NewCatalogRouter(h.NewCatalogHandler(store), logger, 10*time.Second),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	shutdownMgr := shutdown.New(cfg.ShutdownTimeout, logger)
	shutdownMgr.Add("http_server", srv.Shutdown)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		logger.Info("catalog API listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	shutdownMgr.Wait(ctx)
	return nil
}
