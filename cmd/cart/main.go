package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rocketshoes/cart/internal/cart"
	"github.com/rocketshoes/cart/internal/catalog"
	"github.com/rocketshoes/cart/internal/config"
	h "github.com/rocketshoes/cart/internal/http"
	"github.com/rocketshoes/cart/internal/logging"
	"github.com/rocketshoes/cart/internal/notify"
	"github.com/rocketshoes/cart/internal/shutdown"
	"github.com/rocketshoes/cart/internal/storage"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "cart: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		ServiceName: "cart",
		Env:         string(cfg.AppEnv),
		Level:       cfg.LogLevel,
	})
	if err != nil {
		return err
	}
	defer logging.Sync(logger)
	zap.ReplaceGlobals(logger)
	cfg.Log(logger)

	ctx := context.Background()
	shutdownMgr := shutdown.New(cfg.ShutdownTimeout, logger)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := storage.Open(connectCtx, storage.Options{
		Driver:        cfg.StorageDriver,
		SQLitePath:    cfg.SQLitePath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisPrefix:   cfg.RedisPrefix,
		MongoURI:      cfg.MongoURI,
		MongoDB:       cfg.MongoDB,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("open %s storage: %w", cfg.StorageDriver, err)
	}
	shutdownMgr.Add("storage", shutdown.Closer(store))
	logger.Info("storage ready", zap.String("driver", cfg.StorageDriver))

	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier := notify.NewKafkaNotifier(logger, cfg.KafkaTopic, cfg.KafkaBrokers...)
		shutdownMgr.Add("kafka_notifier", shutdown.Closer(kafkaNotifier))
		notifiers = append(notifiers, kafkaNotifier)
		logger.Info("publishing notifications to kafka", zap.String("topic", cfg.KafkaTopic))
	}

	catalogClient := catalog.NewClient(logger, catalog.Options{
		BaseURL:     cfg.CatalogURL,
		Timeout:     cfg.CatalogTimeout,
		MaxFailures: cfg.BreakerMaxFailures,
		OpenTimeout: cfg.BreakerOpenTimeout,
	})

	cartStore, err := cart.New(ctx, cart.Config{
		Catalog:  catalogClient,
		Storage:  store,
		Notifier: notifiers,
		Logger:   logger,
		Key:      cfg.StorageKey,
	})
	if err != nil {
		shutdownMgr.Shutdown()
		return err
	}
	shutdownMgr.Add("cart_store", shutdown.Closer(cartStore))

	handler := h.NewCartHandler(cartStore, cfg.RequestTimeout)
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      h.NewCartRouter(handler, logger, cfg.RequestTimeout),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	shutdownMgr.Add("http_server", srv.Shutdown)

	waitCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		logger.Info("cart API listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	shutdownMgr.Wait(waitCtx)
	return nil
}
