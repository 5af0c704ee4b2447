package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/config"
	"github.com/recoverly/cart-recovery/internal/seed"
	"github.com/recoverly/cart-recovery/internal/store"
)

func main() {
	withSeed := flag.Bool("seed", false, "load the sample corpus after creating indices")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall bootstrap timeout")
	flag.Parse()

	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Get()
	if err != nil {
		logger.Fatal("Failed to read configuration", zap.Error(err))
	}

	gateway, err := store.New(store.Config{
		URL:      cfg.DocStore.URL,
		APIKey:   cfg.DocStore.APIKey,
		Username: cfg.DocStore.Username,
		Password: cfg.DocStore.Password,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document store gateway", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	for index, mapping := range store.Mappings() {
		exists, err := gateway.IndexExists(ctx, index)
		if err != nil {
			logger.Fatal("Failed to check index", zap.String("index", index), zap.Error(err))
		}
		if exists {
			logger.Info("Index already exists", zap.String("index", index))
			continue
		}

		if err := gateway.CreateIndex(ctx, index, mapping); err != nil {
			logger.Fatal("Failed to create index", zap.String("index", index), zap.Error(err))
		}
		logger.Info("Index created", zap.String("index", index))
	}

	if *withSeed {
		if err := seed.Apply(ctx, gateway, time.Now()); err != nil {
			logger.Fatal("Failed to load sample corpus", zap.Error(err))
		}
		logger.Info("Sample corpus loaded")
	}

	logger.Info("Bootstrap complete")
}

func initLogger() (*zap.Logger, error) {
	level := viper.GetString("log.level")
	var logLevel zap.AtomicLevel

	switch level {
	case "debug":
		logLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		logLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		logLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		logLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	config := zap.NewProductionConfig()
	config.Level = logLevel
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config.Build()
}
