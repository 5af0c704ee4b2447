package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/api"
	"github.com/recoverly/cart-recovery/internal/config"
	"github.com/recoverly/cart-recovery/internal/detector"
	"github.com/recoverly/cart-recovery/internal/diagnosis"
	"github.com/recoverly/cart-recovery/internal/dispatch"
	"github.com/recoverly/cart-recovery/internal/profiles"
	"github.com/recoverly/cart-recovery/internal/recorder"
	"github.com/recoverly/cart-recovery/internal/secrets"
	"github.com/recoverly/cart-recovery/internal/similarity"
	"github.com/recoverly/cart-recovery/internal/store"
)

const serviceName = "cart-recovery"

func main() {
	if err := config.Load(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := initLogger()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Cart Recovery - abandoned cart tools service")

	cfg, err := config.Get()
	if err != nil {
		logger.Fatal("Failed to read configuration", zap.Error(err))
	}

	storeCfg := store.Config{
		URL:      cfg.DocStore.URL,
		APIKey:   cfg.DocStore.APIKey,
		Username: cfg.DocStore.Username,
		Password: cfg.DocStore.Password,
	}

	// Vault overrides config-based credentials when it is reachable.
	if cfg.Vault.URL != "" && cfg.Vault.Token != "" {
		vaultClient, err := secrets.NewVaultClient(cfg.Vault.URL, cfg.Vault.Token)
		if err != nil {
			logger.Warn("Failed to initialize Vault client, using config-based credentials", zap.Error(err))
		} else if creds, err := vaultClient.DocStoreCredentials(serviceName); err != nil {
			logger.Warn("Failed to load credentials from Vault, using config-based credentials", zap.Error(err))
		} else {
			storeCfg.APIKey = creds.APIKey
			storeCfg.Username = creds.Username
			storeCfg.Password = creds.Password
			logger.Info("Document store credentials loaded from Vault")
		}
	} else {
		logger.Info("Using config-based credentials (Vault not configured)")
	}

	gateway, err := store.New(storeCfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document store gateway", zap.Error(err))
	}

	handlers := api.NewHandlers(
		detector.New(gateway, logger),
		diagnosis.New(gateway, logger),
		profiles.New(gateway, logger),
		similarity.New(gateway, logger),
		dispatch.New(dispatch.NoopProvider{}, dispatch.NewLimiter(cfg.Dispatch.SendsPerMinute, cfg.Dispatch.Burst), logger),
		recorder.New(gateway, logger),
		logger,
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   serviceName,
			"version":   "v1.0",
			"timestamp": time.Now().UTC(),
		})
	})

	api.RegisterRoutes(router, handlers)

	port := cfg.Server.Port
	if port == "" {
		port = "8000"
	}

	srv := &http.Server{
		Addr:    cfg.Server.Host + ":" + port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start HTTP server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
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
