package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/recoverly/cart-recovery/internal/agent"
	"github.com/recoverly/cart-recovery/internal/config"
)

func main() {
	lookback := flag.Int("lookback", agent.DefaultLookbackMinutes, "detection lookback window in minutes")
	abandonment := flag.Int("abandonment", agent.DefaultAbandonmentMinutes, "idle minutes before a cart counts as abandoned")
	maxCandidates := flag.Int("max-candidates", agent.DefaultMaxCandidates, "maximum candidates to detect")
	processTop := flag.Int("process-top", agent.DefaultProcessTop, "number of top candidates to process")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall pass timeout")
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

	logger.Info("Starting recovery pass",
		zap.String("tools_server", cfg.Agent.ToolsServerURL),
		zap.Int("lookback_minutes", *lookback),
		zap.Int("abandonment_minutes", *abandonment),
		zap.Int("process_top", *processTop))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := agent.NewClient(cfg.Agent.ToolsServerURL, logger)
	outcomes, err := client.RunPass(ctx, agent.PassOptions{
		LookbackMinutes:    *lookback,
		AbandonmentMinutes: *abandonment,
		MaxCandidates:      *maxCandidates,
		ProcessTop:         *processTop,
	})
	if err != nil {
		logger.Fatal("Recovery pass failed", zap.Error(err))
	}

	var sent, skipped, failed int
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			logger.Error("Candidate processing failed",
				zap.String("cart_id", o.CartID),
				zap.Error(o.Err))
			continue
		}

		switch {
		case o.RecoveryID != "":
			sent++
		default:
			skipped++
		}

		logger.Info("Candidate processed",
			zap.String("cart_id", o.CartID),
			zap.String("root_cause", string(o.RootCause)),
			zap.String("action", string(o.Action.Type)),
			zap.String("dispatch_status", string(o.DispatchStatus)),
			zap.String("message_id", o.MessageID),
			zap.String("recovery_id", o.RecoveryID),
			zap.String("rationale", o.Rationale))
	}

	logger.Info("Recovery pass complete",
		zap.Int("processed", len(outcomes)),
		zap.Int("sent", sent),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed))
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
