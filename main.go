// Package main is the entry point for the group expense splitting Telegram bot.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gitlab.com/yelinaung/split-bot/internal/bot"
	"gitlab.com/yelinaung/split-bot/internal/config"
	"gitlab.com/yelinaung/split-bot/internal/database"
	"gitlab.com/yelinaung/split-bot/internal/gemini"
	"gitlab.com/yelinaung/split-bot/internal/ledger"
	"gitlab.com/yelinaung/split-bot/internal/logger"
	"gitlab.com/yelinaung/split-bot/internal/metrics"
	"gitlab.com/yelinaung/split-bot/internal/repository"
	"gitlab.com/yelinaung/split-bot/internal/telemetry"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("split-bot %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	logger.InitHashSalt()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTelExporter, version)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to set up tracing")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to flush traces")
		}
	}()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	logger.Log.Info().Msg("Database initialized successfully")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr, metrics.SetupRoutes(reg, pool.Ping)); err != nil {
				logger.Log.Error().Err(err).Msg("Metrics server stopped")
			}
		}()
	}

	members := repository.NewMemberRepository(pool)
	expenses := repository.NewExpenseRepository(pool)
	settlements := repository.NewSettlementRepository(pool)

	deps := bot.Deps{
		Ledger:      ledger.NewService(expenses, settlements, members, ledger.WithObserver(collector)),
		Members:     members,
		Groups:      repository.NewGroupRepository(pool),
		Expenses:    expenses,
		Settlements: settlements,
		Usage:       collector,
	}

	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, gemini.WithModel(cfg.GeminiModel))
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to create Gemini client, receipt photos disabled")
		} else {
			deps.Receipts = geminiClient
		}
	} else {
		logger.Log.Info().Msg("GEMINI_API_KEY not set, receipt photos disabled")
	}

	telegramBot, err := bot.New(cfg, deps)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to create bot")
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		logger.Log.Info().Msg("Shutting down...")
		cancel()
	}()

	telegramBot.Start(ctx)
}
