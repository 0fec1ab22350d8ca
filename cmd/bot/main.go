// Package main provides the entry point for the referral ledger bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/referral-ledger/internal/api"
	"github.com/referral-ledger/internal/bot"
	"github.com/referral-ledger/internal/config"
	"github.com/referral-ledger/internal/logging"
	"github.com/referral-ledger/internal/ratelimit"
	"github.com/referral-ledger/internal/service"
	"github.com/referral-ledger/internal/storage"
)

const prunePeriod = 5 * time.Minute

func main() {
	fmt.Println("Referral Ledger Bot")
	log.Println("Bot starting...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize structured logging
	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	// Open storage and load the ledger
	store, err := storage.Open(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}

	ledgerService, err := service.Open(ctx, store, service.Options{
		AdminID:         cfg.Bot.AdminID,
		LeaderboardSize: cfg.Ledger.LeaderboardSize,
		Logger:          logger,
	})
	if err != nil {
		_ = store.Close()
		logger.WithError(err).Fatal("Failed to load ledger")
	}
	defer func() {
		if err := ledgerService.Close(); err != nil {
			logger.WithError(err).Error("Failed to close storage")
		}
	}()

	if cfg.Bot.AdminID == "" {
		logger.Warn("ADMIN_ID not set, admin commands are disabled")
	}

	// Connect to Telegram
	botAPI, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Telegram")
	}
	botAPI.Debug = cfg.Bot.Debug
	logger.WithField("bot", botAPI.Self.UserName).Info("Authorized on Telegram")

	limiter := ratelimit.NewLimiter(cfg.RateLimit.CommandsPerSecond, cfg.RateLimit.Burst)
	dispatcher := bot.NewDispatcher(ledgerService, botAPI.Self.UserName, limiter, logger)
	poller := bot.NewPoller(botAPI, dispatcher, cfg.Bot.PollTimeout, logger)

	// Optional admin API
	var server *api.Server
	if cfg.Server.Enabled {
		server = api.NewServer(&api.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			APIToken:        cfg.Server.APIToken,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		}, ledgerService, limiter, logger)

		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.WithError(err).Fatal("Server failed to start")
			}
		}()
	}

	go pruneLimiter(ctx, limiter, logger)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("Polling stopped")
	}

	logger.Info("Shutting down...")

	if server != nil {
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Server forced to shutdown")
		}
	}

	stats := limiter.Stats()
	logger.WithFields(map[string]interface{}{
		"allowed": stats.Allowed,
		"denied":  stats.Denied,
	}).Info("Bot exited")
}

// pruneLimiter drops idle per-user limiters until ctx is done.
func pruneLimiter(ctx context.Context, limiter *ratelimit.Limiter, logger *logging.Logger) {
	ticker := time.NewTicker(prunePeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(); n > 0 {
				logger.WithField("pruned", n).Debug("Pruned idle rate limiters")
			}
		}
	}
}
