package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"petprint-bot/internal/bot"
	"petprint-bot/internal/bot/telegram"
	"petprint-bot/internal/catalog"
	"petprint-bot/internal/config"
	"petprint-bot/internal/metrics"
	"petprint-bot/internal/session"
	"petprint-bot/internal/storage"
	storageredis "petprint-bot/internal/storage/redis"
	"petprint-bot/pkg/redis"
	"petprint-bot/pkg/square"
)

const sweepInterval = 10 * time.Minute

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ordering bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, zapLogger, err := setup()
			if err != nil {
				return err
			}
			defer zapLogger.Sync()

			if err := cfg.ValidateServe(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serve(ctx, cfg, zapLogger); err != nil {
				zapLogger.Error("Bot stopped with error", zap.Error(err))
				return err
			}
			zapLogger.Info("Bot shutdown gracefully")
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	cat, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	rec := metrics.New()

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = connectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return err
		}
		defer redisClient.Close()
	}

	var store session.Store
	switch cfg.SessionStore {
	case config.SessionStoreRedis:
		store = storageredis.New(redisClient, cfg.SessionTTL)
	default:
		memStore := session.NewMemoryStore(cfg.SessionTTL)
		go sweepSessions(ctx, memStore, logger)
		store = memStore
	}

	var opts []bot.Option
	opts = append(opts, bot.WithMetrics(rec))

	var pgStorage *storage.PostgresStorage
	if cfg.Database.Enabled() {
		var cache storage.Cache
		if redisClient != nil {
			cache = redisClient
		}
		pgStorage, err = storage.NewPostgresStorage(ctx, cfg.Database, cache, logger)
		if err != nil {
			return fmt.Errorf("failed to init PostgreSQL storage: %w", err)
		}
		defer pgStorage.Close()

		if err := storage.RunMigrations(ctx, pgStorage.DB(), logger); err != nil {
			return err
		}
		opts = append(opts, bot.WithArchive(pgStorage))
	} else {
		logger.Warn("DB_HOST not set, completed orders will not be archived")
	}

	var payments bot.PaymentLinkProvider
	if cfg.Square.Enabled() {
		payments = square.NewClient(
			square.BaseURL(cfg.Square.Environment),
			cfg.Square.AccessToken,
			cfg.Square.LocationID,
			cfg.HTTPRequestTimeout,
			logger,
		)
	} else {
		logger.Warn("Square credentials not set, card payment is unavailable")
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("failed to create bot API: %w", err)
	}
	api.Debug = cfg.TelegramDebug
	logger.Info("Authorized on account", zap.String("username", api.Self.UserName))

	adapter := telegram.New(api, telegram.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		AdminIDs:      cfg.AdminIDs,
		StartPhrase:   cat.StartTriggers[0],
		ReportsDir:    cfg.ReportsDir,
	}, logger)

	machine := bot.NewMachine(cat, payments, cfg.AdminIDs, rec, logger)
	adapter.SetHandler(bot.New(machine, store, adapter, logger, opts...))
	if pgStorage != nil {
		adapter.SetOrderAdmin(pgStorage)
	}
	if redisClient != nil && cfg.RateLimit > 0 {
		adapter.SetLimiter(storageredis.NewRateLimiter(redisClient, cfg.RateLimit, cfg.RateLimitWindow))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", rec.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if cfg.UseWebhook() {
		mux.Handle(cfg.WebhookPath, adapter.WebhookHandler())
	}
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Failed to shut down HTTP server", zap.Error(err))
		}
	}()

	if cfg.UseWebhook() {
		return runWebhook(ctx, api, cfg.WebhookURL, logger)
	}

	if _, err := api.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn("Failed to remove webhook before polling", zap.Error(err))
	}
	defer api.StopReceivingUpdates()
	return adapter.Run(ctx)
}

func runWebhook(ctx context.Context, api *tgbotapi.BotAPI, webhookURL string, logger *zap.Logger) error {
	wh, err := tgbotapi.NewWebhook(webhookURL)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := api.Request(wh); err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	logger.Info("Webhook registered", zap.String("url", webhookURL))

	<-ctx.Done()
	return nil
}

func loadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return catalog.Load(data)
}

func connectRedis(ctx context.Context, cfg config.Redis, logger *zap.Logger) (*redis.Client, error) {
	client := redis.New(cfg.Addr, cfg.Password, cfg.DB)

	retryPolicy := backoff.NewExponentialBackOff()
	retryPolicy.MaxElapsedTime = time.Minute

	err := backoff.RetryNotify(
		func() error { return client.Ping(ctx) },
		backoff.WithContext(retryPolicy, ctx),
		func(err error, duration time.Duration) {
			logger.Warn("Redis connection failed, retrying...",
				zap.Error(err),
				zap.Duration("next_attempt_in", duration))
		},
	)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Successfully connected to Redis", zap.String("addr", cfg.Addr))
	return client, nil
}

func sweepSessions(ctx context.Context, store *session.MemoryStore, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				logger.Debug("Expired sessions removed", zap.Int("count", n))
			}
		}
	}
}
