package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"roomly/internal/api"
	"roomly/internal/audit"
	"roomly/internal/cache"
	"roomly/internal/config"
	"roomly/internal/database"
	"roomly/internal/events"
	"roomly/internal/metrics"
	"roomly/internal/notify"
	"roomly/internal/service"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("ROOMLY_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	bus := events.NewEventBus()

	var rdb *redis.Client
	var roomCache *cache.RoomCache
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		roomCache = cache.NewRoomCache(rdb, cfg.CacheTTL(), &logger)
		roomCache.Register(bus)
	}

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("create telegram bot error")
		}
		notify.NewTelegramNotifier(bot, cfg.Telegram.ChatID, &logger).Register(bus)
	}

	auditor := audit.NewRecorder(db, &logger)
	svc := service.NewBookingService(db, events.NewBusNotifier(bus), auditor, nil, nil, &logger)
	server := api.NewHTTPServer(svc, db, roomCache, &logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go startAuditMaintenance(ctx, auditor, cfg.Audit.ExportDir, cfg.AuditRetention(), &logger)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Server.Port), Handler: server.Router()}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("roomly started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("api server error")
	}
}

func startHealthServer(ctx context.Context, port int, db *database.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

// startAuditMaintenance archives the audit trail to xlsx and prunes expired
// entries once a day. With no export directory configured it only prunes.
func startAuditMaintenance(ctx context.Context, auditor *audit.Recorder, exportDir string, retention time.Duration, logger *zerolog.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var deleted int64
			var err error
			if exportDir != "" {
				deleted, err = auditor.RunExportAndCleanup(ctx, exportDir, retention)
			} else {
				deleted, err = auditor.Cleanup(ctx, retention)
			}
			if err != nil {
				logger.Error().Err(err).Msg("audit maintenance failed")
				continue
			}
			if deleted > 0 {
				logger.Info().Int64("deleted", deleted).Msg("audit entries pruned")
			}
		}
	}
}
