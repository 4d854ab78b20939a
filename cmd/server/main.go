package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"rentadesk/internal/api"
	"rentadesk/internal/cache"
	"rentadesk/internal/config"
	"rentadesk/internal/database"
	"rentadesk/internal/events"
	"rentadesk/internal/metrics"
	"rentadesk/internal/notify"
	"rentadesk/internal/report"
	"rentadesk/internal/service"
	"rentadesk/internal/worker"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("RENTADESK_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := database.NewDB(cfg.Database.Path)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	bus := events.NewBus()

	snapshots := cache.NewSnapshotCache(db, rdb, cfg.CacheTTL(), &logger)
	snapshots.BindBus(bus)
	snapshots.StartRefresh(ctx, cfg.CacheRefreshInterval(), func(ctx context.Context) ([]int64, error) {
		resources, err := db.ListActiveResources(ctx, "")
		if err != nil {
			return nil, err
		}
		ids := make([]int64, len(resources))
		for i, r := range resources {
			ids[i] = r.ID
		}
		return ids, nil
	})

	var notifier service.Notifier
	if cfg.Telegram.BotToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.StaffChatID, cfg.TelegramRate(), cfg.Telegram.Debug, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier unavailable, continuing without")
		} else {
			tg.BindBus(bus)
			notifier = tg
		}
	}

	svc := service.NewBookingService(db, snapshots, bus, notifier,
		cfg.Booking.DefaultDurationNights, cfg.Booking.DefaultDurationHours, &logger)

	expiry := worker.NewExpiryWorker(db, bus, cfg.PendingTTL(), cfg.ExpirySweepInterval(), &logger)
	go expiry.Start(ctx)

	if cfg.Sheets.Enabled {
		sheets, err := report.NewSheetsService(ctx, cfg.Sheets.CredentialsFile, cfg.Sheets.SpreadsheetID, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("sheets service unavailable, mirror disabled")
		} else {
			bindSheetsMirror(ctx, sheets, db, bus, &logger)
			go runSheetsSync(ctx, sheets, db, &logger)
		}
	}

	if cfg.Backup.Enabled {
		backup := database.NewBackupService(cfg.Database.Path, cfg.Backup.Path, cfg.BackupInterval(), cfg.Backup.RetentionDays, &logger)
		go backup.Start(ctx)
	}

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

	httpServer := api.NewHTTPServer(svc, db, cfg.Server.APIKey, cfg.Server.UploadDir, &logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           httpServer.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()

	logger.Info().Int("port", cfg.Server.Port).Msg("rentadesk server started")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("http server error")
	}
	logger.Info().Msg("server stopped")
}

// bindSheetsMirror pushes status changes into the spreadsheet as they
// happen, so staff see a confirmation or rejection without waiting for
// the next full sync. A reservation the row cache does not know yet is
// skipped; the periodic sync picks it up.
func bindSheetsMirror(ctx context.Context, sheets *report.SheetsService, db *database.DB, bus *events.Bus, logger *zerolog.Logger) {
	update := func(e events.Event) {
		reservation, err := db.GetReservation(ctx, e.ReservationID)
		if err != nil {
			logger.Warn().Err(err).Int64("reservation_id", e.ReservationID).Msg("load reservation for sheets mirror failed")
			return
		}
		if err := sheets.UpdateReservationRow(ctx, reservation); err != nil {
			logger.Warn().Err(err).Str("public_id", reservation.PublicID).Msg("sheets row update failed")
		}
	}

	for _, eventType := range []string{
		events.TypeReservationConfirmed,
		events.TypeReservationRejected,
		events.TypeReservationCanceled,
		events.TypeReservationExpired,
	} {
		bus.Subscribe(eventType, update)
	}
}

// runSheetsSync mirrors the reservation ledger to the staff
// spreadsheet every few minutes.
func runSheetsSync(ctx context.Context, sheets *report.SheetsService, db *database.DB, logger *zerolog.Logger) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	sync := func() {
		now := time.Now()
		reservations, err := db.GetReservationsByDateRange(ctx, now.AddDate(0, -1, 0), now.AddDate(0, 3, 0))
		if err != nil {
			logger.Error().Err(err).Msg("load reservations for sheets sync failed")
			return
		}
		if err := sheets.SyncReservations(ctx, reservations); err != nil {
			logger.Error().Err(err).Msg("sheets sync failed")
		}
	}

	sync()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sync()
		}
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
