package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	memoryadapter "github.com/mjoubert/viproster/internal/adapter/driven/memory"
	sqliteadapter "github.com/mjoubert/viproster/internal/adapter/driven/sqlite"
	webhookadapter "github.com/mjoubert/viproster/internal/adapter/driven/webhook"
	httphandler "github.com/mjoubert/viproster/internal/adapter/driving/http"
	"github.com/mjoubert/viproster/internal/application"
	"github.com/mjoubert/viproster/internal/config"
	"github.com/mjoubert/viproster/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"check_interval", cfg.CheckInterval,
		"safety_refresh_interval", cfg.SafetyRefreshInterval,
		"grace_period", cfg.GracePeriod,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire driven adapters. The chat platform itself sits behind the
	// role source and display ports; the in-memory adapter stands in until
	// a platform integration is configured.
	vipStore := sqliteadapter.NewVipRepo(db)
	settingStore := sqliteadapter.NewSettingsRepo(db)
	roleSource := memoryadapter.NewRoleSource()
	display := memoryadapter.NewDisplay()

	var notifier driven.Notifier
	if cfg.AlertWebhookURL != "" {
		notifier = webhookadapter.NewNotifier(cfg.AlertWebhookURL)
		slog.Info("webhook notifier configured")
	} else {
		notifier = memoryadapter.NewNotifier(false)
		slog.Info("no alert webhook configured, alerts go to the log")
	}

	// 6. Create services.
	roster := application.NewRosterSync(roleSource, display, settingStore, application.RosterSyncOptions{
		Debounce:   cfg.Debounce,
		MaxEntries: cfg.RosterMaxEntries,
		Locale:     cfg.RosterLocale,
	})
	defer roster.Stop()

	vipSvc := application.NewVipService(vipStore, roleSource, roster)
	expirySvc := application.NewExpiryService(vipStore, roleSource, notifier, roster, cfg.GracePeriod)

	// 7. Periodic driver: expiry passes plus the low-frequency safety
	// refresh that catches anything dropped during a rate-limit backoff.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.CheckInterval), func() {
		expirySvc.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule expiry pass: %w", err)
	}
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.SafetyRefreshInterval), func() {
		roster.RequestRefresh("periodic safety")
	}); err != nil {
		return fmt.Errorf("schedule safety refresh: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// 8. Startup pass and first roster publish.
	expirySvc.RunOnce(ctx)
	roster.RequestRefresh("startup")

	// 9. Administrative API.
	apiHandler := httphandler.NewHandler(vipSvc, roster, slog.Default())
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("viproster started",
		"listen_addr", cfg.ListenAddr,
		"check_interval", cfg.CheckInterval,
	)

	// 10. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
