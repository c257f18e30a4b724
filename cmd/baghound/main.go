package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	auditadapter "github.com/ericfisherdev/baghound/internal/adapter/driven/audit"
	fileadapter "github.com/ericfisherdev/baghound/internal/adapter/driven/file"
	marketadapter "github.com/ericfisherdev/baghound/internal/adapter/driven/market"
	notifyadapter "github.com/ericfisherdev/baghound/internal/adapter/driven/notify"
	sqliteadapter "github.com/ericfisherdev/baghound/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/baghound/internal/adapter/driving/http"
	"github.com/ericfisherdev/baghound/internal/application"
	"github.com/ericfisherdev/baghound/internal/config"
	"github.com/ericfisherdev/baghound/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on an invalid environment).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"accounts_path", cfg.AccountsPath,
		"poll_interval", cfg.BasePollInterval,
		"credential_backend", cfg.CredentialBackend,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Create the credential store for the configured backend.
	fileStore, err := fileadapter.NewCredentialStore(cfg.AccountsPath)
	if err != nil {
		return err
	}

	var credStore driven.CredentialStore = fileStore
	if cfg.CredentialBackend == "sqlite" {
		key, err := decodeSecretKey(cfg.SecretKey)
		if err != nil {
			return err
		}

		db, err := sqliteadapter.NewDB(cfg.DBPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
			return err
		}
		slog.Info("migrations complete", "db_path", cfg.DBPath)

		credStore = sqliteadapter.NewCredentialRepo(db, key)
	}

	// 4. Load accounts into the registry. Zero accounts is not fatal: the
	// scheduler waits and the watcher picks up late arrivals.
	registry := application.NewRegistry()
	creds, err := credStore.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}
	for name, c := range creds {
		registry.Register(name, c)
	}
	slog.Info("accounts loaded", "count", registry.Len())

	// 5. Open the audit sinks.
	csvLog, err := auditadapter.NewCSVLog(cfg.SelloutLogPath)
	if err != nil {
		return err
	}
	defer func() { _ = csvLog.Close() }()
	tracker := auditadapter.NewTracker(csvLog, auditadapter.NewHistoryLog(cfg.AccountsPath))
	slog.Info("audit log opened", "path", cfg.SelloutLogPath)

	// 6. Wire the remaining adapters and the scheduling core.
	market := marketadapter.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	notifier := notifyadapter.NewCommandNotifier(cfg.NotifyCommandArgs(), cfg.NotifyTimeout)
	classifier := application.NewClassifier(cfg.ChallengeKeywords)
	policy := application.BackoffPolicy{
		TransientCooldown: cfg.TransientCooldown,
		ChallengeCooldown: cfg.ChallengeCooldown,
		PenaltyCooldown:   cfg.PenaltyCooldown,
		PollInterval:      cfg.BasePollInterval,
		PollJitter:        cfg.PollJitter,
		StaggerMin:        cfg.StaggerMin,
		StaggerMax:        cfg.StaggerMax,
		AttemptDelayMin:   cfg.AttemptDelayMin,
		AttemptDelayMax:   cfg.AttemptDelayMax,
		MaxAttempts:       cfg.MaxReservationAttempts,
	}
	engine := application.NewEngine(market, tracker, notifier, classifier, policy)
	scheduler := application.NewScheduler(registry, market, engine, tracker, classifier, policy, cfg.TrackedStoreIDs)

	// 7. Start the scheduler and, for the file backend, the credential
	// refresh watcher.
	scheduler.Start(ctx)

	if cfg.CredentialBackend == "file" {
		watcher := fileadapter.NewWatcher(fileStore, registry)
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("credential watcher stopped", "error", err)
			}
		}()
	}

	// 8. Serve the read-only status API.
	apiHandler := httphandler.NewHandler(registry, tracker, scheduler, slog.Default())
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

	slog.Info("baghound started",
		"accounts", registry.Len(),
		"poll_interval", cfg.BasePollInterval,
		"tracked_stores", cfg.TrackedStoreIDs,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Stop the scheduler first so no claim is cut off mid-flight, then
	// drain the HTTP server.
	if err := scheduler.Stop(15 * time.Second); err != nil {
		slog.Error("scheduler shutdown error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// decodeSecretKey decodes the base64 AES key for the sqlite backend.
func decodeSecretKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, driven.ErrEncryptionKeyNotSet
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode BAGHOUND_SECRET_KEY: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("BAGHOUND_SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}
