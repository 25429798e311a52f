// Vitrine - Landing Page Lead Capture and Visitor Analytics
// Copyright 2026 Vitrine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vitrineapp/vitrine

// Command server runs the Vitrine API: lead capture, visitor tracking,
// health probes, and metrics behind a single HTTP listener.
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

	"github.com/joho/godotenv"

	"github.com/vitrineapp/vitrine/internal/api"
	"github.com/vitrineapp/vitrine/internal/config"
	"github.com/vitrineapp/vitrine/internal/database"
	"github.com/vitrineapp/vitrine/internal/geoip"
	"github.com/vitrineapp/vitrine/internal/logging"
	"github.com/vitrineapp/vitrine/internal/mailer"
	"github.com/vitrineapp/vitrine/internal/notify"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	// Local development convenience; absence of a .env file is normal.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	store := openStore(cfg.Database)
	if store != nil {
		defer store.Close()
	}

	var geo geoip.Provider = geoip.NewBreakerProvider(geoip.NewIPAPIProvider(cfg.GeoIP), cfg.GeoIP)

	handler := api.NewHandler(*cfg, storeOrNil(store), geo,
		mailer.NewClient(cfg.Mailer), notify.NewDispatcher(cfg.Notify))

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(cfg.Server, handler),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", srv.Addr).
			Bool("database", store != nil).
			Bool("mailer", cfg.Mailer.FormURL != "" || cfg.Mailer.APIKey != "").
			Msg("Vitrine server listening")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown did not complete cleanly: %w", err)
	}
	logging.Info().Msg("Server stopped")
	return nil
}

// openStore connects the database when one is configured. Startup never
// fails on a missing or unreachable database; the API degrades to
// best-effort behavior and readiness reports unavailable.
func openStore(cfg config.DatabaseConfig) *database.DB {
	if cfg.URL == "" {
		logging.Warn().Msg("No database configured, persistence disabled")
		return nil
	}

	db, err := database.New(cfg)
	if err != nil {
		logging.Err(err).Msg("Failed to open database, persistence disabled")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx); err != nil {
		// Retried lazily on the first write.
		logging.Warn().Err(err).Msg("Schema initialization deferred")
	}
	return db
}

// storeOrNil avoids handing the handlers a typed-nil interface value.
func storeOrNil(db *database.DB) api.Store {
	if db == nil {
		return nil
	}
	return db
}
