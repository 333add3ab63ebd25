// Copyright 2026 The ShelfGrid Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shelfgrid/shelfgrid/internal/audit"
	"github.com/shelfgrid/shelfgrid/internal/authz"
	"github.com/shelfgrid/shelfgrid/internal/config"
	"github.com/shelfgrid/shelfgrid/internal/firmware"
	"github.com/shelfgrid/shelfgrid/internal/fleet"
	"github.com/shelfgrid/shelfgrid/internal/identity"
	"github.com/shelfgrid/shelfgrid/internal/observability/logger"
	"github.com/shelfgrid/shelfgrid/internal/observability/metrics"
	"github.com/shelfgrid/shelfgrid/internal/observability/tracing"
	"github.com/shelfgrid/shelfgrid/internal/oplog"
	"github.com/shelfgrid/shelfgrid/internal/store/postgres"
	transportHTTP "github.com/shelfgrid/shelfgrid/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting shelfgrid management server")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// Initialize context
	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}

	// Initialize database
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db)
	storeRepo := postgres.NewStoreRepository(db)
	logRepo := postgres.NewLogRepository(db)
	firmwareRepo := postgres.NewFirmwareRepository(db)

	// Initialize helpers
	auditLogger := audit.NewSlogLogger()
	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)
	tokenIssuer := identity.NewTokenIssuer(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL)
	secretCipher, err := fleet.NewSecretCipher(cfg.Security.EncryptionKey)
	if err != nil {
		slog.Error("failed to initialize cipher", logger.Error(err))
		os.Exit(1)
	}

	// Initialize services
	policy := authz.NewEngine()
	fleetService := fleet.NewService(storeRepo, policy, secretCipher, auditLogger)
	identityService := identity.NewService(userRepo, passwordHasher, policy, fleetService, auditLogger)
	oplogService := oplog.NewService(logRepo, cfg.Retention.LogWindow, auditLogger)
	firmwareService := firmware.NewService(firmwareRepo, auditLogger)

	// Ensure the platform Admin exists (ENV driven)
	if err := identityService.Bootstrap(ctx,
		os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
	); err != nil {
		slog.Error("bootstrap failed", logger.Error(err))
	}

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	// Initialize HTTP handler
	handler, err := transportHTTP.NewHandler(
		identityService,
		fleetService,
		oplogService,
		firmwareService,
		policy,
		tokenIssuer,
		auditLogger,
		meter,
	)
	if err != nil {
		slog.Error("failed to initialize handler", logger.Error(err))
		os.Exit(1)
	}

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start log retention goroutine. Purging is idempotent, so overlap
	// with an externally scheduled cleanup run is harmless.
	go func() {
		ticker := time.NewTicker(cfg.Retention.PurgeInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := oplogService.Purge(ctx); err != nil {
				slog.ErrorContext(ctx, "failed to purge old logs", logger.Error(err))
			}
		}
	}()

	// Start server
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"))
		slog.Info(fmt.Sprintf("listening on %s", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
