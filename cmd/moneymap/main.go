package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"moneymap/internal/cli"
	"moneymap/internal/currency"
	"moneymap/internal/drive"
	apphttp "moneymap/internal/http"
	"moneymap/internal/ledger"
	"moneymap/internal/log"
	appsync "moneymap/internal/sync"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	kv := cli.OpenStorage(logger, cfg)

	store := ledger.New(kv)
	logger.Info("Ledger hydrated", "entries", store.Len(), "op", log.OpHydrate)

	// Sync stays permanently disabled without a well-formed client ID.
	var (
		driveClient appsync.Backup
		auth        appsync.AuthProvider
	)
	if cfg.SyncEnabled() {
		driveClient = drive.NewClient(cfg.DriveFileName)
		auth = drive.NewAuthenticator(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.OAuthRedirectPort)
		logger.Info("Drive sync enabled", "file_name", cfg.DriveFileName)
	} else {
		logger.Warn("Drive sync disabled: no valid Google client ID configured")
	}
	orchestrator := appsync.New(store, kv, driveClient, auth, logger)

	srv := apphttp.NewServer(":"+cfg.Port, store, orchestrator, currency.NewService(kv), cfg.Users, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if closer, ok := kv.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Storage close error", "error", err)
			}
		}
	})

	logger.Info("Starting moneymap server",
		"port", cfg.Port, "backend", cfg.DataBackend, "op", log.OpStartup)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
