// Command mockapi runs a development backend for the citizen client.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/backend"
	"github.com/sirosfoundation/go-citizen-client/internal/mockapi"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
	"github.com/sirosfoundation/go-citizen-client/pkg/logging"
)

var (
	configFile = flag.String("config", "", "Path to configuration file")
	version    = "dev"
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting development backend",
		zap.String("version", version),
		zap.String("log_level", logging.LevelString(logger.Level())),
	)

	// Accounts live in their own store; the file backend default is meant
	// for the client session.
	if cfg.Storage.Type == string(backend.TypeFile) {
		cfg.Storage.Type = string(backend.TypeMemory)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := backend.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	logger.Info("Storage backend initialized", zap.String("type", cfg.Storage.Type))

	if cfg.MockAPI.JWTSecret == "" {
		secret, err := mockapi.GenerateSecret()
		if err != nil {
			logger.Fatal("Failed to generate token secret", zap.Error(err))
		}
		cfg.MockAPI.JWTSecret = secret
		logger.Info("Generated token secret (set CITIZEN_MOCK_API_JWT_SECRET to keep tokens valid across restarts)")
	}

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:         cfg.MockAPI.Address(),
		Handler:      mockapi.NewRouter(&cfg.MockAPI, store, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
