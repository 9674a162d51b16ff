// Package cmd contains all CLI commands for citizen.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-citizen-client/internal/auth"
	"github.com/sirosfoundation/go-citizen-client/internal/backend"
	"github.com/sirosfoundation/go-citizen-client/internal/endpoint"
	"github.com/sirosfoundation/go-citizen-client/internal/gateway"
	"github.com/sirosfoundation/go-citizen-client/internal/session"
	"github.com/sirosfoundation/go-citizen-client/internal/storage"
	"github.com/sirosfoundation/go-citizen-client/pkg/config"
	"github.com/sirosfoundation/go-citizen-client/pkg/logging"
)

var (
	// Global flags
	configFile string
	output     string
	logLevel   string

	current *app
)

// app holds the services shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	kv       storage.KV
	resolver *endpoint.Resolver
	gateway  *gateway.Gateway
	manager  *auth.Manager
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := logging.NewLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	storeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	kv, err := backend.New(storeCtx, cfg, logger)
	cancel()
	if err != nil {
		return nil, err
	}

	resolver := endpoint.NewResolver(cfg, logger)
	gw := gateway.New(resolver, cfg, logger)
	manager := auth.NewManager(gw, session.NewStore(kv, logger), logger)
	manager.Restore(ctx)

	return &app{
		cfg:      cfg,
		logger:   logger,
		kv:       kv,
		resolver: resolver,
		gateway:  gw,
		manager:  manager,
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("Failed to close session storage", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "citizen",
	Short: "Terminal client for citizen services",
	Long: `citizen signs in to the citizen services backend, keeps the session
between runs and manages documents for the current shell session.

When the backend cannot be reached, sign-in falls back to a local demo
session so the rest of the client stays usable.

Examples:
  # Sign in
  citizen login --email jane@example.com

  # Show the current session
  citizen whoami

  # Work with documents
  citizen docs

Environment Variables:
  EXPO_PUBLIC_API_URL   Backend base URL
  EXPO_PUBLIC_API_URLS  Comma-separated backend base URLs (highest precedence)
  CITIZEN_*             Any configuration value, e.g. CITIZEN_STORAGE_TYPE`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.Close()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "table", "Output format: table, json")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}
