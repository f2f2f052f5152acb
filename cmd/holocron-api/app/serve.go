package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/holocron-dev/holocron/internal/api"
	"github.com/holocron-dev/holocron/internal/config"
	"github.com/holocron-dev/holocron/internal/db"
	"github.com/holocron-dev/holocron/internal/httpclient"
	"github.com/holocron-dev/holocron/internal/importer"
	"github.com/holocron-dev/holocron/internal/logger"
	"github.com/holocron-dev/holocron/internal/ratelimit"
	"github.com/holocron-dev/holocron/internal/store"
	"github.com/holocron-dev/holocron/internal/swapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the API server to serve imported Star Wars data.

The server requires a configuration file (--config) that specifies the
database connection, the upstream API base URL, and all other operational
settings.`,
	RunE: runServe,
}

const (
	defaultGracefulTimeout = 30 * time.Second
	serverReadTimeout      = 10 * time.Second
	// Import endpoints fetch every upstream page before responding.
	serverWriteTimeout   = 120 * time.Second
	serverIdleTimeout    = 60 * time.Second
	upstreamFetchTimeout = 10 * time.Second
)

func init() {
	serveCmd.Flags().String("address", "", "Address to listen on (overrides config)")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig(config.WithConfigPath(viper.GetString("config")))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	address := viper.GetString("address")
	if address == "" {
		address = cfg.Server.Address
	}

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool)
	imp := importer.New(newUpstreamClient(cfg), st)

	serverOpts := []api.ServerOption{
		api.WithServiceName(cfg.GetServiceName()),
		api.WithReadinessPinger(pool.Ping),
		api.WithDefaultPageSize(cfg.DefaultPageSize),
		api.WithMiddlewares(api.LoggingMiddleware),
	}

	if cfg.RateLimit != nil {
		limiter, err := ratelimit.New(
			cfg.RateLimit.RedisURL, cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds)
		if err != nil {
			return fmt.Errorf("failed to create rate limiter: %w", err)
		}
		defer func() {
			if closeErr := limiter.Close(); closeErr != nil {
				logger.Errorf("Error closing rate limiter: %v", closeErr)
			}
		}()
		if err := limiter.Ping(ctx); err != nil {
			logger.Warnf("Rate limiter Redis unreachable, limiting degraded: %v", err)
		}
		serverOpts = append(serverOpts, api.WithMiddlewares(limiter.Middleware))
		logger.Infof("Rate limiting enabled: %d requests per %ds",
			cfg.RateLimit.MaxRequests, cfg.RateLimit.WindowSeconds)
	}

	handler := api.NewServer(st, imp, serverOpts...)

	server := &http.Server{
		Addr:         address,
		Handler:      handler,
		ReadTimeout:  serverReadTimeout,
		WriteTimeout: serverWriteTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting API server on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultGracefulTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// newUpstreamClient builds the upstream API client from the configuration.
func newUpstreamClient(cfg *config.Config) *swapi.Client {
	var opts []httpclient.Option
	if cfg.Upstream.InsecureSkipTLSVerify {
		logger.Warn("Upstream TLS certificate verification disabled")
		opts = append(opts, httpclient.WithInsecureSkipVerify())
	}
	hc := httpclient.NewDefaultClient(upstreamFetchTimeout, opts...)
	return swapi.NewClient(cfg.Upstream.BaseURL, hc)
}
