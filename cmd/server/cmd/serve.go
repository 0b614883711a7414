package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/apidocs"
	"github.com/ilker/tracker-server/internal/auth"
	"github.com/ilker/tracker-server/internal/config"
	"github.com/ilker/tracker-server/internal/models"
	"github.com/ilker/tracker-server/internal/repository"
	"github.com/ilker/tracker-server/internal/retention"
	"github.com/ilker/tracker-server/internal/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	host string
	port int
}

func newServeCommand(global *globalOptions) *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the tracker HTTP server",
		Long: `Start the tracker HTTP server and begin accepting API requests.

The server will:
- Load configuration from config.yaml and environment variables
- Open (and migrate) the SQLite database
- Start the retention scheduler when retention.enabled is set
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with custom config file and console logs
  server serve --config /etc/tracker/config.yaml --log-format console`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.host, "host", "", "server host address (default: 0.0.0.0)")
	cmd.Flags().IntVar(&opts.port, "port", 0, "server port (default: 8080)")
	return cmd
}

func runServer(global *globalOptions, opts *serveOptions) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	// Override config with flags if provided
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("starting tracker server")

	gin.SetMode(cfg.Server.Mode)

	db, err := repository.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	store := repository.NewEventStore(db, logger)
	tokens := auth.NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.Expire)
	authenticator := auth.NewAuthenticator(models.AdminCredential{
		Username:     cfg.Admin.Username,
		PasswordHash: cfg.Admin.PasswordHash,
	}, tokens)

	docs, err := apidocs.New()
	if err != nil {
		return fmt.Errorf("load api docs: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Retention.Enabled {
		scheduler := retention.NewScheduler(retention.Policy{
			MaxAge:        cfg.Retention.MaxAge,
			MinEventCount: cfg.Retention.MinEventCount,
		}, cfg.Retention.Interval, store.Cleanup, logger)
		go scheduler.Start(ctx)
		defer scheduler.Stop()
		logger.Info().
			Dur("interval", cfg.Retention.Interval).
			Dur("max_age", cfg.Retention.MaxAge).
			Int("min_event_count", cfg.Retention.MinEventCount).
			Msg("retention scheduler started")
	}

	srv := &http.Server{
		Addr: fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: server.NewRouter(server.Deps{
			DB:            db,
			Store:         store,
			Authenticator: authenticator,
			Docs:          docs,
			Metrics:       cfg.Metrics,
			Logger:        logger,
		}),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return gracefulShutdown(srv, logger)
}

func gracefulShutdown(srv *http.Server, logger zerolog.Logger) error {
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
