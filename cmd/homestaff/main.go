/*
main.go - Application entry point

PURPOSE:
  Command-line front end of the HomeStaff household engine: runs the HTTP
  API, applies the schema, and prints the preset catalog.

COMMANDS:
  homestaff serve     Start the API server (default command)
  homestaff migrate   Create or update the database schema and exit
  homestaff presets   Print the holiday and attendance preset catalog
  homestaff version   Print version information

CONFIGURATION:
  Environment variables (and a .env file) are read by internal/config.
  Flags on serve override them:
    --port       HTTP port                      (HOMESTAFF_PORT)
    --db-driver  sqlite | postgres | memory     (DATABASE_DRIVER)
    --db         file path or connection string (DATABASE_URL)
    --log-level  debug | info | warn | error    (LOG_LEVEL)

STARTUP SEQUENCE (serve):
  1. Load config, init logger
  2. Open store (migrates)
  3. Build handler, router, invitation sweeper
  4. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the sweeper, close the store

SEE ALSO:
  - api/server.go: Router configuration
  - internal/config: Environment configuration
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/homestaff/household-engine/api"
	"github.com/homestaff/household-engine/internal/config"
	"github.com/homestaff/household-engine/internal/logger"
	"github.com/homestaff/household-engine/policy"
	"github.com/homestaff/household-engine/store/memory"
	"github.com/homestaff/household-engine/store/sqlstore"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "homestaff"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var flags serveFlags

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, flags)
		},
	}
	flags.register(serve)

	cmd := &cobra.Command{
		Use:   appName,
		Short: "HomeStaff household engine",
		Long: `HomeStaff household engine serves the onboarding wizard and the
household default-policy resolver (holiday rules, attendance settings)
over HTTP, backed by SQLite or PostgreSQL.`,
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	flags.register(cmd)

	cmd.AddCommand(serve, migrateCmd(), presetsCmd())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})
	return cmd
}

// =============================================================================
// SERVE
// =============================================================================

type serveFlags struct {
	port     int
	driver   string
	db       string
	logLevel string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.port, "port", 0, "HTTP server port")
	cmd.Flags().StringVar(&f.driver, "db-driver", "", "Database driver (sqlite, postgres, memory)")
	cmd.Flags().StringVar(&f.db, "db", "", "Database path or connection string; \":memory:\" for in-memory SQLite")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

func (f serveFlags) apply(cfg *config.AppConfig) error {
	if f.port != 0 {
		cfg.Port = f.port
	}
	if f.driver != "" {
		cfg.DatabaseDriver = f.driver
	}
	if f.db != "" {
		cfg.DatabaseURL = f.db
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg.Validate()
}

func runServe(cmd *cobra.Command, flags serveFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := flags.apply(cfg); err != nil {
		return err
	}
	logger.Init(cfg)
	log := logger.Get()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	handler := api.NewHandler(store, log, api.Options{
		InvitationTTL:  cfg.InvitationTTL,
		AllowScenarios: !cfg.IsProduction(),
	})
	router := api.NewRouter(handler, cfg.CORSAllowedOrigins)

	sweeper := api.NewInvitationSweeper(handler.Households, log, cfg.InvitationSweep)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"addr":   server.Addr,
			"driver": cfg.DatabaseDriver,
			"env":    cfg.Environment,
		}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server stopped")
	return nil
}

type closableStore interface {
	api.Store
	Close() error
}

func openStore(cfg *config.AppConfig) (closableStore, error) {
	switch cfg.DatabaseDriver {
	case config.DriverMemory:
		return memory.New(), nil
	case config.DriverSQLite:
		return sqlstore.Open(sqlstore.DriverSQLite, cfg.DatabaseURL)
	case config.DriverPostgres:
		return sqlstore.Open(sqlstore.DriverPostgres, cfg.DatabaseURL)
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
}

// =============================================================================
// MIGRATE / PRESETS
// =============================================================================

func migrateCmd() *cobra.Command {
	var flags serveFlags
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := flags.apply(cfg); err != nil {
				return err
			}
			if cfg.DatabaseDriver == config.DriverMemory {
				return errors.New("nothing to migrate for the memory driver")
			}
			logger.Init(cfg)

			// Open migrates.
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			logger.Get().WithField("driver", cfg.DatabaseDriver).Info("schema up to date")
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}

func presetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "Print the default-policy preset catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tID\tLABEL\tDESCRIPTION")
			for _, p := range policy.HolidayPresets() {
				fmt.Fprintf(w, "holiday\t%s\t%s\t%s\n", p.ID, p.Label, p.Description)
			}
			for _, p := range policy.AttendancePresets() {
				fmt.Fprintf(w, "attendance\t%s\t%s\t%s\n", p.ID, p.Label, p.Description)
			}
			return w.Flush()
		},
	}
}
