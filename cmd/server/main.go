package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Simplici0/voltquote/internal/accounts"
	"github.com/Simplici0/voltquote/internal/catalogue"
	"github.com/Simplici0/voltquote/internal/config"
	"github.com/Simplici0/voltquote/internal/db"
	"github.com/Simplici0/voltquote/internal/migrations"
	"github.com/Simplici0/voltquote/internal/quotes"
	"github.com/Simplici0/voltquote/internal/scheduler"
	"github.com/Simplici0/voltquote/internal/seed"
)

var rootCmd = &cobra.Command{
	Use:           "voltquote",
	Short:         "Battery storage quoting backend",
	Long:          `VoltQuote prices battery storage installations, projects customer savings and serves the installer dashboard API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the quote expiry job",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the admin user, default company and product catalogue",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}

func openMigrated(cfg config.Config) (*sql.DB, error) {
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(database); err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	database, err := openMigrated(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	version, err := migrations.Version(database)
	if err != nil {
		return err
	}
	logger.Info("database migrated", "path", cfg.DBPath, "version", version)
	return nil
}

func runSeed(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}
	database, err := openMigrated(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	return seedDatabase(cmd.Context(), logger, database, cfg)
}

// seedDatabase runs the idempotent seed. A missing catalogue file only skips
// the product import.
func seedDatabase(ctx context.Context, logger *slog.Logger, database *sql.DB, cfg config.Config) error {
	seedCfg := seed.Config{
		AdminEmail:        cfg.AdminEmail,
		AdminPassword:     cfg.AdminPassword,
		InstallerEmail:    cfg.InstallerEmail,
		InstallerPassword: cfg.InstallerPassword,
	}
	if cfg.CatalogueFile != "" {
		file, err := catalogue.LoadFile(cfg.CatalogueFile)
		switch {
		case err == nil:
			seedCfg.Catalogue = file
		case errors.Is(err, os.ErrNotExist):
			logger.Warn("catalogue file not found, skipping product import", "path", cfg.CatalogueFile)
		default:
			return err
		}
	}

	stats, err := seed.Run(ctx, database, seedCfg)
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	logger.Info("seed finished", "inserts", stats.Inserts)
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := config.Load(logger)
	if err != nil {
		return err
	}

	var database *sql.DB
	if cfg.IsDev() {
		database, err = openMigrated(cfg)
	} else {
		database, err = db.Open(cfg.DBPath)
	}
	if err != nil {
		return err
	}
	defer database.Close()

	if err := seedDatabase(cmd.Context(), logger, database, cfg); err != nil {
		return err
	}

	users := accounts.NewStore(database)
	auth, err := newAuthService(users, cfg.SessionSecret, cfg.SessionTTL, !cfg.IsDev())
	if err != nil {
		return err
	}
	products := catalogue.NewStore(database)
	quoteService := quotes.NewService(database, products, logger, cfg.QuoteValidity())

	jobs := scheduler.New(quoteService, logger)
	if err := jobs.Start(cfg.ExpirySchedule); err != nil {
		return fmt.Errorf("schedule quote expiry: %w", err)
	}
	defer func() { <-jobs.Stop().Done() }()

	srv := &server{
		logger:    logger,
		db:        database,
		auth:      auth,
		accounts:  users,
		catalogue: products,
		quotes:    quoteService,
	}
	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(cfg.AllowedOrigins()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", httpServer.Addr, "env", cfg.Env)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
