package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

var (
	rootCmd = &cobra.Command{
		Use:   "helpdesk-service",
		Short: "Helpdesk ticket lifecycle service",
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serve,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply SQL migrations to POSTGRES_DSN",
		RunE:  migrate,
	}

	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local testing",
		RunE:  token,
	}

	demoData      bool
	migrationsDir string
	tokenSubject  string
	tokenRole     string
	tokenCompany  string
)

func main() {
	serveCmd.Flags().BoolVar(&demoData, "demo", false, "seed the in-memory store with a demo company, department and users")
	migrateCmd.Flags().StringVar(&migrationsDir, "dir", "", "migrations directory (defaults to POSTGRES_MIGRATIONS_DIR)")
	tokenCmd.Flags().StringVar(&tokenSubject, "sub", "", "actor id")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "customer", "actor role: customer, agent or admin")
	tokenCmd.Flags().StringVar(&tokenCompany, "company", "", "company id of a customer")
	_ = tokenCmd.MarkFlagRequired("sub")

	rootCmd.AddCommand(serveCmd, migrateCmd, tokenCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("helpdesk-service: %v", err)
	}
}

func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init logger: %w", err)
	}
	return cfg, logger, nil
}
