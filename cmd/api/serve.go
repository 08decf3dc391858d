package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/repository/memory"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

type stores struct {
	tickets     repository.TicketRepository
	files       repository.FileRepository
	users       repository.UserRepository
	companies   repository.CompanyRepository
	departments repository.DepartmentRepository
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("failed to connect postgres: %w", err)
	}
	defer pg.Close()

	if pg.PoolHandle() != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	deps := map[string]handlers.Pinger{}
	if pg.PoolHandle() != nil {
		deps["postgres"] = pg
	}

	var rdb *persistence.Redis
	if cfg.Storage.Backend == "object" || cfg.Events.HasBackend("redis") {
		rdb, err = persistence.NewRedis(ctx, cfg.Redis, cfg.Storage.Backend == "object", logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		deps["redis"] = rdb
	}

	st, err := buildStores(cfg, pg, rdb, logger)
	if err != nil {
		return err
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notifications, err := startWorker(cfg, dispatcher, rdb, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := notifications.Stop(); err != nil {
			logger.Warn("notification worker stop", zap.Error(err))
		}
	}()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:     st.tickets,
		FileRepo:       st.files,
		UserRepo:       st.users,
		CompanyRepo:    st.companies,
		DepartmentRepo: st.departments,
		Notifier:       notifications.Notifier(),
		Logger:         logger,
		Limits:         cfg.Tickets,
	})

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	return app.Shutdown()
}

func buildStores(cfg *config.Config, pg *persistence.Postgres, rdb *persistence.Redis, logger *zap.Logger) (*stores, error) {
	st := &stores{}
	pool := pg.PoolHandle()
	if pool != nil {
		st.tickets = repository.NewTicketRepository(pool)
		st.files = repository.NewFileRepository(pool)
		st.users = repository.NewUserRepository(pool)
		st.companies = repository.NewCompanyRepository(pool)
		st.departments = repository.NewDepartmentRepository(pool)
	} else {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		dir := memory.NewDirectory()
		files := memory.NewFileRepository()
		if demoData {
			seedDemo(dir, files, logger)
		}
		st.tickets = memory.NewTicketRepository()
		st.files = files
		st.users = dir.Users()
		st.companies = dir.Companies()
		st.departments = dir.Departments()
	}

	if cfg.Storage.Backend == "object" {
		client, err := storage.NewObjectClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		claims := storage.NewRedisClaims(rdb.Client, cfg.Storage.ClaimKeyPrefix)
		st.files = storage.NewObjectFiles(client, cfg.Storage.S3Bucket, claims)
		logger.Info("using object storage for files", zap.String("bucket", cfg.Storage.S3Bucket))
	}
	return st, nil
}

func startWorker(cfg *config.Config, dispatcher events.Dispatcher, rdb *persistence.Redis, logger *zap.Logger) (*worker.NotificationWorker, error) {
	if rdb == nil {
		return worker.StartNotificationWorker(cfg.Events, dispatcher, nil, logger)
	}
	return worker.StartNotificationWorker(cfg.Events, dispatcher, rdb.Client, logger)
}

func seedDemo(dir *memory.Directory, files *memory.FileRepository, logger *zap.Logger) {
	company := "demo-co"
	dir.AddCompany(domain.Company{ID: company, Name: "Demo Co", Email: "support@demo.test"})
	dir.AddDepartment(domain.Department{ID: "support", Name: "Support", IsActive: true})
	dir.AddUser(domain.User{ID: "customer-1", Name: "Casey Customer", Role: domain.RoleCustomer, CompanyID: &company, Active: true})
	dir.AddUser(domain.User{ID: "agent-1", Name: "Alex Agent", Role: domain.RoleAgent, Active: true})
	dir.AddUser(domain.User{ID: "admin-1", Name: "Ada Admin", Role: domain.RoleAdmin, Active: true})
	files.Add(domain.StoredFile{ID: "file-1", OwnerID: "customer-1", Name: "screenshot.png", MimeType: "image/png", Status: domain.FileStatusUploaded})
	logger.Info("seeded demo directory", zap.Strings("users", []string{"customer-1", "agent-1", "admin-1"}))
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
