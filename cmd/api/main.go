package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/expense-ticket-service/internal/api/http"
	"github.com/spec-kit/expense-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/expense-ticket-service/internal/auth"
	"github.com/spec-kit/expense-ticket-service/internal/clock"
	"github.com/spec-kit/expense-ticket-service/internal/config"
	"github.com/spec-kit/expense-ticket-service/internal/events"
	"github.com/spec-kit/expense-ticket-service/internal/observability"
	"github.com/spec-kit/expense-ticket-service/internal/persistence"
	"github.com/spec-kit/expense-ticket-service/internal/repository"
	"github.com/spec-kit/expense-ticket-service/internal/repository/memstore"
	"github.com/spec-kit/expense-ticket-service/internal/service"
	"github.com/spec-kit/expense-ticket-service/internal/worker"
)

// repositories is the set of stores the services run against.
type repositories struct {
	tx          repository.TxManager
	tenants     repository.TenantRepository
	departments repository.DepartmentRepository
	levels      repository.ApprovalLevelRepository
	employees   repository.EmployeeRepository
	tickets     repository.TicketRepository
	records     repository.ApprovalRecordRepository
	assists     repository.AssistRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.App, cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	location, err := cfg.Workflow.Location()
	if err != nil {
		logger.Fatal("invalid report timezone", zap.Error(err))
	}
	clk := clock.Real()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var repos repositories
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		repos = postgresRepositories(pg)
	} else {
		repos = memoryRepositories(ctx, clk, logger)
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, metrics, cfg.Notification), logger)

	catalog := service.NewApprovalCatalog(service.CatalogDependencies{
		LevelRepo: repos.levels,
		Cache:     redis.LevelCache(cfg.Redis.LevelCacheTTL()),
		Fallback:  cfg.Workflow.CompanyFallback,
		Logger:    logger,
	})
	tenantService := service.NewTenantService(service.TenantDependencies{
		TxManager:      repos.tx,
		TenantRepo:     repos.tenants,
		DepartmentRepo: repos.departments,
		LevelRepo:      repos.levels,
		Catalog:        catalog,
		Clock:          clk,
		Logger:         logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TxManager:      repos.tx,
		TicketRepo:     repos.tickets,
		RecordRepo:     repos.records,
		EmployeeRepo:   repos.employees,
		DepartmentRepo: repos.departments,
		AssistRepo:     repos.assists,
		Catalog:        catalog,
		Policy:         cfg.Workflow,
		Dispatcher:     dispatcher,
		Clock:          clk,
		Logger:         logger,
	})
	assistService := service.NewAssistService(service.AssistDependencies{
		TxManager:      repos.tx,
		AssistRepo:     repos.assists,
		TicketRepo:     repos.tickets,
		EmployeeRepo:   repos.employees,
		DepartmentRepo: repos.departments,
		Dispatcher:     dispatcher,
		Clock:          clk,
		Logger:         logger,
	})
	queryService := service.NewTicketQueryService(service.QueryDependencies{
		TicketRepo: repos.tickets,
		AssistRepo: repos.assists,
		Policy:     cfg.Workflow,
	})
	reportService := service.NewReportService(service.ReportDependencies{
		TicketRepo: repos.tickets,
		Location:   location,
	})

	tokens := auth.NewTokenManager(cfg.Auth, cfg.App.Name)
	authMiddleware := auth.NewAuthMiddleware(tokens, repos.employees, repos.tenants)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tenants:        handlers.NewTenantsHandler(tenantService),
		Tickets:        handlers.NewTicketsHandler(ticketService, queryService, clk),
		Assists:        handlers.NewAssistsHandler(assistService, queryService),
		Reports:        handlers.NewReportsHandler(reportService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func postgresRepositories(pg *persistence.Postgres) repositories {
	pool := pg.PoolHandle()
	return repositories{
		tx:          repository.NewTxManager(pool),
		tenants:     repository.NewTenantRepository(pool),
		departments: repository.NewDepartmentRepository(pool),
		levels:      repository.NewApprovalLevelRepository(pool),
		employees:   repository.NewEmployeeRepository(pool),
		tickets:     repository.NewTicketRepository(pool),
		records:     repository.NewApprovalRecordRepository(pool),
		assists:     repository.NewAssistRepository(pool),
	}
}

func memoryRepositories(ctx context.Context, clk clock.Clock, logger *zap.Logger) repositories {
	store := memstore.New()
	demo, err := memstore.SeedDemo(ctx, store, clk.Now())
	if err != nil {
		logger.Fatal("failed to seed in-memory store", zap.Error(err))
	}
	logger.Warn("running on the in-memory store; data is lost on restart, mint tokens with cmd/devtoken",
		zap.String("system_id", demo.TenantID),
		zap.Any("employees", demo.Employees),
		zap.Any("departments", demo.Departments))
	return repositories{
		tx:          store,
		tenants:     store.Tenants(),
		departments: store.Departments(),
		levels:      store.Levels(),
		employees:   store.Employees(),
		tickets:     store.Tickets(),
		records:     store.Records(),
		assists:     store.Assists(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
