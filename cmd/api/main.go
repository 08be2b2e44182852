package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-engine/internal/config"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/tax"
	"github.com/cmlabs-hris/payroll-engine/internal/domain/timesheet"
	appHTTP "github.com/cmlabs-hris/payroll-engine/internal/handler/http"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/nacha"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/storage"
	"github.com/cmlabs-hris/payroll-engine/internal/pkg/taxclient"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-engine/internal/repository/postgresql"
	employeeService "github.com/cmlabs-hris/payroll-engine/internal/service/employee"
	exportService "github.com/cmlabs-hris/payroll-engine/internal/service/export"
	payrollService "github.com/cmlabs-hris/payroll-engine/internal/service/payroll"
	timesheetService "github.com/cmlabs-hris/payroll-engine/internal/service/timesheet"
	"github.com/go-chi/httplog/v3"
)

type repositories struct {
	employees  employee.EmployeeRepository
	timesheets timesheet.TimesheetRepository
	payroll    payroll.PayrollRepository
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories
	var repos repositories
	switch cfg.Store.Driver {
	case "postgres":
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()

		if cfg.Database.Migrate {
			if err := db.Migrate(ctx, logger); err != nil {
				return err
			}
		}

		repos = repositories{
			employees:  postgresql.NewEmployeeRepository(db),
			timesheets: postgresql.NewTimesheetRepository(db),
			payroll:    postgresql.NewPayrollRepository(db),
		}
	case "memory":
		logger.Warn("Using in-memory store, data is lost on restart")
		repos = repositories{
			employees:  memory.NewEmployeeRepository(),
			timesheets: memory.NewTimesheetRepository(),
			payroll:    memory.NewPayrollRepository(),
		}
	}

	// Run lock
	var locker lock.Locker
	switch cfg.Lock.Driver {
	case "redis":
		client, err := lock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer client.Close()
		locker = lock.NewRedisLocker(client, cfg.Lock.TTL)
	default:
		locker = lock.NewKeyedMutex()
	}

	// Tax provider and its health probe
	var provider tax.Provider
	scheduler := cron.NewScheduler(logger)
	if cfg.Tax.ProviderURL != "" {
		client := taxclient.NewClient(cfg.Tax.ProviderURL, &http.Client{Timeout: cfg.Tax.Timeout})
		provider = client
		cron.NewTaxJobs(client, cfg.Tax.HealthInterval, cfg.Tax.Timeout, logger).RegisterJobs(scheduler)
	} else {
		logger.Warn("TAX_PROVIDER_URL is not set, every run will use fallback withholding and be provisional")
	}

	// Export infrastructure
	fileStorage, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize local storage: %w", err)
	}
	dispatcher := exportService.NewDispatcher(cfg.Export.Workers, logger)

	// Services
	timesheetSvc := timesheetService.NewTimesheetService(repos.timesheets, repos.employees, logger)
	employeeSvc := employeeService.NewEmployeeService(repos.employees)
	payrollSvc := payrollService.NewPayrollService(
		repos.payroll,
		repos.employees,
		timesheetSvc,
		payrollService.NewCalculator(provider, cfg.Tax.Timeout, logger),
		locker,
		logger,
	)
	exportSvc := exportService.NewExportService(
		repos.payroll,
		fileStorage,
		dispatcher,
		originatorFromConfig(cfg.ACH),
		exportService.Company{Name: cfg.Company.Name, Address: cfg.Company.Address},
		logger,
	)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{Logger: logger, AllowedOrigins: cfg.App.CORSAllowedOrigins},
		appHTTP.NewPayrollHandler(payrollSvc, exportSvc, logger),
		appHTTP.NewEmployeeHandler(employeeSvc),
		appHTTP.NewTimesheetHandler(timesheetSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	dispatcher.Start()
	scheduler.Start()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server running", "addr", server.Addr, "store", cfg.Store.Driver, "lock", cfg.Lock.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			scheduler.Stop()
			dispatcher.Stop()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	// In-flight exports finish before the pool and redis client close
	scheduler.Stop()
	dispatcher.Stop()

	logger.Info("Server stopped")
	return nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.App.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
}

func originatorFromConfig(c config.ACHConfig) nacha.Originator {
	return nacha.Originator{
		ImmediateDestination:     c.ImmediateDestination,
		ImmediateDestinationName: c.ImmediateDestinationName,
		ImmediateOrigin:          c.ImmediateOrigin,
		ImmediateOriginName:      c.ImmediateOriginName,
		CompanyName:              c.CompanyName,
		CompanyID:                c.CompanyID,
		ODFI:                     c.ODFI,
	}
}
