// Command worker runs the propagation job processor and the operations API
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	crmapp "github.com/erp/records/internal/application/crm"
	propagationapp "github.com/erp/records/internal/application/propagation"
	"github.com/erp/records/internal/domain/propagation"
	"github.com/erp/records/internal/infrastructure/cache"
	"github.com/erp/records/internal/infrastructure/config"
	"github.com/erp/records/internal/infrastructure/logger"
	"github.com/erp/records/internal/infrastructure/persistence"
	"github.com/erp/records/internal/infrastructure/profile"
	"github.com/erp/records/internal/infrastructure/queue"
	"github.com/erp/records/internal/infrastructure/telemetry"
	"github.com/erp/records/internal/interfaces/http/handler"
	"github.com/erp/records/internal/interfaces/http/middleware"
	"github.com/erp/records/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 30 * time.Second
	slowQueryThreshold = 200 * time.Millisecond
	httpMeterName      = "github.com/erp/records/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("Worker exited with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("Worker exited gracefully")
	_ = log.Sync()
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()
	log = providers.AttachLogs(log)

	log.Info("Starting records worker",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), slowQueryThreshold)
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithLogger(gormLog),
		persistence.WithPlugins(telemetry.DBPlugins(cfg.Telemetry, cfg.Database.DBName)...),
	)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	metrics, err := telemetry.NewPropagationMetrics(otel.Meter(telemetry.MeterName))
	if err != nil {
		return fmt.Errorf("create propagation metrics: %w", err)
	}

	jobs := persistence.NewGormJobRepository(db.DB)
	uow := persistence.NewGormUnitOfWork(db.DB, persistence.NewGormJobQueue(db.DB, cfg.Propagation.MaxAttempts))
	detector := crmapp.NewChangeDetector(cfg.Hierarchy.MaxDepth, metrics)
	mutator := crmapp.NewMutator(detector, cfg.Hierarchy.MaxDepth)

	profiles, err := profile.New(cfg.ProfileClient, log)
	if err != nil {
		return fmt.Errorf("create profile client: %w", err)
	}

	engine := propagationapp.NewSyncEngine(uow, mutator, profiles, metrics)
	var jobHandler propagation.Handler = propagationapp.NewJobHandler(engine, persistence.NewGormTenantRepository(db.DB), log)
	if cfg.Idempotency.Enabled {
		store, err := cache.NewIdempotencyStore(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		jobHandler = propagationapp.NewIdempotentHandler(jobHandler, store, cfg.Idempotency.TTL, log)
	}

	processor := queue.NewProcessor(jobs, queue.ProcessorConfigFrom(cfg.Propagation), log, metrics)
	processor.OnReceive(jobHandler)

	srv, err := newOpsServer(cfg, log, db, propagationapp.NewOpsService(jobs, log))
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("Ops server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down ops server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Propagation.Enabled {
		g.Go(func() error {
			if err := processor.Start(gctx); err != nil {
				return fmt.Errorf("start processor: %w", err)
			}
			<-gctx.Done()
			log.Info("Stopping propagation processor...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return processor.Stop(shutdownCtx)
		})
	} else {
		log.Warn("Propagation processor disabled; jobs will accumulate until it is enabled")
	}

	return g.Wait()
}

func newOpsServer(cfg *config.Config, log *zap.Logger, db *persistence.Database, ops *propagationapp.OpsService) (*http.Server, error) {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engineCfg := router.EngineConfig{
		Logger: log,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
	}
	if cfg.Telemetry.Enabled {
		engineCfg.Meter = otel.Meter(httpMeterName)
	}
	engine, err := router.NewEngine(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("build ops engine: %w", err)
	}

	system := handler.NewSystemHandler(cfg.App.Name, db)
	router.NewRouter(engine, router.WithProbes(system)).
		Register(system).
		Register(handler.NewPropagationHandler(ops)).
		Setup()

	return &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}, nil
}
