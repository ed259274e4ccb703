package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/Omgp9308/timetable-scheduler/api/swagger"
	"github.com/Omgp9308/timetable-scheduler/internal/handler"
	"github.com/Omgp9308/timetable-scheduler/internal/repository"
	"github.com/Omgp9308/timetable-scheduler/internal/router"
	"github.com/Omgp9308/timetable-scheduler/internal/service"
	"github.com/Omgp9308/timetable-scheduler/pkg/cache"
	"github.com/Omgp9308/timetable-scheduler/pkg/config"
	"github.com/Omgp9308/timetable-scheduler/pkg/database"
	"github.com/Omgp9308/timetable-scheduler/pkg/logger"
	"github.com/Omgp9308/timetable-scheduler/pkg/storage"
)

// @title Timetable Scheduler API
// @version 1.0.0
// @description Generates, approves and publishes university timetables.
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	cacheRepo, err := newCacheRepository(cfg, logr)
	if err != nil {
		logr.Fatal("failed to init cache", zap.Error(err))
	}
	defer cacheRepo.Close() //nolint:errcheck

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)

	catalogRepo := repository.NewCatalogRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	draftRepo := repository.NewTimetableDraftRepository(db)
	publishedRepo := repository.NewPublishedTimetableRepository(db)
	userRepo := repository.NewUserRepository(db)

	pool := service.NewGenerationPool(service.GenerationPoolConfig{
		Workers:   cfg.Scheduler.Workers,
		QueueSize: cfg.Scheduler.QueueSize,
	}, metrics, logr)
	// workers outlive the signal so in-flight requests can finish during Shutdown
	pool.Start(context.Background())

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "timetable-scheduler",
	})
	created, err := authSvc.EnsureBootstrapAdmin(ctx, service.BootstrapAdmin{
		Username:     cfg.Bootstrap.AdminUsername,
		Password:     cfg.Bootstrap.AdminPassword,
		DepartmentID: cfg.Bootstrap.AdminDepartmentID,
	})
	if err != nil {
		logr.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	if created {
		logr.Info("bootstrap administrator created", zap.String("username", cfg.Bootstrap.AdminUsername))
	}

	timetableSvc := service.NewTimetableService(catalogRepo, draftRepo, publishedRepo, db, pool, cacheSvc, metrics, validate, logr, service.TimetableConfig{
		MaxIterations:       cfg.Scheduler.MaxIterations,
		Timeout:             cfg.Scheduler.Timeout,
		LabBlocksPerWeek:    cfg.Scheduler.LabBlocksPerWeek,
		MaxFacultyDailyLoad: cfg.Scheduler.MaxFacultyDailyLoad,
		CacheTTL:            cfg.Cache.TTL,
	})
	catalogSvc := service.NewCatalogService(catalogRepo, departmentRepo, draftRepo, publishedRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, departmentRepo, validate, logr)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to init export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exportSvc := service.NewExportService(timetableSvc, files, signer, metrics, validate, logr, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		Retention: cfg.Exports.SignedURLTTL,
	})
	exportSvc.StartCleanup(ctx, cfg.Exports.CleanupInterval)

	engine := router.Setup(cfg, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Timetable: handler.NewTimetableHandler(timetableSvc),
		Catalog:   handler.NewCatalogHandler(catalogSvc),
		Export:    handler.NewExportHandler(exportSvc),
		User:      handler.NewUserHandler(userSvc),
		Metrics: handler.NewMetricsHandler(metrics, map[string]handler.Pinger{
			"database": db,
			"cache":    handler.PingFunc(cacheRepo.Ping),
		}),
	}, authSvc, metrics, logr)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	pool.Stop()
}

type cacheBackend interface {
	service.CacheRepository
	Ping(ctx context.Context) error
	Close() error
}

func newCacheRepository(cfg *config.Config, logr *zap.Logger) (cacheBackend, error) {
	if cfg.Cache.Backend == config.CacheBackendMemory {
		logr.Info("using in-process cache")
		return repository.NewMemoryCacheRepository(cache.NewMemory(cfg.Cache)), nil
	}
	client, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		return nil, err
	}
	return repository.NewCacheRepository(client, logr), nil
}
