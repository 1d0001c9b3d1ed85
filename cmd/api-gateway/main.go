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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/clinical-rotation-api/api/swagger"
	"github.com/noah-isme/clinical-rotation-api/internal/handler"
	"github.com/noah-isme/clinical-rotation-api/internal/middleware"
	"github.com/noah-isme/clinical-rotation-api/internal/repository"
	"github.com/noah-isme/clinical-rotation-api/internal/service"
	"github.com/noah-isme/clinical-rotation-api/pkg/cache"
	"github.com/noah-isme/clinical-rotation-api/pkg/config"
	"github.com/noah-isme/clinical-rotation-api/pkg/database"
	"github.com/noah-isme/clinical-rotation-api/pkg/jobs"
	"github.com/noah-isme/clinical-rotation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/clinical-rotation-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/clinical-rotation-api/pkg/middleware/requestid"
	"github.com/noah-isme/clinical-rotation-api/pkg/storage"
)

// @title Clinical Rotation API
// @version 1.0.0
// @description Department assignments, sub-rotations, on-call shifts and teaching statistics for clinical training
// @BasePath /api/v1
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

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	store, err := openStore(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer store.close()

	docs := repository.NewDocumentRepository(store.backend, cfg.Storage.Latency, logr)
	repos := repository.NewRepositories(docs)
	if err := repos.Seed(ctx, cfg.Storage.SeedDefaults); err != nil {
		return fmt.Errorf("seed collections: %w", err)
	}

	metricsSvc := service.NewMetricsService()
	cacheSvc := openCache(ctx, cfg, metricsSvc, logr)
	validate := validator.New()

	views := service.NewRotationViews(repos.Assignments, repos.Rotations)
	authSvc := service.NewAuthService(repos.Users, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(repos.Students, cacheSvc, validate, logr)
	lecturerSvc := service.NewLecturerService(repos.Lecturers, validate, logr)
	assignmentSvc := service.NewAssignmentService(repos.Assignments, repos.Students, repos.Lecturers, cacheSvc, metricsSvc, validate, logr)
	rotationSvc := service.NewRotationService(repos.Rotations, views, repos.Students, cacheSvc, validate, logr)
	onCallSvc := service.NewOnCallService(repos.Schedules, views, repos.Students, cacheSvc, validate, logr)
	planSvc := service.NewTeachingPlanService(repos.TeachingPlans, repos.Lecturers, repos.Assignments, cacheSvc, validate, logr)
	reportSvc := service.NewClinicalReportService(repos.Reports, repos.Lecturers, repos.Students, repos.Assignments, repos.TeachingPlans, validate, logr)
	statsSvc := service.NewStatisticsService(repos.Reports, repos.Lecturers, logr)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students:  repos.Students,
		Lecturers: repos.Lecturers,
		Views:     views,
		Schedules: repos.Schedules,
		Plans:     repos.TeachingPlans,
		Cache:     cacheSvc,
		Logger:    logr,
		Config:    service.DashboardServiceConfig{CacheTTL: cfg.Cache.TTL},
	})
	databaseSvc := service.NewDatabaseService(service.DatabaseServiceParams{
		Documents:   docs,
		Seeder:      repos,
		Users:       repos.Users,
		Students:    repos.Students,
		Lecturers:   repos.Lecturers,
		Assignments: repos.Assignments,
		Rotations:   repos.Rotations,
		Schedules:   repos.Schedules,
		Plans:       repos.TeachingPlans,
		Reports:     repos.Reports,
		Cache:       cacheSvc,
		Logger:      logr,
	})

	var exportSvc *service.StatisticsExportService
	if cfg.Exports.Enabled {
		exportSvc, err = startExports(ctx, cfg, repos, statsSvc, metricsSvc, logr)
		if err != nil {
			return err
		}
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready(store.ping))
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handlers := handler.Handlers{
		Auth:            handler.NewAuthHandler(authSvc),
		Students:        handler.NewStudentHandler(studentSvc),
		Lecturers:       handler.NewLecturerHandler(lecturerSvc),
		Assignments:     handler.NewAssignmentHandler(assignmentSvc),
		Rotations:       handler.NewRotationHandler(rotationSvc),
		OnCall:          handler.NewOnCallHandler(onCallSvc),
		TeachingPlans:   handler.NewTeachingPlanHandler(planSvc),
		ClinicalReports: handler.NewClinicalReportHandler(reportSvc),
		Statistics:      handler.NewStatisticsHandler(statsSvc, nil),
		Dashboard:       handler.NewDashboardHandler(dashboardSvc),
		Database:        handler.NewDatabaseHandler(databaseSvc),
		Metrics:         metricsHandler,
	}
	if exportSvc != nil {
		handlers.Statistics = handler.NewStatisticsHandler(statsSvc, exportSvc)
	}
	handlers.Register(r.Group(cfg.APIPrefix), middleware.JWT(authSvc))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type documentStore struct {
	backend repository.DocumentBackend
	ping    func(context.Context) error
	close   func()
}

func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*documentStore, error) {
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		backend := repository.NewPostgresDocumentStore(db)
		if err := backend.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		logr.Info("using postgres document store", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
		return &documentStore{backend: backend, ping: db.PingContext, close: func() { _ = db.Close() }}, nil
	case config.StorageMemory, "":
		logr.Info("using in-memory document store")
		return &documentStore{
			backend: repository.NewMemoryDocumentStore(),
			ping:    func(context.Context) error { return nil },
			close:   func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// openCache degrades to a disabled cache when redis is unreachable.
func openCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.CacheService {
	if !cfg.Cache.Enabled {
		return nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		return nil
	}
	repo := repository.NewCacheRepository(client, "clinical-rotation", logr)
	return service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, true)
}

func startExports(ctx context.Context, cfg *config.Config, repos *repository.Repositories, stats *service.StatisticsService, metrics *service.MetricsService, logr *zap.Logger) (*service.StatisticsExportService, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(stats, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.SignedURLTTL,
	}, logr)

	worker := service.NewExportWorker(repos.ExportJobs, exporter, metrics, logr)
	queue := jobs.NewQueue("statistics-exports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Exports.WorkerConcurrency,
		MaxRetries: 0,
		Logger:     logr,
	})
	queue.Start(ctx)
	go func() {
		<-ctx.Done()
		queue.Stop()
	}()

	svc := service.NewStatisticsExportService(repos.ExportJobs, queue, exporter, metrics, logr, service.StatisticsExportConfig{
		ResultTTL:       cfg.Exports.SignedURLTTL,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	svc.RecoverPendingJobs(ctx)
	svc.StartCleanup(ctx)
	return svc, nil
}
