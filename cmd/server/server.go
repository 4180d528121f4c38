package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	gormlogger "gorm.io/gorm/logger"

	"github.com/draftlab/drawing-server/internal/config"
	"github.com/draftlab/drawing-server/internal/domain/analysis"
	"github.com/draftlab/drawing-server/internal/domain/drawing"
	"github.com/draftlab/drawing-server/internal/infrastructure/database"
	"github.com/draftlab/drawing-server/internal/infrastructure/engine"
	"github.com/draftlab/drawing-server/internal/infrastructure/logger"
	"github.com/draftlab/drawing-server/internal/infrastructure/observability"
	drawingrepo "github.com/draftlab/drawing-server/internal/infrastructure/repository/drawing"
	resultrepo "github.com/draftlab/drawing-server/internal/infrastructure/repository/result"
	"github.com/draftlab/drawing-server/internal/infrastructure/storage"
	"github.com/draftlab/drawing-server/internal/interfaces/httpserver"
	"github.com/draftlab/drawing-server/internal/interfaces/httpserver/handlers"
	"github.com/draftlab/drawing-server/internal/jobqueue"
	"github.com/draftlab/drawing-server/internal/worker"
)

// Populated via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

type Application struct {
	httpServer *httpserver.HttpServer
	queue      *jobqueue.Queue
	pool       *worker.Pool
	log        zerolog.Logger
}

func (a *Application) Start(ctx context.Context) error {
	a.queue.Start()
	defer a.queue.Stop()

	a.pool.Start(ctx)
	defer a.pool.Stop()

	return a.httpServer.Run(ctx)
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	db, err := database.Connect(database.Config{
		DSN:             cfg.DatabaseURL,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		ConnMaxLifetime: cfg.DBConnLifetime,
		LogLevel:        gormlogger.Warn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}

	if err := database.AutoMigrate(ctx, db, log); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	blobStorage, err := newStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize storage")
	}

	drawingRepository := drawingrepo.NewRepository(db)
	resultRepository := resultrepo.NewRepository(db)

	drawingService := drawing.NewService(cfg, drawingRepository, blobStorage, log)

	queue := jobqueue.New(jobqueue.Config{
		JobTimeout:     cfg.JobTimeout,
		WatchdogPeriod: cfg.WatchdogPeriod,
		RetentionAge:   cfg.JobRetentionAge,
	}, log)

	analysisEngine, err := engine.NewOpenAIEngine(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("initialize analysis engine")
	}

	analysisService := analysis.NewService(cfg, queue, analysisEngine, resultRepository, drawingRepository, blobStorage, log)

	pool := worker.NewPool(queue, analysisService, worker.Config{
		WorkerCount: cfg.WorkerCount,
		JobTimeout:  cfg.JobTimeout,
	}, log)

	ready := func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if err := blobStorage.Health(ctx); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		return nil
	}

	provider := handlers.NewProvider(cfg, drawingService, analysisService, queue, log)
	httpServer := httpserver.New(cfg, log, provider, httpserver.VersionInfo{
		Version:   Version,
		BuildTime: BuildTime,
	}, ready)

	app := &Application{
		httpServer: httpServer,
		queue:      queue,
		pool:       pool,
		log:        log,
	}

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

func newStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (drawing.Storage, error) {
	if cfg.IsS3Storage() {
		return storage.NewS3Storage(ctx, cfg, log)
	}
	return storage.NewLocalStorage(cfg, log)
}

func loadEnvFiles() {
	paths := []string{".env", "../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
