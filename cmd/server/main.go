package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/config"
	"github.com/certwatch/coi-compliance/internal/extraction"
	"github.com/certwatch/coi-compliance/internal/report"
	"github.com/certwatch/coi-compliance/internal/repository"
	"github.com/certwatch/coi-compliance/internal/retry"
	"github.com/certwatch/coi-compliance/internal/server"
	"github.com/certwatch/coi-compliance/internal/service"
	"github.com/certwatch/coi-compliance/internal/storage"
	"github.com/certwatch/coi-compliance/internal/worker"
	"github.com/certwatch/coi-compliance/pkg/database"
	"github.com/certwatch/coi-compliance/pkg/utils"
)

func main() {
	// .env is optional; real deployments set variables directly.
	_ = gotenv.Load()

	cfg, err := config.Load(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting COI compliance service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Report.OutputDir, 0o755); err != nil {
		logger.Fatal("Failed to create report directory", zap.Error(err))
	}

	// Repositories
	holderRepo := repository.NewHolderRepository(db.DB, logger)
	profileRepo := repository.NewProfileRepository(db.DB, logger)
	resultRepo := repository.NewResultRepository(db.DB, logger)
	documentRepo := repository.NewDocumentRepository(db.DB, logger)

	// Extraction pipeline
	invoker := retry.NewInvoker(logger)
	invoker.MaxRetries = cfg.Compliance.MaxRetries

	extractor, err := extraction.NewCOIExtractor(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.Model,
		cfg.OpenAI.Temperature,
		invoker,
		logger,
	)
	if err != nil {
		logger.Fatal("Failed to initialize extractor", zap.Error(err))
	}

	documentStore := storage.NewDocumentStore(cfg.Storage.UploadDir, logger)

	evalService := service.NewEvaluationService(
		extractor,
		holderRepo,
		profileRepo,
		resultRepo,
		documentStore,
		documentRepo,
		db,
		cfg.Compliance.ExpiringThresholdDays,
		time.Now,
		logger,
	)

	reportWriter := report.NewExcelWriter(cfg.Report.OutputDir, logger)

	// Background workers
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	workers := worker.NewManager(logger)
	workers.Register(worker.NewReevaluator(evalService, cfg.Compliance.ReevalInterval, logger))
	if err := workers.StartAll(rootCtx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// HTTP server
	handlers := server.NewHandlers(holderRepo, profileRepo, evalService, reportWriter, logger)
	srv := server.NewServer(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if err := srv.Start(rootCtx); err != nil {
		logger.Error("HTTP server exited with error", zap.Error(err))
	}

	workers.StopAll()
	logger.Info("Server exited successfully")
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "configs/config.yaml"
}
