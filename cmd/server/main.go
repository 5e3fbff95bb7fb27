package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/caseflow/caseflow/internal/application/service"
	"github.com/caseflow/caseflow/internal/config"
	"github.com/caseflow/caseflow/internal/infrastructure/persistence/repository"
	"github.com/caseflow/caseflow/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/caseflow/caseflow/internal/interfaces/http"
	"github.com/caseflow/caseflow/pkg/database"
	"github.com/caseflow/caseflow/pkg/logger"
)

func main() {
	configPath := "configs/config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting workflow engine",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			zapLogger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	sqlDB, err := database.Open(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to open database", zap.Error(err))
	}
	defer sqlDB.Close()

	migrator := database.NewMigrator(sqlDB, zapLogger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		zapLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	db := sqlite.NewDB(sqlDB, zapLogger)

	templateRepo := repository.NewTemplateRepository(sqlDB, zapLogger)
	instanceRepo := repository.NewInstanceRepository(sqlDB, zapLogger)
	stepRepo := repository.NewStepRepository(sqlDB, zapLogger)
	historyRepo := repository.NewHistoryRepository(sqlDB, zapLogger)
	userRepo := repository.NewUserRepository(sqlDB, zapLogger)

	serviceLogger := logger.NewSugared(zapLogger)

	engine := service.NewInstanceEngine(templateRepo, instanceRepo, stepRepo, historyRepo, userRepo, db, serviceLogger)
	templateService := service.NewTemplateService(templateRepo, instanceRepo, db, serviceLogger)
	taskService := service.NewTaskService(stepRepo, engine, serviceLogger)
	historyService := service.NewHistoryService(instanceRepo, historyRepo, serviceLogger)

	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ReadTimeout:     cfg.Server.ReadTimeout,
			WriteTimeout:    cfg.Server.WriteTimeout,
			ShutdownTimeout: cfg.Server.ShutdownTimeout,
		},
		templateService,
		engine,
		taskService,
		historyService,
		serviceLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		zapLogger.Fatal("Server error", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}
