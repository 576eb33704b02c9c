package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"architect-assistant/internal/api"
	"architect-assistant/internal/auth"
	"architect-assistant/internal/config"
	"architect-assistant/internal/database"
	"architect-assistant/internal/gateway"
	"architect-assistant/internal/logger"
	"architect-assistant/internal/pipeline"
	"architect-assistant/internal/repository"
	"architect-assistant/internal/service"
	"architect-assistant/migrations"
	"architect-assistant/pkg/migration"
	"architect-assistant/pkg/taskmanager"
)

func main() {
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Logger)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer zapLogger.Sync()

	// zerolog используется менеджером задач и миграциями
	zlog := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerologlog.Logger = zlog
	zerolog.DefaultContextLogger = &zlog

	ctx := context.Background()

	db, err := database.New(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, db.Pool)
	if err := migrator.Apply(ctx); err != nil {
		zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Uploads.Dir, 0o755); err != nil {
		zapLogger.Fatal("Failed to create uploads directory", zap.String("dir", cfg.Uploads.Dir), zap.Error(err))
	}

	if err := pipeline.InitMetricsPusher(cfg.PushGatewayURL); err != nil {
		// Недоступный Pushgateway не должен мешать запуску
		zapLogger.Warn("Metrics pusher initialization failed", zap.Error(err))
	}
	pipeline.StartMetricsPusher(time.Minute)
	defer pipeline.CleanupMetrics()

	aiClient, err := gateway.NewAIClient(cfg.AI, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create AI client", zap.Error(err))
	}
	imageClient := gateway.NewImageClient(cfg.ImageAPI, zapLogger)
	orchestrator := pipeline.New(aiClient, imageClient, zapLogger)

	taskManager, err := taskmanager.New(taskmanager.Config{MaxTasks: cfg.Tasks.MaxTasks})
	if err != nil {
		zapLogger.Fatal("Failed to create task manager", zap.Error(err))
	}
	taskManager.StartCleanup(
		time.Duration(cfg.Tasks.CleanupIntervalMin)*time.Minute,
		time.Duration(cfg.Tasks.RetentionMin)*time.Minute,
	)

	userRepo := repository.NewPostgresUserRepository(db.Pool)
	iterationRepo := repository.NewPostgresIterationRepository(db.Pool)

	tokens, err := auth.NewTokenManager(cfg.JWT)
	if err != nil {
		zapLogger.Fatal("Failed to create token manager", zap.Error(err))
	}
	authService := auth.NewService(userRepo, tokens)
	authHandler := auth.NewHandler(authService, zapLogger)

	iterationService := service.NewIterationService(iterationRepo, orchestrator, taskManager, zapLogger)
	apiHandler := api.NewHandler(iterationService, taskManager, cfg.Uploads, zapLogger)

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	authHandler.RegisterRoutes(apiGroup)
	apiHandler.RegisterRoutes(apiGroup, auth.Middleware(tokens, zapLogger))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		zapLogger.Info("HTTP server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Запущенные задачи генерации должны дойти до терминальной записи
	if err := taskManager.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Task manager shutdown error", zap.Error(err))
	}

	zapLogger.Info("Server stopped")
}
