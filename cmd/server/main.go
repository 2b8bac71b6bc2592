package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/config"
	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/handler"
	"github.com/bitfantasy/nimo-mes/internal/mes/notify"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/middleware"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	zapLogger, err := initLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("Starting nimo-mes service",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
	)

	// 初始化数据库
	db, err := initDatabase(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&entity.ProductionRequest{},
		&entity.ProductionBatch{},
		&entity.ProductionStep{},
		&entity.MaterialAllocation{},
		&entity.Feedback{},
		&entity.QualityCheck{},
		&entity.OutboxEvent{},
	); err != nil {
		zapLogger.Warn("AutoMigrate warning", zap.Error(err))
	}

	// 初始化Redis
	rdb := initRedis(cfg.Redis)

	// 初始化依赖
	repos := repository.NewRepositories(db)
	services := service.NewServices(db, repos, rdb, cfg, zapLogger)
	handlers := handler.NewHandlers(services)

	// 出站事件调度器
	notifyClient := notify.NewClient(notify.Endpoints{
		MachineQueueURL:      cfg.Services.MachineQueueURL,
		MaterialInventoryURL: cfg.Services.MaterialInventoryURL,
		FeedbackURL:          cfg.Services.FeedbackURL,
	}, cfg.Services.NotifyTimeout)
	dispatcher := notify.NewDispatcher(repos.Outbox, notifyClient, rdb, zapLogger,
		uuid.New().String(), cfg.Services.DispatchInterval)
	dispatcher.Start()

	// 设置Gin模式
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建路由
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	router.Use(middleware.Logger(zapLogger))
	router.Use(middleware.CORS())
	router.Use(middleware.RequestID())

	registerRoutes(router, handlers, cfg)

	// 创建HTTP服务器
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 启动服务器
	go func() {
		zapLogger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	dispatcher.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}

	zapLogger.Info("Server exited")
}

func registerRoutes(router *gin.Engine, h *handler.Handlers, cfg *config.Config) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "version": Version})
	})

	api := router.Group("/api/v1/mes", middleware.JWTAuth(cfg.JWT.Secret))
	{
		// 生产请求
		api.POST("/requests", h.Request.CreateRequest)
		api.GET("/requests", h.Request.ListRequests)
		api.GET("/requests/:id", h.Request.GetRequest)
		api.POST("/requests/:id/cancel", h.Request.CancelRequest)
		api.GET("/requests/:id/batches", h.Request.ListRequestBatches)
		api.GET("/requests/:id/feedback", h.Quality.GetRequestFeedback)

		// 生产批次
		api.POST("/batches", h.Batch.CreateBatch)
		api.GET("/batches", h.Batch.ListBatches)
		api.GET("/batches/:id", h.Batch.GetBatch)
		api.PUT("/batches/:id/status", h.Batch.UpdateBatchStatus)
		api.POST("/batches/:id/reconcile", h.Batch.ReconcileBatch)
		api.DELETE("/batches/:id", h.Batch.DeleteBatch)
		api.GET("/batches/:id/steps", h.Batch.ListBatchSteps)
		api.GET("/batches/:id/allocations", h.Allocation.ListBatchAllocations)

		// 生产工序
		api.GET("/steps/:id", h.Step.GetStep)
		api.POST("/steps/:id/schedule", h.Step.ScheduleStep)
		api.POST("/steps/:id/start", h.Step.StartStep)
		api.POST("/steps/:id/complete", h.Step.CompleteStep)
		api.POST("/steps/:id/fail", h.Step.FailStep)
		api.POST("/steps/:id/skip", h.Step.SkipStep)

		// 物料分配
		api.GET("/allocations/:id", h.Allocation.GetAllocation)
		api.POST("/allocations/:id/allocate", h.Allocation.Allocate)
		api.POST("/allocations/:id/consume", h.Allocation.Consume)
		api.PUT("/allocations/:id/required", h.Allocation.AdjustRequired)
		api.DELETE("/allocations/:id", h.Allocation.DeleteAllocation)

		// 反馈与质检
		api.GET("/feedbacks/:id", h.Quality.GetFeedback)
		api.POST("/feedbacks/:id/checks", h.Quality.RecordQualityCheck)
		api.GET("/checks/:id", h.Quality.GetCheck)
		api.PUT("/checks/:id", h.Quality.UpdateQualityCheck)
		api.DELETE("/checks/:id", h.Quality.DeleteQualityCheck)
	}
}

func initLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	switch cfg.Level {
	case "debug":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapCfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapCfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	return zapCfg.Build()
}

func initDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// 连接探活
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}

	return db, nil
}

func initRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}
