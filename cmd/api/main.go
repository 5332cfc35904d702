package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/api/swagger" // swagger docs
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/config"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/database"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/handler"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/logger"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/middleware"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/observability/metrics"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/repository"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/service"
	"github.com/Grubtech-FZ-LLC/integration-qa-tax-calculator/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

// @title           Order Tax Verification API
// @version         1.0
// @description     Recomputes and reconciles the taxes of restaurant orders.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	config.LoadEnvFiles()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zl, err := logger.New(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if cfg.JWTSecret != "" {
		_ = os.Setenv("JWT_SECRET", cfg.JWTSecret)
	}

	tolerances, err := config.LoadTolerances(cfg.ToleranceFile, zl)
	if err != nil {
		zl.Fatal("tolerance config invalid", zap.Error(err))
	}
	tolerances.Watch()

	db, err := database.NewConnection(cfg.DBDriver, cfg.DatabaseURL, cfg.DatabaseName, zl)
	if err != nil {
		zl.Fatal("database connection failed", zap.Error(err))
	}
	zl.Info("database connected", zap.String("driver", cfg.DBDriver), zap.String("env", cfg.AppEnv))

	metrics.Init()

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(zl.Named("ws"))
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	verificationService := service.NewTaxVerificationService(orderRepo, auditRepo, tolerances, wsHub, cfg.Workers, zl.Named("verification"))
	importService := service.NewOrderImportService(orderRepo, auditRepo, txManager, zl.Named("import"))
	auditService := service.NewAuditService(auditRepo)
	statisticsService := service.NewStatisticsService(repository.NewStatisticsRepository(db))

	verificationHandler := handler.NewTaxVerificationHandler(verificationService)
	orderHandler := handler.NewOrderHandler(importService)
	auditHandler := handler.NewAuditHandler(auditService)
	statisticsHandler := handler.NewStatisticsHandler(statisticsService)

	if cfg.AppEnv == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "env": cfg.AppEnv})
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// API Routing
	verificationHandler.RegisterRoutes(router.Group(""))
	orderHandler.RegisterRoutes(router.Group(""))
	auditHandler.RegisterRoutes(router.Group(""))
	statisticsHandler.RegisterRoutes(router.Group(""))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zl.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server failed", zap.Error(err))
		}
	}()

	<-shutdown
	zl.Info("shutdown signal received; draining requests")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
