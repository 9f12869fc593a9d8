package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-qa-service/internal/config"
	"pdf-qa-service/internal/logger"
	"pdf-qa-service/internal/store"
	"pdf-qa-service/internal/telemetry"
	"pdf-qa-service/middleware"
	"pdf-qa-service/routes"
	"pdf-qa-service/services"

	"github.com/gin-gonic/gin"
)

const serviceName = "pdf-qa-service"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logCloser, err := logger.InitLogger(cfg)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logCloser.Close()

	shutdownTracer, err := telemetry.InitTracer(serviceName, cfg.OTelEndpoint, cfg.TraceSampleRatio)
	if err != nil {
		log.Fatal("Failed to initialize tracer:", err)
	}
	defer shutdownTracer()

	exporter, err := telemetry.InitMetricsExporter()
	if err != nil {
		log.Fatal("Failed to initialize metrics exporter:", err)
	}
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		log.Fatal("Failed to initialize metrics:", err)
	}

	ctx := context.Background()

	docs, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open document store:", err)
	}
	defer docs.Close()

	// Redis is optional
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, continuing without cache and rate limiting", "error", err)
		rdb = nil
	}
	if rdb != nil {
		defer rdb.Close()
	}

	pipeline, err := services.NewPipeline(ctx, cfg, docs, rdb, metrics)
	if err != nil {
		log.Fatal("Failed to build QA pipeline:", err)
	}
	defer pipeline.Close()

	if err := pipeline.QA.RestoreLastDocument(ctx); err != nil {
		logger.Warn("Failed to restore last document", "error", err)
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.TracingMiddleware(serviceName))
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(metrics))
	router.Use(middleware.RequestSizeLimit(cfg.MaxFileSize))
	if rdb != nil {
		router.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now(), "models": pipeline.Status()})
	})
	router.GET("/metrics", gin.WrapH(exporter.Handler()))

	routes.SetupDocumentRoutes(router, cfg, pipeline.QA)

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "store", cfg.StoreDriver, "qa_provider", cfg.QAProvider)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	if err := exporter.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Failed to shut down metrics exporter", "error", err)
	}

	logger.Info("Server exited")
}
