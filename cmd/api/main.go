package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anime-shed/lecture-indexer-go/internal/config"
	"github.com/anime-shed/lecture-indexer-go/internal/container"
	"github.com/anime-shed/lecture-indexer-go/internal/logger"
	"github.com/anime-shed/lecture-indexer-go/internal/tracing"

	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Setup structured logging
	logger.Configure(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	shutdownTracer, err := tracing.InitTracer(ctx, cfg.OTLPEndpoint, cfg.ServiceName)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize tracing")
	}

	// Initialize dependency injection container
	c, err := container.NewContainer(ctx, cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}

	manager := c.Manager()
	restored, err := manager.Restore(ctx)
	if err != nil {
		logger.WithError(err).Fatal("Failed to restore jobs")
	}
	manager.Start()

	server := &http.Server{
		Addr:    cfg.ServerAddress(),
		Handler: c.Handler(),
		// Uploads and synchronous extraction can take far longer than RequestTimeout
		ReadHeaderTimeout: cfg.RequestTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{
			"address":       cfg.ServerAddress(),
			"workers":       cfg.WorkerCount,
			"job_store":     cfg.JobStore,
			"restored_jobs": restored,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a deadline for shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Jobs still running at shutdown; they will be marked interrupted on restart")
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close dependencies")
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Failed to flush traces")
	}

	logger.Info("Server exited")
}
