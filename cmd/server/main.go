// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/javajoker/paper-ledger/internal/app"
	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/middleware"
	"github.com/javajoker/paper-ledger/internal/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	app.ConfigureLogging(cfg.Log)

	// Initialize database and services
	ledger, err := app.New(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize ledger")
	}
	defer ledger.Close()

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	stop := make(chan struct{})
	limiter := middleware.NewRateLimiter(rate.Limit(20), 40)
	go limiter.Cleanup(stop)

	// Initialize router
	r := router.Initialize(ledger.DB, cfg, ledger.Services, router.Options{
		Metrics:  ledger.Metrics,
		Gatherer: ledger.Registry,
		Limiter:  limiter,
	})

	// Scheduled reconciliation
	scheduler := cron.New()
	if cfg.Reconciliation.Enabled {
		if _, err := scheduler.AddFunc(cfg.Reconciliation.Schedule, ledger.Services.Reconciliation.RunScheduled); err != nil {
			logrus.WithError(err).WithField("schedule", cfg.Reconciliation.Schedule).Fatal("Invalid reconciliation schedule")
		}
		scheduler.Start()
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("addr", srv.Addr).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	close(stop)
	<-scheduler.Stop().Done()

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server forced to shutdown")
	}

	logrus.Info("Server exited")
}
