// internal/app/app.go
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/database"
	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/origin"
	"github.com/javajoker/paper-ledger/internal/payments"
	"github.com/javajoker/paper-ledger/internal/services"
)

// App is a fully wired ledger: database, external clients and services.
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Services *services.Services
}

// ConfigureLogging applies the configured logrus level and format.
func ConfigureLogging(cfg config.LogConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)

	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

// New connects to the database, migrates and seeds it, and wires the services.
func New(cfg *config.Config) (*App, error) {
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(db); err != nil {
		database.Close(db)
		return nil, err
	}
	if err := database.SeedInitialData(db, cfg.Ledger); err != nil {
		database.Close(db)
		return nil, err
	}

	storage, err := services.NewStorageService(cfg.AWS)
	if err != nil {
		database.Close(db)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	svc := services.New(db, cfg, origin.New(cfg.Origin), payments.New(cfg.Payment), storage, m)

	return &App{
		Config:   cfg,
		DB:       db,
		Metrics:  m,
		Registry: registry,
		Services: svc,
	}, nil
}

func (a *App) Close() {
	database.Close(a.DB)
}
