// internal/database/connection.go
package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/utils"
)

var DB *gorm.DB

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var err error

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		dialector = postgres.Open(cfg.DSN())
	}

	// Connect to database
	DB, err = gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := DB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("driver", cfg.Driver).Info("Database connection established successfully")
	return DB, nil
}

// OpenInMemory opens a private in-memory SQLite database. Used by tests and
// by ledgerctl dry runs.
func OpenInMemory(name string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// A single connection serializes transactions the way row locks do on PostgreSQL.
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		logrus.WithError(err).Error("Error getting underlying sql.DB")
		return
	}

	if err := sqlDB.Close(); err != nil {
		logrus.WithError(err).Error("Error closing database connection")
	} else {
		logrus.Info("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	logrus.Info("Running database migrations...")

	// Run auto-migrations
	err := db.AutoMigrate(
		&models.Paper{},
		&models.PaperKeyword{},
		&models.Citation{},
		&models.RoyaltyPayment{},
		&models.ResearcherBalance{},
		&models.Withdrawal{},
		&models.RoleAssignment{},
		&models.Counter{},
		&models.LedgerSetting{},
		&models.LedgerEvent{},
		&models.AuditLog{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create indexes
	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	if err := ensureSequences(db); err != nil {
		return fmt.Errorf("failed to initialize sequences: %w", err)
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Paper indexes
		"CREATE INDEX IF NOT EXISTS idx_papers_owner_id ON papers(owner, id)",
		"CREATE INDEX IF NOT EXISTS idx_papers_created_at ON papers(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_paper_keywords_keyword ON paper_keywords(keyword, paper_id)",

		// Citation indexes
		"CREATE INDEX IF NOT EXISTS idx_citations_cited ON citations(cited_paper_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_citations_citing ON citations(citing_paper_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_citations_cited_verified ON citations(cited_paper_id, is_verified)",

		// Royalty indexes
		"CREATE INDEX IF NOT EXISTS idx_royalty_payments_paper ON royalty_payments(paper_id, id)",
		"CREATE INDEX IF NOT EXISTS idx_royalty_payments_researcher ON royalty_payments(researcher, id)",
		"CREATE INDEX IF NOT EXISTS idx_withdrawals_principal ON withdrawals(principal, created_at)",

		// Event and audit indexes
		"CREATE INDEX IF NOT EXISTS idx_ledger_events_type ON ledger_events(type, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_principal_action ON audit_logs(principal, action)",
		"CREATE INDEX IF NOT EXISTS idx_audit_logs_created ON audit_logs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_role_assignments_capability ON role_assignments(capability)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			logrus.WithError(err).Warnf("Failed to create index: %s", index)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

func ensureSequences(db *gorm.DB) error {
	for _, name := range []string{models.SequencePaper, models.SequenceCitation, models.SequencePayment} {
		counter := models.Counter{Name: name}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&counter).Error; err != nil {
			return fmt.Errorf("sequence %s: %w", name, err)
		}
	}
	return nil
}

// NextID advances the named sequence and returns the new value. It must run
// inside the transaction that inserts the record so that a rollback also
// returns the identifier.
func NextID(tx *gorm.DB, name string) (uint64, error) {
	result := tx.Model(&models.Counter{}).
		Where("name = ?", name).
		UpdateColumn("value", gorm.Expr("value + 1"))
	if result.Error != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", name, result.Error)
	}
	if result.RowsAffected == 0 {
		return 0, fmt.Errorf("sequence %s is not initialized", name)
	}

	var counter models.Counter
	if err := tx.Where("name = ?", name).First(&counter).Error; err != nil {
		return 0, fmt.Errorf("failed to read sequence %s: %w", name, err)
	}
	return counter.Value, nil
}

// SeedInitialData writes the default ledger settings and grants the registry
// principal the recorder capability. Existing rows are left untouched.
func SeedInitialData(db *gorm.DB, cfg config.LedgerConfig) error {
	logrus.Info("Seeding initial data...")

	treasury := ""
	if cfg.Treasury != "" {
		normalized, err := utils.NormalizeAddress(cfg.Treasury)
		if err != nil {
			return fmt.Errorf("invalid treasury principal: %w", err)
		}
		treasury = normalized
	}

	defaultSettings := []models.LedgerSetting{
		{
			Category:    "royalties",
			Key:         models.SettingFeeBasisPoints,
			Value:       fmt.Sprintf("%d", cfg.FeeBasisPoints),
			DataType:    "integer",
			Description: "Platform fee withheld from each royalty payment, in basis points",
		},
		{
			Category:    "royalties",
			Key:         models.SettingTreasury,
			Value:       treasury,
			DataType:    "principal",
			Description: "Principal that receives platform fees",
		},
	}

	for _, setting := range defaultSettings {
		var count int64
		db.Model(&models.LedgerSetting{}).Where("key = ?", setting.Key).Count(&count)

		if count == 0 {
			if err := db.Create(&setting).Error; err != nil {
				logrus.WithError(err).Warnf("Failed to create setting %s.%s", setting.Category, setting.Key)
			}
		}
	}

	if cfg.RegistryPrincipal != "" {
		registry, err := utils.NormalizeAddress(cfg.RegistryPrincipal)
		if err != nil {
			return fmt.Errorf("invalid registry principal: %w", err)
		}

		role := models.RoleAssignment{
			Capability: models.CapabilityCitationRecorder,
			Principal:  registry,
			GrantedBy:  "seed",
		}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&role).Error; err != nil {
			return fmt.Errorf("failed to grant registry recorder role: %w", err)
		}
	}

	logrus.Info("Initial data seeding completed")
	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
