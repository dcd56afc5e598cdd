// internal/services/export_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/models"
)

// ExportService writes a point-in-time JSON snapshot of the ledger to object
// storage.
type ExportService struct {
	db      *gorm.DB
	storage *StorageService
	prefix  string
}

type Snapshot struct {
	GeneratedAt    time.Time                  `json:"generated_at"`
	FeeBasisPoints string                     `json:"fee_basis_points"`
	Treasury       string                     `json:"treasury"`
	Papers         []models.Paper             `json:"papers"`
	Citations      []models.Citation          `json:"citations"`
	Payments       []models.RoyaltyPayment    `json:"payments"`
	Balances       []models.ResearcherBalance `json:"balances"`
	Withdrawals    []models.Withdrawal        `json:"withdrawals"`
	Roles          []models.RoleAssignment    `json:"roles"`
}

type ExportResult struct {
	Key       string `json:"key"`
	URL       string `json:"url"`
	Size      int64  `json:"size"`
	Papers    int    `json:"papers"`
	Citations int    `json:"citations"`
	Payments  int    `json:"payments"`
}

func NewExportService(db *gorm.DB, storage *StorageService, prefix string) *ExportService {
	return &ExportService{db: db, storage: storage, prefix: prefix}
}

// BuildSnapshot reads every ledger table in one transaction.
func (s *ExportService) BuildSnapshot(ctx context.Context) (*Snapshot, error) {
	snapshot := &Snapshot{GeneratedAt: time.Now().UTC()}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("id").Find(&snapshot.Papers).Error; err != nil {
			return fmt.Errorf("failed to read papers: %w", err)
		}
		if err := tx.Order("id").Find(&snapshot.Citations).Error; err != nil {
			return fmt.Errorf("failed to read citations: %w", err)
		}
		if err := tx.Order("id").Find(&snapshot.Payments).Error; err != nil {
			return fmt.Errorf("failed to read payments: %w", err)
		}
		if err := tx.Order("principal").Find(&snapshot.Balances).Error; err != nil {
			return fmt.Errorf("failed to read balances: %w", err)
		}
		if err := tx.Order("created_at").Find(&snapshot.Withdrawals).Error; err != nil {
			return fmt.Errorf("failed to read withdrawals: %w", err)
		}
		if err := tx.Order("capability").Order("principal").Find(&snapshot.Roles).Error; err != nil {
			return fmt.Errorf("failed to read roles: %w", err)
		}

		var settings []models.LedgerSetting
		if err := tx.Find(&settings).Error; err != nil {
			return fmt.Errorf("failed to read settings: %w", err)
		}
		for _, setting := range settings {
			switch setting.Key {
			case models.SettingFeeBasisPoints:
				snapshot.FeeBasisPoints = setting.Value
			case models.SettingTreasury:
				snapshot.Treasury = setting.Value
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *ExportService) ExportSnapshot(ctx context.Context) (*ExportResult, error) {
	snapshot, err := s.BuildSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	key := path.Join(s.prefix, snapshot.GeneratedAt.Format("2006/01/02"),
		fmt.Sprintf("ledger_%s_%s.json", snapshot.GeneratedAt.Format("150405"), uuid.NewString()[:8]))

	upload, err := s.storage.PutObject(ctx, key, body, "application/json")
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"key":    upload.Key,
		"papers": len(snapshot.Papers),
		"size":   upload.Size,
	}).Info("Ledger snapshot exported")

	return &ExportResult{
		Key:       upload.Key,
		URL:       upload.URL,
		Size:      upload.Size,
		Papers:    len(snapshot.Papers),
		Citations: len(snapshot.Citations),
		Payments:  len(snapshot.Payments),
	}, nil
}
