// internal/services/reconciliation_service.go
package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/models"
)

// ReconciliationService recomputes cached values from their sources and
// reports any disagreement. It never repairs.
type ReconciliationService struct {
	db      *gorm.DB
	metrics *metrics.Metrics
}

type CitationDrift struct {
	PaperID uint64 `json:"paper_id"`
	Cached  int64  `json:"cached"`
	Actual  int64  `json:"actual"`
}

type BalanceDrift struct {
	Principal string `json:"principal"`
	Stored    int64  `json:"stored"`
	Expected  int64  `json:"expected"`
}

type ReconciliationReport struct {
	CheckedAt     time.Time       `json:"checked_at"`
	Papers        int64           `json:"papers"`
	Balances      int             `json:"balances"`
	CitationDrift []CitationDrift `json:"citation_drift"`
	BalanceDrift  []BalanceDrift  `json:"balance_drift"`
}

func (r *ReconciliationReport) Clean() bool {
	return len(r.CitationDrift) == 0 && len(r.BalanceDrift) == 0
}

func NewReconciliationService(db *gorm.DB, m *metrics.Metrics) *ReconciliationService {
	return &ReconciliationService{db: db, metrics: m}
}

// Reconcile checks that every paper's citation count equals its number of
// edges and every balance equals credits minus withdrawals.
func (s *ReconciliationService) Reconcile() (*ReconciliationReport, error) {
	report := &ReconciliationReport{
		CheckedAt:     time.Now().UTC(),
		CitationDrift: []CitationDrift{},
		BalanceDrift:  []BalanceDrift{},
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Paper{}).Count(&report.Papers).Error; err != nil {
			return fmt.Errorf("failed to count papers: %w", err)
		}

		if err := tx.Table("papers").
			Select("papers.id AS paper_id, papers.citation_count AS cached, COUNT(citations.id) AS actual").
			Joins("LEFT JOIN citations ON citations.cited_paper_id = papers.id").
			Group("papers.id, papers.citation_count").
			Having("papers.citation_count <> COUNT(citations.id)").
			Order("papers.id").
			Scan(&report.CitationDrift).Error; err != nil {
			return fmt.Errorf("failed to compare citation counts: %w", err)
		}

		expected, err := s.expectedBalances(tx)
		if err != nil {
			return err
		}

		var balances []models.ResearcherBalance
		if err := tx.Order("principal").Find(&balances).Error; err != nil {
			return fmt.Errorf("failed to fetch balances: %w", err)
		}
		report.Balances = len(balances)

		for _, balance := range balances {
			if want := expected[balance.Principal]; balance.Amount != want {
				report.BalanceDrift = append(report.BalanceDrift, BalanceDrift{
					Principal: balance.Principal,
					Stored:    balance.Amount,
					Expected:  want,
				})
			}
			delete(expected, balance.Principal)
		}
		for principal, want := range expected {
			if want != 0 {
				report.BalanceDrift = append(report.BalanceDrift, BalanceDrift{Principal: principal, Expected: want})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.SetDrift("citation_count", len(report.CitationDrift))
	s.metrics.SetDrift("balance", len(report.BalanceDrift))
	return report, nil
}

type principalSum struct {
	Principal string
	Total     int64
}

func (s *ReconciliationService) expectedBalances(tx *gorm.DB) (map[string]int64, error) {
	var credits, withdrawn []principalSum
	if err := tx.Model(&models.RoyaltyPayment{}).
		Select("researcher AS principal, COALESCE(SUM(amount), 0) AS total").
		Group("researcher").
		Scan(&credits).Error; err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}
	if err := tx.Model(&models.Withdrawal{}).
		Select("principal, COALESCE(SUM(amount), 0) AS total").
		Group("principal").
		Scan(&withdrawn).Error; err != nil {
		return nil, fmt.Errorf("failed to sum withdrawals: %w", err)
	}

	expected := make(map[string]int64, len(credits))
	for _, c := range credits {
		expected[c.Principal] += c.Total
	}
	for _, w := range withdrawn {
		expected[w.Principal] -= w.Total
	}
	return expected, nil
}

// RunScheduled is the cron entry point.
func (s *ReconciliationService) RunScheduled() {
	report, err := s.Reconcile()
	if err != nil {
		logrus.WithError(err).Error("Reconciliation failed")
		return
	}

	fields := logrus.Fields{
		"papers":         report.Papers,
		"balances":       report.Balances,
		"citation_drift": len(report.CitationDrift),
		"balance_drift":  len(report.BalanceDrift),
	}
	if report.Clean() {
		logrus.WithFields(fields).Info("Reconciliation completed")
		return
	}
	logrus.WithFields(fields).Warn("Reconciliation found drift")
}
