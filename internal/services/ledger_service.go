// internal/services/ledger_service.go
package services

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/database"
	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/utils"
)

// LedgerService ties the registry and the citation graph together. It keeps
// no state of its own.
type LedgerService struct {
	db        *gorm.DB
	papers    *PaperService
	citations *CitationService
	metrics   *metrics.Metrics
	registry  string
}

type CitePaperRequest struct {
	CitingPaperID uint64 `json:"citing_paper_id" validate:"required"`
	CitedPaperID  uint64 `json:"cited_paper_id" validate:"required"`
}

// NewLedgerService builds the facade. registryPrincipal is the identity the
// facade uses when recording citations and must hold the recorder capability.
func NewLedgerService(db *gorm.DB, papers *PaperService, citations *CitationService, m *metrics.Metrics, registryPrincipal string) *LedgerService {
	registry, err := utils.NormalizeAddress(registryPrincipal)
	if err != nil {
		logrus.WithError(err).Warn("Registry principal is not configured; citePaper will be rejected")
		registry = ""
	}
	return &LedgerService{
		db:        db,
		papers:    papers,
		citations: citations,
		metrics:   m,
		registry:  registry,
	}
}

// CitePaper records that citingPaperID cites citedPaperID. The caller must be
// the owner or a co-author of the citing paper.
func (s *LedgerService) CitePaper(ctx context.Context, citingPaperID, citedPaperID uint64, caller string) (citation *models.Citation, err error) {
	defer func() { s.metrics.ObserveOperation("cite_paper", err) }()

	caller, err = normalizeCaller(caller)
	if err != nil {
		return nil, err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		citing, err := s.papers.getPaperTx(tx, citingPaperID, false)
		if err != nil {
			return err
		}
		if _, err := s.papers.getPaperTx(tx, citedPaperID, false); err != nil {
			return err
		}
		if !citing.IsCoAuthor(caller) {
			return fmt.Errorf("%s is not an author of paper %d: %w", caller, citingPaperID, ErrUnauthorized)
		}
		if citingPaperID == citedPaperID {
			return fmt.Errorf("paper %d: %w", citingPaperID, ErrSelfCitation)
		}

		citation, err = s.citations.recordCitationTx(tx, citingPaperID, citedPaperID, caller, s.registry)
		return err
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"citing_paper_id": citingPaperID,
			"cited_paper_id":  citedPaperID,
			"principal":       caller,
		}).Warn("Citation rejected")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"citation_id":     citation.ID,
		"citing_paper_id": citingPaperID,
		"cited_paper_id":  citedPaperID,
		"principal":       caller,
	}).Info("Paper cited")
	return citation, nil
}
