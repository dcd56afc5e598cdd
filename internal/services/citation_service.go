// internal/services/citation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/paper-ledger/internal/database"
	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/models"
)

// CitationService is the citation graph. Edges are never deleted and each
// successful insert bumps the cited paper's cached count in the same
// transaction.
type CitationService struct {
	db      *gorm.DB
	roles   *RoleService
	papers  *PaperService
	events  *EventService
	metrics *metrics.Metrics
}

type RecordCitationRequest struct {
	CitingPaperID uint64 `json:"citing_paper_id" validate:"required"`
	CitedPaperID  uint64 `json:"cited_paper_id" validate:"required"`
	Creator       string `json:"creator" validate:"required,principal"`
}

func NewCitationService(db *gorm.DB, roles *RoleService, papers *PaperService, events *EventService, m *metrics.Metrics) *CitationService {
	return &CitationService{
		db:      db,
		roles:   roles,
		papers:  papers,
		events:  events,
		metrics: m,
	}
}

// RecordCitation inserts an edge on behalf of a principal holding the
// recorder capability.
func (s *CitationService) RecordCitation(ctx context.Context, citingPaperID, citedPaperID uint64, creator, caller string) (citation *models.Citation, err error) {
	defer func() { s.metrics.ObserveOperation("record_citation", err) }()

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		citation, err = s.recordCitationTx(tx, citingPaperID, citedPaperID, creator, caller)
		return err
	})
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"citing_paper_id": citingPaperID,
			"cited_paper_id":  citedPaperID,
		}).Warn("Citation rejected")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"citation_id":     citation.ID,
		"citing_paper_id": citingPaperID,
		"cited_paper_id":  citedPaperID,
		"principal":       citation.Creator,
	}).Info("Citation recorded")
	return citation, nil
}

func (s *CitationService) recordCitationTx(tx *gorm.DB, citingPaperID, citedPaperID uint64, creator, caller string) (*models.Citation, error) {
	recorder, err := normalizeCaller(caller)
	if err != nil {
		return nil, err
	}
	if err := s.roles.requireCapability(tx, models.CapabilityCitationRecorder, recorder); err != nil {
		return nil, err
	}
	if citingPaperID == citedPaperID {
		return nil, fmt.Errorf("paper %d: %w", citingPaperID, ErrSelfCitation)
	}
	creator, err = normalizePrincipal(creator)
	if err != nil {
		return nil, err
	}

	if _, err := s.papers.getPaperTx(tx, citingPaperID, false); err != nil {
		return nil, err
	}
	// Lock the cited paper: its cached count changes below.
	if _, err := s.papers.getPaperTx(tx, citedPaperID, true); err != nil {
		return nil, err
	}

	id, err := database.NextID(tx, models.SequenceCitation)
	if err != nil {
		return nil, err
	}

	citation := &models.Citation{
		ID:            id,
		CitingPaperID: citingPaperID,
		CitedPaperID:  citedPaperID,
		Creator:       creator,
	}
	if err := tx.Create(citation).Error; err != nil {
		return nil, fmt.Errorf("failed to create citation: %w", err)
	}

	if err := s.papers.incrementCitationCount(tx, citedPaperID); err != nil {
		return nil, err
	}

	if err := s.events.record(tx, &models.LedgerEvent{
		Type:       models.EventCitationRecorded,
		Principal:  creator,
		PaperID:    uint64Ptr(citedPaperID),
		CitationID: uint64Ptr(id),
		Payload:    models.JSONB{"citing_paper_id": citingPaperID, "recorded_by": recorder},
	}); err != nil {
		return nil, err
	}

	return citation, nil
}

func (s *CitationService) VerifyCitation(ctx context.Context, citationID uint64, caller string) (err error) {
	defer func() { s.metrics.ObserveOperation("verify_citation", err) }()

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		citation, err := s.getCitationTx(tx, citationID, true)
		if err != nil {
			return err
		}
		if citation.IsVerified {
			return fmt.Errorf("citation %d: %w", citationID, ErrAlreadyVerified)
		}

		verifier, err := normalizeCaller(caller)
		if err != nil {
			return err
		}
		if err := s.roles.requireCapability(tx, models.CapabilityCitationVerifier, verifier); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(citation).Updates(map[string]interface{}{
			"is_verified": true,
			"verified_by": verifier,
			"verified_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to verify citation: %w", err)
		}

		return s.events.record(tx, &models.LedgerEvent{
			Type:       models.EventCitationVerified,
			Principal:  verifier,
			PaperID:    uint64Ptr(citation.CitedPaperID),
			CitationID: uint64Ptr(citationID),
		})
	})
	if err != nil {
		logrus.WithError(err).WithField("citation_id", citationID).Warn("Citation verification rejected")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"citation_id": citationID,
		"principal":   caller,
	}).Info("Citation verified")
	return nil
}

func (s *CitationService) GetCitationDetails(citationID uint64) (*models.Citation, error) {
	return s.getCitationTx(s.db, citationID, false)
}

func (s *CitationService) getCitationTx(tx *gorm.DB, citationID uint64, forUpdate bool) (*models.Citation, error) {
	query := tx
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var citation models.Citation
	if err := query.First(&citation, "id = ?", citationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("citation", citationID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &citation, nil
}

// GetCitationsOf returns edges where paperID is cited, in creation order.
func (s *CitationService) GetCitationsOf(paperID uint64) ([]models.Citation, error) {
	return s.listEdges("cited_paper_id", paperID)
}

// GetCitedByOf returns edges where paperID is the citing paper, in creation order.
func (s *CitationService) GetCitedByOf(paperID uint64) ([]models.Citation, error) {
	return s.listEdges("citing_paper_id", paperID)
}

func (s *CitationService) listEdges(column string, paperID uint64) ([]models.Citation, error) {
	var citations []models.Citation
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.papers.getPaperTx(tx, paperID, false); err != nil {
			return err
		}
		return tx.Where(column+" = ?", paperID).Order("id").Find(&citations).Error
	})
	if err != nil {
		return nil, err
	}
	return citations, nil
}

// GetCitationCount counts edges in the cited-of index of paperID.
func (s *CitationService) GetCitationCount(paperID uint64) (int64, error) {
	return s.countEdges(paperID, false)
}

func (s *CitationService) GetVerifiedCitationCount(paperID uint64) (int64, error) {
	return s.countEdges(paperID, true)
}

func (s *CitationService) countEdges(paperID uint64, verifiedOnly bool) (int64, error) {
	if _, err := s.papers.GetPaper(paperID); err != nil {
		return 0, err
	}

	query := s.db.Model(&models.Citation{}).Where("cited_paper_id = ?", paperID)
	if verifiedOnly {
		query = query.Where("is_verified = ?", true)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count citations: %w", err)
	}
	return count, nil
}
