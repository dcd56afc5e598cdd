// internal/services/paper_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/paper-ledger/internal/database"
	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/origin"
	"github.com/javajoker/paper-ledger/internal/utils"
)

type PaperService struct {
	db      *gorm.DB
	roles   *RoleService
	events  *EventService
	origin  origin.Client
	metrics *metrics.Metrics
}

type RegisterPaperRequest struct {
	ContentHash string   `json:"content_hash" validate:"required,max=255"`
	Title       string   `json:"title" validate:"required,max=500"`
	MetadataURI string   `json:"metadata_uri,omitempty" validate:"omitempty,max=2048"`
	Keywords    []string `json:"keywords,omitempty" validate:"max=64,dive,max=255"`
	CoAuthors   []string `json:"co_authors,omitempty" validate:"max=64,dive,principal"`
}

func NewPaperService(db *gorm.DB, roles *RoleService, events *EventService, originClient origin.Client, m *metrics.Metrics) *PaperService {
	return &PaperService{
		db:      db,
		roles:   roles,
		events:  events,
		origin:  originClient,
		metrics: m,
	}
}

// RegisterPaper stores a new paper owned by caller and registers it with the
// origin service. A failed registration leaves no trace in the ledger.
func (s *PaperService) RegisterPaper(ctx context.Context, req *RegisterPaperRequest, caller string) (paper *models.Paper, err error) {
	defer func() { s.metrics.ObserveOperation("register_paper", err) }()

	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	caller, err = normalizeCaller(caller)
	if err != nil {
		return nil, err
	}

	coAuthors := make([]string, 0, len(req.CoAuthors))
	for _, coAuthor := range req.CoAuthors {
		normalized, err := normalizePrincipal(coAuthor)
		if err != nil {
			return nil, err
		}
		coAuthors = append(coAuthors, normalized)
	}
	keywords := normalizeKeywords(req.Keywords)

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		id, err := database.NextID(tx, models.SequencePaper)
		if err != nil {
			return err
		}

		paper = &models.Paper{
			ID:          id,
			ContentHash: strings.TrimSpace(req.ContentHash),
			Owner:       caller,
			Title:       strings.TrimSpace(req.Title),
			MetadataURI: req.MetadataURI,
			Keywords:    keywords,
			CoAuthors:   coAuthors,
		}
		if err := tx.Create(paper).Error; err != nil {
			return fmt.Errorf("failed to create paper: %w", err)
		}

		for i, keyword := range keywords {
			entry := &models.PaperKeyword{PaperID: id, Keyword: keyword, Position: i}
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to index keyword %q: %w", keyword, err)
			}
		}

		if err := s.events.record(tx, &models.LedgerEvent{
			Type:      models.EventPaperRegistered,
			Principal: caller,
			PaperID:   uint64Ptr(id),
			Payload:   models.JSONB{"content_hash": paper.ContentHash, "title": paper.Title},
		}); err != nil {
			return err
		}

		if err := s.origin.RegisterAsset(ctx, id, caller); err != nil {
			return fmt.Errorf("register asset %d: %v: %w", id, err, ErrAttestationCallFailed)
		}
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("principal", caller).Warn("Paper registration rejected")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"paper_id":  paper.ID,
		"principal": caller,
	}).Info("Paper registered")
	return paper, nil
}

// VerifyPaper flips the verification flag once. Checks run in the order
// existence, state, authorization.
func (s *PaperService) VerifyPaper(ctx context.Context, paperID uint64, caller string) (err error) {
	defer func() { s.metrics.ObserveOperation("verify_paper", err) }()

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		paper, err := s.getPaperTx(tx, paperID, true)
		if err != nil {
			return err
		}
		if paper.IsVerified {
			return fmt.Errorf("paper %d: %w", paperID, ErrAlreadyVerified)
		}

		verifier, err := normalizeCaller(caller)
		if err != nil {
			return err
		}
		if err := s.roles.requireCapability(tx, models.CapabilityPaperVerifier, verifier); err != nil {
			return err
		}

		now := time.Now()
		if err := tx.Model(paper).Updates(map[string]interface{}{
			"is_verified": true,
			"verified_by": verifier,
			"verified_at": now,
		}).Error; err != nil {
			return fmt.Errorf("failed to verify paper: %w", err)
		}

		return s.events.record(tx, &models.LedgerEvent{
			Type:      models.EventPaperVerified,
			Principal: verifier,
			PaperID:   uint64Ptr(paperID),
		})
	})
	if err != nil {
		logrus.WithError(err).WithField("paper_id", paperID).Warn("Paper verification rejected")
		return err
	}

	logrus.WithFields(logrus.Fields{
		"paper_id":  paperID,
		"principal": caller,
	}).Info("Paper verified")
	return nil
}

// incrementCitationCount is reserved for the citation graph and must run on
// the transaction that inserts the edge.
func (s *PaperService) incrementCitationCount(tx *gorm.DB, paperID uint64) error {
	result := tx.Model(&models.Paper{}).
		Where("id = ?", paperID).
		UpdateColumn("citation_count", gorm.Expr("citation_count + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to increment citation count: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("paper", paperID)
	}
	return nil
}

func (s *PaperService) GetPaper(paperID uint64) (*models.Paper, error) {
	return s.getPaperTx(s.db, paperID, false)
}

func (s *PaperService) getPaperTx(tx *gorm.DB, paperID uint64, forUpdate bool) (*models.Paper, error) {
	query := tx
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var paper models.Paper
	if err := query.First(&paper, "id = ?", paperID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("paper", paperID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &paper, nil
}

// GetPapersByAuthor lists papers registered by principal in registration order.
func (s *PaperService) GetPapersByAuthor(principal string) ([]models.Paper, error) {
	normalized, err := normalizePrincipal(principal)
	if err != nil {
		return nil, err
	}

	var papers []models.Paper
	if err := s.db.Where("owner = ?", normalized).Order("id").Find(&papers).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch papers: %w", err)
	}
	return papers, nil
}

// GetPapersByKeyword matches the trimmed keyword exactly.
func (s *PaperService) GetPapersByKeyword(keyword string) ([]models.Paper, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return []models.Paper{}, nil
	}

	var papers []models.Paper
	if err := s.db.
		Joins("JOIN paper_keywords ON paper_keywords.paper_id = papers.id").
		Where("paper_keywords.keyword = ?", keyword).
		Order("papers.id").
		Find(&papers).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch papers: %w", err)
	}
	return papers, nil
}

func (s *PaperService) IsCoAuthor(paperID uint64, principal string) (bool, error) {
	paper, err := s.GetPaper(paperID)
	if err != nil {
		return false, err
	}
	normalized, err := utils.NormalizeAddress(principal)
	if err != nil {
		return false, nil
	}
	return paper.IsCoAuthor(normalized), nil
}

func (s *PaperService) GetTotalPapers() (int64, error) {
	var total int64
	if err := s.db.Model(&models.Paper{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count papers: %w", err)
	}
	return total, nil
}

func (s *PaperService) ListPapers(params utils.PaginationParams, verifiedOnly bool) ([]models.Paper, int64, error) {
	query := s.db.Model(&models.Paper{})
	if verifiedOnly {
		query = query.Where("is_verified = ?", true)
	}
	if params.Search != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(params.Search)+"%")
	}

	// Get total count
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	// Apply sorting and pagination
	allowedSortFields := []string{"id", "created_at", "citation_count", "title"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var papers []models.Paper
	if err := query.Find(&papers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to fetch papers: %w", err)
	}
	return papers, total, nil
}

// normalizeKeywords trims keywords, drops empty ones and keeps the first
// occurrence of duplicates.
func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" || seen[keyword] {
			continue
		}
		seen[keyword] = true
		out = append(out, keyword)
	}
	return out
}
