// internal/handlers/paper.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/services"
	"github.com/javajoker/paper-ledger/internal/utils"
)

type PaperHandler struct {
	paperService    *services.PaperService
	citationService *services.CitationService
	royaltyService  *services.RoyaltyService
}

func NewPaperHandler(paperService *services.PaperService, citationService *services.CitationService, royaltyService *services.RoyaltyService) *PaperHandler {
	return &PaperHandler{
		paperService:    paperService,
		citationService: citationService,
		royaltyService:  royaltyService,
	}
}

// GET /papers
func (h *PaperHandler) ListPapers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	switch {
	case c.Query("author") != "":
		papers, err := h.paperService.GetPapersByAuthor(c.Query("author"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.SuccessResponse(c, gin.H{"papers": papers})
		return
	case c.Query("keyword") != "":
		papers, err := h.paperService.GetPapersByKeyword(c.Query("keyword"))
		if err != nil {
			respondError(c, err)
			return
		}
		utils.SuccessResponse(c, gin.H{"papers": papers})
		return
	}

	papers, total, err := h.paperService.ListPapers(params, c.Query("verified") == "true")
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(papers, total, params)
	utils.PaginatedResponse(c, result)
}

// POST /papers
func (h *PaperHandler) RegisterPaper(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req services.RegisterPaperRequest
	if !bindJSON(c, &req) {
		return
	}

	paper, err := h.paperService.RegisterPaper(c.Request.Context(), &req, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPaperRegistered),
		"paper":   paper,
	})
}

// GET /papers/stats
func (h *PaperHandler) GetStats(c *gin.Context) {
	total, err := h.paperService.GetTotalPapers()
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"total_papers": total})
}

// GET /papers/:id
func (h *PaperHandler) GetPaper(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	paper, err := h.paperService.GetPaper(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"paper": paper})
}

// POST /papers/:id/verify
func (h *PaperHandler) VerifyPaper(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.paperService.VerifyPaper(c.Request.Context(), id, caller); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyPaperVerified)})
}

// GET /papers/:id/co-authors/:principal
func (h *PaperHandler) IsCoAuthor(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	isCoAuthor, err := h.paperService.IsCoAuthor(id, c.Param("principal"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"is_co_author": isCoAuthor})
}

// GET /papers/:id/citations
func (h *PaperHandler) GetCitations(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	citations, err := h.citationService.GetCitationsOf(id)
	if err != nil {
		respondError(c, err)
		return
	}
	verified, err := h.citationService.GetVerifiedCitationCount(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"citations":      citations,
		"count":          len(citations),
		"verified_count": verified,
	})
}

// GET /papers/:id/references
func (h *PaperHandler) GetReferences(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	citations, err := h.citationService.GetCitedByOf(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"citations": citations})
}

// GET /papers/:id/royalties
func (h *PaperHandler) GetRoyalties(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	payments, err := h.royaltyService.GetPaymentsForPaper(id)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := h.royaltyService.GetTotalRoyaltiesForPaper(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"payments": payments,
		"total":    total,
	})
}
