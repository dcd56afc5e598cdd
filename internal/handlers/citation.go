// internal/handlers/citation.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/services"
	"github.com/javajoker/paper-ledger/internal/utils"
)

type CitationHandler struct {
	citationService *services.CitationService
	ledgerService   *services.LedgerService
}

func NewCitationHandler(citationService *services.CitationService, ledgerService *services.LedgerService) *CitationHandler {
	return &CitationHandler{
		citationService: citationService,
		ledgerService:   ledgerService,
	}
}

// POST /citations
//
// Authors cite through the ledger facade; the caller must own or co-author
// the citing paper.
func (h *CitationHandler) CitePaper(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req services.CitePaperRequest
	if !bindJSON(c, &req) {
		return
	}

	citation, err := h.ledgerService.CitePaper(c.Request.Context(), req.CitingPaperID, req.CitedPaperID, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCitationRecorded),
		"citation": citation,
	})
}

// POST /citations/record
//
// Direct recording for holders of the citation_recorder capability.
func (h *CitationHandler) RecordCitation(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req services.RecordCitationRequest
	if !bindJSON(c, &req) {
		return
	}

	citation, err := h.citationService.RecordCitation(c.Request.Context(), req.CitingPaperID, req.CitedPaperID, req.Creator, caller)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyCitationRecorded),
		"citation": citation,
	})
}

// GET /citations/:id
func (h *CitationHandler) GetCitation(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	citation, err := h.citationService.GetCitationDetails(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"citation": citation})
}

// POST /citations/:id/verify
func (h *CitationHandler) VerifyCitation(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	if err := h.citationService.VerifyCitation(c.Request.Context(), id, caller); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyCitationVerified)})
}
