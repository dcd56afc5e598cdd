// internal/handlers/admin.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/services"
	"github.com/javajoker/paper-ledger/internal/utils"
)

type AdminHandler struct {
	royaltyService        *services.RoyaltyService
	eventService          *services.EventService
	reconciliationService *services.ReconciliationService
	exportService         *services.ExportService
}

type UpdateSettingsRequest struct {
	FeeBasisPoints *int64  `json:"fee_basis_points,omitempty"`
	Treasury       *string `json:"treasury,omitempty"`
}

func NewAdminHandler(svc *services.Services) *AdminHandler {
	return &AdminHandler{
		royaltyService:        svc.Royalties,
		eventService:          svc.Events,
		reconciliationService: svc.Reconciliation,
		exportService:         svc.Export,
	}
}

// GET /admin/settings
func (h *AdminHandler) GetSettings(c *gin.Context) {
	fee, err := h.royaltyService.GetFeeBasisPoints()
	if err != nil {
		respondError(c, err)
		return
	}
	treasury, err := h.royaltyService.GetTreasury()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"settings": gin.H{
			"fee_basis_points": fee,
			"treasury":         treasury,
		},
	})
}

// PUT /admin/settings
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.FeeBasisPoints == nil && req.Treasury == nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "fee_basis_points or treasury"), nil)
		return
	}

	update := &services.SettingsUpdate{FeeBasisPoints: req.FeeBasisPoints, Treasury: req.Treasury}
	if err := h.royaltyService.UpdateSettings(c.Request.Context(), update, caller); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeySettingsUpdated)})
}

// GET /admin/events
func (h *AdminHandler) GetEvents(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	events, err := h.eventService.ListEvents(models.EventType(c.Query("type")), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"events": events})
}

// POST /admin/reconcile
func (h *AdminHandler) Reconcile(c *gin.Context) {
	report, err := h.reconciliationService.Reconcile()
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"clean":  report.Clean(),
		"report": report,
	})
}

// POST /admin/export
func (h *AdminHandler) Export(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	result, err := h.exportService.ExportSnapshot(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyExportCompleted),
		"export":  result,
	})
}
