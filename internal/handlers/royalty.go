// internal/handlers/royalty.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/services"
	"github.com/javajoker/paper-ledger/internal/utils"
)

type RoyaltyHandler struct {
	royaltyService *services.RoyaltyService
}

func NewRoyaltyHandler(royaltyService *services.RoyaltyService) *RoyaltyHandler {
	return &RoyaltyHandler{
		royaltyService: royaltyService,
	}
}

// POST /royalties
func (h *RoyaltyHandler) PayRoyalty(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	payer, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req services.PayRoyaltyRequest
	if !bindJSON(c, &req) {
		return
	}

	payment, err := h.royaltyService.PayRoyalty(c.Request.Context(), &req, payer)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyRoyaltyPaid),
		"payment": payment,
	})
}

// POST /royalties/batch
func (h *RoyaltyHandler) BatchPayRoyalties(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	payer, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req services.BatchPayRoyaltiesRequest
	if !bindJSON(c, &req) {
		return
	}

	payments, err := h.royaltyService.BatchPayRoyalties(c.Request.Context(), &req, payer)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyRoyaltyPaid),
		"payments": payments,
	})
}

// POST /royalties/withdraw
func (h *RoyaltyHandler) Withdraw(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	withdrawal, err := h.royaltyService.WithdrawRoyalties(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeyRoyaltyWithdrawn),
		"withdrawal": withdrawal,
	})
}

// GET /royalties/balance
func (h *RoyaltyHandler) GetBalance(c *gin.Context) {
	principal := c.Query("principal")
	if principal == "" {
		caller, ok := callerOrAbort(c)
		if !ok {
			return
		}
		principal = caller
	}

	balance, err := h.royaltyService.GetBalance(principal)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"principal": principal,
		"balance":   balance,
	})
}

// GET /royalties/withdrawals
func (h *RoyaltyHandler) GetWithdrawals(c *gin.Context) {
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	withdrawals, err := h.royaltyService.GetWithdrawals(caller)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"withdrawals": withdrawals})
}

// GET /royalties/researchers/:principal
func (h *RoyaltyHandler) GetPaymentsForResearcher(c *gin.Context) {
	payments, err := h.royaltyService.GetPaymentsForResearcher(c.Param("principal"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"payments": payments})
}

// GET /royalties/:id
func (h *RoyaltyHandler) GetPayment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}

	payment, err := h.royaltyService.GetPaymentDetails(id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"payment": payment})
}

// GET /royalties/fee
func (h *RoyaltyHandler) GetFeeSettings(c *gin.Context) {
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
		"fee_basis_points": fee,
		"treasury":         treasury,
	})
}
