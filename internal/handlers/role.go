// internal/handlers/role.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/services"
	"github.com/javajoker/paper-ledger/internal/utils"
)

type RoleHandler struct {
	roleService *services.RoleService
}

type RoleChangeRequest struct {
	Principal string `json:"principal" validate:"required"`
}

func NewRoleHandler(roleService *services.RoleService) *RoleHandler {
	return &RoleHandler{
		roleService: roleService,
	}
}

// GET /roles/:capability
func (h *RoleHandler) ListHolders(c *gin.Context) {
	holders, err := h.roleService.ListRoleHolders(models.Capability(c.Param("capability")))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"owner_admin": h.roleService.OwnerAdmin(),
		"holders":     holders,
	})
}

// GET /roles/:capability/:principal
func (h *RoleHandler) HasCapability(c *gin.Context) {
	held, err := h.roleService.HasCapability(models.Capability(c.Param("capability")), c.Param("principal"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"has_capability": held})
}

// POST /roles/:capability
func (h *RoleHandler) Grant(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	var req RoleChangeRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.roleService.Grant(c.Request.Context(), models.Capability(c.Param("capability")), req.Principal, caller); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyRoleGranted)})
}

// DELETE /roles/:capability/:principal
func (h *RoleHandler) Revoke(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := callerOrAbort(c)
	if !ok {
		return
	}

	if err := h.roleService.Revoke(c.Request.Context(), models.Capability(c.Param("capability")), c.Param("principal"), caller); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{"message": i18n.T(lang, i18n.KeyRoleRevoked)})
}
