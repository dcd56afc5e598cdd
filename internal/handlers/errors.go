// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/paper-ledger/internal/i18n"
	"github.com/javajoker/paper-ledger/internal/services"
	"github.com/javajoker/paper-ledger/internal/utils"
)

var errorStatus = []struct {
	err    error
	status int
	key    string
}{
	{services.ErrNotFound, http.StatusNotFound, i18n.KeyNotFound},
	{services.ErrUnauthorized, http.StatusForbidden, i18n.KeyAccessDenied},
	{services.ErrAlreadyVerified, http.StatusConflict, i18n.KeyAlreadyVerified},
	{services.ErrAlreadyGranted, http.StatusConflict, i18n.KeyRoleAlreadyGranted},
	{services.ErrNotGranted, http.StatusConflict, i18n.KeyRoleNotGranted},
	{services.ErrSelfCitation, http.StatusBadRequest, i18n.KeySelfCitation},
	{services.ErrInvalidAmount, http.StatusBadRequest, i18n.KeyInvalidAmount},
	{services.ErrInvalidRecipient, http.StatusBadRequest, i18n.KeyInvalidRecipient},
	{services.ErrInvalidAddress, http.StatusBadRequest, i18n.KeyInvalidAddress},
	{services.ErrFeeTooHigh, http.StatusBadRequest, i18n.KeyFeeTooHigh},
	{services.ErrArityMismatch, http.StatusBadRequest, i18n.KeyArityMismatch},
	{services.ErrBatchTotalMismatch, http.StatusBadRequest, i18n.KeyBatchTotalMismatch},
	{services.ErrInvalidInput, http.StatusBadRequest, i18n.KeyValidationInvalid},
	{services.ErrNotOwner, http.StatusUnprocessableEntity, i18n.KeyNotOwner},
	{services.ErrNothingToWithdraw, http.StatusUnprocessableEntity, i18n.KeyNothingToWithdraw},
	{services.ErrFeeTransferFailed, http.StatusBadGateway, i18n.KeyFeeTransferFailed},
	{services.ErrPayoutFailed, http.StatusBadGateway, i18n.KeyPayoutFailed},
	{services.ErrAttestationCallFailed, http.StatusBadGateway, i18n.KeyAttestationCallFailed},
}

// respondError writes the API envelope for a service error. Unknown errors
// are logged and reported as 500 without their message.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)
	for _, entry := range errorStatus {
		if errors.Is(err, entry.err) {
			message := i18n.T(lang, entry.key)
			if entry.err == services.ErrInvalidInput {
				message = i18n.T(lang, entry.key, "input")
			}
			utils.ErrorResponse(c, entry.status, services.ErrorCode(err), message, err.Error())
			return
		}
	}

	logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled service error")
	utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyInternal))
}

func callerOrAbort(c *gin.Context) (string, bool) {
	principal, ok := utils.GetPrincipalFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return principal, ok
}

func uintParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, name), nil)
		return 0, false
	}
	return id, true
}

// bindJSON decodes and validates the request body.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(utils.GetLangFromContext(c), i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}
