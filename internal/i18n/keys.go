// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess     = "success"
	KeyError       = "error"
	KeyRateLimited = "rate_limited"
	KeyInternal    = "internal_error"
	KeyNotFound    = "not_found"

	KeyRouteNotFound = "route.not_found"

	// Authentication
	KeyAuthRequired     = "auth.required"
	KeyAuthInvalidToken = "auth.invalid_token"
	KeyAuthTokenExpired = "auth.token_expired"
	KeyAccessDenied     = "auth.access_denied"

	// Papers
	KeyPaperRegistered = "paper.registered"
	KeyPaperVerified   = "paper.verified"
	KeyPaperNotFound   = "paper.not_found"

	// Citations
	KeyCitationRecorded = "citation.recorded"
	KeyCitationVerified = "citation.verified"
	KeyCitationNotFound = "citation.not_found"
	KeySelfCitation     = "citation.self_citation"

	// Royalties
	KeyRoyaltyPaid           = "royalty.paid"
	KeyRoyaltyWithdrawn      = "royalty.withdrawn"
	KeyPaymentNotFound       = "payment.not_found"
	KeyInvalidAmount         = "royalty.invalid_amount"
	KeyInvalidRecipient      = "royalty.invalid_recipient"
	KeyNotOwner              = "royalty.not_owner"
	KeyNothingToWithdraw     = "royalty.nothing_to_withdraw"
	KeyFeeTooHigh            = "royalty.fee_too_high"
	KeyFeeTransferFailed     = "royalty.fee_transfer_failed"
	KeyPayoutFailed          = "royalty.payout_failed"
	KeyArityMismatch         = "royalty.arity_mismatch"
	KeyBatchTotalMismatch    = "royalty.batch_total_mismatch"
	KeyAttestationCallFailed = "origin.call_failed"

	// Roles
	KeyRoleGranted        = "role.granted"
	KeyRoleRevoked        = "role.revoked"
	KeyRoleAlreadyGranted = "role.already_granted"
	KeyRoleNotGranted     = "role.not_granted"

	// Verification
	KeyAlreadyVerified = "verification.already_verified"

	// Validation
	KeyValidationRequired = "validation.required"
	KeyValidationInvalid  = "validation.invalid"
	KeyInvalidAddress     = "validation.invalid_address"

	// Admin
	KeySettingsUpdated = "admin.settings_updated"
	KeyExportCompleted = "admin.export_completed"
)
