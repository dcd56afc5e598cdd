// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrAlreadyVerified       = errors.New("already verified")
	ErrAlreadyGranted        = errors.New("capability already granted")
	ErrNotGranted            = errors.New("capability not granted")
	ErrSelfCitation          = errors.New("a paper cannot cite itself")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidRecipient      = errors.New("invalid recipient")
	ErrInvalidAddress        = errors.New("invalid address")
	ErrFeeTooHigh            = errors.New("fee exceeds maximum")
	ErrArityMismatch         = errors.New("batch arrays differ in length")
	ErrNothingToWithdraw     = errors.New("nothing to withdraw")
	ErrNotOwner              = errors.New("recipient is not the verified owner")
	ErrFeeTransferFailed     = errors.New("fee transfer failed")
	ErrAttestationCallFailed = errors.New("attestation call failed")
	ErrInvalidInput          = errors.New("invalid input")
	ErrPayoutFailed          = errors.New("payout failed")
	ErrBatchTotalMismatch    = errors.New("batch total does not match amounts")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "NOT_FOUND"},
	{ErrUnauthorized, "UNAUTHORIZED"},
	{ErrAlreadyVerified, "ALREADY_VERIFIED"},
	{ErrAlreadyGranted, "ALREADY_GRANTED"},
	{ErrNotGranted, "NOT_GRANTED"},
	{ErrSelfCitation, "SELF_CITATION"},
	{ErrInvalidAmount, "INVALID_AMOUNT"},
	{ErrInvalidRecipient, "INVALID_RECIPIENT"},
	{ErrInvalidAddress, "INVALID_ADDRESS"},
	{ErrFeeTooHigh, "FEE_TOO_HIGH"},
	{ErrArityMismatch, "ARITY_MISMATCH"},
	{ErrNothingToWithdraw, "NOTHING_TO_WITHDRAW"},
	{ErrNotOwner, "NOT_OWNER"},
	{ErrFeeTransferFailed, "FEE_TRANSFER_FAILED"},
	{ErrAttestationCallFailed, "ATTESTATION_CALL_FAILED"},
	{ErrInvalidInput, "INVALID_INPUT"},
	{ErrPayoutFailed, "PAYOUT_FAILED"},
	{ErrBatchTotalMismatch, "BATCH_TOTAL_MISMATCH"},
}

// ErrorCode maps err to a stable API code. Unknown errors map to INTERNAL_ERROR.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, entry := range errorCodes {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return "INTERNAL_ERROR"
}

func notFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", kind, id, ErrNotFound)
}
