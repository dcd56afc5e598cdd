// internal/payments/transferer.go
package payments

import (
	"context"
	"errors"

	"github.com/javajoker/paper-ledger/internal/config"
)

var (
	ErrUnknownDestination = errors.New("no payout account for destination")
	ErrTransferNotFound   = errors.New("transfer not found")
)

// TransferRequest moves Amount minor units to Destination. IdempotencyKey
// lets the provider collapse retries of the same logical transfer.
type TransferRequest struct {
	Destination    string
	Amount         int64
	Currency       string
	IdempotencyKey string
	Description    string
}

// Transferer moves funds out of the ledger: treasury fees and withdrawals.
type Transferer interface {
	Transfer(ctx context.Context, req TransferRequest) (string, error)
	Reverse(ctx context.Context, reference string) error
}

// New builds the transferer selected by configuration.
func New(cfg config.PaymentConfig) Transferer {
	if cfg.Mode == "stripe" {
		return NewStripeTransferer(cfg)
	}
	return NewMemoryTransferer()
}
