// internal/payments/stripe.go
package payments

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/transfer"
	"github.com/stripe/stripe-go/v74/transferreversal"

	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/utils"
)

// StripeTransferer pays out through Stripe Connect transfers. Each principal
// is mapped to a connected account.
type StripeTransferer struct {
	accounts map[string]string
	currency string
}

func NewStripeTransferer(cfg config.PaymentConfig) *StripeTransferer {
	// Initialize Stripe
	stripe.Key = cfg.StripeSecretKey

	currency := cfg.Currency
	if currency == "" {
		currency = "usd"
	}

	accounts := make(map[string]string, len(cfg.ConnectedAccounts))
	for principal, account := range cfg.ConnectedAccounts {
		normalized, err := utils.NormalizeAddress(principal)
		if err != nil {
			logrus.WithError(err).WithField("principal", principal).Warn("Skipping connected account with malformed principal")
			continue
		}
		accounts[normalized] = account
	}

	return &StripeTransferer{
		accounts: accounts,
		currency: currency,
	}
}

func (s *StripeTransferer) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	account, ok := s.accounts[req.Destination]
	if !ok {
		return "", fmt.Errorf("%s: %w", req.Destination, ErrUnknownDestination)
	}

	currency := req.Currency
	if currency == "" {
		currency = s.currency
	}

	params := &stripe.TransferParams{
		Amount:      stripe.Int64(req.Amount),
		Currency:    stripe.String(currency),
		Destination: stripe.String(account),
	}
	params.Context = ctx
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
		params.TransferGroup = stripe.String(req.IdempotencyKey)
	}
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	params.AddMetadata("principal", req.Destination)

	tr, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("failed to create transfer: %w", err)
	}

	return tr.ID, nil
}

func (s *StripeTransferer) Reverse(ctx context.Context, reference string) error {
	params := &stripe.TransferReversalParams{
		ID: stripe.String(reference),
	}
	params.Context = ctx

	if _, err := transferreversal.New(params); err != nil {
		return fmt.Errorf("failed to reverse transfer %s: %w", reference, err)
	}
	return nil
}
