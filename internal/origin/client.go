// internal/origin/client.go
package origin

import (
	"context"
	"errors"
)

var (
	ErrAssetExists   = errors.New("asset already registered")
	ErrAssetNotFound = errors.New("asset not registered")
	ErrUnavailable   = errors.New("origin service unavailable")
)

// Client is the attestation collaborator the ledger consults for asset
// registration, ownership checks and royalty bookkeeping.
type Client interface {
	RegisterAsset(ctx context.Context, assetID uint64, creator string) error
	VerifyOwnership(ctx context.Context, assetID uint64, claimedOwner string) (bool, error)
	RecordRoyaltyPayment(ctx context.Context, assetID uint64, recipient string, amount int64) error
}
