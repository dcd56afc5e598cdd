// internal/origin/mock.go
package origin

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type Operation string

const (
	OpRegisterAsset        Operation = "register_asset"
	OpVerifyOwnership      Operation = "verify_ownership"
	OpRecordRoyaltyPayment Operation = "record_royalty_payment"
)

// License is descriptive metadata attached to an asset.
type License struct {
	Type       string    `json:"type"`
	Terms      string    `json:"terms"`
	RoyaltyBPS int64     `json:"royalty_bps"`
	Commercial bool      `json:"commercial"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ProvenanceRecord is one hash-linked entry of an asset's history.
type ProvenanceRecord struct {
	Hash         string                 `json:"hash"`
	PreviousHash string                 `json:"previous_hash"`
	Event        string                 `json:"event"`
	Principal    string                 `json:"principal"`
	Amount       int64                  `json:"amount,omitempty"`
	Timestamp    time.Time              `json:"timestamp"`
	Data         map[string]interface{} `json:"data,omitempty"`
}

type mockAsset struct {
	creator      string
	owner        string
	registeredAt time.Time
	royalties    int64
	license      *License
	provenance   []ProvenanceRecord
}

// MockClient is an in-memory Client. Failures can be injected per operation.
type MockClient struct {
	mu       sync.RWMutex
	assets   map[uint64]*mockAsset
	failures map[Operation]error
	now      func() time.Time
}

func NewMockClient() *MockClient {
	return &MockClient{
		assets:   make(map[uint64]*mockAsset),
		failures: make(map[Operation]error),
		now:      time.Now,
	}
}

// SetFailure makes every call to op return err. A nil err clears it.
func (m *MockClient) SetFailure(op Operation, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MockClient) RegisterAsset(ctx context.Context, assetID uint64, creator string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[OpRegisterAsset]; err != nil {
		return err
	}
	if _, exists := m.assets[assetID]; exists {
		return fmt.Errorf("asset %d: %w", assetID, ErrAssetExists)
	}

	asset := &mockAsset{
		creator:      creator,
		owner:        creator,
		registeredAt: m.now(),
	}
	m.assets[assetID] = asset
	m.appendProvenance(asset, "registered", creator, 0, nil)
	return nil
}

func (m *MockClient) VerifyOwnership(ctx context.Context, assetID uint64, claimedOwner string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.failures[OpVerifyOwnership]; err != nil {
		return false, err
	}
	asset, ok := m.assets[assetID]
	if !ok {
		return false, nil
	}
	return asset.owner == claimedOwner, nil
}

func (m *MockClient) RecordRoyaltyPayment(ctx context.Context, assetID uint64, recipient string, amount int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failures[OpRecordRoyaltyPayment]; err != nil {
		return err
	}
	asset, ok := m.assets[assetID]
	if !ok {
		return fmt.Errorf("asset %d: %w", assetID, ErrAssetNotFound)
	}

	asset.royalties += amount
	m.appendProvenance(asset, "royalty_paid", recipient, amount, nil)
	return nil
}

// TransferOwnership reassigns an asset outside the ledger.
func (m *MockClient) TransferOwnership(assetID uint64, from, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	asset, ok := m.assets[assetID]
	if !ok {
		return fmt.Errorf("asset %d: %w", assetID, ErrAssetNotFound)
	}
	if asset.owner != from {
		return fmt.Errorf("asset %d is not owned by %s", assetID, from)
	}

	asset.owner = to
	m.appendProvenance(asset, "transferred", to, 0, map[string]interface{}{"from": from})
	return nil
}

func (m *MockClient) SetLicense(assetID uint64, license License) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	asset, ok := m.assets[assetID]
	if !ok {
		return fmt.Errorf("asset %d: %w", assetID, ErrAssetNotFound)
	}

	license.UpdatedAt = m.now()
	asset.license = &license
	m.appendProvenance(asset, "license_set", asset.owner, 0, map[string]interface{}{
		"type":        license.Type,
		"royalty_bps": license.RoyaltyBPS,
	})
	return nil
}

func (m *MockClient) GetLicense(assetID uint64) (*License, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	asset, ok := m.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %d: %w", assetID, ErrAssetNotFound)
	}
	if asset.license == nil {
		return nil, nil
	}
	license := *asset.license
	return &license, nil
}

func (m *MockClient) GetProvenance(assetID uint64) ([]ProvenanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	asset, ok := m.assets[assetID]
	if !ok {
		return nil, fmt.Errorf("asset %d: %w", assetID, ErrAssetNotFound)
	}
	out := make([]ProvenanceRecord, len(asset.provenance))
	copy(out, asset.provenance)
	return out, nil
}

// TotalRoyalties returns the sum recorded against an asset.
func (m *MockClient) TotalRoyalties(assetID uint64) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if asset, ok := m.assets[assetID]; ok {
		return asset.royalties
	}
	return 0
}

// VerifyProvenance checks the hash links of an asset's history.
func (m *MockClient) VerifyProvenance(assetID uint64) (bool, error) {
	records, err := m.GetProvenance(assetID)
	if err != nil {
		return false, err
	}

	previous := ""
	for _, record := range records {
		if record.PreviousHash != previous || record.Hash != hashRecord(record) {
			return false, nil
		}
		previous = record.Hash
	}
	return true, nil
}

// appendProvenance must be called with m.mu held.
func (m *MockClient) appendProvenance(asset *mockAsset, event, principal string, amount int64, data map[string]interface{}) {
	previous := ""
	if n := len(asset.provenance); n > 0 {
		previous = asset.provenance[n-1].Hash
	}

	record := ProvenanceRecord{
		PreviousHash: previous,
		Event:        event,
		Principal:    principal,
		Amount:       amount,
		Timestamp:    m.now().UTC(),
		Data:         data,
	}
	record.Hash = hashRecord(record)
	asset.provenance = append(asset.provenance, record)
}

func hashRecord(record ProvenanceRecord) string {
	record.Hash = ""
	payload, _ := json.Marshal(record)
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
