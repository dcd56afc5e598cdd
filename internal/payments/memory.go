// internal/payments/memory.go
package payments

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Transfer struct {
	Reference      string
	Destination    string
	Amount         int64
	Currency       string
	IdempotencyKey string
	Reversed       bool
	CreatedAt      time.Time
}

// MemoryTransferer keeps transfers in process. It is used in development and tests.
type MemoryTransferer struct {
	mu            sync.Mutex
	transfers     []*Transfer
	byKey         map[string]*Transfer
	failAll       error
	failByAddress map[string]error
}

func NewMemoryTransferer() *MemoryTransferer {
	return &MemoryTransferer{
		byKey:         make(map[string]*Transfer),
		failByAddress: make(map[string]error),
	}
}

// SetFailure makes transfers to destination fail with err. An empty
// destination applies to every transfer. A nil err clears the failure.
func (m *MemoryTransferer) SetFailure(destination string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if destination == "" {
		m.failAll = err
		return
	}
	if err == nil {
		delete(m.failByAddress, destination)
		return
	}
	m.failByAddress[destination] = err
}

func (m *MemoryTransferer) Transfer(ctx context.Context, req TransferRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failAll != nil {
		return "", m.failAll
	}
	if err := m.failByAddress[req.Destination]; err != nil {
		return "", err
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("invalid transfer amount %d", req.Amount)
	}

	if req.IdempotencyKey != "" {
		if existing, ok := m.byKey[req.IdempotencyKey]; ok {
			return existing.Reference, nil
		}
	}

	transfer := &Transfer{
		Reference:      "tr_" + uuid.NewString(),
		Destination:    req.Destination,
		Amount:         req.Amount,
		Currency:       req.Currency,
		IdempotencyKey: req.IdempotencyKey,
		CreatedAt:      time.Now(),
	}
	m.transfers = append(m.transfers, transfer)
	if req.IdempotencyKey != "" {
		m.byKey[req.IdempotencyKey] = transfer
	}
	return transfer.Reference, nil
}

func (m *MemoryTransferer) Reverse(ctx context.Context, reference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, transfer := range m.transfers {
		if transfer.Reference == reference {
			transfer.Reversed = true
			return nil
		}
	}
	return fmt.Errorf("%s: %w", reference, ErrTransferNotFound)
}

// Transfers returns a copy of every transfer made so far.
func (m *MemoryTransferer) Transfers() []Transfer {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Transfer, 0, len(m.transfers))
	for _, transfer := range m.transfers {
		out = append(out, *transfer)
	}
	return out
}

// Settled sums transfers to destination that were not reversed.
func (m *MemoryTransferer) Settled(destination string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total int64
	for _, transfer := range m.transfers {
		if transfer.Destination == destination && !transfer.Reversed {
			total += transfer.Amount
		}
	}
	return total
}
