// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB is stored as jsonb on PostgreSQL and as text on SQLite.
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	data, err := json.Marshal(j)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported JSONB source type %T", value)
	}

	return json.Unmarshal(data, j)
}

// Capability names a permission held in the role store.
type Capability string

const (
	CapabilityCitationRecorder Capability = "citation_recorder"
	CapabilityCitationVerifier Capability = "citation_verifier"
	CapabilityPaperVerifier    Capability = "paper_verifier"
)

// Capabilities lists every grantable capability.
var Capabilities = []Capability{
	CapabilityCitationRecorder,
	CapabilityCitationVerifier,
	CapabilityPaperVerifier,
}

func (c Capability) Valid() bool {
	for _, known := range Capabilities {
		if c == known {
			return true
		}
	}
	return false
}

type EventType string

const (
	EventPaperRegistered  EventType = "paper_registered"
	EventPaperVerified    EventType = "paper_verified"
	EventCitationRecorded EventType = "citation_recorded"
	EventCitationVerified EventType = "citation_verified"
	EventRoyaltyPaid      EventType = "royalty_paid"
	EventRoyaltyWithdrawn EventType = "royalty_withdrawn"
	EventFeeUpdated       EventType = "fee_updated"
	EventTreasuryUpdated  EventType = "treasury_updated"
	EventRoleGranted      EventType = "role_granted"
	EventRoleRevoked      EventType = "role_revoked"
)

// Sequence names for gap-free identifiers.
const (
	SequencePaper    = "paper"
	SequenceCitation = "citation"
	SequencePayment  = "payment"
)

// Setting keys persisted in ledger_settings.
const (
	SettingFeeBasisPoints = "fee_basis_points"
	SettingTreasury       = "treasury"
)
