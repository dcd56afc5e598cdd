// internal/models/ledger.go
package models

import "time"

// Counter backs a gap-free identifier sequence.
type Counter struct {
	Name      string    `json:"name" gorm:"primaryKey;size:50"`
	Value     uint64    `json:"value" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LedgerSetting struct {
	BaseModel
	Category    string `json:"category" gorm:"size:50;not null;index"`
	Key         string `json:"key" gorm:"size:100;not null;uniqueIndex"`
	Value       string `json:"value" gorm:"type:text;not null"`
	DataType    string `json:"data_type" gorm:"size:20;not null"`
	Description string `json:"description" gorm:"type:text"`
	UpdatedBy   string `json:"updated_by" gorm:"size:42"`
}

type LedgerEvent struct {
	BaseModel
	Type       EventType `json:"type" gorm:"type:varchar(50);not null;index"`
	Principal  string    `json:"principal" gorm:"size:42;index"`
	PaperID    *uint64   `json:"paper_id,omitempty" gorm:"index"`
	CitationID *uint64   `json:"citation_id,omitempty"`
	PaymentID  *uint64   `json:"payment_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Payload    JSONB     `json:"payload,omitempty" gorm:"type:jsonb"`
}

type AuditLog struct {
	BaseModel
	Principal  string `json:"principal" gorm:"size:42;index"`
	Action     string `json:"action" gorm:"size:100;not null;index"`
	Method     string `json:"method" gorm:"size:10"`
	Path       string `json:"path" gorm:"size:255"`
	StatusCode int    `json:"status_code"`
	LatencyMS  int64  `json:"latency_ms"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"type:text"`
}
