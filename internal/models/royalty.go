// internal/models/royalty.go
package models

import "time"

// RoyaltyPayment amounts are integer minor units of the ledger currency.
type RoyaltyPayment struct {
	ID             uint64    `json:"id" gorm:"primaryKey;autoIncrement:false"`
	PaperID        uint64    `json:"paper_id" gorm:"not null;index"`
	Researcher     string    `json:"researcher" gorm:"size:42;not null;index"`
	Payer          string    `json:"payer" gorm:"size:42;not null"`
	GrossAmount    int64     `json:"gross_amount" gorm:"not null"`
	FeeAmount      int64     `json:"fee_amount" gorm:"not null;default:0"`
	Amount         int64     `json:"amount" gorm:"not null"`
	Reason         string    `json:"reason" gorm:"type:text"`
	BatchID        string    `json:"batch_id,omitempty" gorm:"size:36;index"`
	FeeTransferRef string    `json:"fee_transfer_ref,omitempty" gorm:"size:255"`
	CreatedAt      time.Time `json:"created_at"`

	// Relationships
	Paper *Paper `json:"paper,omitempty" gorm:"foreignKey:PaperID"`
}

type ResearcherBalance struct {
	Principal string    `json:"principal" gorm:"primaryKey;size:42"`
	Amount    int64     `json:"amount" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Withdrawal struct {
	BaseModel
	Principal       string `json:"principal" gorm:"size:42;not null;index"`
	Amount          int64  `json:"amount" gorm:"not null"`
	PayoutReference string `json:"payout_reference" gorm:"size:255"`
}
