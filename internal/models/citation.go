// internal/models/citation.go
package models

import "time"

type Citation struct {
	ID            uint64     `json:"id" gorm:"primaryKey;autoIncrement:false"`
	CitingPaperID uint64     `json:"citing_paper_id" gorm:"not null;index"`
	CitedPaperID  uint64     `json:"cited_paper_id" gorm:"not null;index"`
	Creator       string     `json:"creator" gorm:"size:42;not null"`
	IsVerified    bool       `json:"is_verified" gorm:"not null;default:false"`
	VerifiedBy    string     `json:"verified_by,omitempty" gorm:"size:42"`
	VerifiedAt    *time.Time `json:"verified_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`

	// Relationships
	CitingPaper *Paper `json:"citing_paper,omitempty" gorm:"foreignKey:CitingPaperID"`
	CitedPaper  *Paper `json:"cited_paper,omitempty" gorm:"foreignKey:CitedPaperID"`
}
