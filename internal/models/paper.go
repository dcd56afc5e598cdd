// internal/models/paper.go
package models

import (
	"time"

	"github.com/lib/pq"
)

type Paper struct {
	ID            uint64         `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ContentHash   string         `json:"content_hash" gorm:"size:255;not null"`
	Owner         string         `json:"owner" gorm:"size:42;not null;index"`
	Title         string         `json:"title" gorm:"size:500;not null"`
	MetadataURI   string         `json:"metadata_uri" gorm:"type:text"`
	Keywords      pq.StringArray `json:"keywords" gorm:"type:text"`
	CoAuthors     pq.StringArray `json:"co_authors" gorm:"type:text"`
	CitationCount int64          `json:"citation_count" gorm:"not null;default:0"`
	IsVerified    bool           `json:"is_verified" gorm:"not null;default:false;index"`
	VerifiedBy    string         `json:"verified_by,omitempty" gorm:"size:42"`
	VerifiedAt    *time.Time     `json:"verified_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// PaperKeyword is the keyword index: one row per distinct keyword of a paper.
type PaperKeyword struct {
	PaperID  uint64 `json:"paper_id" gorm:"primaryKey;autoIncrement:false"`
	Keyword  string `json:"keyword" gorm:"primaryKey;size:255;index"`
	Position int    `json:"position" gorm:"not null"`
}

// IsCoAuthor reports whether principal is the owner or a listed co-author.
func (p *Paper) IsCoAuthor(principal string) bool {
	if p.Owner == principal {
		return true
	}
	for _, coAuthor := range p.CoAuthors {
		if coAuthor == principal {
			return true
		}
	}
	return false
}
