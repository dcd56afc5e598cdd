// internal/services/event_service.go
package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/models"
)

const maxEventPage = 500

// EventService appends and lists ledger events. Appends always happen on the
// caller's transaction so an event exists exactly when its state change does.
type EventService struct {
	db *gorm.DB
}

func NewEventService(db *gorm.DB) *EventService {
	return &EventService{db: db}
}

func (s *EventService) record(tx *gorm.DB, event *models.LedgerEvent) error {
	if err := tx.Create(event).Error; err != nil {
		return fmt.Errorf("failed to record %s event: %w", event.Type, err)
	}
	return nil
}

// ListEvents returns the most recent events, newest first. An empty
// eventType lists every type.
func (s *EventService) ListEvents(eventType models.EventType, limit int) ([]models.LedgerEvent, error) {
	if limit <= 0 || limit > maxEventPage {
		limit = 100
	}

	query := s.db.Model(&models.LedgerEvent{})
	if eventType != "" {
		query = query.Where("type = ?", eventType)
	}

	var events []models.LedgerEvent
	if err := query.Order("created_at DESC").Order("id").Limit(limit).Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return events, nil
}

func uint64Ptr(v uint64) *uint64 {
	return &v
}
