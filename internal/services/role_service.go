// internal/services/role_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/database"
	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/utils"
)

// RoleService is the role store. The owner-admin implicitly holds every
// capability and is the only principal allowed to grant or revoke.
type RoleService struct {
	db         *gorm.DB
	events     *EventService
	ownerAdmin string
}

func NewRoleService(db *gorm.DB, events *EventService, ownerAdmin string) *RoleService {
	normalized, err := utils.NormalizeAddress(ownerAdmin)
	if err != nil {
		normalized = ""
	}
	return &RoleService{
		db:         db,
		events:     events,
		ownerAdmin: normalized,
	}
}

func (s *RoleService) OwnerAdmin() string {
	return s.ownerAdmin
}

func (s *RoleService) IsOwnerAdmin(principal string) bool {
	return s.ownerAdmin != "" && principal == s.ownerAdmin
}

func (s *RoleService) HasCapability(capability models.Capability, principal string) (bool, error) {
	normalized, err := utils.NormalizeAddress(principal)
	if err != nil {
		return false, nil
	}
	return s.hasCapability(s.db, capability, normalized)
}

func (s *RoleService) hasCapability(tx *gorm.DB, capability models.Capability, principal string) (bool, error) {
	if s.IsOwnerAdmin(principal) {
		return true, nil
	}

	var count int64
	if err := tx.Model(&models.RoleAssignment{}).
		Where("capability = ? AND principal = ?", capability, principal).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check capability: %w", err)
	}
	return count > 0, nil
}

// requireCapability returns ErrUnauthorized unless principal holds capability.
func (s *RoleService) requireCapability(tx *gorm.DB, capability models.Capability, principal string) error {
	ok, err := s.hasCapability(tx, capability, principal)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s lacks %s: %w", principal, capability, ErrUnauthorized)
	}
	return nil
}

func (s *RoleService) Grant(ctx context.Context, capability models.Capability, principal, caller string) error {
	principal, caller, err := s.checkRoleChange(capability, principal, caller)
	if err != nil {
		return err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var existing models.RoleAssignment
		err := tx.Where("capability = ? AND principal = ?", capability, principal).First(&existing).Error
		if err == nil {
			return fmt.Errorf("%s already holds %s: %w", principal, capability, ErrAlreadyGranted)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("database error: %w", err)
		}

		role := &models.RoleAssignment{
			Capability: capability,
			Principal:  principal,
			GrantedBy:  caller,
		}
		if err := tx.Create(role).Error; err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}

		return s.events.record(tx, &models.LedgerEvent{
			Type:      models.EventRoleGranted,
			Principal: principal,
			Payload:   models.JSONB{"capability": string(capability), "granted_by": caller},
		})
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"capability": capability,
		"principal":  principal,
	}).Info("Role granted")
	return nil
}

func (s *RoleService) Revoke(ctx context.Context, capability models.Capability, principal, caller string) error {
	principal, caller, err := s.checkRoleChange(capability, principal, caller)
	if err != nil {
		return err
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		result := tx.Where("capability = ? AND principal = ?", capability, principal).Delete(&models.RoleAssignment{})
		if result.Error != nil {
			return fmt.Errorf("failed to revoke role: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("%s does not hold %s: %w", principal, capability, ErrNotGranted)
		}

		return s.events.record(tx, &models.LedgerEvent{
			Type:      models.EventRoleRevoked,
			Principal: principal,
			Payload:   models.JSONB{"capability": string(capability), "revoked_by": caller},
		})
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"capability": capability,
		"principal":  principal,
	}).Info("Role revoked")
	return nil
}

// ListRoleHolders returns explicit grants of capability. The owner-admin is
// not listed.
func (s *RoleService) ListRoleHolders(capability models.Capability) ([]models.RoleAssignment, error) {
	if !capability.Valid() {
		return nil, fmt.Errorf("unknown capability %q: %w", capability, ErrInvalidInput)
	}

	var roles []models.RoleAssignment
	if err := s.db.Where("capability = ?", capability).Order("created_at").Order("principal").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch role holders: %w", err)
	}
	return roles, nil
}

func (s *RoleService) checkRoleChange(capability models.Capability, principal, caller string) (string, string, error) {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return "", "", err
	}
	if !s.IsOwnerAdmin(caller) {
		return "", "", fmt.Errorf("only the owner-admin may change roles: %w", ErrUnauthorized)
	}
	if !capability.Valid() {
		return "", "", fmt.Errorf("unknown capability %q: %w", capability, ErrInvalidInput)
	}
	principal, err = normalizePrincipal(principal)
	if err != nil {
		return "", "", err
	}
	return principal, caller, nil
}

// normalizePrincipal returns the checksummed form or ErrInvalidAddress.
func normalizePrincipal(principal string) (string, error) {
	normalized, err := utils.NormalizeAddress(principal)
	if err != nil {
		return "", fmt.Errorf("%q: %v: %w", principal, err, ErrInvalidAddress)
	}
	if utils.IsZeroAddress(normalized) {
		return "", fmt.Errorf("zero address: %w", ErrInvalidAddress)
	}
	return normalized, nil
}

// normalizeCaller is normalizePrincipal for the acting principal: a caller
// that cannot be identified is unauthorized rather than invalid input.
func normalizeCaller(caller string) (string, error) {
	normalized, err := utils.NormalizeAddress(caller)
	if err != nil || utils.IsZeroAddress(normalized) {
		return "", fmt.Errorf("unidentified caller %q: %w", caller, ErrUnauthorized)
	}
	return normalized, nil
}
