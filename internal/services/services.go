// internal/services/services.go
package services

import (
	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/origin"
	"github.com/javajoker/paper-ledger/internal/payments"
)

// Services is the wired set of ledger components.
type Services struct {
	Events         *EventService
	Roles          *RoleService
	Papers         *PaperService
	Citations      *CitationService
	Royalties      *RoyaltyService
	Ledger         *LedgerService
	Reconciliation *ReconciliationService
	Export         *ExportService
}

func New(
	db *gorm.DB,
	cfg *config.Config,
	originClient origin.Client,
	transferer payments.Transferer,
	storage *StorageService,
	m *metrics.Metrics,
) *Services {
	events := NewEventService(db)
	roles := NewRoleService(db, events, cfg.Ledger.OwnerAdmin)
	papers := NewPaperService(db, roles, events, originClient, m)
	citations := NewCitationService(db, roles, papers, events, m)

	return &Services{
		Events:         events,
		Roles:          roles,
		Papers:         papers,
		Citations:      citations,
		Royalties:      NewRoyaltyService(db, roles, papers, events, originClient, transferer, m, cfg.Ledger),
		Ledger:         NewLedgerService(db, papers, citations, m, cfg.Ledger.RegistryPrincipal),
		Reconciliation: NewReconciliationService(db, m),
		Export:         NewExportService(db, storage, cfg.AWS.ExportPrefix),
	}
}
