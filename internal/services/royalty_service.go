// internal/services/royalty_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/paper-ledger/internal/config"
	"github.com/javajoker/paper-ledger/internal/database"
	"github.com/javajoker/paper-ledger/internal/metrics"
	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/origin"
	"github.com/javajoker/paper-ledger/internal/payments"
	"github.com/javajoker/paper-ledger/internal/utils"
)

// RoyaltyService is the royalty ledger. Payments credit researcher balances
// net of the platform fee; the fee goes to the treasury and the origin
// service is told about every payment. External effects run inside the
// database transaction, so a failure anywhere rolls the whole payment back
// and transfers already made are reversed.
type RoyaltyService struct {
	db         *gorm.DB
	roles      *RoleService
	papers     *PaperService
	events     *EventService
	origin     origin.Client
	transferer payments.Transferer
	metrics    *metrics.Metrics
	defaults   config.LedgerConfig
}

type PayRoyaltyRequest struct {
	PaperID    uint64 `json:"paper_id"`
	Researcher string `json:"researcher"`
	Reason     string `json:"reason,omitempty"`
	Amount     int64  `json:"amount"`
}

// BatchPayRoyaltiesRequest is the flattened batch form: entry i is
// (PaperIDs[i], Researchers[i], Reasons[i], Amounts[i]). TotalFunds must equal
// the sum of Amounts.
type BatchPayRoyaltiesRequest struct {
	PaperIDs    []uint64 `json:"paper_ids"`
	Researchers []string `json:"researchers"`
	Reasons     []string `json:"reasons"`
	Amounts     []int64  `json:"amounts"`
	TotalFunds  int64    `json:"total_funds"`
}

type preparedPayment struct {
	paperID    uint64
	researcher string
	reason     string
	gross      int64
	fee        int64
	net        int64
}

func NewRoyaltyService(
	db *gorm.DB,
	roles *RoleService,
	papers *PaperService,
	events *EventService,
	originClient origin.Client,
	transferer payments.Transferer,
	m *metrics.Metrics,
	defaults config.LedgerConfig,
) *RoyaltyService {
	return &RoyaltyService{
		db:         db,
		roles:      roles,
		papers:     papers,
		events:     events,
		origin:     originClient,
		transferer: transferer,
		metrics:    m,
		defaults:   defaults,
	}
}

func (s *RoyaltyService) PayRoyalty(ctx context.Context, req *PayRoyaltyRequest, payer string) (payment *models.RoyaltyPayment, err error) {
	defer func() { s.metrics.ObserveOperation("pay_royalty", err) }()

	payer, err = normalizeCaller(payer)
	if err != nil {
		return nil, err
	}

	var reversals []string
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		feeBPS, treasury, err := s.loadSettings(tx)
		if err != nil {
			return err
		}

		prepared, err := s.prepare(ctx, tx, req.PaperID, req.Researcher, req.Reason, req.Amount, feeBPS)
		if err != nil {
			return err
		}

		payment, err = s.apply(tx, prepared, payer, "")
		if err != nil {
			return err
		}

		if prepared.fee > 0 && treasury != "" {
			// Payment IDs are reused after a rollback, so the key must not be.
			ref, err := s.transferFee(ctx, treasury, prepared.fee, "royalty-fee-"+uuid.NewString())
			if err != nil {
				return err
			}
			reversals = append(reversals, ref)
			payment.FeeTransferRef = ref
			if err := tx.Model(payment).Update("fee_transfer_ref", ref).Error; err != nil {
				return fmt.Errorf("failed to store fee transfer reference: %w", err)
			}
		}

		return s.notifyOrigin(ctx, prepared)
	})
	if err != nil {
		s.reverseTransfers(ctx, reversals)
		logrus.WithError(err).WithFields(logrus.Fields{
			"paper_id":  req.PaperID,
			"principal": req.Researcher,
			"amount":    req.Amount,
		}).Warn("Royalty payment rejected")
		return nil, err
	}

	s.metrics.AddRoyalty(payment.Amount, payment.FeeAmount)
	logrus.WithFields(logrus.Fields{
		"payment_id": payment.ID,
		"paper_id":   payment.PaperID,
		"principal":  payment.Researcher,
		"amount":     payment.Amount,
		"fee":        payment.FeeAmount,
	}).Info("Royalty paid")
	return payment, nil
}

// BatchPayRoyalties pays every entry or none. The fees of the batch are
// moved to the treasury in a single transfer.
func (s *RoyaltyService) BatchPayRoyalties(ctx context.Context, req *BatchPayRoyaltiesRequest, payer string) (paid []models.RoyaltyPayment, err error) {
	defer func() { s.metrics.ObserveOperation("batch_pay_royalties", err) }()

	n := len(req.PaperIDs)
	if len(req.Researchers) != n || len(req.Reasons) != n || len(req.Amounts) != n {
		return nil, fmt.Errorf("%d papers, %d researchers, %d reasons, %d amounts: %w",
			n, len(req.Researchers), len(req.Reasons), len(req.Amounts), ErrArityMismatch)
	}
	if n == 0 {
		return nil, fmt.Errorf("empty batch: %w", ErrInvalidInput)
	}

	var sum int64
	for i, amount := range req.Amounts {
		if amount <= 0 {
			return nil, fmt.Errorf("entry %d: %w", i, ErrInvalidAmount)
		}
		if sum > math.MaxInt64-amount {
			return nil, fmt.Errorf("batch total overflows: %w", ErrInvalidAmount)
		}
		sum += amount
	}
	if sum != req.TotalFunds {
		return nil, fmt.Errorf("total %d, amounts sum to %d: %w", req.TotalFunds, sum, ErrBatchTotalMismatch)
	}

	payer, err = normalizeCaller(payer)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	var reversals []string
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		feeBPS, treasury, err := s.loadSettings(tx)
		if err != nil {
			return err
		}

		// Validate every entry before any write or external effect.
		entries := make([]*preparedPayment, 0, n)
		for i := 0; i < n; i++ {
			prepared, err := s.prepare(ctx, tx, req.PaperIDs[i], req.Researchers[i], req.Reasons[i], req.Amounts[i], feeBPS)
			if err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
			entries = append(entries, prepared)
		}

		var totalFee int64
		paid = make([]models.RoyaltyPayment, 0, n)
		for _, prepared := range entries {
			payment, err := s.apply(tx, prepared, payer, batchID)
			if err != nil {
				return err
			}
			totalFee += prepared.fee
			paid = append(paid, *payment)
		}

		if totalFee > 0 && treasury != "" {
			ref, err := s.transferFee(ctx, treasury, totalFee, "royalty-batch-fee-"+batchID)
			if err != nil {
				return err
			}
			reversals = append(reversals, ref)
			if err := tx.Model(&models.RoyaltyPayment{}).Where("batch_id = ?", batchID).
				Update("fee_transfer_ref", ref).Error; err != nil {
				return fmt.Errorf("failed to store fee transfer reference: %w", err)
			}
			for i := range paid {
				paid[i].FeeTransferRef = ref
			}
		}

		for _, prepared := range entries {
			if err := s.notifyOrigin(ctx, prepared); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.reverseTransfers(ctx, reversals)
		logrus.WithError(err).WithField("batch_id", batchID).Warn("Royalty batch rejected")
		return nil, err
	}

	for _, payment := range paid {
		s.metrics.AddRoyalty(payment.Amount, payment.FeeAmount)
	}
	logrus.WithFields(logrus.Fields{
		"batch_id": batchID,
		"entries":  len(paid),
		"amount":   sum,
	}).Info("Royalty batch paid")
	return paid, nil
}

// prepare validates one payment and computes its fee split. It performs no
// writes.
func (s *RoyaltyService) prepare(ctx context.Context, tx *gorm.DB, paperID uint64, researcher, reason string, gross, feeBPS int64) (*preparedPayment, error) {
	if gross <= 0 {
		return nil, fmt.Errorf("amount %d: %w", gross, ErrInvalidAmount)
	}

	if utils.IsZeroAddress(researcher) {
		return nil, fmt.Errorf("zero address: %w", ErrInvalidRecipient)
	}
	recipient, err := utils.NormalizeAddress(researcher)
	if err != nil {
		return nil, fmt.Errorf("%q: %v: %w", researcher, err, ErrInvalidRecipient)
	}

	if _, err := s.papers.getPaperTx(tx, paperID, false); err != nil {
		return nil, err
	}

	owner, err := s.origin.VerifyOwnership(ctx, paperID, recipient)
	if err != nil {
		return nil, fmt.Errorf("verify ownership of %d: %v: %w", paperID, err, ErrAttestationCallFailed)
	}
	if !owner {
		return nil, fmt.Errorf("%s on paper %d: %w", recipient, paperID, ErrNotOwner)
	}

	fee, net := utils.SplitFee(gross, feeBPS)
	if net <= 0 {
		return nil, fmt.Errorf("net amount %d: %w", net, ErrInvalidAmount)
	}

	return &preparedPayment{
		paperID:    paperID,
		researcher: recipient,
		reason:     reason,
		gross:      gross,
		fee:        fee,
		net:        net,
	}, nil
}

// apply credits the balance and records the payment and its event.
func (s *RoyaltyService) apply(tx *gorm.DB, p *preparedPayment, payer, batchID string) (*models.RoyaltyPayment, error) {
	id, err := database.NextID(tx, models.SequencePayment)
	if err != nil {
		return nil, err
	}

	if err := s.credit(tx, p.researcher, p.net); err != nil {
		return nil, err
	}

	payment := &models.RoyaltyPayment{
		ID:          id,
		PaperID:     p.paperID,
		Researcher:  p.researcher,
		Payer:       payer,
		GrossAmount: p.gross,
		FeeAmount:   p.fee,
		Amount:      p.net,
		Reason:      p.reason,
		BatchID:     batchID,
	}
	if err := tx.Create(payment).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := s.events.record(tx, &models.LedgerEvent{
		Type:      models.EventRoyaltyPaid,
		Principal: p.researcher,
		PaperID:   uint64Ptr(p.paperID),
		PaymentID: uint64Ptr(id),
		Amount:    p.net,
		Payload:   models.JSONB{"gross": p.gross, "fee": p.fee, "payer": payer, "batch_id": batchID},
	}); err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *RoyaltyService) credit(tx *gorm.DB, principal string, amount int64) error {
	balance := &models.ResearcherBalance{Principal: principal, Amount: amount}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "principal"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"amount":     gorm.Expr("researcher_balances.amount + excluded.amount"),
			"updated_at": time.Now(),
		}),
	}).Create(balance).Error
	if err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

func (s *RoyaltyService) transferFee(ctx context.Context, treasury string, fee int64, key string) (string, error) {
	ref, err := s.transferer.Transfer(ctx, payments.TransferRequest{
		Destination:    treasury,
		Amount:         fee,
		Currency:       s.defaults.Currency,
		IdempotencyKey: key,
		Description:    "platform fee",
	})
	if err != nil {
		return "", fmt.Errorf("transfer %d to treasury: %v: %w", fee, err, ErrFeeTransferFailed)
	}
	return ref, nil
}

func (s *RoyaltyService) notifyOrigin(ctx context.Context, p *preparedPayment) error {
	if err := s.origin.RecordRoyaltyPayment(ctx, p.paperID, p.researcher, p.net); err != nil {
		return fmt.Errorf("record payment on %d: %v: %w", p.paperID, err, ErrAttestationCallFailed)
	}
	return nil
}

// reverseTransfers undoes transfers made by a rolled back operation. Failures
// are logged for manual follow-up.
func (s *RoyaltyService) reverseTransfers(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.transferer.Reverse(context.WithoutCancel(ctx), ref); err != nil {
			logrus.WithError(err).WithField("transfer", ref).Error("Failed to reverse transfer")
		}
	}
}

// WithdrawRoyalties pays out the caller's full balance. The balance row is
// locked for the duration, so concurrent withdrawals and credits for the
// same principal serialize.
func (s *RoyaltyService) WithdrawRoyalties(ctx context.Context, caller string) (withdrawal *models.Withdrawal, err error) {
	defer func() { s.metrics.ObserveOperation("withdraw_royalties", err) }()

	caller, err = normalizeCaller(caller)
	if err != nil {
		return nil, err
	}

	var payoutRef string
	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var balance models.ResearcherBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("principal = ?", caller).
			First(&balance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && balance.Amount <= 0) {
			return fmt.Errorf("%s: %w", caller, ErrNothingToWithdraw)
		}
		if err != nil {
			return fmt.Errorf("database error: %w", err)
		}

		amount := balance.Amount
		if err := tx.Model(&models.ResearcherBalance{}).
			Where("principal = ?", caller).
			Updates(map[string]interface{}{"amount": 0, "updated_at": time.Now()}).Error; err != nil {
			return fmt.Errorf("failed to reset balance: %w", err)
		}

		withdrawal = &models.Withdrawal{Principal: caller, Amount: amount}
		if err := tx.Create(withdrawal).Error; err != nil {
			return fmt.Errorf("failed to record withdrawal: %w", err)
		}

		ref, err := s.transferer.Transfer(ctx, payments.TransferRequest{
			Destination:    caller,
			Amount:         amount,
			Currency:       s.defaults.Currency,
			IdempotencyKey: "withdrawal-" + withdrawal.ID.String(),
			Description:    "royalty withdrawal",
		})
		if err != nil {
			return fmt.Errorf("payout %d: %v: %w", amount, err, ErrPayoutFailed)
		}
		payoutRef = ref
		withdrawal.PayoutReference = ref
		if err := tx.Model(withdrawal).Update("payout_reference", ref).Error; err != nil {
			return fmt.Errorf("failed to store payout reference: %w", err)
		}

		return s.events.record(tx, &models.LedgerEvent{
			Type:      models.EventRoyaltyWithdrawn,
			Principal: caller,
			Amount:    amount,
			Payload:   models.JSONB{"withdrawal_id": withdrawal.ID.String(), "payout_reference": ref},
		})
	})
	if err != nil {
		if payoutRef != "" {
			s.reverseTransfers(ctx, []string{payoutRef})
		}
		logrus.WithError(err).WithField("principal", caller).Warn("Withdrawal rejected")
		return nil, err
	}

	s.metrics.AddWithdrawal(withdrawal.Amount)
	logrus.WithFields(logrus.Fields{
		"principal": caller,
		"amount":    withdrawal.Amount,
	}).Info("Royalties withdrawn")
	return withdrawal, nil
}

func (s *RoyaltyService) UpdateFeeBasisPoints(ctx context.Context, newValue int64, caller string) (err error) {
	defer func() { s.metrics.ObserveOperation("update_fee", err) }()
	return s.updateSettings(ctx, &SettingsUpdate{FeeBasisPoints: &newValue}, caller)
}

func (s *RoyaltyService) UpdateTreasury(ctx context.Context, newPrincipal, caller string) (err error) {
	defer func() { s.metrics.ObserveOperation("update_treasury", err) }()
	return s.updateSettings(ctx, &SettingsUpdate{Treasury: &newPrincipal}, caller)
}

// SettingsUpdate carries the settings to change. Nil fields are left as is.
type SettingsUpdate struct {
	FeeBasisPoints *int64
	Treasury       *string
}

// UpdateSettings applies every field of update or none of them.
func (s *RoyaltyService) UpdateSettings(ctx context.Context, update *SettingsUpdate, caller string) (err error) {
	defer func() { s.metrics.ObserveOperation("update_settings", err) }()
	return s.updateSettings(ctx, update, caller)
}

func (s *RoyaltyService) updateSettings(ctx context.Context, update *SettingsUpdate, caller string) error {
	caller, err := normalizeCaller(caller)
	if err != nil {
		return err
	}
	if !s.roles.IsOwnerAdmin(caller) {
		return fmt.Errorf("only the owner-admin may change royalty settings: %w", ErrUnauthorized)
	}
	if update.FeeBasisPoints == nil && update.Treasury == nil {
		return fmt.Errorf("no settings given: %w", ErrInvalidInput)
	}

	if fee := update.FeeBasisPoints; fee != nil {
		if *fee > utils.MaxFeeBasisPoints {
			return fmt.Errorf("%d bps: %w", *fee, ErrFeeTooHigh)
		}
		if *fee < 0 {
			return fmt.Errorf("negative fee %d: %w", *fee, ErrInvalidInput)
		}
	}
	var treasury string
	if update.Treasury != nil {
		if treasury, err = normalizePrincipal(*update.Treasury); err != nil {
			return err
		}
	}

	err = database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if fee := update.FeeBasisPoints; fee != nil {
			if err := s.saveSetting(tx, models.SettingFeeBasisPoints, strconv.FormatInt(*fee, 10), "integer", caller); err != nil {
				return err
			}
			if err := s.events.record(tx, &models.LedgerEvent{
				Type:      models.EventFeeUpdated,
				Principal: caller,
				Payload:   models.JSONB{"fee_basis_points": *fee},
			}); err != nil {
				return err
			}
		}
		if update.Treasury != nil {
			if err := s.saveSetting(tx, models.SettingTreasury, treasury, "principal", caller); err != nil {
				return err
			}
			if err := s.events.record(tx, &models.LedgerEvent{
				Type:      models.EventTreasuryUpdated,
				Principal: caller,
				Payload:   models.JSONB{"treasury": treasury},
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	fields := logrus.Fields{}
	if update.FeeBasisPoints != nil {
		fields["fee_basis_points"] = *update.FeeBasisPoints
	}
	if update.Treasury != nil {
		fields["treasury"] = treasury
	}
	logrus.WithFields(fields).Info("Royalty settings updated")
	return nil
}

func (s *RoyaltyService) GetFeeBasisPoints() (int64, error) {
	fee, _, err := s.loadSettings(s.db)
	return fee, err
}

func (s *RoyaltyService) GetTreasury() (string, error) {
	_, treasury, err := s.loadSettings(s.db)
	return treasury, err
}

// loadSettings reads the fee and treasury, falling back to configured
// defaults for settings that were never written.
func (s *RoyaltyService) loadSettings(tx *gorm.DB) (int64, string, error) {
	var settings []models.LedgerSetting
	if err := tx.Where("key IN ?", []string{models.SettingFeeBasisPoints, models.SettingTreasury}).
		Find(&settings).Error; err != nil {
		return 0, "", fmt.Errorf("failed to load settings: %w", err)
	}

	feeBPS := s.defaults.FeeBasisPoints
	treasury := ""
	if normalized, err := utils.NormalizeAddress(s.defaults.Treasury); err == nil {
		treasury = normalized
	}

	for _, setting := range settings {
		switch setting.Key {
		case models.SettingFeeBasisPoints:
			value, err := strconv.ParseInt(setting.Value, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("malformed %s setting %q: %w", setting.Key, setting.Value, err)
			}
			feeBPS = value
		case models.SettingTreasury:
			treasury = setting.Value
		}
	}
	return feeBPS, treasury, nil
}

func (s *RoyaltyService) saveSetting(tx *gorm.DB, key, value, dataType, updatedBy string) error {
	setting := &models.LedgerSetting{
		Category:  "royalties",
		Key:       key,
		Value:     value,
		DataType:  dataType,
		UpdatedBy: updatedBy,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(setting).Error
	if err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

func (s *RoyaltyService) GetBalance(principal string) (int64, error) {
	normalized, err := normalizePrincipal(principal)
	if err != nil {
		return 0, err
	}

	var balance models.ResearcherBalance
	err = s.db.Where("principal = ?", normalized).First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("database error: %w", err)
	}
	return balance.Amount, nil
}

func (s *RoyaltyService) GetPaymentDetails(paymentID uint64) (*models.RoyaltyPayment, error) {
	var payment models.RoyaltyPayment
	if err := s.db.First(&payment, "id = ?", paymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("payment", paymentID)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &payment, nil
}

func (s *RoyaltyService) GetPaymentsForPaper(paperID uint64) ([]models.RoyaltyPayment, error) {
	var list []models.RoyaltyPayment
	if err := s.db.Where("paper_id = ?", paperID).Order("id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return list, nil
}

func (s *RoyaltyService) GetPaymentsForResearcher(principal string) ([]models.RoyaltyPayment, error) {
	normalized, err := normalizePrincipal(principal)
	if err != nil {
		return nil, err
	}

	var list []models.RoyaltyPayment
	if err := s.db.Where("researcher = ?", normalized).Order("id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch payments: %w", err)
	}
	return list, nil
}

// GetTotalRoyaltiesForPaper sums the net amounts paid against paperID.
func (s *RoyaltyService) GetTotalRoyaltiesForPaper(paperID uint64) (int64, error) {
	var total int64
	if err := s.db.Model(&models.RoyaltyPayment{}).
		Where("paper_id = ?", paperID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return total, nil
}

func (s *RoyaltyService) GetWithdrawals(principal string) ([]models.Withdrawal, error) {
	normalized, err := normalizePrincipal(principal)
	if err != nil {
		return nil, err
	}

	var list []models.Withdrawal
	if err := s.db.Where("principal = ?", normalized).Order("created_at").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch withdrawals: %w", err)
	}
	return list, nil
}
