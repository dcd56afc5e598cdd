// internal/services/royalty_service_test.go
package services

import (
	"errors"
	"sync"

	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/origin"
	"github.com/javajoker/paper-ledger/internal/utils"
)

func (suite *LedgerTestSuite) balance(principal string) int64 {
	amount, err := suite.svc.Royalties.GetBalance(principal)
	suite.Require().NoError(err)
	return amount
}

func (suite *LedgerTestSuite) TestPayRoyaltyValidation() {
	paper := suite.register(alice, "Paper A", nil)
	royalties := suite.svc.Royalties

	cases := []struct {
		name       string
		paperID    uint64
		researcher string
		amount     int64
		want       error
	}{
		{"zero amount", paper.ID, alice, 0, ErrInvalidAmount},
		{"negative amount", paper.ID, alice, -5, ErrInvalidAmount},
		{"zero recipient", paper.ID, utils.ZeroAddress, 100, ErrInvalidRecipient},
		{"malformed recipient", paper.ID, "alice", 100, ErrInvalidRecipient},
		{"not owner", paper.ID, bob, 100, ErrNotOwner},
		{"unknown paper", 404, alice, 100, ErrNotFound},
	}

	for _, tc := range cases {
		_, err := royalties.PayRoyalty(suite.ctx, &PayRoyaltyRequest{
			PaperID:    tc.paperID,
			Researcher: tc.researcher,
			Amount:     tc.amount,
		}, carol)
		suite.ErrorIs(err, tc.want, tc.name)
	}

	suite.Equal(int64(0), suite.count(&models.RoyaltyPayment{}))
	suite.Equal(int64(0), suite.count(&models.ResearcherBalance{}))
	suite.Empty(suite.transferer.Transfers())
}

func (suite *LedgerTestSuite) TestPayRoyaltyFeeMath() {
	paper := suite.register(alice, "Paper A", nil)

	payment := suite.pay(paper.ID, alice, 1_000_000)
	suite.Equal(int64(1_000_000), payment.GrossAmount)
	suite.Equal(int64(50_000), payment.FeeAmount)
	suite.Equal(int64(950_000), payment.Amount)
	suite.Equal(carol, payment.Payer)
	suite.NotEmpty(payment.FeeTransferRef)

	// floor(199 * 500 / 10000) = 9
	payment = suite.pay(paper.ID, alice, 199)
	suite.Equal(int64(9), payment.FeeAmount)
	suite.Equal(int64(190), payment.Amount)

	// Amounts too small to carry a fee skip the treasury transfer.
	payment = suite.pay(paper.ID, alice, 19)
	suite.Equal(int64(0), payment.FeeAmount)
	suite.Empty(payment.FeeTransferRef)

	suite.Equal(int64(950_000+190+19), suite.balance(alice))
	suite.Equal(int64(50_000+9), suite.transferer.Settled(treasury))
	suite.Len(suite.transferer.Transfers(), 2)
}

func (suite *LedgerTestSuite) TestPayRoyaltyFeeTransferFailureRollsBack() {
	paper := suite.register(alice, "Paper A", nil)
	suite.transferer.SetFailure(treasury, errors.New("card declined"))

	_, err := suite.svc.Royalties.PayRoyalty(suite.ctx, &PayRoyaltyRequest{PaperID: paper.ID, Researcher: alice, Amount: 10000}, carol)
	suite.ErrorIs(err, ErrFeeTransferFailed)

	suite.Equal(int64(0), suite.balance(alice))
	suite.Equal(int64(0), suite.count(&models.RoyaltyPayment{}))
	suite.Equal(int64(0), suite.origin.TotalRoyalties(paper.ID))

	suite.transferer.SetFailure(treasury, nil)
	payment := suite.pay(paper.ID, alice, 10000)
	suite.Equal(uint64(1), payment.ID)
}

func (suite *LedgerTestSuite) TestPayRoyaltyOriginFailureReversesFee() {
	paper := suite.register(alice, "Paper A", nil)
	suite.origin.SetFailure(origin.OpRecordRoyaltyPayment, errors.New("origin timeout"))

	_, err := suite.svc.Royalties.PayRoyalty(suite.ctx, &PayRoyaltyRequest{PaperID: paper.ID, Researcher: alice, Amount: 10000}, carol)
	suite.ErrorIs(err, ErrAttestationCallFailed)

	suite.Equal(int64(0), suite.balance(alice))
	suite.Equal(int64(0), suite.count(&models.RoyaltyPayment{}))

	transfers := suite.transferer.Transfers()
	suite.Require().Len(transfers, 1)
	suite.True(transfers[0].Reversed)
	suite.Equal(int64(0), suite.transferer.Settled(treasury))
}

func (suite *LedgerTestSuite) TestPayRoyaltyRetryAfterRollbackSettlesFee() {
	paper := suite.register(alice, "Paper A", nil)
	suite.origin.SetFailure(origin.OpRecordRoyaltyPayment, errors.New("origin timeout"))

	_, err := suite.svc.Royalties.PayRoyalty(suite.ctx, &PayRoyaltyRequest{PaperID: paper.ID, Researcher: alice, Amount: 10000}, carol)
	suite.ErrorIs(err, ErrAttestationCallFailed)

	suite.origin.SetFailure(origin.OpRecordRoyaltyPayment, nil)
	payment := suite.pay(paper.ID, alice, 10000)
	suite.Equal(uint64(1), payment.ID)
	suite.Equal(int64(500), suite.transferer.Settled(treasury))

	transfers := suite.transferer.Transfers()
	suite.Require().Len(transfers, 2)
	suite.True(transfers[0].Reversed)
	suite.False(transfers[1].Reversed)
	suite.Equal(transfers[1].Reference, payment.FeeTransferRef)
	suite.NotEqual(transfers[0].IdempotencyKey, transfers[1].IdempotencyKey)
}

func (suite *LedgerTestSuite) TestPayRoyaltyOwnershipCheckFailure() {
	paper := suite.register(alice, "Paper A", nil)
	suite.origin.SetFailure(origin.OpVerifyOwnership, errors.New("origin unavailable"))

	_, err := suite.svc.Royalties.PayRoyalty(suite.ctx, &PayRoyaltyRequest{PaperID: paper.ID, Researcher: alice, Amount: 100}, carol)
	suite.ErrorIs(err, ErrAttestationCallFailed)
	suite.Equal(int64(0), suite.balance(alice))
}

func (suite *LedgerTestSuite) TestFeeAndTreasuryUpdates() {
	paper := suite.register(alice, "Paper A", nil)
	royalties := suite.svc.Royalties

	suite.ErrorIs(royalties.UpdateFeeBasisPoints(suite.ctx, 100, alice), ErrUnauthorized)
	suite.ErrorIs(royalties.UpdateFeeBasisPoints(suite.ctx, 3001, admin), ErrFeeTooHigh)
	suite.Require().NoError(royalties.UpdateFeeBasisPoints(suite.ctx, 3000, admin))

	fee, err := royalties.GetFeeBasisPoints()
	suite.Require().NoError(err)
	suite.Equal(int64(3000), fee)

	payment := suite.pay(paper.ID, alice, 10000)
	suite.Equal(int64(7000), payment.Amount)

	newTreasury := "0x5555555555555555555555555555555555555555"
	suite.ErrorIs(royalties.UpdateTreasury(suite.ctx, newTreasury, bob), ErrUnauthorized)
	suite.ErrorIs(royalties.UpdateTreasury(suite.ctx, "0xzz", admin), ErrInvalidAddress)
	suite.ErrorIs(royalties.UpdateTreasury(suite.ctx, utils.ZeroAddress, admin), ErrInvalidAddress)
	suite.Require().NoError(royalties.UpdateTreasury(suite.ctx, newTreasury, admin))

	current, err := royalties.GetTreasury()
	suite.Require().NoError(err)
	suite.Equal(newTreasury, current)

	suite.pay(paper.ID, alice, 10000)
	suite.Equal(int64(3000), suite.transferer.Settled(treasury))
	suite.Equal(int64(3000), suite.transferer.Settled(newTreasury))

	suite.Require().NoError(royalties.UpdateFeeBasisPoints(suite.ctx, 0, admin))
	payment = suite.pay(paper.ID, alice, 10000)
	suite.Equal(int64(10000), payment.Amount)
	suite.Len(suite.transferer.Transfers(), 2)
}

func (suite *LedgerTestSuite) TestUpdateSettingsIsAtomic() {
	royalties := suite.svc.Royalties
	fee := int64(1200)
	badTreasury := "0xzz"

	err := royalties.UpdateSettings(suite.ctx, &SettingsUpdate{FeeBasisPoints: &fee, Treasury: &badTreasury}, admin)
	suite.ErrorIs(err, ErrInvalidAddress)

	current, err := royalties.GetFeeBasisPoints()
	suite.Require().NoError(err)
	suite.Equal(int64(500), current)

	newTreasury := "0x5555555555555555555555555555555555555555"
	suite.Require().NoError(royalties.UpdateSettings(suite.ctx, &SettingsUpdate{FeeBasisPoints: &fee, Treasury: &newTreasury}, admin))

	current, err = royalties.GetFeeBasisPoints()
	suite.Require().NoError(err)
	suite.Equal(int64(1200), current)
	got, err := royalties.GetTreasury()
	suite.Require().NoError(err)
	suite.Equal(newTreasury, got)

	suite.ErrorIs(royalties.UpdateSettings(suite.ctx, &SettingsUpdate{}, admin), ErrInvalidInput)
	suite.ErrorIs(royalties.UpdateSettings(suite.ctx, &SettingsUpdate{FeeBasisPoints: &fee}, bob), ErrUnauthorized)
}

func (suite *LedgerTestSuite) TestBatchPayRoyaltiesIsAtomic() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)

	_, err := suite.svc.Royalties.BatchPayRoyalties(suite.ctx, &BatchPayRoyaltiesRequest{
		PaperIDs:    []uint64{paperA.ID, paperB.ID, paperA.ID},
		Researchers: []string{alice, bob, utils.ZeroAddress},
		Reasons:     []string{"a", "b", "c"},
		Amounts:     []int64{1000, 2000, 500},
		TotalFunds:  3500,
	}, carol)
	suite.ErrorIs(err, ErrInvalidRecipient)

	suite.Equal(int64(0), suite.count(&models.RoyaltyPayment{}))
	suite.Equal(int64(0), suite.balance(alice))
	suite.Equal(int64(0), suite.balance(bob))
	suite.Empty(suite.transferer.Transfers())
	suite.Equal(int64(0), suite.origin.TotalRoyalties(paperA.ID))
}

func (suite *LedgerTestSuite) TestBatchPayRoyaltiesShapeChecks() {
	paperA := suite.register(alice, "Paper A", nil)
	royalties := suite.svc.Royalties

	_, err := royalties.BatchPayRoyalties(suite.ctx, &BatchPayRoyaltiesRequest{
		PaperIDs:    []uint64{paperA.ID, paperA.ID},
		Researchers: []string{alice},
		Reasons:     []string{"a", "b"},
		Amounts:     []int64{1, 2},
		TotalFunds:  3,
	}, carol)
	suite.ErrorIs(err, ErrArityMismatch)

	_, err = royalties.BatchPayRoyalties(suite.ctx, &BatchPayRoyaltiesRequest{
		PaperIDs:    []uint64{paperA.ID, paperA.ID},
		Researchers: []string{alice, alice},
		Reasons:     []string{"a", "b"},
		Amounts:     []int64{100, 200},
		TotalFunds:  250,
	}, carol)
	suite.ErrorIs(err, ErrBatchTotalMismatch)

	_, err = royalties.BatchPayRoyalties(suite.ctx, &BatchPayRoyaltiesRequest{}, carol)
	suite.ErrorIs(err, ErrInvalidInput)

	suite.Equal(int64(0), suite.count(&models.RoyaltyPayment{}))
}

func (suite *LedgerTestSuite) TestBatchPayRoyalties() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)

	paid, err := suite.svc.Royalties.BatchPayRoyalties(suite.ctx, &BatchPayRoyaltiesRequest{
		PaperIDs:    []uint64{paperA.ID, paperB.ID},
		Researchers: []string{alice, bob},
		Reasons:     []string{"course pack", "reprint"},
		Amounts:     []int64{10000, 20000},
		TotalFunds:  30000,
	}, carol)
	suite.Require().NoError(err)
	suite.Require().Len(paid, 2)
	suite.Equal(uint64(1), paid[0].ID)
	suite.Equal(uint64(2), paid[1].ID)
	suite.Equal(paid[0].BatchID, paid[1].BatchID)
	suite.NotEmpty(paid[0].BatchID)

	suite.Equal(int64(9500), suite.balance(alice))
	suite.Equal(int64(19000), suite.balance(bob))

	// One aggregated fee transfer for the whole batch.
	transfers := suite.transferer.Transfers()
	suite.Require().Len(transfers, 1)
	suite.Equal(int64(1500), transfers[0].Amount)
	suite.Equal(transfers[0].Reference, paid[1].FeeTransferRef)

	total, err := suite.svc.Royalties.GetTotalRoyaltiesForPaper(paperB.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(19000), total)
}

func (suite *LedgerTestSuite) TestPaymentQueries() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)
	first := suite.pay(paperA.ID, alice, 1000)
	suite.pay(paperB.ID, bob, 2000)
	suite.pay(paperA.ID, alice, 3000)

	details, err := suite.svc.Royalties.GetPaymentDetails(first.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(950), details.Amount)
	suite.Equal("licence", details.Reason)

	_, err = suite.svc.Royalties.GetPaymentDetails(99)
	suite.ErrorIs(err, ErrNotFound)

	forPaper, err := suite.svc.Royalties.GetPaymentsForPaper(paperA.ID)
	suite.Require().NoError(err)
	suite.Len(forPaper, 2)

	forResearcher, err := suite.svc.Royalties.GetPaymentsForResearcher(bob)
	suite.Require().NoError(err)
	suite.Require().Len(forResearcher, 1)
	suite.Equal(paperB.ID, forResearcher[0].PaperID)

	total, err := suite.svc.Royalties.GetTotalRoyaltiesForPaper(paperA.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(950+2850), total)

	total, err = suite.svc.Royalties.GetTotalRoyaltiesForPaper(404)
	suite.Require().NoError(err)
	suite.Equal(int64(0), total)
}

func (suite *LedgerTestSuite) TestWithdrawRoyalties() {
	paper := suite.register(alice, "Paper A", nil)

	_, err := suite.svc.Royalties.WithdrawRoyalties(suite.ctx, alice)
	suite.ErrorIs(err, ErrNothingToWithdraw)

	suite.pay(paper.ID, alice, 10000)

	suite.transferer.SetFailure(alice, errors.New("account closed"))
	_, err = suite.svc.Royalties.WithdrawRoyalties(suite.ctx, alice)
	suite.ErrorIs(err, ErrPayoutFailed)
	suite.Equal(int64(9500), suite.balance(alice))
	suite.Equal(int64(0), suite.count(&models.Withdrawal{}))

	suite.transferer.SetFailure(alice, nil)
	withdrawal, err := suite.svc.Royalties.WithdrawRoyalties(suite.ctx, alice)
	suite.Require().NoError(err)
	suite.Equal(int64(9500), withdrawal.Amount)
	suite.Equal(int64(0), suite.balance(alice))

	_, err = suite.svc.Royalties.WithdrawRoyalties(suite.ctx, alice)
	suite.ErrorIs(err, ErrNothingToWithdraw)

	events, err := suite.svc.Events.ListEvents(models.EventRoyaltyWithdrawn, 10)
	suite.Require().NoError(err)
	suite.Require().Len(events, 1)
	suite.Equal(int64(9500), events[0].Amount)
}

func (suite *LedgerTestSuite) TestConcurrentWithdrawalsPayOnce() {
	paper := suite.register(alice, "Paper A", nil)
	suite.pay(paper.ID, alice, 10000)

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded []int64
		failures  []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			withdrawal, err := suite.svc.Royalties.WithdrawRoyalties(suite.ctx, alice)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			succeeded = append(succeeded, withdrawal.Amount)
		}()
	}
	wg.Wait()

	suite.Equal([]int64{9500}, succeeded)
	suite.Len(failures, workers-1)
	for _, err := range failures {
		suite.ErrorIs(err, ErrNothingToWithdraw)
	}
	suite.Equal(int64(9500), suite.transferer.Settled(alice))
	suite.Equal(int64(0), suite.balance(alice))
}

func (suite *LedgerTestSuite) TestBalanceConservation() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)

	var credited int64
	for _, amount := range []int64{1000, 2500, 333} {
		credited += suite.pay(paperA.ID, alice, amount).Amount
	}
	suite.pay(paperB.ID, bob, 4000)

	withdrawal, err := suite.svc.Royalties.WithdrawRoyalties(suite.ctx, alice)
	suite.Require().NoError(err)
	suite.Equal(credited, withdrawal.Amount)

	late := suite.pay(paperA.ID, alice, 700)
	suite.Equal(late.Amount, suite.balance(alice))
	suite.Equal(credited+late.Amount-withdrawal.Amount, suite.balance(alice))

	report, err := suite.svc.Reconciliation.Reconcile()
	suite.Require().NoError(err)
	suite.True(report.Clean())
	suite.Equal(2, report.Balances)
}
