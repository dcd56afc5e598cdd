// internal/services/reconciliation_service_test.go
package services

import (
	"github.com/javajoker/paper-ledger/internal/models"
)

func (suite *LedgerTestSuite) TestReconcileCleanLedger() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)
	_, err := suite.svc.Ledger.CitePaper(suite.ctx, paperB.ID, paperA.ID, bob)
	suite.Require().NoError(err)
	suite.pay(paperA.ID, alice, 4000)

	report, err := suite.svc.Reconciliation.Reconcile()
	suite.Require().NoError(err)
	suite.True(report.Clean())
	suite.Equal(int64(2), report.Papers)
	suite.Equal(1, report.Balances)
}

func (suite *LedgerTestSuite) TestReconcileReportsCitationDrift() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)
	_, err := suite.svc.Ledger.CitePaper(suite.ctx, paperB.ID, paperA.ID, bob)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.db.Exec("UPDATE papers SET citation_count = 7 WHERE id = ?", paperA.ID).Error)

	report, err := suite.svc.Reconciliation.Reconcile()
	suite.Require().NoError(err)
	suite.False(report.Clean())
	suite.Require().Len(report.CitationDrift, 1)
	suite.Equal(CitationDrift{PaperID: paperA.ID, Cached: 7, Actual: 1}, report.CitationDrift[0])
	suite.Empty(report.BalanceDrift)

	// Reconciliation reports, it does not repair.
	paper, err := suite.svc.Papers.GetPaper(paperA.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(7), paper.CitationCount)
}

func (suite *LedgerTestSuite) TestReconcileReportsBalanceDrift() {
	paper := suite.register(alice, "Paper A", nil)
	suite.pay(paper.ID, alice, 10000)

	suite.Require().NoError(suite.db.Model(&models.ResearcherBalance{}).
		Where("principal = ?", alice).Update("amount", 1).Error)
	suite.Require().NoError(suite.db.Create(&models.ResearcherBalance{Principal: bob, Amount: 50}).Error)

	report, err := suite.svc.Reconciliation.Reconcile()
	suite.Require().NoError(err)
	suite.Empty(report.CitationDrift)
	suite.ElementsMatch([]BalanceDrift{
		{Principal: alice, Stored: 1, Expected: 9500},
		{Principal: bob, Stored: 50, Expected: 0},
	}, report.BalanceDrift)
}

func (suite *LedgerTestSuite) TestReconcileScheduledRunDoesNotPanic() {
	suite.register(alice, "Paper A", nil)
	suite.NotPanics(suite.svc.Reconciliation.RunScheduled)
}
