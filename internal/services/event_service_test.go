// internal/services/event_service_test.go
package services

import (
	"github.com/javajoker/paper-ledger/internal/models"
)

func (suite *LedgerTestSuite) TestEventsFollowOperations() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)
	citation, err := suite.svc.Ledger.CitePaper(suite.ctx, paperB.ID, paperA.ID, bob)
	suite.Require().NoError(err)
	suite.pay(paperA.ID, alice, 1000)

	registered, err := suite.svc.Events.ListEvents(models.EventPaperRegistered, 0)
	suite.Require().NoError(err)
	suite.Len(registered, 2)

	cited, err := suite.svc.Events.ListEvents(models.EventCitationRecorded, 0)
	suite.Require().NoError(err)
	suite.Require().Len(cited, 1)
	suite.Require().NotNil(cited[0].CitationID)
	suite.Equal(citation.ID, *cited[0].CitationID)
	suite.Equal(bob, cited[0].Principal)

	paid, err := suite.svc.Events.ListEvents(models.EventRoyaltyPaid, 0)
	suite.Require().NoError(err)
	suite.Require().Len(paid, 1)
	suite.Equal(int64(950), paid[0].Amount)
	suite.Require().NotNil(paid[0].PaymentID)
	suite.Equal(uint64(1), *paid[0].PaymentID)

	all, err := suite.svc.Events.ListEvents("", 0)
	suite.Require().NoError(err)
	suite.Len(all, 4)
}

func (suite *LedgerTestSuite) TestFailedOperationsLeaveNoEvents() {
	paper := suite.register(alice, "Paper A", nil)

	_, err := suite.svc.Royalties.PayRoyalty(suite.ctx, &PayRoyaltyRequest{PaperID: paper.ID, Researcher: bob, Amount: 10}, carol)
	suite.ErrorIs(err, ErrNotOwner)
	_, err = suite.svc.Ledger.CitePaper(suite.ctx, paper.ID, paper.ID, alice)
	suite.ErrorIs(err, ErrSelfCitation)

	all, err := suite.svc.Events.ListEvents("", 0)
	suite.Require().NoError(err)
	suite.Len(all, 1)
	suite.Equal(models.EventPaperRegistered, all[0].Type)
}

func (suite *LedgerTestSuite) TestListEventsLimit() {
	for _, title := range []string{"A", "B", "C"} {
		suite.register(alice, "Paper "+title, nil)
	}

	events, err := suite.svc.Events.ListEvents(models.EventPaperRegistered, 2)
	suite.Require().NoError(err)
	suite.Len(events, 2)
}
