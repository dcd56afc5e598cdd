// internal/services/citation_service_test.go
package services

import (
	"github.com/javajoker/paper-ledger/internal/models"
)

func (suite *LedgerTestSuite) TestRecordCitationRequiresRecorder() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)

	_, err := suite.svc.Citations.RecordCitation(suite.ctx, paperB.ID, paperA.ID, bob, carol)
	suite.ErrorIs(err, ErrUnauthorized)
	suite.Equal(int64(0), suite.count(&models.Citation{}))

	stored, err := suite.svc.Papers.GetPaper(paperA.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(0), stored.CitationCount)

	suite.Require().NoError(suite.svc.Roles.Grant(suite.ctx, models.CapabilityCitationRecorder, carol, admin))
	citation, err := suite.svc.Citations.RecordCitation(suite.ctx, paperB.ID, paperA.ID, bob, carol)
	suite.Require().NoError(err)
	suite.Equal(uint64(1), citation.ID)

	// The seeded registry principal and the owner-admin can record too.
	_, err = suite.svc.Citations.RecordCitation(suite.ctx, paperA.ID, paperB.ID, alice, registry)
	suite.Require().NoError(err)
	_, err = suite.svc.Citations.RecordCitation(suite.ctx, paperA.ID, paperB.ID, alice, admin)
	suite.Require().NoError(err)

	suite.assertCitationCacheConsistent()
}

func (suite *LedgerTestSuite) TestRecordCitationChecks() {
	paperA := suite.register(alice, "Paper A", nil)

	_, err := suite.svc.Citations.RecordCitation(suite.ctx, paperA.ID, paperA.ID, alice, admin)
	suite.ErrorIs(err, ErrSelfCitation)

	_, err = suite.svc.Citations.RecordCitation(suite.ctx, paperA.ID, 9, alice, admin)
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.svc.Citations.RecordCitation(suite.ctx, 9, paperA.ID, alice, admin)
	suite.ErrorIs(err, ErrNotFound)

	suite.Equal(int64(0), suite.count(&models.Citation{}))
	suite.assertCitationCacheConsistent()

	// A failed insert must not consume a citation id.
	paperB := suite.register(bob, "Paper B", nil)
	citation, err := suite.svc.Citations.RecordCitation(suite.ctx, paperA.ID, paperB.ID, alice, admin)
	suite.Require().NoError(err)
	suite.Equal(uint64(1), citation.ID)
}

func (suite *LedgerTestSuite) TestVerifyCitation() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)
	first, err := suite.svc.Ledger.CitePaper(suite.ctx, paperB.ID, paperA.ID, bob)
	suite.Require().NoError(err)
	_, err = suite.svc.Ledger.CitePaper(suite.ctx, paperB.ID, paperA.ID, bob)
	suite.Require().NoError(err)

	suite.ErrorIs(suite.svc.Citations.VerifyCitation(suite.ctx, 77, verifier), ErrNotFound)
	suite.ErrorIs(suite.svc.Citations.VerifyCitation(suite.ctx, first.ID, verifier), ErrUnauthorized)

	suite.Require().NoError(suite.svc.Roles.Grant(suite.ctx, models.CapabilityCitationVerifier, verifier, admin))
	suite.Require().NoError(suite.svc.Citations.VerifyCitation(suite.ctx, first.ID, verifier))
	suite.ErrorIs(suite.svc.Citations.VerifyCitation(suite.ctx, first.ID, verifier), ErrAlreadyVerified)

	verified, err := suite.svc.Citations.GetVerifiedCitationCount(paperA.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), verified)

	total, err := suite.svc.Citations.GetCitationCount(paperA.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)

	edges, err := suite.svc.Citations.GetCitationsOf(paperA.ID)
	suite.Require().NoError(err)
	suite.Require().Len(edges, 2)
	suite.Equal(first.ID, edges[0].ID)
	suite.True(edges[0].IsVerified)
	suite.False(edges[1].IsVerified)
}

func (suite *LedgerTestSuite) TestCitationQueriesOnMissingPaper() {
	_, err := suite.svc.Citations.GetCitationsOf(5)
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.svc.Citations.GetCitedByOf(5)
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.svc.Citations.GetCitationCount(5)
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.svc.Citations.GetCitationDetails(5)
	suite.ErrorIs(err, ErrNotFound)
}
