// internal/services/paper_service_test.go
package services

import (
	"errors"

	"github.com/javajoker/paper-ledger/internal/models"
	"github.com/javajoker/paper-ledger/internal/origin"
)

func (suite *LedgerTestSuite) TestRegisterPaper() {
	paper := suite.register(alice, "Graph Ledgers", []string{" ml ", "graphs", "ml", ""}, bob)

	suite.Equal(uint64(1), paper.ID)
	suite.Equal(alice, paper.Owner)
	suite.Equal([]string{"ml", "graphs"}, []string(paper.Keywords))
	suite.Equal(int64(0), paper.CitationCount)
	suite.False(paper.IsVerified)

	stored, err := suite.svc.Papers.GetPaper(paper.ID)
	suite.Require().NoError(err)
	suite.Equal([]string{"ml", "graphs"}, []string(stored.Keywords))
	suite.Equal([]string{bob}, []string(stored.CoAuthors))

	ok, err := suite.origin.VerifyOwnership(suite.ctx, paper.ID, alice)
	suite.Require().NoError(err)
	suite.True(ok)

	byKeyword, err := suite.svc.Papers.GetPapersByKeyword("ml")
	suite.Require().NoError(err)
	suite.Require().Len(byKeyword, 1)
	suite.Equal(paper.ID, byKeyword[0].ID)

	byKeyword, err = suite.svc.Papers.GetPapersByKeyword("ML")
	suite.Require().NoError(err)
	suite.Empty(byKeyword)

	second := suite.register(alice, "Second", []string{"graphs"})
	byAuthor, err := suite.svc.Papers.GetPapersByAuthor(alice)
	suite.Require().NoError(err)
	suite.Require().Len(byAuthor, 2)
	suite.Equal(second.ID, byAuthor[1].ID)

	byAuthor, err = suite.svc.Papers.GetPapersByAuthor(bob)
	suite.Require().NoError(err)
	suite.Empty(byAuthor)

	total, err := suite.svc.Papers.GetTotalPapers()
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
}

func (suite *LedgerTestSuite) TestRegisterPaperValidation() {
	_, err := suite.svc.Papers.RegisterPaper(suite.ctx, &RegisterPaperRequest{ContentHash: "bafy"}, alice)
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.svc.Papers.RegisterPaper(suite.ctx, &RegisterPaperRequest{
		ContentHash: "bafy",
		Title:       "Bad co-author",
		CoAuthors:   []string{"0x1234"},
	}, alice)
	suite.ErrorIs(err, ErrInvalidInput)

	_, err = suite.svc.Papers.RegisterPaper(suite.ctx, &RegisterPaperRequest{ContentHash: "bafy", Title: "x"}, "nobody")
	suite.ErrorIs(err, ErrUnauthorized)

	suite.Equal(int64(0), suite.count(&models.Paper{}))
}

func (suite *LedgerTestSuite) TestRegisterPaperRollsBackOnOriginFailure() {
	suite.origin.SetFailure(origin.OpRegisterAsset, errors.New("origin down"))

	_, err := suite.svc.Papers.RegisterPaper(suite.ctx, &RegisterPaperRequest{
		ContentHash: "bafy1",
		Title:       "Lost",
		Keywords:    []string{"lost"},
	}, alice)
	suite.ErrorIs(err, ErrAttestationCallFailed)

	suite.Equal(int64(0), suite.count(&models.Paper{}))
	suite.Equal(int64(0), suite.count(&models.PaperKeyword{}))
	suite.Equal(int64(0), suite.count(&models.LedgerEvent{}))

	suite.origin.SetFailure(origin.OpRegisterAsset, nil)
	paper := suite.register(alice, "Found", nil)
	suite.Equal(uint64(1), paper.ID)
}

func (suite *LedgerTestSuite) TestVerifyPaper() {
	paper := suite.register(alice, "Paper A", nil)

	suite.ErrorIs(suite.svc.Papers.VerifyPaper(suite.ctx, 42, verifier), ErrNotFound)
	suite.ErrorIs(suite.svc.Papers.VerifyPaper(suite.ctx, paper.ID, verifier), ErrUnauthorized)

	suite.Require().NoError(suite.svc.Roles.Grant(suite.ctx, models.CapabilityPaperVerifier, verifier, admin))
	suite.Require().NoError(suite.svc.Papers.VerifyPaper(suite.ctx, paper.ID, verifier))
	suite.ErrorIs(suite.svc.Papers.VerifyPaper(suite.ctx, paper.ID, verifier), ErrAlreadyVerified)

	stored, err := suite.svc.Papers.GetPaper(paper.ID)
	suite.Require().NoError(err)
	suite.True(stored.IsVerified)
	suite.Equal(verifier, stored.VerifiedBy)
	suite.NotNil(stored.VerifiedAt)

	// The owner-admin holds every capability implicitly.
	other := suite.register(bob, "Paper B", nil)
	suite.Require().NoError(suite.svc.Papers.VerifyPaper(suite.ctx, other.ID, admin))
}

func (suite *LedgerTestSuite) TestIsCoAuthor() {
	paper := suite.register(alice, "Paper A", nil, bob)

	for principal, want := range map[string]bool{alice: true, bob: true, carol: false, "junk": false} {
		got, err := suite.svc.Papers.IsCoAuthor(paper.ID, principal)
		suite.Require().NoError(err)
		suite.Equal(want, got, principal)
	}

	_, err := suite.svc.Papers.IsCoAuthor(7, alice)
	suite.ErrorIs(err, ErrNotFound)
}
