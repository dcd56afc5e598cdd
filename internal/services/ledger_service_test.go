// internal/services/ledger_service_test.go
package services

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"

	"gorm.io/gorm"

	"github.com/javajoker/paper-ledger/internal/models"
)

func (suite *LedgerTestSuite) TestEndToEndScenario() {
	paperA := suite.register(alice, "Paper A", []string{"graphs"})
	paperB := suite.register(bob, "Paper B", []string{"graphs"})
	suite.Equal(uint64(1), paperA.ID)
	suite.Equal(uint64(2), paperB.ID)

	citation, err := suite.svc.Ledger.CitePaper(suite.ctx, paperB.ID, paperA.ID, bob)
	suite.Require().NoError(err)
	suite.Equal(uint64(1), citation.ID)
	suite.Equal(bob, citation.Creator)

	cited, err := suite.svc.Papers.GetPaper(paperA.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(1), cited.CitationCount)

	suite.Require().NoError(suite.svc.Roles.Grant(suite.ctx, models.CapabilityCitationVerifier, verifier, admin))
	suite.Require().NoError(suite.svc.Citations.VerifyCitation(suite.ctx, citation.ID, verifier))

	details, err := suite.svc.Citations.GetCitationDetails(citation.ID)
	suite.Require().NoError(err)
	suite.True(details.IsVerified)
	suite.Equal(verifier, details.VerifiedBy)

	payment := suite.pay(paperA.ID, alice, 10000)
	suite.Equal(int64(9500), payment.Amount)
	suite.Equal(int64(500), payment.FeeAmount)

	balance, err := suite.svc.Royalties.GetBalance(alice)
	suite.Require().NoError(err)
	suite.Equal(int64(9500), balance)
	suite.Equal(int64(500), suite.transferer.Settled(treasury))
	suite.Equal(int64(9500), suite.origin.TotalRoyalties(paperA.ID))

	withdrawal, err := suite.svc.Royalties.WithdrawRoyalties(suite.ctx, alice)
	suite.Require().NoError(err)
	suite.Equal(int64(9500), withdrawal.Amount)
	suite.NotEmpty(withdrawal.PayoutReference)

	balance, err = suite.svc.Royalties.GetBalance(alice)
	suite.Require().NoError(err)
	suite.Equal(int64(0), balance)
	suite.Equal(int64(9500), suite.transferer.Settled(alice))

	withdrawals, err := suite.svc.Royalties.GetWithdrawals(alice)
	suite.Require().NoError(err)
	suite.Require().Len(withdrawals, 1)
	suite.Equal(int64(9500), withdrawals[0].Amount)

	suite.assertCitationCacheConsistent()
}

func (suite *LedgerTestSuite) TestCitePaperChecks() {
	paperA := suite.register(alice, "Paper A", nil, carol)
	paperB := suite.register(bob, "Paper B", nil)

	_, err := suite.svc.Ledger.CitePaper(suite.ctx, paperA.ID, 99, alice)
	suite.ErrorIs(err, ErrNotFound)

	_, err = suite.svc.Ledger.CitePaper(suite.ctx, 99, paperA.ID, alice)
	suite.ErrorIs(err, ErrNotFound)

	// bob is not an author of A.
	_, err = suite.svc.Ledger.CitePaper(suite.ctx, paperA.ID, paperB.ID, bob)
	suite.ErrorIs(err, ErrUnauthorized)

	_, err = suite.svc.Ledger.CitePaper(suite.ctx, paperA.ID, paperA.ID, alice)
	suite.ErrorIs(err, ErrSelfCitation)

	suite.Equal(int64(0), suite.count(&models.Citation{}))

	// A co-author may cite on behalf of the paper, and the same pair may be cited twice.
	_, err = suite.svc.Ledger.CitePaper(suite.ctx, paperA.ID, paperB.ID, carol)
	suite.Require().NoError(err)
	_, err = suite.svc.Ledger.CitePaper(suite.ctx, paperA.ID, paperB.ID, alice)
	suite.Require().NoError(err)

	count, err := suite.svc.Citations.GetCitationCount(paperB.ID)
	suite.Require().NoError(err)
	suite.Equal(int64(2), count)

	citedBy, err := suite.svc.Citations.GetCitedByOf(paperA.ID)
	suite.Require().NoError(err)
	suite.Len(citedBy, 2)

	suite.assertCitationCacheConsistent()
}

func (suite *LedgerTestSuite) TestCitePaperWithoutRegistryRecorderRole() {
	paperA := suite.register(alice, "Paper A", nil)
	paperB := suite.register(bob, "Paper B", nil)

	suite.Require().NoError(suite.svc.Roles.Revoke(suite.ctx, models.CapabilityCitationRecorder, registry, admin))

	_, err := suite.svc.Ledger.CitePaper(suite.ctx, paperB.ID, paperA.ID, bob)
	suite.ErrorIs(err, ErrUnauthorized)
	suite.Equal(int64(0), suite.count(&models.Citation{}))
}

func (suite *LedgerTestSuite) TestCitationCacheAfterManyCitations() {
	var ids []uint64
	owners := []string{alice, bob, carol}
	for i, owner := range owners {
		ids = append(ids, suite.register(owner, "Paper "+string(rune('A'+i)), nil).ID)
	}

	pairs := [][2]int{{0, 1}, {0, 2}, {1, 2}, {2, 0}, {1, 0}, {0, 1}}
	for _, pair := range pairs {
		_, err := suite.svc.Ledger.CitePaper(suite.ctx, ids[pair[0]], ids[pair[1]], owners[pair[0]])
		suite.Require().NoError(err)
	}
	// Rejected attempts must not move any counter.
	_, err := suite.svc.Ledger.CitePaper(suite.ctx, ids[0], ids[0], alice)
	suite.ErrorIs(err, ErrSelfCitation)
	_, err = suite.svc.Ledger.CitePaper(suite.ctx, ids[1], ids[0], alice)
	suite.ErrorIs(err, ErrUnauthorized)

	suite.assertCitationCacheConsistent()

	report, err := suite.svc.Reconciliation.Reconcile()
	suite.Require().NoError(err)
	suite.True(report.Clean())
}

var errEventStoreDown = errors.New("event store unavailable")

// failEveryNthEvent makes every nth ledger event insert fail once armed is set,
// rolling back the surrounding operation after its writes.
func (suite *LedgerTestSuite) failEveryNthEvent(n int64, armed *atomic.Bool) {
	var calls atomic.Int64
	err := suite.db.Callback().Create().Before("gorm:create").Register("test:fail_events", func(tx *gorm.DB) {
		if !armed.Load() || tx.Statement.Table != "ledger_events" {
			return
		}
		if calls.Add(1)%n == 0 {
			tx.AddError(errEventStoreDown)
		}
	})
	suite.Require().NoError(err)
}

func (suite *LedgerTestSuite) TestCitationCacheUnderConcurrentMixedTraffic() {
	owners := []string{alice, bob, carol, alice, bob, carol}
	ids := make([]uint64, len(owners))
	for i, owner := range owners {
		ids[i] = suite.register(owner, "Paper "+string(rune('A'+i)), nil).ID
	}

	var armed atomic.Bool
	suite.failEveryNthEvent(4, &armed)
	armed.Store(true)

	const (
		workers = 6
		rounds  = 40
	)
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		expected   = make(map[uint64]int64)
		recorded   int64
		unexpected []error
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < rounds; i++ {
				citing := rng.Intn(len(ids))
				cited := rng.Intn(len(ids))
				citedID := ids[cited]
				if rng.Intn(10) == 0 {
					citedID = 999
				}

				var (
					citation *models.Citation
					err      error
				)
				switch rng.Intn(4) {
				case 0, 1:
					citation, err = suite.svc.Ledger.CitePaper(suite.ctx, ids[citing], citedID, owners[citing])
				case 2:
					citation, err = suite.svc.Citations.RecordCitation(suite.ctx, ids[citing], citedID, owners[citing], registry)
				default:
					// Neither a recorder nor necessarily an author.
					citation, err = suite.svc.Ledger.CitePaper(suite.ctx, ids[citing], citedID, verifier)
				}

				mu.Lock()
				switch {
				case err == nil:
					expected[citation.CitedPaperID]++
					recorded++
				case errors.Is(err, ErrSelfCitation), errors.Is(err, ErrUnauthorized),
					errors.Is(err, ErrNotFound), errors.Is(err, errEventStoreDown):
				default:
					unexpected = append(unexpected, err)
				}
				mu.Unlock()
			}
		}(int64(w + 1))
	}
	wg.Wait()
	armed.Store(false)

	suite.Empty(unexpected)
	suite.Positive(recorded)

	for _, id := range ids {
		paper, err := suite.svc.Papers.GetPaper(id)
		suite.Require().NoError(err)
		suite.Equal(expected[id], paper.CitationCount, "paper %d", id)
	}
	suite.assertCitationCacheConsistent()

	// Rolled back attempts hand their IDs back.
	suite.Equal(recorded, suite.count(&models.Citation{}))
	var maxID uint64
	suite.Require().NoError(suite.db.Model(&models.Citation{}).Select("COALESCE(MAX(id), 0)").Scan(&maxID).Error)
	suite.Equal(uint64(recorded), maxID)

	report, err := suite.svc.Reconciliation.Reconcile()
	suite.Require().NoError(err)
	suite.True(report.Clean())
}
