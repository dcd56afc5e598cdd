// internal/services/role_service_test.go
package services

import (
	"github.com/javajoker/paper-ledger/internal/models"
)

func (suite *LedgerTestSuite) TestRoleGrantAndRevoke() {
	roles := suite.svc.Roles

	suite.ErrorIs(roles.Grant(suite.ctx, models.CapabilityPaperVerifier, verifier, alice), ErrUnauthorized)

	suite.Require().NoError(roles.Grant(suite.ctx, models.CapabilityPaperVerifier, verifier, admin))
	suite.ErrorIs(roles.Grant(suite.ctx, models.CapabilityPaperVerifier, verifier, admin), ErrAlreadyGranted)

	ok, err := roles.HasCapability(models.CapabilityPaperVerifier, verifier)
	suite.Require().NoError(err)
	suite.True(ok)

	ok, err = roles.HasCapability(models.CapabilityCitationVerifier, verifier)
	suite.Require().NoError(err)
	suite.False(ok)

	holders, err := roles.ListRoleHolders(models.CapabilityPaperVerifier)
	suite.Require().NoError(err)
	suite.Require().Len(holders, 1)
	suite.Equal(verifier, holders[0].Principal)
	suite.Equal(admin, holders[0].GrantedBy)

	suite.ErrorIs(roles.Revoke(suite.ctx, models.CapabilityPaperVerifier, verifier, bob), ErrUnauthorized)
	suite.Require().NoError(roles.Revoke(suite.ctx, models.CapabilityPaperVerifier, verifier, admin))
	suite.ErrorIs(roles.Revoke(suite.ctx, models.CapabilityPaperVerifier, verifier, admin), ErrNotGranted)

	ok, err = roles.HasCapability(models.CapabilityPaperVerifier, verifier)
	suite.Require().NoError(err)
	suite.False(ok)

	events, err := suite.svc.Events.ListEvents("", 10)
	suite.Require().NoError(err)
	suite.Len(events, 2)

	granted, err := suite.svc.Events.ListEvents(models.EventRoleGranted, 10)
	suite.Require().NoError(err)
	suite.Require().Len(granted, 1)
	suite.Equal(verifier, granted[0].Principal)
}

func (suite *LedgerTestSuite) TestOwnerAdminHoldsEveryCapability() {
	for _, capability := range models.Capabilities {
		ok, err := suite.svc.Roles.HasCapability(capability, admin)
		suite.Require().NoError(err)
		suite.True(ok, string(capability))
	}
	suite.True(suite.svc.Roles.IsOwnerAdmin(admin))
	suite.False(suite.svc.Roles.IsOwnerAdmin(alice))
}

func (suite *LedgerTestSuite) TestRoleInputValidation() {
	roles := suite.svc.Roles

	suite.ErrorIs(roles.Grant(suite.ctx, models.Capability("superuser"), alice, admin), ErrInvalidInput)
	suite.ErrorIs(roles.Grant(suite.ctx, models.CapabilityPaperVerifier, "0xnope", admin), ErrInvalidAddress)
	suite.ErrorIs(roles.Grant(suite.ctx, models.CapabilityPaperVerifier, "0x0000000000000000000000000000000000000000", admin), ErrInvalidAddress)

	_, err := roles.ListRoleHolders(models.Capability("superuser"))
	suite.ErrorIs(err, ErrInvalidInput)

	// The registry principal is seeded as a recorder.
	holders, err := roles.ListRoleHolders(models.CapabilityCitationRecorder)
	suite.Require().NoError(err)
	suite.Require().Len(holders, 1)
	suite.Equal(registry, holders[0].Principal)
}
