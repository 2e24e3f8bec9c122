package accounts

import (
	"context"
	"errors"

	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
)

func (suite *ServiceTestSuite) collectAudit(ctx context.Context) ([]models.AuditEntry, error) {
	entries := []models.AuditEntry{}
	err := suite.service.AuditUsers(ctx, func(entry models.AuditEntry) error {
		entries = append(entries, entry)
		return nil
	})
	return entries, err
}

func (suite *ServiceTestSuite) TestAuditUsersFlagsOrphanProfile() {
	require := suite.Require()
	ctx := context.Background()

	// profile with no matching identity record
	require.NoError(suite.docs.inner.Upsert(ctx, UsersCollection, "u1", map[string]any{"email": "a@x.com"}, false))

	entries, err := suite.collectAudit(ctx)
	require.NoError(err)
	require.Len(entries, 1)
	suite.Assert().Equal("u1", entries[0].IdentityID)
	suite.Assert().Equal(models.AuditMissingIdentity, entries[0].Status)

	// read-only: zero writes on either store
	suite.Assert().Zero(suite.docs.writes())
}

func (suite *ServiceTestSuite) TestAuditUsersFlagsEmailMismatch() {
	require := suite.Require()
	ctx := context.Background()

	id := suite.ids.inner.AddUser(identity.User{Email: "b@x.com"})
	require.NoError(suite.docs.inner.Upsert(ctx, UsersCollection, id, map[string]any{"email": "a@x.com"}, false))

	entries, err := suite.collectAudit(ctx)
	require.NoError(err)
	require.Len(entries, 1)
	suite.Assert().Equal(models.AuditEmailMismatch, entries[0].Status)
	suite.Assert().Equal("a@x.com", entries[0].ProfileEmail)
	suite.Assert().Equal("b@x.com", entries[0].IdentityEmail)
}

func (suite *ServiceTestSuite) TestAuditUsersMatched() {
	require := suite.Require()
	ctx := context.Background()

	id := suite.ids.inner.AddUser(identity.User{Email: "a@x.com"})
	require.NoError(suite.docs.inner.Upsert(ctx, UsersCollection, id, map[string]any{"email": "a@x.com"}, false))

	entries, err := suite.collectAudit(ctx)
	require.NoError(err)
	require.Len(entries, 1)
	suite.Assert().Equal(models.AuditMatched, entries[0].Status)
}

func (suite *ServiceTestSuite) TestAuditUsersRestartable() {
	require := suite.Require()
	ctx := context.Background()

	require.NoError(suite.docs.inner.Upsert(ctx, UsersCollection, "u1", map[string]any{"email": "a@x.com"}, false))

	first, err := suite.collectAudit(ctx)
	require.NoError(err)
	second, err := suite.collectAudit(ctx)
	require.NoError(err)
	suite.Assert().Equal(first, second)
}

func (suite *ServiceTestSuite) TestAuditUsersStopsOnCallbackError() {
	require := suite.Require()
	ctx := context.Background()

	require.NoError(suite.docs.inner.Upsert(ctx, UsersCollection, "u1", map[string]any{"email": "a@x.com"}, false))
	require.NoError(suite.docs.inner.Upsert(ctx, UsersCollection, "u2", map[string]any{"email": "b@x.com"}, false))

	stop := errors.New("stop")
	seen := 0
	err := suite.service.AuditUsers(ctx, func(models.AuditEntry) error {
		seen++
		return stop
	})
	suite.Assert().ErrorIs(err, stop)
	suite.Assert().Equal(1, seen)
}
