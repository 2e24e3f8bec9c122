package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
)

func (suite *HandlerTestSuite) TestListAuditUsers() {
	require := suite.Require()

	// matched
	other := suite.ids.AddUser(identity.User{Email: "dana@example.com"})
	require.NoError(suite.docs.Upsert(context.Background(), accounts.UsersCollection, other,
		map[string]any{"email": "dana@example.com", "role": "viewer"}, false))

	// stale email
	stale := suite.ids.AddUser(identity.User{Email: "new@example.com"})
	require.NoError(suite.docs.Upsert(context.Background(), accounts.UsersCollection, stale,
		map[string]any{"email": "old@example.com", "role": "viewer"}, false))

	// orphan profile, nothing behind it in the identity store
	require.NoError(suite.docs.Upsert(context.Background(), accounts.UsersCollection, "ghost",
		map[string]any{"email": "ghost@example.com", "role": "viewer"}, false))

	_, res, err := suite.ServeRequest(http.MethodGet, "/", "/", suite.api.ListAuditUsers, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())
	require.Equal("4", res.Header().Get(TotalCountHeader))

	var entries []models.AuditEntry
	require.NoError(json.Unmarshal(res.Body.Bytes(), &entries))
	require.Len(entries, 4)

	byID := map[string]models.AuditEntry{}
	for _, entry := range entries {
		byID[entry.IdentityID] = entry
	}
	suite.Assert().Equal(models.AuditMatched, byID[suite.testUserID].Status)
	suite.Assert().Equal(models.AuditMatched, byID[other].Status)
	suite.Assert().Equal(models.AuditEmailMismatch, byID[stale].Status)
	suite.Assert().Equal("new@example.com", byID[stale].IdentityEmail)
	suite.Assert().Equal(models.AuditMissingIdentity, byID["ghost"].Status)
}

func (suite *HandlerTestSuite) TestListAuditUsersEmpty() {
	require := suite.Require()

	require.NoError(suite.docs.Delete(context.Background(), accounts.UsersCollection, suite.testUserID))

	_, res, err := suite.ServeRequest(http.MethodGet, "/", "/", suite.api.ListAuditUsers, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)
	require.Equal("0", res.Header().Get(TotalCountHeader))
	suite.Assert().JSONEq("[]", res.Body.String())
}
