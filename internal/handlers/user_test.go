package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
)

func (suite *HandlerTestSuite) TestGetUserMe() {
	require := suite.Require()
	assert := suite.Assert()

	_, res, err := suite.ServeRequest(
		http.MethodGet,
		"/:id", "/me",
		suite.api.GetUser, nil,
	)
	require.NoError(err)
	body, err := io.ReadAll(res.Body)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, string(body))

	var actual models.Profile
	err = json.Unmarshal(body, &actual)
	require.NoError(err, string(body))

	assert.Equal(suite.testUserID, actual.ID)
	assert.Equal("boss@example.com", actual.Email)
	assert.Equal(models.RoleMaster, actual.Role)
}

func (suite *HandlerTestSuite) TestGetUserServesFromCache() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodGet, "/:id", "/me", suite.api.GetUser, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	// mutate the document behind the cache; the stale cached profile is
	// served until something invalidates it
	require.NoError(suite.docs.Upsert(context.Background(), accounts.UsersCollection, suite.testUserID,
		map[string]any{"email": "changed@example.com"}, true))

	_, res, err = suite.ServeRequest(http.MethodGet, "/:id", "/me", suite.api.GetUser, nil)
	require.NoError(err)
	var actual models.Profile
	require.NoError(json.Unmarshal(res.Body.Bytes(), &actual))
	suite.Assert().Equal("boss@example.com", actual.Email)
}

func (suite *HandlerTestSuite) TestGetUserNotFound() {
	require := suite.Require()
	_, res, err := suite.ServeRequest(
		http.MethodGet,
		"/:id", "/no-such-user",
		suite.api.GetUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}

func (suite *HandlerTestSuite) TestGetUserViewerCannotReadOthers() {
	require := suite.Require()
	suite.callerRole = models.RoleViewer

	_, res, err := suite.ServeRequest(
		http.MethodGet,
		"/:id", "/someone-else",
		suite.api.GetUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusForbidden, res.Code)
}

func (suite *HandlerTestSuite) TestListUsers() {
	require := suite.Require()

	other := suite.ids.AddUser(identity.User{Email: "dana@example.com"})
	require.NoError(suite.docs.Upsert(context.Background(), accounts.UsersCollection, other,
		map[string]any{"email": "dana@example.com", "role": "viewer"}, false))

	_, res, err := suite.ServeRequest(http.MethodGet, "/", "/", suite.api.ListUsers, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var actual []models.Profile
	require.NoError(json.Unmarshal(res.Body.Bytes(), &actual))
	suite.Assert().Len(actual, 2)
}

func (suite *HandlerTestSuite) TestUpdateUserRole() {
	require := suite.Require()

	target := suite.ids.AddUser(identity.User{Email: "dana@example.com"})
	payload := bytes.NewBufferString(`{"role":"admin"}`)

	_, res, err := suite.ServeRequest(
		http.MethodPut,
		"/:id/role", fmt.Sprintf("/%s/role", target),
		suite.api.UpdateUserRole, payload,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var actual models.Profile
	require.NoError(json.Unmarshal(res.Body.Bytes(), &actual))
	suite.Assert().Equal(models.RoleAdmin, actual.Role)

	user, err := suite.ids.LookupByID(context.Background(), target)
	require.NoError(err)
	suite.Assert().Equal("admin", user.Claims[accounts.RoleClaim])

	_, err = suite.docs.Get(context.Background(), "admin", target)
	suite.Assert().NoError(err)
}

func (suite *HandlerTestSuite) TestUpdateUserRoleUnknownRole() {
	require := suite.Require()

	target := suite.ids.AddUser(identity.User{Email: "dana@example.com"})
	payload := bytes.NewBufferString(`{"role":"superuser"}`)

	_, res, err := suite.ServeRequest(
		http.MethodPut,
		"/:id/role", fmt.Sprintf("/%s/role", target),
		suite.api.UpdateUserRole, payload,
	)
	require.NoError(err)
	require.Equal(http.StatusBadRequest, res.Code)
}

func (suite *HandlerTestSuite) TestUpdateUserRoleMissingIdentity() {
	require := suite.Require()
	payload := bytes.NewBufferString(`{"role":"viewer"}`)

	_, res, err := suite.ServeRequest(
		http.MethodPut,
		"/:id/role", "/no-such-user/role",
		suite.api.UpdateUserRole, payload,
	)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}

func (suite *HandlerTestSuite) TestDeleteUser() {
	require := suite.Require()

	target := suite.ids.AddUser(identity.User{Email: "dana@example.com"})
	require.NoError(suite.docs.Upsert(context.Background(), accounts.UsersCollection, target,
		map[string]any{"email": "dana@example.com", "role": "viewer"}, false))
	require.NoError(suite.docs.Upsert(context.Background(), "viewer", target,
		map[string]any{"email": "dana@example.com"}, false))

	_, res, err := suite.ServeRequest(
		http.MethodDelete,
		"/:id", fmt.Sprintf("/%s", target),
		suite.api.DeleteUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var report accounts.DeleteReport
	require.NoError(json.Unmarshal(res.Body.Bytes(), &report))
	suite.Assert().Equal(target, report.IdentityID)

	_, err = suite.ids.LookupByID(context.Background(), target)
	suite.Assert().ErrorIs(err, identity.ErrNotFound)
}

func (suite *HandlerTestSuite) TestDeleteUserSelfForbidden() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(
		http.MethodDelete,
		"/:id", fmt.Sprintf("/%s", suite.testUserID),
		suite.api.DeleteUser, nil,
	)
	require.NoError(err)
	require.Equal(http.StatusForbidden, res.Code)

	// still there
	_, err = suite.ids.LookupByID(context.Background(), suite.testUserID)
	suite.Assert().NoError(err)
}
