package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
)

func (suite *HandlerTestSuite) TestGetBootstrapStatus() {
	require := suite.Require()

	_, res, err := suite.ServeRequest(http.MethodGet, "/", "/", suite.api.GetBootstrapStatus, nil)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code)

	var status accounts.BootstrapStatus
	require.NoError(json.Unmarshal(res.Body.Bytes(), &status))
	suite.Assert().True(status.Bootstrapped)
	suite.Assert().Equal(1, status.Count)
}

func (suite *HandlerTestSuite) TestBootstrap() {
	require := suite.Require()

	// clear the marker the suite seeds so we start from a blank install
	require.NoError(suite.docs.Delete(context.Background(), models.RoleMaster.Collection(), suite.testUserID))

	target := suite.ids.AddUser(identity.User{Email: "dana@example.com"})
	payload := bytes.NewBufferString(`{"email":"dana@example.com"}`)

	_, res, err := suite.ServeRequest(http.MethodPost, "/", "/", suite.api.Bootstrap, payload)
	require.NoError(err)
	require.Equal(http.StatusOK, res.Code, res.Body.String())

	var actual BootstrapResponse
	require.NoError(json.Unmarshal(res.Body.Bytes(), &actual))
	suite.Assert().Equal(target, actual.IdentityID)

	user, err := suite.ids.LookupByID(context.Background(), target)
	require.NoError(err)
	suite.Assert().Equal("master", user.Claims[accounts.RoleClaim])
}

func (suite *HandlerTestSuite) TestBootstrapConflict() {
	require := suite.Require()

	suite.ids.AddUser(identity.User{Email: "dana@example.com"})
	payload := bytes.NewBufferString(`{"email":"dana@example.com"}`)

	_, res, err := suite.ServeRequest(http.MethodPost, "/", "/", suite.api.Bootstrap, payload)
	require.NoError(err)
	require.Equal(http.StatusConflict, res.Code)
}

func (suite *HandlerTestSuite) TestBootstrapUnknownEmail() {
	require := suite.Require()
	payload := bytes.NewBufferString(`{"email":"nobody@example.com"}`)

	_, res, err := suite.ServeRequest(http.MethodPost, "/", "/", suite.api.Bootstrap, payload)
	require.NoError(err)
	require.Equal(http.StatusNotFound, res.Code)
}

func (suite *HandlerTestSuite) TestBootstrapMalformedEmail() {
	require := suite.Require()
	payload := bytes.NewBufferString(`{"email":"not-an-email"}`)

	_, res, err := suite.ServeRequest(http.MethodPost, "/", "/", suite.api.Bootstrap, payload)
	require.NoError(err)
	require.Equal(http.StatusBadRequest, res.Code)
}
