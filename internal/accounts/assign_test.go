package accounts

import (
	"context"
	"errors"

	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
)

func (suite *ServiceTestSuite) TestAssignRoleWritesAllLocations() {
	require := suite.Require()
	assert := suite.Assert()
	ctx := context.Background()

	id := suite.ids.inner.AddUser(identity.User{Email: "dana@example.com", FullName: "Dana Smith"})
	require.NoError(suite.service.AssignRole(ctx, id, models.RoleAdmin))

	marker, err := suite.docs.inner.Get(ctx, "admin", id)
	require.NoError(err)
	assert.Equal("dana@example.com", marker["email"])
	assert.Equal("admin", marker["role"])

	profile, err := suite.docs.inner.Get(ctx, UsersCollection, id)
	require.NoError(err)
	assert.Equal("admin", profile["role"])
	assert.Equal("dana@example.com", profile["email"])
	assert.Equal("Dana Smith", profile["full_name"])

	user, err := suite.ids.inner.LookupByID(ctx, id)
	require.NoError(err)
	assert.Equal("admin", user.Claims[RoleClaim])
}

func (suite *ServiceTestSuite) TestAssignRoleIdempotent() {
	require := suite.Require()
	ctx := context.Background()

	id := suite.ids.inner.AddUser(identity.User{Email: "dana@example.com"})
	require.NoError(suite.service.AssignRole(ctx, id, models.RoleViewer))

	profileBefore, err := suite.docs.inner.Get(ctx, UsersCollection, id)
	require.NoError(err)
	userBefore, err := suite.ids.inner.LookupByID(ctx, id)
	require.NoError(err)

	// second call with identical arguments must not error and must converge
	// to the same final state
	require.NoError(suite.service.AssignRole(ctx, id, models.RoleViewer))

	profileAfter, err := suite.docs.inner.Get(ctx, UsersCollection, id)
	require.NoError(err)
	userAfter, err := suite.ids.inner.LookupByID(ctx, id)
	require.NoError(err)

	suite.Assert().Equal(profileBefore["role"], profileAfter["role"])
	suite.Assert().Equal(profileBefore["email"], profileAfter["email"])
	suite.Assert().Equal(userBefore.Claims, userAfter.Claims)

	_, err = suite.docs.inner.Get(ctx, "viewer", id)
	suite.Assert().NoError(err)
}

func (suite *ServiceTestSuite) TestAssignRolePreservesUnspecifiedProfileFields() {
	require := suite.Require()
	ctx := context.Background()

	id := suite.ids.inner.AddUser(identity.User{Email: "dana@example.com"})
	require.NoError(suite.docs.inner.Upsert(ctx, UsersCollection, id, map[string]any{
		"email":    "dana@example.com",
		"role":     "viewer",
		"settings": map[string]any{"apiKey": "k-123"},
	}, false))

	require.NoError(suite.service.AssignRole(ctx, id, models.RoleAdmin))

	profile, err := suite.docs.inner.Get(ctx, UsersCollection, id)
	require.NoError(err)
	suite.Assert().Equal("admin", profile["role"])
	suite.Assert().Equal(map[string]any{"apiKey": "k-123"}, profile["settings"])
}

func (suite *ServiceTestSuite) TestAssignRoleUnknownRole() {
	id := suite.ids.inner.AddUser(identity.User{Email: "dana@example.com"})
	err := suite.service.AssignRole(context.Background(), id, models.Role("superuser"))
	suite.Assert().ErrorIs(err, ErrInvalidArgument)
	suite.Assert().Zero(suite.docs.writes())
}

func (suite *ServiceTestSuite) TestAssignRoleMissingIdentity() {
	err := suite.service.AssignRole(context.Background(), "no-such-id", models.RoleViewer)
	suite.Assert().ErrorIs(err, ErrNotFound)
	suite.Assert().Zero(suite.docs.writes())
}

func (suite *ServiceTestSuite) TestAssignRolePartialFailureOnClaim() {
	require := suite.Require()
	ctx := context.Background()

	id := suite.ids.inner.AddUser(identity.User{Email: "dana@example.com"})
	suite.ids.fail["AttachClaims"] = errors.New("keycloak hiccup")

	err := suite.service.AssignRole(ctx, id, models.RoleAdmin)

	var partial *PartialFailureError
	require.ErrorAs(err, &partial)
	suite.Assert().Equal([]string{StepClaim}, partial.StepNames())

	// the marker and profile landed; a retry converges
	_, err = suite.docs.inner.Get(ctx, "admin", id)
	suite.Assert().NoError(err)
	profile, err := suite.docs.inner.Get(ctx, UsersCollection, id)
	require.NoError(err)
	suite.Assert().Equal("admin", profile["role"])

	delete(suite.ids.fail, "AttachClaims")
	require.NoError(suite.service.AssignRole(ctx, id, models.RoleAdmin))
	user, err := suite.ids.inner.LookupByID(ctx, id)
	require.NoError(err)
	suite.Assert().Equal("admin", user.Claims[RoleClaim])
}

func (suite *ServiceTestSuite) TestAssignRolePartialFailureOnProfile() {
	require := suite.Require()
	ctx := context.Background()

	id := suite.ids.inner.AddUser(identity.User{Email: "dana@example.com"})
	suite.docs.fail["Get/"+UsersCollection] = errors.New("backend down")

	err := suite.service.AssignRole(ctx, id, models.RoleViewer)

	var partial *PartialFailureError
	require.ErrorAs(err, &partial)
	suite.Assert().Equal([]string{StepProfile}, partial.StepNames())

	// step 3 was still attempted after step 2 failed
	user, err := suite.ids.inner.LookupByID(ctx, id)
	require.NoError(err)
	suite.Assert().Equal("viewer", user.Claims[RoleClaim])
}
