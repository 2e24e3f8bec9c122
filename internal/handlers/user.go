package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// CacheExp Zero expiration means the key has no expiration time.
const CacheExp time.Duration = 0
const CachePrefix = "profile:"

func (api *API) loadProfile(ctx context.Context, userId string) (*models.Profile, error) {
	if api.Redis != nil {
		cached, err := api.Redis.Get(ctx, CachePrefix+userId).Result()
		if err == nil {
			var profile models.Profile
			if err := json.Unmarshal([]byte(cached), &profile); err == nil {
				return &profile, nil
			}
		}
	}

	doc, err := api.docs.Get(ctx, accounts.UsersCollection, userId)
	if err != nil {
		return nil, err
	}
	profile := models.ProfileFromDocument(userId, doc)

	if api.Redis != nil {
		if data, err := json.Marshal(profile); err == nil {
			if err := api.Redis.Set(ctx, CachePrefix+userId, data, CacheExp).Err(); err != nil {
				api.logger.Warnf("failed to cache profile %s: %s", userId, err)
			}
		}
	}
	return profile, nil
}

func (api *API) invalidateProfile(ctx context.Context, userId string) {
	if api.Redis == nil {
		return
	}
	if _, err := api.Redis.Del(ctx, CachePrefix+userId).Result(); err != nil {
		api.logger.Warnf("failed to delete the cached profile %s: %s", userId, err)
	}
}

// GetUser gets a user profile
// @Summary      Get User
// @Description  Gets a user profile by id, or the caller's own with id "me"
// @Id           GetUser
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id  path       string  true  "User ID"
// @Success      200  {object}  models.Profile
// @Failure      401  {object}  models.BaseError
// @Failure      403  {object}  models.NotAllowedError
// @Failure      404  {object}  models.NotFoundError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users/{id} [get]
func (api *API) GetUser(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetUser",
		trace.WithAttributes(
			attribute.String("id", c.Param("id")),
		))
	defer span.End()

	userId := c.Param("id")
	if userId == "" {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}
	if userId == "me" {
		userId = api.GetCurrentUserID(c)
	}

	// viewers may only read their own profile
	if userId != api.GetCurrentUserID(c) && !api.callerRole(c).AtLeast(models.RoleAdmin) {
		c.JSON(http.StatusForbidden, models.NewNotAllowedError("insufficient role"))
		return
	}

	profile, err := api.loadProfile(ctx, userId)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.NewNotFoundError("user"))
			return
		}
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ListUsers lists user profiles
// @Summary      List Users
// @Description  Lists all user profiles
// @Id           ListUsers
// @Tags         Users
// @Accept       json
// @Produce      json
// @Success      200  {object}  []models.Profile
// @Failure      401  {object}  models.BaseError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users [get]
func (api *API) ListUsers(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListUsers")
	defer span.End()

	ids, err := api.docs.ListIDs(ctx, accounts.UsersCollection)
	if err != nil {
		api.SendInternalServerError(c, fmt.Errorf("error listing users: %w", err))
		return
	}

	profiles := make([]*models.Profile, 0, len(ids))
	for _, id := range ids {
		doc, err := api.docs.Get(ctx, accounts.UsersCollection, id)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			api.SendInternalServerError(c, err)
			return
		}
		profiles = append(profiles, models.ProfileFromDocument(id, doc))
	}
	c.JSON(http.StatusOK, profiles)
}

type UpdateUserRole struct {
	Role string `json:"role" example:"admin"`
}

// UpdateUserRole assigns a role to a user
// @Summary      Assign Role
// @Description  Makes the given role the user's canonical role across the identity and document stores
// @Id           UpdateUserRole
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id      path   string          true  "User ID"
// @Param        update  body   UpdateUserRole  true  "Role update"
// @Success      200  {object}  models.Profile
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      502  {object}  models.PartialFailureError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users/{id}/role [put]
func (api *API) UpdateUserRole(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "UpdateUserRole",
		trace.WithAttributes(
			attribute.String("id", c.Param("id")),
		))
	defer span.End()

	userId := c.Param("id")
	if userId == "" {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	var request UpdateUserRole
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	role, err := models.ParseRole(request.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, models.NewFieldValidationError("role", err.Error()))
		return
	}

	// the cached profile is stale no matter how far the assignment got
	defer api.invalidateProfile(ctx, userId)

	if err := api.accounts.AssignRole(ctx, userId, role); err != nil {
		api.sendAccountsError(c, "user", err)
		return
	}

	profile, err := api.loadProfile(ctx, userId)
	if err != nil {
		api.SendInternalServerError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// DeleteUser deletes a user everywhere
// @Summary      Delete User
// @Description  Deletes the identity record, the profile document and every role marker of the user
// @Id           DeleteUser
// @Tags         Users
// @Accept       json
// @Produce      json
// @Param        id  path       string  true  "User ID"
// @Success      200  {object}  accounts.DeleteReport
// @Failure      400  {object}  models.ValidationError
// @Failure      403  {object}  models.NotAllowedError
// @Failure      502  {object}  models.PartialFailureError
// @Failure      500  {object}  models.InternalServerError "Internal Server Error"
// @Router       /api/users/{id} [delete]
func (api *API) DeleteUser(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "DeleteUser")
	defer span.End()

	userId := c.Param("id")
	if userId == "" {
		c.JSON(http.StatusBadRequest, models.NewBadPathParameterError("id"))
		return
	}

	report, err := api.accounts.DeleteUser(ctx, api.GetCurrentUserID(c), userId)
	if err != nil {
		api.sendAccountsError(c, "user", err)
		return
	}

	api.invalidateProfile(ctx, userId)
	c.JSON(http.StatusOK, report)
}
