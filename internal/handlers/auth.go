package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/models"
)

// Authenticate verifies the bearer credential with the identity store and
// stores the caller's identity id and canonical role on the request
// context.
func (api *API) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.BaseError{Error: "missing bearer credential"})
			return
		}

		ctx := c.Request.Context()
		userId, err := api.ids.VerifyCredential(ctx, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.BaseError{Error: "invalid credential"})
			return
		}
		c.Set(AuthUserID, userId)

		// The profile's role field is canonical; the claim is only a
		// mirror for downstream consumers.
		profile, err := api.loadProfile(ctx, userId)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				// first login, no profile yet: no role
				c.Next()
				return
			}
			api.SendInternalServerError(c, err)
			c.Abort()
			return
		}
		c.Set(AuthUserRole, profile.Role)
		c.Next()
	}
}

// RequireRole gates a route on the caller holding at least the given role.
func (api *API) RequireRole(required models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, found := c.Get(AuthUserRole)
		if !found || !role.(models.Role).AtLeast(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, models.NewNotAllowedError("insufficient role"))
			return
		}
		c.Next()
	}
}

func (api *API) callerRole(c *gin.Context) models.Role {
	role, found := c.Get(AuthUserRole)
	if !found {
		return ""
	}
	return role.(models.Role)
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}
