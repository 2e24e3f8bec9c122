package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinfolio/kinfolio/internal/email"
	"github.com/kinfolio/kinfolio/internal/models"
	"go.opentelemetry.io/otel/attribute"
)

// GetBootstrapStatus reports whether a master account exists
// @Summary      Bootstrap Status
// @Description  Reports whether the first master account has been created
// @Id           GetBootstrapStatus
// @Tags         Bootstrap
// @Produce      json
// @Success      200  {object}  accounts.BootstrapStatus
// @Failure      503  {object}  models.ServiceUnavailableError
// @Router       /bootstrap [get]
func (api *API) GetBootstrapStatus(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "GetBootstrapStatus")
	defer span.End()

	status, err := api.accounts.CheckBootstrapped(ctx)
	if err != nil {
		api.sendAccountsError(c, "bootstrap", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type BootstrapRequest struct {
	Email string `json:"email" example:"dana@example.com"`
}

type BootstrapResponse struct {
	IdentityID string `json:"identity_id"`
}

// Bootstrap promotes the first master account
// @Summary      Bootstrap
// @Description  Promotes the principal behind the email to the one-time initial master account
// @Id           Bootstrap
// @Tags         Bootstrap
// @Accept       json
// @Produce      json
// @Param        request  body  BootstrapRequest  true  "Bootstrap target"
// @Success      200  {object}  BootstrapResponse
// @Failure      400  {object}  models.ValidationError
// @Failure      404  {object}  models.NotFoundError
// @Failure      409  {object}  models.ConflictsError
// @Failure      502  {object}  models.PartialFailureError
// @Router       /bootstrap [post]
func (api *API) Bootstrap(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "Bootstrap")
	defer span.End()

	var request BootstrapRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, models.NewBadPayloadError())
		return
	}
	span.SetAttributes(attribute.String("email", request.Email))

	identityId, err := api.accounts.Bootstrap(ctx, request.Email)
	if err != nil {
		api.sendAccountsError(c, "identity", err)
		return
	}

	if err := api.SendEmail(email.Message{
		To:      []string{request.Email},
		Subject: "Your dashboard is ready",
		Body:    fmt.Sprintf("The master account for %s has been set up.", request.Email),
	}); err != nil {
		api.Logger(ctx).Warnw("failed to send bootstrap notification", "error", err)
	}

	c.JSON(http.StatusOK, BootstrapResponse{IdentityID: identityId})
}
