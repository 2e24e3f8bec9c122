package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kinfolio/kinfolio/internal/models"
)

const TotalCountHeader = "X-Total-Count"

// ListAuditUsers runs the user reconciliation report
// @Summary      Audit Users
// @Description  Compares every profile document against the identity store and flags drift. Read-only.
// @Id           ListAuditUsers
// @Tags         Audit
// @Produce      json
// @Success      200  {object}  []models.AuditEntry
// @Failure      401  {object}  models.BaseError
// @Failure      503  {object}  models.ServiceUnavailableError
// @Router       /api/audit/users [get]
func (api *API) ListAuditUsers(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ListAuditUsers")
	defer span.End()

	entries := make([]models.AuditEntry, 0)
	err := api.accounts.AuditUsers(ctx, func(entry models.AuditEntry) error {
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		api.sendAccountsError(c, "audit", err)
		return
	}

	c.Header("Access-Control-Expose-Headers", TotalCountHeader)
	c.Header(TotalCountHeader, strconv.Itoa(len(entries)))
	c.JSON(http.StatusOK, entries)
}
