package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/models"
)

type ApiResponseError struct {
	Status int
	Body   any
}

func (e ApiResponseError) Error() string {
	data, err := json.Marshal(e.Body)
	if err != nil {
		return "ApiResponseError"
	}
	return string(data)
}

func NewApiResponseError(status int, body any) *ApiResponseError {
	return &ApiResponseError{
		Status: status,
		Body:   body,
	}
}

// sendAccountsError maps the core error taxonomy onto HTTP statuses. A
// partial failure surfaces as 502 with the failed step names so the caller
// knows a retry is needed.
func (api *API) sendAccountsError(c *gin.Context, resource string, err error) {
	var apiResponseError *ApiResponseError
	var partial *accounts.PartialFailureError
	switch {
	case errors.As(err, &apiResponseError):
		c.JSON(apiResponseError.Status, apiResponseError.Body)
	case errors.Is(err, accounts.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, models.NewFieldValidationError(resource, err.Error()))
	case errors.Is(err, accounts.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewNotFoundError(resource))
	case errors.Is(err, accounts.ErrForbidden):
		c.JSON(http.StatusForbidden, models.NewNotAllowedError(err.Error()))
	case errors.Is(err, accounts.ErrAlreadyBootstrapped):
		c.JSON(http.StatusConflict, models.NewConflictsError(err.Error()))
	case errors.As(err, &partial):
		c.JSON(http.StatusBadGateway, models.NewPartialFailureError(partial.StepNames()))
	case errors.Is(err, accounts.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, models.NewServiceUnavailableError(""))
	default:
		api.SendInternalServerError(c, err)
	}
}
