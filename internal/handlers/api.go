package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/email"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
	"github.com/kinfolio/kinfolio/internal/util"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("github.com/kinfolio/kinfolio/internal/handlers")
}

// keys for the authenticated caller in gin.Context
const (
	AuthUserID   = "_kinfolio.UserID"
	AuthUserRole = "_kinfolio.UserRole"
)

type API struct {
	logger   *zap.SugaredLogger
	accounts *accounts.Service
	ids      identity.Store
	docs     docstore.Store
	Redis    *redis.Client

	SmtpServer email.SmtpServer
	SmtpFrom   string
}

func NewAPI(
	parent context.Context,
	logger *zap.SugaredLogger,
	accountsService *accounts.Service,
	ids identity.Store,
	docs docstore.Store,
	redisClient *redis.Client,
) (*API, error) {
	_, span := tracer.Start(parent, "NewAPI")
	defer span.End()

	return &API{
		logger:   logger,
		accounts: accountsService,
		ids:      ids,
		docs:     docs,
		Redis:    redisClient,
	}, nil
}

func (api *API) Logger(ctx context.Context) *zap.SugaredLogger {
	return util.WithTrace(ctx, api.logger)
}

func (api *API) SendInternalServerError(c *gin.Context, err error) {
	SendInternalServerError(c, api.logger, err)
}

func SendInternalServerError(c *gin.Context, logger *zap.SugaredLogger, err error) {
	ctx := c.Request.Context()
	util.WithTrace(ctx, logger).Errorw("internal server error", "error", err)

	result := models.InternalServerError{
		BaseError: models.BaseError{
			Error: "internal server error",
		},
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if sc.HasTraceID() {
		result.TraceId = sc.TraceID().String()
	}
	c.JSON(http.StatusInternalServerError, result)
}

// GetCurrentUserID returns the authenticated caller's identity id, set by
// the Authenticate middleware.
func (api *API) GetCurrentUserID(c *gin.Context) string {
	userId, found := c.Get(AuthUserID)
	if !found {
		api.SendInternalServerError(c, fmt.Errorf("no current user found"))
		panic("no current user found")
	}
	return userId.(string)
}

func (api *API) SendEmail(message email.Message) error {
	if api.SmtpServer.HostPort == "" {
		return nil
	}
	message.From = api.SmtpFrom
	return email.Send(api.SmtpServer, message)
}
