package routers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/kinfolio/kinfolio/internal/handlers"
	"github.com/kinfolio/kinfolio/internal/models"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const name = "github.com/kinfolio/kinfolio/internal/routers"

type APIRouterOptions struct {
	Logger  *zap.SugaredLogger
	Api     *handlers.API
	Origins []string
}

func NewAPIRouter(o APIRouterOptions) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	loggerMiddleware := ginzap.GinzapWithConfig(o.Logger.Desugar(), &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{
				zap.String("traceID", trace.SpanFromContext(c.Request.Context()).SpanContext().TraceID().String()),
			}
		},
	})

	r.Use(otelgin.Middleware(name, otelgin.WithPropagators(
		propagation.TraceContext{},
	)))
	r.Use(ginzap.RecoveryWithZap(o.Logger.Desugar(), true))

	if len(o.Origins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = o.Origins
		corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization")
		r.Use(cors.New(corsConfig))
	}

	newPrometheus().Use(r)

	api := o.Api

	bootstrap := r.Group("/bootstrap", loggerMiddleware)
	{
		bootstrap.GET("", api.GetBootstrapStatus)
		bootstrap.POST("", api.Bootstrap)
	}

	private := r.Group("/api", loggerMiddleware)
	{
		private.Use(api.Authenticate())

		// Users
		private.GET("/users", api.RequireRole(models.RoleAdmin), api.ListUsers)
		private.GET("/users/:id", api.GetUser)
		private.PUT("/users/:id/role", api.RequireRole(models.RoleMaster), api.UpdateUserRole)
		private.DELETE("/users/:id", api.RequireRole(models.RoleAdmin), api.DeleteUser)

		// Audit walks every profile document, keep one report in flight.
		auditLimiter := NewLimiter(1)
		private.GET("/audit/users", api.RequireRole(models.RoleMaster), func(c *gin.Context) {
			if canceled := auditLimiter.Do(c.Request.Context(), func() {
				api.ListAuditUsers(c)
			}); canceled {
				c.JSON(http.StatusServiceUnavailable, models.NewServiceUnavailableError("audit"))
			}
		})
	}

	// Don't log the health/readiness checks.
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "UP",
		})
	})
	r.GET("/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "UP",
		})
	})

	return r, nil
}

func newPrometheus() *ginprometheus.Prometheus {
	p := ginprometheus.NewPrometheus("apiserver")
	p.ReqCntURLLabelMappingFn = func(c *gin.Context) string {
		url := c.Request.URL.Path
		for _, p := range c.Params {
			if p.Key == "id" {
				url = strings.Replace(url, p.Value, ":id", 1)
				break
			}
		}
		return url
	}
	return p
}
