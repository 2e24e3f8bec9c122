package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/database"
	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/email"
	"github.com/kinfolio/kinfolio/internal/handlers"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/routers"
	"github.com/kinfolio/kinfolio/internal/util"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.18.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc/credentials"
	"gorm.io/gorm"

	"github.com/urfave/cli/v3"
)

var tracer trace.Tracer

func init() {
	tracer = otel.Tracer("apiserver")
}

// @title               Kinfolio API
// @description         Identity and role reconciliation for the Kinfolio dashboard.
// @version             1.0
// @BasePath            /
func main() {
	// Override to capitalize "Show"
	cli.HelpFlag.(*cli.BoolFlag).Usage = "Show help"
	app := &cli.Command{
		Name: "apiserver",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Value:   false,
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("KINFOLIO_DEBUG"),
			},
			&cli.StringFlag{
				Name:    "listen",
				Value:   "0.0.0.0:8080",
				Usage:   "The address and port to listen for HTTP requests on",
				Sources: cli.EnvVars("KINFOLIO_LISTEN"),
			},
			&cli.StringFlag{
				Name:    "db-host",
				Value:   "apiserver-db",
				Usage:   "Database host name",
				Sources: cli.EnvVars("KINFOLIO_DB_HOST"),
			},
			&cli.StringFlag{
				Name:    "db-port",
				Value:   "5432",
				Usage:   "Database port",
				Sources: cli.EnvVars("KINFOLIO_DB_PORT"),
			},
			&cli.StringFlag{
				Name:    "db-user",
				Value:   "apiserver",
				Usage:   "Database user",
				Sources: cli.EnvVars("KINFOLIO_DB_USER"),
			},
			&cli.StringFlag{
				Name:    "db-password",
				Value:   "secret",
				Usage:   "Database password",
				Sources: cli.EnvVars("KINFOLIO_DB_PASSWORD"),
			},
			&cli.StringFlag{
				Name:    "db-name",
				Value:   "apiserver",
				Usage:   "Database name",
				Sources: cli.EnvVars("KINFOLIO_DB_NAME"),
			},
			&cli.StringFlag{
				Name:    "db-sslmode",
				Value:   "disable",
				Usage:   "Database ssl mode",
				Sources: cli.EnvVars("KINFOLIO_DB_SSLMODE"),
			},
			&cli.StringFlag{
				Name:    "keycloak-url",
				Value:   "https://auth.kinfolio.127.0.0.1.nip.io",
				Usage:   "Address of the Keycloak identity provider",
				Sources: cli.EnvVars("KINFOLIO_KEYCLOAK_URL"),
			},
			&cli.StringFlag{
				Name:    "keycloak-realm",
				Value:   "kinfolio",
				Usage:   "Keycloak realm holding the dashboard accounts",
				Sources: cli.EnvVars("KINFOLIO_KEYCLOAK_REALM"),
			},
			&cli.StringFlag{
				Name:    "keycloak-client-id",
				Value:   "kinfolio-apiserver",
				Usage:   "Service account client id",
				Sources: cli.EnvVars("KINFOLIO_KEYCLOAK_CLIENT_ID"),
			},
			&cli.StringFlag{
				Name:    "keycloak-client-secret",
				Value:   "",
				Usage:   "Service account client secret",
				Sources: cli.EnvVars("KINFOLIO_KEYCLOAK_CLIENT_SECRET"),
			},
			&cli.BoolFlag{
				Name:    "insecure-tls",
				Value:   false,
				Usage:   "Trust any TLS certificate",
				Sources: cli.EnvVars("KINFOLIO_INSECURE_TLS"),
			},
			&cli.StringFlag{
				Name:     "redis-server",
				Usage:    "Redis host:port address",
				Value:    "redis:6379",
				Sources:  cli.EnvVars("KINFOLIO_REDIS_SERVER"),
				Required: true,
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database to be selected after connecting to the server.",
				Value:   1,
				Sources: cli.EnvVars("KINFOLIO_REDIS_DB"),
			},
			&cli.BoolFlag{
				Name:    "trace-insecure",
				Value:   false,
				Usage:   "Set OTLP endpoint to insecure mode",
				Sources: cli.EnvVars("KINFOLIO_TRACE_INSECURE"),
			},
			&cli.StringFlag{
				Name:    "trace-endpoint",
				Value:   "",
				Usage:   "OTLP endpoint for trace data",
				Sources: cli.EnvVars("KINFOLIO_TRACE_ENDPOINT_OTLP"),
			},
			&cli.StringSliceFlag{
				Name:    "origins",
				Usage:   "Trusted CORS origins",
				Sources: cli.EnvVars("KINFOLIO_ORIGINS"),
			},
			&cli.StringFlag{
				Name:     "smtp-host-port",
				Usage:    "SMTP server host:port address",
				Required: false,
				Sources:  cli.EnvVars("KINFOLIO_SMTP_HOST_PORT"),
			},
			&cli.StringFlag{
				Name:     "smtp-user",
				Usage:    "SMTP server user name",
				Required: false,
				Sources:  cli.EnvVars("KINFOLIO_SMTP_USER"),
			},
			&cli.StringFlag{
				Name:     "smtp-password",
				Usage:    "SMTP server password",
				Required: false,
				Sources:  cli.EnvVars("KINFOLIO_SMTP_PASSWORD"),
			},
			&cli.BoolFlag{
				Name:     "smtp-tls",
				Usage:    "Use TLS to connect to the SMTP server",
				Required: false,
				Sources:  cli.EnvVars("KINFOLIO_SMTP_TLS"),
			},
			&cli.StringFlag{
				Name:     "smtp-from",
				Usage:    "The from address to use for emails",
				Required: false,
				Sources:  cli.EnvVars("KINFOLIO_SMTP_FROM"),
			},
		},

		Action: func(ctx context.Context, command *cli.Command) error {
			ctx, _ = signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGINT)
			ctx, span := tracer.Start(ctx, "Run")
			defer span.End()
			withLoggerAndDB(ctx, command, func(logger *zap.Logger, db *gorm.DB, dsn string) {
				pprof_init(ctx, command, logger)

				if err := database.Migrations().Migrate(ctx, db); err != nil {
					log.Fatal(err)
				}

				docs, err := docstore.NewGormStore(logger.Sugar(), db)
				if err != nil {
					log.Fatal(err)
				}

				ids := identity.NewKeycloakStore(logger.Sugar(), identity.KeycloakOptions{
					URL:          command.String("keycloak-url"),
					Realm:        command.String("keycloak-realm"),
					ClientID:     command.String("keycloak-client-id"),
					ClientSecret: command.String("keycloak-client-secret"),
					InsecureTLS:  command.Bool("insecure-tls"),
				})

				redisClient := redis.NewClient(&redis.Options{
					Addr: command.String("redis-server"),
					DB:   int(command.Int("redis-db")),
				})

				accountsService := accounts.NewService(logger.Sugar(), ids, docs)

				api, err := handlers.NewAPI(ctx, logger.Sugar(), accountsService, ids, docs, redisClient)
				if err != nil {
					log.Fatal(err)
				}

				smtpServer := email.SmtpServer{
					HostPort: command.String("smtp-host-port"),
					User:     command.String("smtp-user"),
					Password: command.String("smtp-password"),
				}
				if command.Bool("smtp-tls") { // #nosec G402
					smtpServer.Tls = &tls.Config{
						InsecureSkipVerify: command.Bool("insecure-tls"),
					}
				}
				api.SmtpServer = smtpServer
				api.SmtpFrom = command.String("smtp-from")

				router, err := routers.NewAPIRouter(routers.APIRouterOptions{
					Logger:  logger.Sugar(),
					Api:     api,
					Origins: command.StringSlice("origins"),
				})
				if err != nil {
					log.Fatal(err)
				}

				httpServer := &http.Server{
					Addr:              command.String("listen"),
					Handler:           router,
					ReadTimeout:       5 * time.Second,
					ReadHeaderTimeout: 5 * time.Second,
					WriteTimeout:      10 * time.Second,
				}
				defer util.IgnoreError(httpServer.Close)

				wg := &sync.WaitGroup{}
				serveErrors := make(chan error, 1)
				util.GoWithWaitGroup(wg, func() {
					if err := httpServer.ListenAndServe(); err != nil {
						serveErrors <- err
					}
				})

				// Wait for a shutdown signal or a server error
				var serveErr error
				select {
				case serveErr = <-serveErrors:
				case <-ctx.Done():
				}

				// Try to do a graceful shutdown of the server for 5 seconds...
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				go func() {
					_ = httpServer.Shutdown(shutdownCtx)
				}()

				serversDone := make(chan struct{})
				go func() {
					wg.Wait()
					close(serversDone)
				}()

				select {
				case <-shutdownCtx.Done():
				case <-serversDone:
				}

				if serveErr != nil && serveErr != http.ErrServerClosed {
					log.Fatal(serveErr)
				}
			})
			return nil
		},
	}
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "rollback",
		Usage: "Rollback the last database migration",
		Action: func(ctx context.Context, command *cli.Command) error {
			withLoggerAndDB(ctx, command, func(logger *zap.Logger, db *gorm.DB, dsn string) {
				if err := database.Migrations().RollbackLast(ctx, db); err != nil {
					log.Fatal(err)
				}
			})
			return nil
		},
	})

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getLogger(command *cli.Command) *zap.Logger {
	var logger *zap.Logger
	var err error
	// set the log level
	if command.Bool("debug") {
		logConfig := zap.NewProductionConfig()
		logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		logger, err = logConfig.Build()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatal(err)
	}
	return logger
}

func withLoggerAndDB(ctx context.Context, command *cli.Command, f func(logger *zap.Logger, db *gorm.DB, dsn string)) {
	logger := getLogger(command)
	cleanup := initTracer(logger.Sugar(), command.Bool("trace-insecure"), command.String("trace-endpoint"))
	defer func() {
		if cleanup == nil {
			return
		}
		if err := cleanup(ctx); err != nil {
			logger.Error(err.Error())
		}
	}()

	db, dsn, err := database.NewDatabase(
		ctx,
		logger.Sugar(),
		command.String("db-host"),
		command.String("db-user"),
		command.String("db-password"),
		command.String("db-name"),
		command.String("db-port"),
		command.String("db-sslmode"),
	)
	if err != nil {
		log.Fatal(err)
	}

	f(logger, db, dsn)
}

func initTracer(logger *zap.SugaredLogger, insecure bool, collector string) func(context.Context) error {
	if collector == "" {
		logger.Info("No collector endpoint configured")
		otel.SetTracerProvider(
			sdktrace.NewTracerProvider(
				sdktrace.WithSampler(sdktrace.AlwaysSample()),
			),
		)
		return nil
	}
	secureOption := otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, ""))
	if insecure {
		secureOption = otlptracegrpc.WithInsecure()
	}
	exporter, err := otlptrace.New(
		context.Background(),
		otlptracegrpc.NewClient(
			secureOption,
			otlptracegrpc.WithEndpoint(collector),
		),
	)
	if err != nil {
		logger.Errorf("Unable to create open telemetry exporter: %s", err.Error())
		return nil
	}
	resources, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", "apiserver"),
			attribute.String("library.language", "go"),
		),
	)
	if err != nil {
		logger.Errorf("Unable to create resources: %s", err.Error())
		return nil
	}

	deployEnvironment := os.Getenv("KINFOLIO_ENVIRONMENT")
	if deployEnvironment == "" {
		deployEnvironment = "development"
	}

	otel.SetTracerProvider(
		sdktrace.NewTracerProvider(
			sdktrace.WithResource(resource.NewWithAttributes(
				semconv.SchemaURL,
				semconv.ServiceName("apiserver"),
				semconv.DeploymentEnvironment(deployEnvironment),
			)),
			sdktrace.WithSampler(sdktrace.AlwaysSample()),
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(resources),
		),
	)
	return exporter.Shutdown
}
