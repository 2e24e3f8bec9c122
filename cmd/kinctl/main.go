package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/database"
	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Version is set using ldflags at build time. See Makefile for details.
var Version = "dev"

func main() {
	// Override usage to capitalize "Show"
	cli.HelpFlag.(*cli.BoolFlag).Usage = "Show help"
	app := &cli.Command{
		Name:  "kinctl",
		Usage: "operates directly on the dashboard's identity and document stores",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Value:   false,
				Usage:   "Enable debug logging",
				Sources: cli.EnvVars("KINCTL_DEBUG"),
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
				Name:     "output",
				Value:    encodeColumn,
				Required: false,
				Usage:    "Output format: json, json-raw, no-header, column (default columns)",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Get the version of kinctl",
				Action: func(ctx context.Context, command *cli.Command) error {
					fmt.Printf("version: %s\n", Version)
					return nil
				},
			},
			createUserCommand(),
			createBootstrapCommand(),
		},
	}

	sort.Slice(app.Commands, func(i, j int) bool {
		return app.Commands[i].Name < app.Commands[j].Name
	})

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func getLogger(command *cli.Command) *zap.SugaredLogger {
	logConfig := zap.NewProductionConfig()
	if command.Bool("debug") {
		logConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		// ctl output should stay readable, keep the log noise down
		logConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	logger, err := logConfig.Build()
	if err != nil {
		log.Fatal(err)
	}
	return logger.Sugar()
}

// withService connects to both stores and hands the reconciliation service
// to f. Every subcommand goes through here so they all share the same flag
// and env wiring as the apiserver.
func withService(ctx context.Context, command *cli.Command, f func(service *accounts.Service, ids identity.Store, docs docstore.Store) error) error {
	logger := getLogger(command)

	db, _, err := database.NewDatabase(
		ctx,
		logger,
		command.String("db-host"),
		command.String("db-user"),
		command.String("db-password"),
		command.String("db-name"),
		command.String("db-port"),
		command.String("db-sslmode"),
	)
	if err != nil {
		return err
	}

	docs, err := docstore.NewGormStore(logger, db)
	if err != nil {
		return err
	}

	ids := identity.NewKeycloakStore(logger, identity.KeycloakOptions{
		URL:          command.String("keycloak-url"),
		Realm:        command.String("keycloak-realm"),
		ClientID:     command.String("keycloak-client-id"),
		ClientSecret: command.String("keycloak-client-secret"),
		InsecureTLS:  command.Bool("insecure-tls"),
	})

	return f(accounts.NewService(logger, ids, docs), ids, docs)
}
