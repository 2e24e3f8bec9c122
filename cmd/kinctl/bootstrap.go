package main

import (
	"context"
	"fmt"

	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/urfave/cli/v3"
)

func bootstrapTableFields() []TableField {
	var fields []TableField
	fields = append(fields, TableField{Header: "BOOTSTRAPPED", Field: "Bootstrapped"})
	fields = append(fields, TableField{Header: "MASTER COUNT", Field: "Count"})
	return fields
}

func createBootstrapCommand() *cli.Command {
	return &cli.Command{
		Name:  "bootstrap",
		Usage: "Commands relating to first-master bootstrap",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Report whether a master account exists",
				Action: func(ctx context.Context, command *cli.Command) error {
					return withService(ctx, command, func(service *accounts.Service, ids identity.Store, docs docstore.Store) error {
						status, err := service.CheckBootstrapped(ctx)
						if err != nil {
							return err
						}
						showOutput(command, bootstrapTableFields(), status)
						return nil
					})
				},
			},
			{
				Name:  "run",
				Usage: "Promote the principal behind an email to the first master account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Usage:    "Email of an existing identity store principal",
						Required: true,
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return withService(ctx, command, func(service *accounts.Service, ids identity.Store, docs docstore.Store) error {
						identityId, err := service.Bootstrap(ctx, command.String("email"))
						if err != nil {
							return err
						}
						output := command.String("output")
						if output == encodeColumn || output == encodeNoHeader {
							fmt.Printf("bootstrapped master account: %s\n", identityId)
							return nil
						}
						showOutput(command, nil, map[string]string{"identity_id": identityId})
						return nil
					})
				},
			},
		},
	}
}
