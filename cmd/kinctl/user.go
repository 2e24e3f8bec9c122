package main

import (
	"context"
	"fmt"
	"log"

	"github.com/kinfolio/kinfolio/internal/accounts"
	"github.com/kinfolio/kinfolio/internal/docstore"
	"github.com/kinfolio/kinfolio/internal/identity"
	"github.com/kinfolio/kinfolio/internal/models"
	"github.com/urfave/cli/v3"
)

func userTableFields() []TableField {
	var fields []TableField
	fields = append(fields, TableField{Header: "USER ID", Field: "ID"})
	fields = append(fields, TableField{Header: "EMAIL", Field: "Email"})
	fields = append(fields, TableField{Header: "ROLE", Field: "Role"})
	return fields
}

func auditTableFields() []TableField {
	var fields []TableField
	fields = append(fields, TableField{Header: "USER ID", Field: "IdentityID"})
	fields = append(fields, TableField{Header: "PROFILE EMAIL", Field: "ProfileEmail"})
	fields = append(fields, TableField{Header: "IDENTITY EMAIL", Field: "IdentityEmail"})
	fields = append(fields, TableField{Header: "STATUS", Field: "Status"})
	return fields
}

func deleteStepTableFields() []TableField {
	var fields []TableField
	fields = append(fields, TableField{Header: "STEP", Field: "Step"})
	fields = append(fields, TableField{Header: "OK", Field: "OK"})
	fields = append(fields, TableField{Header: "ERROR", Field: "Error"})
	return fields
}

func createUserCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Commands relating to dashboard users",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all user profiles",
				Action: func(ctx context.Context, command *cli.Command) error {
					return withService(ctx, command, func(service *accounts.Service, ids identity.Store, docs docstore.Store) error {
						profileIds, err := docs.ListIDs(ctx, accounts.UsersCollection)
						if err != nil {
							return err
						}
						profiles := make([]*models.Profile, 0, len(profileIds))
						for _, id := range profileIds {
							doc, err := docs.Get(ctx, accounts.UsersCollection, id)
							if err != nil {
								return err
							}
							profiles = append(profiles, models.ProfileFromDocument(id, doc))
						}
						showOutput(command, userTableFields(), profiles)
						return nil
					})
				},
			},
			{
				Name:  "assign-role",
				Usage: "Make a role the user's canonical role in every location",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Identity id of the user",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "role",
						Usage:    "One of: master, admin, viewer",
						Required: true,
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return withService(ctx, command, func(service *accounts.Service, ids identity.Store, docs docstore.Store) error {
						role, err := models.ParseRole(command.String("role"))
						if err != nil {
							return err
						}
						userId := command.String("id")
						if err := service.AssignRole(ctx, userId, role); err != nil {
							return err
						}
						doc, err := docs.Get(ctx, accounts.UsersCollection, userId)
						if err != nil {
							return err
						}
						showOutput(command, userTableFields(), models.ProfileFromDocument(userId, doc))
						return nil
					})
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a user from every location",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Identity id of the user to delete",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "caller",
						Usage:    "Identity id of the operator running the delete",
						Required: true,
					},
				},
				Action: func(ctx context.Context, command *cli.Command) error {
					return withService(ctx, command, func(service *accounts.Service, ids identity.Store, docs docstore.Store) error {
						report, err := service.DeleteUser(ctx, command.String("caller"), command.String("id"))
						if report != nil {
							showOutput(command, deleteStepTableFields(), report.Steps)
						}
						if err != nil {
							log.Fatalf("user delete failed: %v", err)
						}
						output := command.String("output")
						if output == encodeColumn || output == encodeNoHeader {
							fmt.Println("\nsuccessfully deleted")
						}
						return nil
					})
				},
			},
			{
				Name:  "audit",
				Usage: "Compare every profile against the identity store and report drift",
				Action: func(ctx context.Context, command *cli.Command) error {
					return withService(ctx, command, func(service *accounts.Service, ids identity.Store, docs docstore.Store) error {
						entries := make([]models.AuditEntry, 0)
						err := service.AuditUsers(ctx, func(entry models.AuditEntry) error {
							entries = append(entries, entry)
							return nil
						})
						if err != nil {
							return err
						}
						showOutput(command, auditTableFields(), entries)
						return nil
					})
				},
			},
		},
	}
}
