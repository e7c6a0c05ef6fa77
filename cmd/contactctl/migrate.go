package main

import (
	"github.com/spf13/cobra"

	contactrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/repo"
	userrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/user/repo"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the users and contacts tables if missing",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			if err := userrepo.NewUserRepo(db).EnsureTable(cmd.Context()); err != nil {
				return err
			}
			if err := contactrepo.NewContactRepo(db).EnsureTable(cmd.Context()); err != nil {
				return err
			}
			logger.Info("tables ready")
			return nil
		},
	}
}
