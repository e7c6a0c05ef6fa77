package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/bulk"
	contactrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/repo"
)

func newExportCmd() *cobra.Command {
	var (
		owner  string
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an owner's active contacts as csv or excel",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, logger, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := bulk.NewService(contactrepo.NewContactRepo(db), bulk.Config{}, logger)
			exp, err := svc.Export(cmd.Context(), owner, format)
			if err != nil {
				return err
			}
			if out == "" {
				out = exp.Filename
			}
			if err := os.WriteFile(out, exp.Data, 0o644); err != nil {
				return err
			}
			logger.Infow("contacts exported", "owner", owner, "file", out, "bytes", len(exp.Data))
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner user id (required)")
	cmd.Flags().StringVar(&format, "format", bulk.ExportCSV, "csv or excel")
	cmd.Flags().StringVar(&out, "out", "", "Output path (default: contacts.csv / contacts.xlsx)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}
