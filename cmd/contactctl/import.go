package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-contact-go/internal/bulk"
	contactrepo "github.com/ovaphlow/pitchfork/service-contact-go/internal/contact/repo"
)

// mimeForPath guesses the declared type from the file extension.
func mimeForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return bulk.MimeCSV, nil
	case ".xlsx":
		return bulk.MimeXLSX, nil
	default:
		return "", fmt.Errorf("cannot infer type of %q, pass --type", path)
	}
}

func newImportCmd() *cobra.Command {
	var (
		owner    string
		file     string
		mimeType string
		workers  int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Reconcile a CSV or xlsx file into an owner's contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if mimeType == "" {
				var err error
				if mimeType, err = mimeForPath(file); err != nil {
					return err
				}
			}
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}

			db, logger, err := connect()
			if err != nil {
				return err
			}
			defer db.Close()

			svc := bulk.NewService(contactrepo.NewContactRepo(db), bulk.Config{Timeout: timeout, Workers: workers}, logger)
			res, err := svc.Import(cmd.Context(), owner, data, mimeType)
			if err != nil {
				return err
			}
			return writeJSON(res)
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner user id (required)")
	cmd.Flags().StringVar(&file, "file", "", "Path of the CSV or xlsx file (required)")
	cmd.Flags().StringVar(&mimeType, "type", "", "Declared MIME type (default: from extension)")
	cmd.Flags().IntVar(&workers, "workers", 1, "Rows reconciled in parallel")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Abort remaining rows after this long (0: no limit)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
