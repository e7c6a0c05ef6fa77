package main

import (
	"encoding/json"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-contact-go/pkg/utilities"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "contactctl",
		Short:         "Contact book maintenance tools",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	cmd.AddCommand(newMigrateCmd(), newImportCmd(), newExportCmd())
	return cmd
}

func connect() (*sqlx.DB, *zap.SugaredLogger, error) {
	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		return nil, nil, err
	}
	db, err := database.ConnectX(database.ConfigFromEnv())
	if err != nil {
		return nil, nil, err
	}
	return db, lg.Sugar(), nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
