package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zitadel/ciba/internal/config"
	"github.com/zitadel/ciba/pkg/storage/postgres"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema of the grant store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != config.StoragePostgres {
				return errors.New("migrate requires storage.driver postgres")
			}
			pool, err := postgres.Open(cmd.Context(), cfg.Storage.DSN)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err = postgres.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
