package main

import (
	pgstore "github.com/narvanalabs/persistent-params/internal/store/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := commandContext()
		defer cancel()
		return st.Migrate(ctx)
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "print applied and pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		return pgstore.MigrationStatus(st.DB())
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "roll back the most recent migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, cancel := commandContext()
		defer cancel()
		if err := pgstore.Rollback(ctx, st.DB()); err != nil {
			return err
		}
		log.Info("rolled back latest migration")
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateStatusCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}
