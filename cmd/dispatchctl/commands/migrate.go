package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrate: create tables and seed pricing from SEED_PATH.
func migrateCmd() *cobra.Command {
	var seedPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema and seed pricing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if seedPath != "" {
				cfg.SeedPath = seedPath
			}

			ctx := cmd.Context()
			w, err := newWire(ctx)
			if err != nil {
				return err
			}
			defer w.Close()

			seeded, err := w.Migrate(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema ready, %d pricing rows seeded\n", seeded)
			return nil
		},
	}
	cmd.Flags().StringVar(&seedPath, "seed", "", "pricing seed file (default SEED_PATH)")
	return cmd
}
