package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/themadjocker/cryo-vault-backend-api/migrations"
)

func newMigrateCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			if list {
				names, err := migrations.Names()
				if err != nil {
					return err
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			}

			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := migrations.Apply(cmd.Context(), pool)
			if err != nil {
				return fmt.Errorf("apply migrations: %w", err)
			}
			if len(applied) == 0 {
				fmt.Fprintln(out, "schema is up to date")
				return nil
			}
			for _, n := range applied {
				fmt.Fprintf(out, "applied %s\n", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "Print the embedded migrations without connecting.")
	return cmd
}
