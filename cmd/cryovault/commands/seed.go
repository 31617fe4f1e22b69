package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/themadjocker/cryo-vault-backend-api/internal/storage/postgres"
)

const defaultTargetTemp = -70.0

// seedSlotNames returns the freezer layout: five freezers with four racks each.
func seedSlotNames() []string {
	names := make([]string, 0, 20)
	for f := 1; f <= 5; f++ {
		for _, rack := range []string{"A", "B", "C", "D"} {
			names = append(names, fmt.Sprintf("F%d-%s", f, rack))
		}
	}
	return names
}

func newSeedCmd() *cobra.Command {
	target := defaultTargetTemp
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the default freezer slots",
		Long:  "Create slots F1-A through F5-D. Slots that already exist are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := postgres.NewSlotRepository(pool)
			out := cmd.OutOrStdout()
			created := 0
			for _, name := range seedSlotNames() {
				id, err := repo.Create(cmd.Context(), name, target)
				if err != nil {
					return fmt.Errorf("create slot %s: %w", name, err)
				}
				if id == "" {
					fmt.Fprintf(out, "  %s exists\n", name)
					continue
				}
				created++
				fmt.Fprintf(out, "  %s created (%s)\n", name, id)
			}
			color.New(color.FgGreen).Fprintf(out, "seeded %d new slot(s)\n", created)
			return nil
		},
	}
	cmd.Flags().Float64Var(&target, "target-temp", target, "Target temperature in °C for new slots.")
	return cmd
}
