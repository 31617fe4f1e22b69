package commands

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"
	"github.com/spf13/cobra"

	"github.com/themadjocker/cryo-vault-backend-api/internal/app"
	"github.com/themadjocker/cryo-vault-backend-api/internal/clock"
	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/ledger"
	"github.com/themadjocker/cryo-vault-backend-api/internal/storage/postgres"
)

var errChainInvalid = errors.New("ledger chain is invalid")

func newLedgerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the audit ledger",
	}
	cmd.AddCommand(newLedgerListCmd(), newLedgerVerifyCmd())
	return cmd
}

func newLedgerListCmd() *cobra.Command {
	limit := 20
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the most recent ledger entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if limit <= 0 {
				return fmt.Errorf("--limit must be positive")
			}
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			entries, err := postgres.NewLedgerRepository(pool).ListRecent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			renderLedger(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", limit, "Number of entries to print, newest first.")
	return cmd
}

func newLedgerVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute every entry hash and check the chain links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := errors.Join(cfg.Ledger.Validate()...); err != nil {
				return err
			}
			pool, err := openPool(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := app.NewLedgerService(
				postgres.NewLedgerRepository(pool),
				ledger.NewHasher(cfg.Ledger.Secret),
				clock.NewSystem(),
				app.WithLedgerLogger(logger),
			)
			report, err := svc.Verify(cmd.Context())
			if err != nil {
				return err
			}
			printVerdict(cmd.OutOrStdout(), report)
			if !report.Valid {
				return errChainInvalid
			}
			return nil
		},
	}
}

func renderLedger(w io.Writer, entries []domain.LedgerEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "ledger is empty")
		return
	}
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("SEQ", "TIMESTAMP", "ACTION", "SLOT", "BOOKING", "PREVIOUS", "HASH", "NONCE")
	for _, e := range entries {
		table.AddRow(
			strconv.FormatInt(e.Seq, 10),
			ledger.FormatTimestamp(e.Timestamp),
			e.Action,
			e.SlotName,
			e.BookingID,
			e.PreviousHash,
			e.DataHash,
			strconv.FormatInt(e.Nonce, 10),
		)
	}
	fmt.Fprintln(w, table)
}

func printVerdict(w io.Writer, report domain.ChainReport) {
	if report.Valid {
		color.New(color.FgGreen).Fprintf(w, "✓ chain valid (%d entries)\n", report.Count)
		return
	}
	color.New(color.FgRed, color.Bold).Fprintf(w, "✗ chain broken at entry %s (%d entries)\n", report.FirstInvalidEntryID, report.Count)
}
