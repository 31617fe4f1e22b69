package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

func TestSeedSlotNames(t *testing.T) {
	names := seedSlotNames()
	require.Len(t, names, 20)
	assert.Equal(t, "F1-A", names[0])
	assert.Equal(t, "F1-D", names[3])
	assert.Equal(t, "F5-D", names[19])

	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
}

func TestRenderLedger(t *testing.T) {
	var buf bytes.Buffer
	renderLedger(&buf, []domain.LedgerEntry{{
		Seq:          2,
		Action:       domain.ActionBookingConfirmed,
		SlotName:     "F1-A",
		BookingID:    "b-1",
		PreviousHash: "00ab12cd34ef5678",
		DataHash:     "00ff00ff00ff00ff",
		Nonce:        41,
		Timestamp:    time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}})
	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "SEQ")
	assert.Contains(t, lines[1], "BOOKING_CONFIRMED")
	assert.Contains(t, lines[1], "2025-01-01T12:00:00.000Z")
	assert.Contains(t, lines[1], "00ff00ff00ff00ff")
}

func TestRenderLedger_Empty(t *testing.T) {
	var buf bytes.Buffer
	renderLedger(&buf, nil)
	assert.Equal(t, "ledger is empty\n", buf.String())
}

func TestPrintVerdict(t *testing.T) {
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = false })

	var buf bytes.Buffer
	printVerdict(&buf, domain.ChainReport{Valid: true, Count: 3})
	assert.Equal(t, "✓ chain valid (3 entries)\n", buf.String())

	buf.Reset()
	printVerdict(&buf, domain.ChainReport{Valid: false, Count: 3, FirstInvalidEntryID: "e-2"})
	assert.Equal(t, "✗ chain broken at entry e-2 (3 entries)\n", buf.String())
}

func TestMigrateList(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"migrate", "--list", "--env-file", ""})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "0001_slots_holds_bookings.sql\n0002_ledger_entries.sql\n", buf.String())
}
