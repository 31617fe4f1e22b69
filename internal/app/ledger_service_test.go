package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/clock"
	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/ledger"
)

func newTestLedger(clk clock.Clock, opts ...LedgerOption) (*LedgerService, *fakeLedgerRepo) {
	repo := &fakeLedgerRepo{}
	return NewLedgerService(repo, ledger.NewHasher("test-secret"), clk, opts...), repo
}

func appendN(t *testing.T, svc *LedgerService, clk *clock.Manual, n int) []domain.LedgerEntry {
	t.Helper()
	out := make([]domain.LedgerEntry, 0, n)
	for i := 0; i < n; i++ {
		entry, err := svc.Append(context.Background(), AppendInput{
			BookingID:  fmt.Sprintf("b-%d", i),
			SlotID:     "slot-1",
			ManifestID: fmt.Sprintf("MAN-%03d", i),
			HolderID:   "U1",
			Action:     domain.ActionBookingConfirmed,
			SlotName:   "F1-A",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		out = append(out, entry)
		clk.Advance(time.Second)
	}
	return out
}

func TestLedgerService_Append(t *testing.T) {
	t.Parallel()

	t.Run("links entries to the previous hash", func(t *testing.T) {
		clk := clock.NewManual(testNow.Add(123 * time.Microsecond))
		svc, _ := newTestLedger(clk)

		entries := appendN(t, svc, clk, 3)
		if entries[0].PreviousHash != domain.GenesisHash {
			t.Fatalf("expected genesis previous hash, got %s", entries[0].PreviousHash)
		}
		for i := 1; i < len(entries); i++ {
			if entries[i].PreviousHash != entries[i-1].DataHash {
				t.Fatalf("entry %d not linked to entry %d", i, i-1)
			}
			if entries[i].Seq != entries[i-1].Seq+1 {
				t.Fatalf("expected consecutive seq, got %d after %d", entries[i].Seq, entries[i-1].Seq)
			}
		}
		for _, e := range entries {
			if len(e.DataHash) != ledger.HashLength {
				t.Fatalf("expected %d-char hash, got %q", ledger.HashLength, e.DataHash)
			}
			if e.Timestamp.Nanosecond()%int(time.Millisecond) != 0 {
				t.Fatalf("expected millisecond timestamp, got %v", e.Timestamp)
			}
			if !ledger.NonceSatisfies(e.DataHash, e.Nonce, ledger.DefaultDifficulty) {
				t.Fatalf("expected nonce %d to satisfy difficulty", e.Nonce)
			}
		}
	})

	t.Run("timestamps never run backwards", func(t *testing.T) {
		clk := clock.NewManual(testNow)
		svc, _ := newTestLedger(clk)

		first := appendN(t, svc, clk, 1)[0]
		clk.Advance(-time.Hour)
		second := appendN(t, svc, clk, 1)[0]
		if second.Timestamp.Before(first.Timestamp) {
			t.Fatalf("expected %v not before %v", second.Timestamp, first.Timestamp)
		}
	})

	t.Run("capped nonce search still appends", func(t *testing.T) {
		clk := clock.NewManual(testNow)
		svc, _ := newTestLedger(clk, WithDifficulty(64), WithMaxNonceAttempts(10))

		entry := appendN(t, svc, clk, 1)[0]
		if entry.Nonce != 9 {
			t.Fatalf("expected last attempted nonce 9, got %d", entry.Nonce)
		}
		report, err := svc.Verify(context.Background())
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !report.Valid {
			t.Fatalf("expected capped entry to verify, got %+v", report)
		}
	})

	t.Run("requires an action", func(t *testing.T) {
		svc, _ := newTestLedger(clock.NewFixed(testNow))

		_, err := svc.Append(context.Background(), AppendInput{BookingID: "b-1"})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("insert failure leaves the chain untouched", func(t *testing.T) {
		clk := clock.NewManual(testNow)
		svc, repo := newTestLedger(clk)
		appendN(t, svc, clk, 1)
		repo.failInsert = errors.New("connection reset")

		_, err := svc.Append(context.Background(), AppendInput{Action: domain.ActionTempCritical})
		if err == nil {
			t.Fatalf("expected error")
		}
		if len(repo.entries) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(repo.entries))
		}
	})
}

func TestLedgerService_Verify(t *testing.T) {
	t.Parallel()

	t.Run("empty ledger is valid", func(t *testing.T) {
		svc, _ := newTestLedger(clock.NewFixed(testNow))

		report, err := svc.Verify(context.Background())
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if !report.Valid || report.Count != 0 {
			t.Fatalf("expected valid empty chain, got %+v", report)
		}
	})

	t.Run("reports the first tampered entry", func(t *testing.T) {
		clk := clock.NewManual(testNow)
		svc, repo := newTestLedger(clk)
		entries := appendN(t, svc, clk, 5)

		repo.tamper(2, func(e *domain.LedgerEntry) { e.ManifestID = "MAN-FORGED" })

		report, err := svc.Verify(context.Background())
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if report.Valid {
			t.Fatalf("expected invalid chain")
		}
		if report.FirstInvalidEntryID != entries[2].ID {
			t.Fatalf("expected first invalid %s, got %s", entries[2].ID, report.FirstInvalidEntryID)
		}
		if report.Count != 5 {
			t.Fatalf("expected count 5, got %d", report.Count)
		}
	})
}

func TestLedgerService_Recent(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(testNow)
	svc, _ := newTestLedger(clk, WithDifficulty(0))
	entries := appendN(t, svc, clk, 60)

	cases := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 10},
		{limit: -3, want: 10},
		{limit: 5, want: 5},
		{limit: 50, want: 50},
		{limit: 500, want: 50},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("limit=%d", tc.limit), func(t *testing.T) {
			got, err := svc.Recent(context.Background(), tc.limit)
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("expected %d entries, got %d", tc.want, len(got))
			}
			if got[0].ID != entries[len(entries)-1].ID {
				t.Fatalf("expected newest entry first")
			}
		})
	}
}
