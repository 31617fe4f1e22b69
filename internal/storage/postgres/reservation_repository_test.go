package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
	"github.com/themadjocker/cryo-vault-backend-api/internal/testutil"
)

func TestReservationRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	testutil.ApplyMigrations(t, context.Background(), pool)
	repo := NewReservationRepository(pool)

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	pending := func(id, slotID string, expiresAt time.Time) domain.Hold {
		return domain.Hold{ID: id, SlotID: slotID, HolderID: "U1", Status: domain.HoldStatusPending, ExpiresAt: expiresAt, CreatedAt: now}
	}

	t.Run("one pending hold per slot", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		slotID := testutil.InsertSlot(t, ctx, pool, "F1-A")

		if err := repo.CreateHold(ctx, pending("00000000-0000-0000-0000-000000000001", slotID, now)); err != nil {
			t.Fatalf("create hold: %v", err)
		}
		err := repo.CreateHold(ctx, pending("00000000-0000-0000-0000-000000000002", slotID, now))
		if err != domain.ErrSlotAlreadyReserved {
			t.Fatalf("expected ErrSlotAlreadyReserved, got %v", err)
		}

		if err := repo.UpdateHoldStatus(ctx, "00000000-0000-0000-0000-000000000001", domain.HoldStatusExpired); err != nil {
			t.Fatalf("update status: %v", err)
		}
		if err := repo.CreateHold(ctx, pending("00000000-0000-0000-0000-000000000002", slotID, now)); err != nil {
			t.Fatalf("expected new hold after expiry, got %v", err)
		}

		found, err := repo.FindPendingHold(ctx, slotID)
		if err != nil {
			t.Fatalf("find pending: %v", err)
		}
		if found == nil || found.ID != "00000000-0000-0000-0000-000000000002" {
			t.Fatalf("unexpected pending hold: %+v", found)
		}
	})

	t.Run("hold for unknown slot", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		err := repo.CreateHold(ctx, pending("00000000-0000-0000-0000-000000000001", "00000000-0000-0000-0000-0000000000ff", now))
		if err != domain.ErrSlotNotFound {
			t.Fatalf("expected ErrSlotNotFound, got %v", err)
		}
		if _, err := repo.GetHold(ctx, "not-a-uuid"); err != domain.ErrReservationNotFound {
			t.Fatalf("expected ErrReservationNotFound, got %v", err)
		}
	})

	t.Run("lists expired pending holds", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		a := testutil.InsertSlot(t, ctx, pool, "F1-A")
		b := testutil.InsertSlot(t, ctx, pool, "F1-B")
		c := testutil.InsertSlot(t, ctx, pool, "F1-C")

		testutil.InsertHold(t, ctx, pool, pending("00000000-0000-0000-0000-00000000000a", a, now.Add(-time.Minute)))
		testutil.InsertHold(t, ctx, pool, pending("00000000-0000-0000-0000-00000000000b", b, now.Add(time.Minute)))
		cancelled := pending("00000000-0000-0000-0000-00000000000c", c, now.Add(-time.Hour))
		cancelled.Status = domain.HoldStatusCancelled
		testutil.InsertHold(t, ctx, pool, cancelled)

		holds, err := repo.ListExpiredPending(ctx, now, 10)
		if err != nil {
			t.Fatalf("list expired: %v", err)
		}
		if len(holds) != 1 || holds[0].SlotID != a {
			t.Fatalf("expected only the overdue pending hold, got %+v", holds)
		}
	})

	t.Run("one booking per hold", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)
		slotID := testutil.InsertSlot(t, ctx, pool, "F1-A")
		hold := pending("00000000-0000-0000-0000-000000000001", slotID, now)
		testutil.InsertHold(t, ctx, pool, hold)

		qty := 40
		booking := domain.Booking{
			ID:          "00000000-0000-0000-0000-0000000000b1",
			SlotID:      slotID,
			HolderID:    "U1",
			HoldID:      hold.ID,
			ManifestID:  "MAN-001",
			Priority:    domain.PriorityEmergency,
			VaccineType: "mRNA",
			Quantity:    &qty,
			ConfirmedAt: now,
		}
		if err := repo.CreateBooking(ctx, booking); err != nil {
			t.Fatalf("create booking: %v", err)
		}
		dup := booking
		dup.ID = "00000000-0000-0000-0000-0000000000b2"
		if err := repo.CreateBooking(ctx, dup); err != domain.ErrReservationNotPending {
			t.Fatalf("expected ErrReservationNotPending, got %v", err)
		}

		got, err := repo.GetBooking(ctx, booking.ID)
		if err != nil {
			t.Fatalf("get booking: %v", err)
		}
		if got.ManifestID != "MAN-001" || got.Priority != domain.PriorityEmergency || got.Quantity == nil || *got.Quantity != 40 {
			t.Fatalf("unexpected booking: %+v", got)
		}
	})
}
