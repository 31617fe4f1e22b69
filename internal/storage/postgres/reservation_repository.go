package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

// ReservationRepository stores holds and the bookings confirmed from them.
type ReservationRepository struct {
	db
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{db{pool: pool}}
}

const holdColumns = `id, slot_id, holder_id, status, expires_at, created_at`

func (r *ReservationRepository) CreateHold(ctx context.Context, hold domain.Hold) error {
	const stmt = `
INSERT INTO holds (id, slot_id, holder_id, status, expires_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)`

	_, err := r.exec(ctx, stmt, hold.ID, hold.SlotID, hold.HolderID, hold.Status, hold.ExpiresAt, hold.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrSlotAlreadyReserved
		case isForeignKeyViolation(err), isInvalidUUID(err):
			return domain.ErrSlotNotFound
		}
		return fmt.Errorf("create hold: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetHold(ctx context.Context, id string) (domain.Hold, error) {
	return r.getHold(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1`, id)
}

// GetHoldForUpdate row-locks the hold. Callers lock the hold's slot first.
func (r *ReservationRepository) GetHoldForUpdate(ctx context.Context, id string) (domain.Hold, error) {
	return r.getHold(ctx, `SELECT `+holdColumns+` FROM holds WHERE id = $1 FOR UPDATE`, id)
}

func (r *ReservationRepository) getHold(ctx context.Context, query, id string) (domain.Hold, error) {
	h, err := scanHold(r.queryRow(ctx, query, id))
	if err != nil {
		if isNotFound(err) {
			return domain.Hold{}, domain.ErrReservationNotFound
		}
		return domain.Hold{}, fmt.Errorf("get hold: %w", err)
	}
	return h, nil
}

func (r *ReservationRepository) FindPendingHold(ctx context.Context, slotID string) (*domain.Hold, error) {
	const query = `SELECT ` + holdColumns + ` FROM holds WHERE slot_id = $1 AND status = 'PENDING'`

	h, err := scanHold(r.queryRow(ctx, query, slotID))
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find pending hold: %w", err)
	}
	return &h, nil
}

func (r *ReservationRepository) UpdateHoldStatus(ctx context.Context, id string, status domain.HoldStatus) error {
	const stmt = `UPDATE holds SET status = $2, updated_at = NOW() WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrReservationNotFound
		}
		return fmt.Errorf("update hold status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

// ListExpiredPending returns up to limit PENDING holds with expires_at before
// now, oldest deadline first.
func (r *ReservationRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Hold, error) {
	const query = `
SELECT ` + holdColumns + `
FROM holds
WHERE status = 'PENDING' AND expires_at < $1
ORDER BY expires_at
LIMIT $2`

	rows, err := r.query(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	holds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Hold, error) {
		return scanHold(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list expired holds: %w", err)
	}
	return holds, nil
}

func (r *ReservationRepository) CreateBooking(ctx context.Context, b domain.Booking) error {
	const stmt = `
INSERT INTO bookings (id, slot_id, holder_id, hold_id, manifest_id, priority, vaccine_type, batch_number, quantity, confirmed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.exec(ctx, stmt,
		b.ID,
		b.SlotID,
		b.HolderID,
		b.HoldID,
		b.ManifestID,
		b.Priority,
		b.VaccineType,
		b.BatchNumber,
		b.Quantity,
		b.ConfirmedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrReservationNotPending
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetBooking(ctx context.Context, id string) (domain.Booking, error) {
	const query = `
SELECT id, slot_id, holder_id, hold_id, manifest_id, priority, vaccine_type, batch_number, quantity, confirmed_at, released_at
FROM bookings
WHERE id = $1`

	var b domain.Booking
	err := r.queryRow(ctx, query, id).Scan(
		&b.ID, &b.SlotID, &b.HolderID, &b.HoldID, &b.ManifestID, &b.Priority,
		&b.VaccineType, &b.BatchNumber, &b.Quantity, &b.ConfirmedAt, &b.ReleasedAt,
	)
	if err != nil {
		if isNotFound(err) {
			return domain.Booking{}, domain.ErrBookingNotFound
		}
		return domain.Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func scanHold(row pgx.Row) (domain.Hold, error) {
	var h domain.Hold
	err := row.Scan(&h.ID, &h.SlotID, &h.HolderID, &h.Status, &h.ExpiresAt, &h.CreatedAt)
	return h, err
}
