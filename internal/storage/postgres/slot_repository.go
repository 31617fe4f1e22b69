package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

// SlotRepository is the slot registry. Every mutation bumps the slot version.
type SlotRepository struct {
	db
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{db{pool: pool}}
}

const slotColumns = `s.id, s.name, s.status, s.temperature, s.target_temp, s.temp_status, s.last_maintenance,
	COALESCE(s.active_hold_id::text, ''), COALESCE(s.active_booking_id::text, ''), s.version`

const slotWithActiveQuery = `
SELECT ` + slotColumns + `,
	h.id::text, h.holder_id, h.status, h.expires_at, h.created_at,
	b.id::text, b.holder_id, b.hold_id::text, b.manifest_id, b.priority, b.vaccine_type, b.batch_number,
	b.quantity, b.confirmed_at, b.released_at
FROM slots s
LEFT JOIN holds h ON h.id = s.active_hold_id
LEFT JOIN bookings b ON b.id = s.active_booking_id`

// Get returns the slot with its active hold and booking.
func (r *SlotRepository) Get(ctx context.Context, id string) (domain.Slot, error) {
	rows, err := r.query(ctx, slotWithActiveQuery+` WHERE s.id = $1`, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	slots, err := collectSlots(rows)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("get slot: %w", err)
	}
	if len(slots) == 0 {
		return domain.Slot{}, domain.ErrSlotNotFound
	}
	return slots[0], nil
}

// GetForUpdate row-locks the slot until the surrounding transaction ends.
func (r *SlotRepository) GetForUpdate(ctx context.Context, id string) (domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots s WHERE s.id = $1 FOR UPDATE`
	var s domain.Slot
	err := r.queryRow(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Status, &s.Temperature, &s.TargetTemp, &s.TempStatus, &s.LastMaintenance,
		&s.ActiveHoldID, &s.ActiveBookingID, &s.Version,
	)
	if err != nil {
		if isNotFound(err) {
			return domain.Slot{}, domain.ErrSlotNotFound
		}
		return domain.Slot{}, fmt.Errorf("lock slot: %w", err)
	}
	return s, nil
}

// List returns every slot ordered by name.
func (r *SlotRepository) List(ctx context.Context) ([]domain.Slot, error) {
	rows, err := r.query(ctx, slotWithActiveQuery+` ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	slots, err := collectSlots(rows)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (r *SlotRepository) SetStatus(ctx context.Context, id string, status domain.SlotStatus) error {
	return r.update(ctx, "set slot status", `status = $2`, id, status)
}

func (r *SlotRepository) AttachHold(ctx context.Context, id, holdID string) error {
	return r.update(ctx, "attach hold", `active_hold_id = $2`, id, holdID)
}

func (r *SlotRepository) DetachHold(ctx context.Context, id string) error {
	return r.update(ctx, "detach hold", `active_hold_id = NULL`, id)
}

func (r *SlotRepository) AttachBooking(ctx context.Context, id, bookingID string) error {
	return r.update(ctx, "attach booking", `active_booking_id = $2`, id, bookingID)
}

func (r *SlotRepository) UpdateTelemetry(ctx context.Context, id string, temperature float64, status domain.TempStatus) error {
	return r.update(ctx, "update telemetry", `temperature = $2, temp_status = $3`, id, temperature, status)
}

// Create inserts a new AVAILABLE slot and returns its id.
func (r *SlotRepository) Create(ctx context.Context, name string, targetTemp float64) (string, error) {
	const stmt = `
INSERT INTO slots (name, status, temperature, target_temp, temp_status)
VALUES ($1, 'AVAILABLE', $2, $2, 'NORMAL')
ON CONFLICT (name) DO NOTHING
RETURNING id`

	var id string
	if err := r.queryRow(ctx, stmt, name, targetTemp).Scan(&id); err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("create slot %s: %w", name, err)
	}
	return id, nil
}

func (r *SlotRepository) update(ctx context.Context, op, set string, id string, args ...any) error {
	stmt := `UPDATE slots SET ` + set + `, version = version + 1, updated_at = NOW() WHERE id = $1`
	tag, err := r.exec(ctx, stmt, append([]any{id}, args...)...)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrSlotNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSlotNotFound
	}
	return nil
}

func collectSlots(rows pgx.Rows) ([]domain.Slot, error) {
	defer rows.Close()

	var out []domain.Slot
	for rows.Next() {
		var (
			s domain.Slot

			holdID, holdHolder, holdStatus *string
			holdExpires, holdCreated       *time.Time

			bookingID, bookingHolder, bookingHold, manifest, priority, vaccine, batch *string
			quantity                                                                 *int
			confirmedAt, releasedAt                                                  *time.Time
		)
		err := rows.Scan(
			&s.ID, &s.Name, &s.Status, &s.Temperature, &s.TargetTemp, &s.TempStatus, &s.LastMaintenance,
			&s.ActiveHoldID, &s.ActiveBookingID, &s.Version,
			&holdID, &holdHolder, &holdStatus, &holdExpires, &holdCreated,
			&bookingID, &bookingHolder, &bookingHold, &manifest, &priority, &vaccine, &batch,
			&quantity, &confirmedAt, &releasedAt,
		)
		if err != nil {
			return nil, err
		}
		if holdID != nil {
			s.ActiveHold = &domain.Hold{
				ID:        *holdID,
				SlotID:    s.ID,
				HolderID:  *holdHolder,
				Status:    domain.HoldStatus(*holdStatus),
				ExpiresAt: *holdExpires,
				CreatedAt: *holdCreated,
			}
		}
		if bookingID != nil {
			s.ActiveBooking = &domain.Booking{
				ID:          *bookingID,
				SlotID:      s.ID,
				HolderID:    *bookingHolder,
				HoldID:      *bookingHold,
				ManifestID:  *manifest,
				Priority:    domain.Priority(*priority),
				VaccineType: *vaccine,
				BatchNumber: *batch,
				Quantity:    quantity,
				ConfirmedAt: *confirmedAt,
				ReleasedAt:  releasedAt,
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
