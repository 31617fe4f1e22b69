package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/themadjocker/cryo-vault-backend-api/internal/domain"
)

// ledgerAppendLockID keys the transaction-scoped advisory lock that
// serialises appends to the chain tail.
const ledgerAppendLockID int64 = 7_310_002

var errNoTx = errors.New("ledger tail lock requires a transaction")

// LedgerRepository persists the append-only audit chain.
type LedgerRepository struct {
	db
}

func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db{pool: pool}}
}

const ledgerColumns = `seq, id, booking_id, slot_id, manifest_id, holder_id, previous_hash, data_hash, nonce, action, slot_name, timestamp`

// LockTail takes the append lock; it is released when the transaction ends.
func (r *LedgerRepository) LockTail(ctx context.Context) error {
	if txFromContext(ctx) == nil {
		return errNoTx
	}
	if _, err := r.exec(ctx, `SELECT pg_advisory_xact_lock($1)`, ledgerAppendLockID); err != nil {
		return fmt.Errorf("lock ledger tail: %w", err)
	}
	return nil
}

func (r *LedgerRepository) Tail(ctx context.Context) (*domain.LedgerEntry, error) {
	e, err := scanEntry(r.queryRow(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries ORDER BY seq DESC LIMIT 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ledger tail: %w", err)
	}
	return &e, nil
}

// Insert stores entry and returns its sequence number. A second entry on the
// same previous hash yields ErrLedgerTailConflict.
func (r *LedgerRepository) Insert(ctx context.Context, e domain.LedgerEntry) (int64, error) {
	const stmt = `
INSERT INTO ledger_entries (id, booking_id, slot_id, manifest_id, holder_id, previous_hash, data_hash, nonce, action, slot_name, timestamp)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING seq`

	var seq int64
	err := r.queryRow(ctx, stmt,
		e.ID,
		e.BookingID,
		e.SlotID,
		e.ManifestID,
		e.HolderID,
		e.PreviousHash,
		e.DataHash,
		e.Nonce,
		e.Action,
		e.SlotName,
		e.Timestamp,
	).Scan(&seq)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, domain.ErrLedgerTailConflict
		}
		return 0, fmt.Errorf("insert ledger entry: %w", err)
	}
	return seq, nil
}

// ListAll returns the chain oldest first.
func (r *LedgerRepository) ListAll(ctx context.Context) ([]domain.LedgerEntry, error) {
	return r.list(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries ORDER BY seq`)
}

// ListRecent returns up to limit entries, newest first.
func (r *LedgerRepository) ListRecent(ctx context.Context, limit int) ([]domain.LedgerEntry, error) {
	return r.list(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries ORDER BY seq DESC LIMIT $1`, limit)
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerEntry, error) {
		return scanEntry(row)
	})
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	return entries, nil
}

func scanEntry(row pgx.Row) (domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := row.Scan(
		&e.Seq, &e.ID, &e.BookingID, &e.SlotID, &e.ManifestID, &e.HolderID,
		&e.PreviousHash, &e.DataHash, &e.Nonce, &e.Action, &e.SlotName, &e.Timestamp,
	)
	if err != nil {
		return domain.LedgerEntry{}, err
	}
	e.Timestamp = e.Timestamp.UTC()
	return e, nil
}
