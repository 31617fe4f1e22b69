package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// withTx runs fn in a transaction carried by the returned context. Nested
// calls join the outer transaction, so repositories sharing a pool share it.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// db routes statements to the context's transaction when there is one.
type db struct {
	pool *pgxpool.Pool
}

func (d db) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, d.pool, fn)
}

func (d db) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return d.pool.Exec(ctx, sql, args...)
}

func (d db) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return d.pool.QueryRow(ctx, sql, args...)
}

func (d db) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return d.pool.Query(ctx, sql, args...)
}

func isUniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

func isForeignKeyViolation(err error) bool {
	return hasCode(err, "23503")
}

func isInvalidUUID(err error) bool {
	return hasCode(err, "22P02")
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// isNotFound treats a malformed id like a missing row.
func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err)
}
