// Package sqlutil holds transaction helpers shared by the SQL-backed stores.
package sqlutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Beginner starts transactions. *sql.DB satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Run executes fn with queries bound to a new transaction. The transaction
// commits when fn returns nil and rolls back otherwise, including on panic.
func Run[T any](ctx context.Context, db Beginner, bind func(*sql.Tx) *T, fn func(q *T) error) error {
	return RunWith(ctx, db, nil, bind, fn)
}

// RunWith is Run with explicit transaction options.
func RunWith[T any](ctx context.Context, db Beginner, opts *sql.TxOptions, bind func(*sql.Tx) *T, fn func(q *T) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(bind(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback tx: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
