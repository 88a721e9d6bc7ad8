package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// RunInTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func RunInTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
