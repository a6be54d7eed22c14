package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Statements issued at the start of every tenant transaction. set_config
// with is_local=true behaves like SET LOCAL but accepts bind parameters.
const (
	setSearchPathSQL = "SELECT set_config('search_path', $1, true)"
	setTenantSQL     = "SELECT set_config('app.current_tenant', $1, true)"
)

// WithTenantRLS runs fn in a transaction scoped to one tenant. Row level
// security policies read app.current_tenant; both settings are dropped when
// the transaction ends, so pooled connections come back clean.
//
//	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
//	    return r.db.GetContext(ctx, &rec, "SELECT ... WHERE id = $1", id)
//	})
func (db *DB) WithTenantRLS(ctx context.Context, tenantID string, fn func(context.Context) error) error {
	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, setSearchPathSQL, db.searchPath); err != nil {
			return fmt.Errorf("failed to set search_path: %w", err)
		}
		if _, err := tx.ExecContext(ctx, setTenantSQL, tenantID); err != nil {
			return fmt.Errorf("failed to set tenant %s: %w", tenantID, err)
		}
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func txFrom(ctx context.Context) *sqlx.Tx {
	tx, _ := ctx.Value(txKey{}).(*sqlx.Tx)
	return tx
}
