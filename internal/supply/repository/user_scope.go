package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"
	"github.com/medflow/medflow-supply/pkg/database"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

// UserScopeRepository caches the supply line restriction of each user, fed
// by user service events.
type UserScopeRepository struct {
	db *database.DB
}

// NewUserScopeRepository creates a new user scope repository
func NewUserScopeRepository(db *database.DB) *UserScopeRepository {
	return &UserScopeRepository{db: db}
}

// Set stores the user's line categories. nil stores "no restriction".
// TENANT-ISOLATED: Uses tenant ID from context for RLS
func (r *UserScopeRepository) Set(ctx context.Context, userID string, categories []int) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	var arr pq.Int64Array
	if categories != nil {
		arr = make(pq.Int64Array, len(categories))
		for i, c := range categories {
			arr[i] = int64(c)
		}
	}

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO user_scope_cache (user_id, tenant_id, line_categories, updated_at)
			VALUES ($1, $2, $3, NOW())
			ON CONFLICT (user_id)
			DO UPDATE SET line_categories = $3, updated_at = NOW()`

		_, err := r.db.ExecContext(ctx, query, userID, tenantID, arr)
		return err
	})
	return dbError(err)
}

// Get returns the cached line categories. found is false when the user is
// not cached; categories is nil when the user has no restriction.
// TENANT-ISOLATED: Uses tenant ID from context for RLS
func (r *UserScopeRepository) Get(ctx context.Context, userID string) (categories []int, found bool, err error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, false, err
	}

	var arr pq.Int64Array
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT line_categories FROM user_scope_cache WHERE user_id = $1`
		return r.db.GetContext(ctx, &arr, query, userID)
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if arr != nil {
		categories = make([]int, len(arr))
		for i, c := range arr {
			categories[i] = int(c)
		}
	}
	return categories, true, nil
}

// Delete removes the cached scope of a user.
// TENANT-ISOLATED: Uses tenant ID from context for RLS
func (r *UserScopeRepository) Delete(ctx context.Context, userID string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM user_scope_cache WHERE user_id = $1`, userID)
		return err
	})
}
