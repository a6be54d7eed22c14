package repository

import (
	"context"

	"github.com/medflow/medflow-supply/pkg/database"
)

// TenantRepository reads the shared tenant registry. It is not tenant
// scoped and is only used by background jobs.
type TenantRepository struct {
	db *database.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// ListActiveIDs returns the IDs of tenants that are active and not deleted.
func (r *TenantRepository) ListActiveIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT id FROM public.tenants WHERE status = 'active' AND deleted_at IS NULL ORDER BY id`
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}
