// Package repository loads supply records, lots and user scopes from
// PostgreSQL. Every tenant table is read inside database.WithTenantRLS.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/pkg/database"
	"github.com/medflow/medflow-supply/pkg/errors"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

const (
	recordByIDQuery = `SELECT id, period, summary, coverage, created_at, updated_at FROM records WHERE id = $1`

	recordItemsQuery = `
		SELECT item_code, line_category, description, warehouse_stock, kitchen_stock,
		       monthly_consumption_rate, unit_price, estimated_value, active
		FROM record_items
		WHERE record_id = $1
		ORDER BY position`
)

type recordRow struct {
	ID        string             `db:"id"`
	Period    string             `db:"period"`
	Summary   types.NullJSONText `db:"summary"`
	Coverage  types.NullJSONText `db:"coverage"`
	CreatedAt time.Time          `db:"created_at"`
	UpdatedAt time.Time          `db:"updated_at"`
}

// RecordRepository reads supply records
type RecordRepository struct {
	db *database.DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *database.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// GetByID loads a record with its items in feed order.
// TENANT-ISOLATED: Uses tenant ID from context for RLS
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.SupplyRecord, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var row recordRow
	var items []domain.SupplyItem
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		if err := r.db.GetContext(ctx, &row, recordByIDQuery, id); err != nil {
			return err
		}
		return r.db.SelectContext(ctx, &items, recordItemsQuery, id)
	})
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NotFound("supply record")
		}
		return nil, err
	}

	if items == nil {
		items = []domain.SupplyItem{}
	}

	return &domain.SupplyRecord{
		ID:             row.ID,
		Period:         row.Period,
		Items:          items,
		StoredSummary:  rawJSON(row.Summary),
		StoredCoverage: rawJSON(row.Coverage),
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// dbError maps constraint and row level security violations to API errors.
func dbError(err error) error {
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

func rawJSON(t types.NullJSONText) json.RawMessage {
	if !t.Valid || len(t.JSONText) == 0 {
		return nil
	}
	return json.RawMessage(t.JSONText)
}
