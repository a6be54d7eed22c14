package repository

import (
	"context"
	"time"

	"github.com/medflow/medflow-supply/internal/supply/domain"
	"github.com/medflow/medflow-supply/internal/supply/expiry"
	"github.com/medflow/medflow-supply/pkg/database"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

const lotsQuery = `
	SELECT id, item_code, lot_code, expiration_date, return_window_months
	FROM lots
	ORDER BY item_code, id`

// LotRow is a lot as stored. Legacy feeds write expiration dates as text in
// several layouts, so the raw value is kept until ToDomain parses it.
type LotRow struct {
	ID                 string  `db:"id"`
	ItemCode           int     `db:"item_code"`
	LotCode            *string `db:"lot_code"`
	ExpirationRaw      *string `db:"expiration_date"`
	ReturnWindowMonths *int    `db:"return_window_months"`
}

// ToDomain converts the row, reading the expiration date in loc. ok is false
// when a non-empty date could not be parsed; the lot is still returned
// without a date.
func (r LotRow) ToDomain(loc *time.Location) (lot domain.Lot, ok bool) {
	lot = domain.Lot{
		ID:                 r.ID,
		ItemCode:           r.ItemCode,
		LotCode:            r.LotCode,
		ReturnWindowMonths: r.ReturnWindowMonths,
	}
	if r.ExpirationRaw == nil || *r.ExpirationRaw == "" {
		return lot, true
	}
	lot.ExpirationDate = expiry.ParseDatePtr(r.ExpirationRaw, loc)
	return lot, lot.ExpirationDate != nil
}

// LotRepository reads lots
type LotRepository struct {
	db *database.DB
}

// NewLotRepository creates a new lot repository
func NewLotRepository(db *database.DB) *LotRepository {
	return &LotRepository{db: db}
}

// List returns every lot of the tenant.
// TENANT-ISOLATED: Uses tenant ID from context for RLS
func (r *LotRepository) List(ctx context.Context) ([]LotRow, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []LotRow
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		return r.db.SelectContext(ctx, &rows, lotsQuery)
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
