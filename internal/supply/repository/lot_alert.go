package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/medflow/medflow-supply/pkg/database"
	"github.com/medflow/medflow-supply/pkg/tenant"
)

// LotAlert is an announced lot state. A lot is announced at most once per state.
type LotAlert struct {
	ID             string    `db:"id" json:"id"`
	LotID          string    `db:"lot_id" json:"lot_id"`
	State          string    `db:"state" json:"state"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	ReturnDeadline time.Time `db:"return_deadline" json:"return_deadline"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// LotAlertRepository handles announced alert persistence
type LotAlertRepository struct {
	db *database.DB
}

// NewLotAlertRepository creates a new lot alert repository
func NewLotAlertRepository(db *database.DB) *LotAlertRepository {
	return &LotAlertRepository{db: db}
}

// Exists reports whether the lot was already announced in the given state.
// TENANT-ISOLATED: Uses tenant ID from context for RLS
func (r *LotAlertRepository) Exists(ctx context.Context, lotID, state string) (bool, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return false, err
	}

	var exists bool
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `SELECT EXISTS(SELECT 1 FROM lot_alerts WHERE lot_id = $1 AND state = $2)`
		return r.db.GetContext(ctx, &exists, query, lotID, state)
	})
	return exists, err
}

// Create stores the alert. created is false when another scan stored the
// same lot and state first.
// TENANT-ISOLATED: Uses tenant ID from context for RLS
func (r *LotAlertRepository) Create(ctx context.Context, alert *LotAlert) (created bool, err error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return false, err
	}
	if alert.ID == "" {
		alert.ID = uuid.NewString()
	}

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO lot_alerts (id, tenant_id, lot_id, state, expiration_date, return_deadline)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (lot_id, state) DO NOTHING`

		res, err := r.db.ExecContext(ctx, query,
			alert.ID, tenantID, alert.LotID, alert.State, alert.ExpirationDate, alert.ReturnDeadline)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		created = n > 0
		return err
	})
	return created, dbError(err)
}
