// Package testutil provides testing utilities for the supply service:
// sqlmock helpers for the tenant RLS pattern, a PostgreSQL testcontainer
// with the supply schema, fixtures and HTTP helpers.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// NewPostgresContainer starts postgres:15-alpine and waits until it accepts
// connections.
func NewPostgresContainer(ctx context.Context) (*PostgresContainer, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		postgres.WithDatabase("medflow_supply_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{PostgresContainer: container, DSN: dsn}, nil
}

// Connect opens a sqlx connection and applies SupplyMigrations.
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	for i, stmt := range SupplyMigrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return db, nil
}

// SupplyMigrations returns the supply schema. Tenant tables carry a
// tenant_id column guarded by a row level security policy on
// app.current_tenant.
func SupplyMigrations() []string {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS public.tenants (
			id UUID PRIMARY KEY,
			slug VARCHAR(100) UNIQUE NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'active',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			deleted_at TIMESTAMPTZ
		)`,
		`CREATE SCHEMA IF NOT EXISTS supply`,
		`CREATE TABLE IF NOT EXISTS supply.records (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			period VARCHAR(20) NOT NULL,
			summary JSONB,
			coverage JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS supply.record_items (
			record_id UUID NOT NULL REFERENCES supply.records(id) ON DELETE CASCADE,
			tenant_id UUID NOT NULL,
			position INT NOT NULL,
			item_code INT NOT NULL,
			line_category INT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			warehouse_stock NUMERIC NOT NULL DEFAULT 0,
			kitchen_stock NUMERIC,
			monthly_consumption_rate NUMERIC NOT NULL DEFAULT 0,
			unit_price NUMERIC,
			estimated_value NUMERIC,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			PRIMARY KEY (record_id, item_code)
		)`,
		`CREATE TABLE IF NOT EXISTS supply.lots (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			item_code INT NOT NULL,
			lot_code VARCHAR(100),
			expiration_date VARCHAR(40),
			return_window_months INT
		)`,
		`CREATE TABLE IF NOT EXISTS supply.lot_alerts (
			id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			lot_id UUID NOT NULL REFERENCES supply.lots(id) ON DELETE CASCADE,
			state VARCHAR(20) NOT NULL,
			expiration_date DATE NOT NULL,
			return_deadline DATE NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (lot_id, state)
		)`,
		`CREATE TABLE IF NOT EXISTS supply.user_scope_cache (
			user_id UUID PRIMARY KEY,
			tenant_id UUID NOT NULL,
			line_categories INT[],
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, table := range []string{"records", "record_items", "lots", "lot_alerts", "user_scope_cache"} {
		stmts = append(stmts,
			fmt.Sprintf(`ALTER TABLE supply.%s ENABLE ROW LEVEL SECURITY`, table),
			fmt.Sprintf(`DROP POLICY IF EXISTS tenant_isolation ON supply.%s`, table),
			fmt.Sprintf(`CREATE POLICY tenant_isolation ON supply.%s
				USING (tenant_id = current_setting('app.current_tenant')::uuid)
				WITH CHECK (tenant_id = current_setting('app.current_tenant')::uuid)`, table),
		)
	}
	return stmts
}
