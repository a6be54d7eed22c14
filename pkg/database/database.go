package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/medflow/medflow-supply/pkg/config"
	"github.com/medflow/medflow-supply/pkg/logger"
)

// DB wraps sqlx.DB. Query helpers run inside the transaction carried by the
// context when one was opened by WithTenantRLS.
type DB struct {
	*sqlx.DB
	logger     *logger.Logger
	searchPath string
}

// Option customises a DB.
type Option func(*DB)

// WithSearchPath sets the schema search path applied inside tenant transactions.
func WithSearchPath(path string) Option {
	return func(db *DB) { db.searchPath = path }
}

// New opens a pooled connection using the database configuration.
func New(cfg *config.DatabaseConfig, log *logger.Logger, opts ...Option) (*DB, error) {
	conn, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return Wrap(conn, log, opts...), nil
}

// Wrap adapts an existing sqlx connection, typically a sqlmock one.
func Wrap(conn *sqlx.DB, log *logger.Logger, opts ...Option) *DB {
	if log == nil {
		log = logger.Nop()
	}
	db := &DB{DB: conn, logger: log, searchPath: "supply, public"}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Health returns the health status of the database
func (db *DB) Health(ctx context.Context) map[string]string {
	status := map[string]string{"status": "up"}

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		status["status"] = "down"
		status["error"] = err.Error()
	}
	return status
}

// Transaction executes fn within a transaction, rolling back on error.
func (db *DB) Transaction(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetContext runs a single-row query, inside the context transaction if any.
func (db *DB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	if tx := txFrom(ctx); tx != nil {
		return tx.GetContext(ctx, dest, query, args...)
	}
	return db.DB.GetContext(ctx, dest, query, args...)
}

// SelectContext runs a multi-row query, inside the context transaction if any.
func (db *DB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	if tx := txFrom(ctx); tx != nil {
		return tx.SelectContext(ctx, dest, query, args...)
	}
	return db.DB.SelectContext(ctx, dest, query, args...)
}

// ExecContext runs a statement, inside the context transaction if any.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx := txFrom(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return db.DB.ExecContext(ctx, query, args...)
}
