/*
Package postgres provides the Postgres-backed marketplace store.

Connections go through pgx's database/sql adapter so the queries in
sqlstore run unchanged; sqlx rebinds '?' to $n for the "pgx" driver.
Row-locking selects end in FOR UPDATE, and profiles are locked in id order
to keep concurrent payments from deadlocking.
*/
package postgres

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/warp/contractor-payments/store/sqlstore"
)

// DriverName is the database/sql driver registered by pgx/v5/stdlib.
const DriverName = "pgx"

var Dialect = sqlstore.Dialect{
	Name:       "postgres",
	LockClause: " FOR UPDATE",
	BindTime:   func(t time.Time) any { return t.UTC() },
}

var Schema = []string{
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'profile_type') THEN
			CREATE TYPE profile_type AS ENUM ('client', 'contractor');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'contract_status') THEN
			CREATE TYPE contract_status AS ENUM ('new', 'in_progress', 'terminated');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id BIGSERIAL PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		profession TEXT NOT NULL,
		type profile_type NOT NULL,
		balance NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (balance >= 0)
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id BIGSERIAL PRIMARY KEY,
		terms TEXT NOT NULL DEFAULT '',
		status contract_status NOT NULL,
		client_id BIGINT NOT NULL REFERENCES profiles(id),
		contractor_id BIGINT NOT NULL REFERENCES profiles(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts (client_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_contractor ON contracts (contractor_id);`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id BIGSERIAL PRIMARY KEY,
		contract_id BIGINT NOT NULL REFERENCES contracts(id),
		description TEXT NOT NULL,
		price NUMERIC(12,2) NOT NULL CHECK (price > 0),
		paid BOOLEAN,
		payment_date TIMESTAMPTZ,
		CHECK (paid IS NOT TRUE OR payment_date IS NOT NULL)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_contract ON jobs (contract_id);`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_paid_date ON jobs (payment_date) WHERE paid;`,
}

// Options tune the connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New connects to dsn, pings, migrates and returns the store.
func New(ctx context.Context, dsn string, opts Options) (*sqlstore.Store, error) {
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	store := Wrap(db)
	if err := store.Migrate(ctx, Schema); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Wrap builds a store over an already open handle. The handle's driver name
// must make sqlx use $n placeholders.
func Wrap(db *sqlx.DB) *sqlstore.Store {
	return sqlstore.New(db, Dialect)
}
