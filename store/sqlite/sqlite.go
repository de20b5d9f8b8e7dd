/*
Package sqlite provides the SQLite-backed marketplace store.

PURPOSE:
  Opens a SQLite database, applies the schema and returns a sqlstore.Store
  using the SQLite dialect. Used for local runs and for every test that
  needs a real database.

CONCURRENCY:
  SQLite has no row-level locks. Connections are opened with
  _txlock=immediate, so BEGIN takes the database write lock and a second
  payment on the same job waits until the first commits. _busy_timeout
  bounds that wait.

  ":memory:" databases are private to one connection, so the pool is capped
  at a single connection for them.

MONEY AND TIME:
  balance and price are TEXT decimal strings (exact, scanned into
  decimal.Decimal). payment_date is TEXT in sqlstore.TimeLayout so range
  filters compare correctly as strings.

USAGE:
  store, err := sqlite.New(":memory:")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - store/sqlstore: queries shared with Postgres
  - store/postgres: production dialect
*/
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/contractor-payments/store/sqlstore"
)

// Dialect is the SQLite flavour of sqlstore.
var Dialect = sqlstore.Dialect{
	Name:       "sqlite",
	LockClause: "",
	BindTime:   sqlstore.TextTime,
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id INTEGER PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		profession TEXT NOT NULL,
		type TEXT NOT NULL CHECK (type IN ('client', 'contractor')),
		balance TEXT NOT NULL DEFAULT '0' CHECK (CAST(balance AS REAL) >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id INTEGER PRIMARY KEY,
		terms TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL CHECK (status IN ('new', 'in_progress', 'terminated')),
		client_id INTEGER NOT NULL REFERENCES profiles(id),
		contractor_id INTEGER NOT NULL REFERENCES profiles(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_client ON contracts(client_id)`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_contractor ON contracts(contractor_id)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		id INTEGER PRIMARY KEY,
		contract_id INTEGER NOT NULL REFERENCES contracts(id),
		description TEXT NOT NULL,
		price TEXT NOT NULL CHECK (CAST(price AS REAL) > 0),
		paid BOOLEAN,
		payment_date TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_contract ON jobs(contract_id)`,
	`CREATE INDEX IF NOT EXISTS idx_jobs_payment_date ON jobs(payment_date) WHERE paid = TRUE`,
}

// New creates a SQLite store at dbPath and migrates it.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*sqlstore.Store, error) {
	db, err := sqlx.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if isMemory(dbPath) {
		db.SetMaxOpenConns(1)
	}

	store := sqlstore.New(db, Dialect)
	if err := store.Migrate(context.Background(), schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func dsn(dbPath string) string {
	params := "_foreign_keys=on&_txlock=immediate&_busy_timeout=5000"
	if !isMemory(dbPath) {
		params += "&_journal_mode=WAL"
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + params
}

func isMemory(dbPath string) bool {
	return strings.Contains(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory")
}
