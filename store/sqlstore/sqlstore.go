/*
Package sqlstore implements marketplace.Store on top of sqlx.

PURPOSE:
  One set of queries serves both SQLite and Postgres. Queries are written
  with '?' placeholders and rebound by sqlx for the driver in use. The only
  other dialect differences are the row-lock clause and how timestamps are
  bound, both carried by Dialect.

KEY TABLES:
  profiles:  id, first_name, last_name, profession, type, balance
  contracts: id, terms, status, client_id, contractor_id
  jobs:      id, contract_id, description, price, paid, payment_date

LOCKING:
  Postgres: every Lock* query ends in FOR UPDATE.
  SQLite:   no row locks exist; the sqlite package opens connections with
            _txlock=immediate so BEGIN takes the database write lock.

ERRORS:
  sql.ErrNoRows becomes marketplace.ErrNotFound. Everything else unexpected
  is wrapped with marketplace.StoreError.

SEE ALSO:
  - store/sqlite: SQLite dialect, schema, constructor
  - store/postgres: Postgres dialect, schema, constructor
*/
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/warp/contractor-payments/marketplace"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name string

	// LockClause is appended to row-locking selects, e.g. " FOR UPDATE".
	LockClause string

	// BindTime converts a timestamp to a driver argument.
	BindTime func(time.Time) any
}

// TimeLayout is used where timestamps are stored as text. Fixed width so
// lexical order matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// TextTime formats t in UTC with TimeLayout.
func TextTime(t time.Time) any { return t.UTC().Format(TimeLayout) }

// Store implements marketplace.Store.
type Store struct {
	db      *sqlx.DB
	dialect Dialect
}

var _ marketplace.Store = (*Store)(nil)

// New wraps an open database.
func New(db *sqlx.DB, dialect Dialect) *Store {
	if dialect.BindTime == nil {
		dialect.BindTime = func(t time.Time) any { return t.UTC() }
	}
	return &Store{db: db, dialect: dialect}
}

func (s *Store) DB() *sqlx.DB { return s.db }

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate executes schema statements in order.
func (s *Store) Migrate(ctx context.Context, statements []string) error {
	for i, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}

// Reset deletes all rows, children first.
func (s *Store) Reset(ctx context.Context) error {
	for _, table := range []string{"jobs", "contracts", "profiles"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// =============================================================================
// ROW TYPES
// =============================================================================

const profileColumns = "id, first_name, last_name, profession, type, balance"
const contractColumns = "id, terms, status, client_id, contractor_id"
const jobColumns = "id, contract_id, description, price, paid, payment_date"

// =============================================================================
// READER (marketplace.Reader)
// =============================================================================

// GetProfile loads one profile.
func (s *Store) GetProfile(ctx context.Context, id marketplace.ProfileID) (marketplace.Profile, error) {
	return getProfile(ctx, s.db, id, "")
}

// GetContract loads one contract regardless of status.
func (s *Store) GetContract(ctx context.Context, id marketplace.ContractID) (marketplace.Contract, error) {
	return getContract(ctx, s.db, id, "")
}

// ListActiveContracts returns non-terminated contracts of either party.
func (s *Store) ListActiveContracts(ctx context.Context, profileID marketplace.ProfileID) ([]marketplace.Contract, error) {
	query := s.db.Rebind(`
		SELECT ` + contractColumns + `
		FROM contracts
		WHERE (client_id = ? OR contractor_id = ?)
		  AND status <> 'terminated'
		ORDER BY id
	`)

	var rows []contractRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, profileID, profileID); err != nil {
		return nil, marketplace.StoreError("list contracts", err)
	}

	contracts := make([]marketplace.Contract, len(rows))
	for i, r := range rows {
		contracts[i] = r.toDomain()
	}
	return contracts, nil
}

// ListUnpaidJobs returns unpaid jobs on the profile's active contracts.
func (s *Store) ListUnpaidJobs(ctx context.Context, profileID marketplace.ProfileID) ([]marketplace.Job, error) {
	query := s.db.Rebind(`
		SELECT j.id, j.contract_id, j.description, j.price, j.paid, j.payment_date
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE (c.client_id = ? OR c.contractor_id = ?)
		  AND c.status <> 'terminated'
		  AND (j.paid IS NULL OR j.paid = FALSE)
		ORDER BY j.id
	`)

	var rows []jobRow
	if err := sqlx.SelectContext(ctx, s.db, &rows, query, profileID, profileID); err != nil {
		return nil, marketplace.StoreError("list unpaid jobs", err)
	}
	return jobsToDomain(rows)
}

// ListPaidJobs returns paid jobs on active contracts within the range.
func (s *Store) ListPaidJobs(ctx context.Context, r marketplace.DateRange) ([]marketplace.PaidJob, error) {
	query := s.db.Rebind(`
		SELECT j.id AS job_id, j.price, j.payment_date,
		       cl.id AS client_id, cl.first_name AS client_first_name,
		       cl.last_name AS client_last_name, cl.profession AS client_profession,
		       co.id AS contractor_id, co.first_name AS contractor_first_name,
		       co.last_name AS contractor_last_name, co.profession AS contractor_profession
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		JOIN profiles cl ON cl.id = c.client_id
		JOIN profiles co ON co.id = c.contractor_id
		WHERE j.paid = TRUE
		  AND c.status <> 'terminated'
		  AND j.payment_date >= ? AND j.payment_date <= ?
		ORDER BY j.id
	`)

	var rows []paidJobRow
	err := sqlx.SelectContext(ctx, s.db, &rows, query,
		s.dialect.BindTime(r.Start), s.dialect.BindTime(r.End))
	if err != nil {
		return nil, marketplace.StoreError("list paid jobs", err)
	}

	jobs := make([]marketplace.PaidJob, 0, len(rows))
	for _, row := range rows {
		j, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// =============================================================================
// TRANSACTIONAL STORE (marketplace.Tx)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(marketplace.Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return marketplace.StoreError("begin transaction", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return marketplace.StoreError("commit transaction", err)
	}
	return nil
}

type txStore struct {
	tx      *sqlx.Tx
	dialect Dialect
}

func (ts *txStore) LockJob(ctx context.Context, id marketplace.JobID) (marketplace.Job, marketplace.Contract, error) {
	query := ts.tx.Rebind(`SELECT ` + jobColumns + ` FROM jobs WHERE id = ?` + ts.dialect.LockClause)

	var row jobRow
	if err := sqlx.GetContext(ctx, ts.tx, &row, query, id); err != nil {
		return marketplace.Job{}, marketplace.Contract{}, notFoundOr("lock job", err)
	}
	job, err := row.toDomain()
	if err != nil {
		return marketplace.Job{}, marketplace.Contract{}, err
	}

	contract, err := getContract(ctx, ts.tx, job.ContractID, ts.dialect.LockClause)
	if err != nil {
		return marketplace.Job{}, marketplace.Contract{}, err
	}
	return job, contract, nil
}

func (ts *txStore) LockProfiles(ctx context.Context, ids ...marketplace.ProfileID) (map[marketplace.ProfileID]marketplace.Profile, error) {
	profiles := make(map[marketplace.ProfileID]marketplace.Profile, len(ids))
	for _, id := range lockOrder(ids) {
		p, err := getProfile(ctx, ts.tx, id, ts.dialect.LockClause)
		if err != nil {
			return nil, err
		}
		profiles[id] = p
	}
	return profiles, nil
}

func (ts *txStore) SumUnpaidForClient(ctx context.Context, clientID marketplace.ProfileID) (decimal.Decimal, error) {
	query := ts.tx.Rebind(`
		SELECT j.price
		FROM jobs j
		JOIN contracts c ON c.id = j.contract_id
		WHERE c.client_id = ?
		  AND c.status <> 'terminated'
		  AND (j.paid IS NULL OR j.paid = FALSE)
	`)

	var prices []decimal.Decimal
	if err := sqlx.SelectContext(ctx, ts.tx, &prices, query, clientID); err != nil {
		return decimal.Zero, marketplace.StoreError("sum unpaid jobs", err)
	}

	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(p)
	}
	return total, nil
}

func (ts *txStore) SetBalance(ctx context.Context, id marketplace.ProfileID, balance decimal.Decimal) error {
	query := ts.tx.Rebind(`UPDATE profiles SET balance = ? WHERE id = ?`)
	res, err := ts.tx.ExecContext(ctx, query, balance, id)
	if err != nil {
		return marketplace.StoreError("update balance", err)
	}
	return expectOneRow(res, "update balance", marketplace.ErrNotFound)
}

func (ts *txStore) MarkJobPaid(ctx context.Context, id marketplace.JobID, at time.Time) error {
	query := ts.tx.Rebind(`
		UPDATE jobs SET paid = TRUE, payment_date = ?
		WHERE id = ? AND (paid IS NULL OR paid = FALSE)
	`)
	res, err := ts.tx.ExecContext(ctx, query, ts.dialect.BindTime(at), id)
	if err != nil {
		return marketplace.StoreError("mark job paid", err)
	}
	return expectOneRow(res, "mark job paid", marketplace.ErrAlreadyPaid)
}

// =============================================================================
// SHARED QUERIES
// =============================================================================

func getProfile(ctx context.Context, q sqlx.QueryerContext, id marketplace.ProfileID, lock string) (marketplace.Profile, error) {
	query := sqlx.Rebind(bindTypeOf(q), `SELECT `+profileColumns+` FROM profiles WHERE id = ?`+lock)

	var row profileRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return marketplace.Profile{}, notFoundOr("get profile", err)
	}
	return row.toDomain(), nil
}

func getContract(ctx context.Context, q sqlx.QueryerContext, id marketplace.ContractID, lock string) (marketplace.Contract, error) {
	query := sqlx.Rebind(bindTypeOf(q), `SELECT `+contractColumns+` FROM contracts WHERE id = ?`+lock)

	var row contractRow
	if err := sqlx.GetContext(ctx, q, &row, query, id); err != nil {
		return marketplace.Contract{}, notFoundOr("get contract", err)
	}
	return row.toDomain(), nil
}

// bindTypeOf resolves the placeholder style of a *sqlx.DB or *sqlx.Tx.
func bindTypeOf(q sqlx.QueryerContext) int {
	if b, ok := q.(interface{ DriverName() string }); ok {
		return sqlx.BindType(b.DriverName())
	}
	return sqlx.QUESTION
}

// lockOrder sorts and dedupes ids so concurrent transactions always lock
// profiles in the same order.
func lockOrder(ids []marketplace.ProfileID) []marketplace.ProfileID {
	out := make([]marketplace.ProfileID, 0, len(ids))
	seen := make(map[marketplace.ProfileID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return marketplace.ErrNotFound
	}
	return marketplace.StoreError(op, err)
}

func expectOneRow(res sql.Result, op string, zeroErr error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return marketplace.StoreError(op, err)
	}
	if n == 0 {
		return zeroErr
	}
	return nil
}
