/*
store.go - Persistence interfaces for profiles, contracts and jobs

PURPOSE:
  Separates marketplace rules from SQL. The store package provides one
  implementation over sqlx with a SQLite and a Postgres dialect.

KEY INTERFACES:
  Reader: read-only lookups, listings and report scans
  Tx:     row-locking reads and writes available inside WithTx
  Store:  Reader plus WithTx

LOCKING CONTRACT:
  Every Lock* method must hold the returned rows until the transaction ends,
  so that two concurrent payments on one job cannot both see it unpaid.
  Postgres does this with SELECT ... FOR UPDATE. SQLite takes the database
  write lock when the transaction begins.

ATOMICITY:
  WithTx commits only if fn returns nil. Any error, including a business
  rejection, rolls back every write made through the Tx.

SEE ALSO:
  - store/sqlstore: implementation
  - ledger.go: the only caller of WithTx
*/
package marketplace

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Reader is the read-only side of the store.
type Reader interface {
	// GetProfile returns ErrNotFound if the profile does not exist.
	GetProfile(ctx context.Context, id ProfileID) (Profile, error)

	// GetContract returns ErrNotFound if the contract does not exist.
	// Terminated contracts are returned as well.
	GetContract(ctx context.Context, id ContractID) (Contract, error)

	// ListActiveContracts returns non-terminated contracts where the profile
	// is client or contractor, ordered by id.
	ListActiveContracts(ctx context.Context, profileID ProfileID) ([]Contract, error)

	// ListUnpaidJobs returns jobs with paid NULL or false on the profile's
	// non-terminated contracts, ordered by id.
	ListUnpaidJobs(ctx context.Context, profileID ProfileID) ([]Job, error)

	// ListPaidJobs returns paid jobs on non-terminated contracts whose
	// payment date falls within the inclusive range.
	ListPaidJobs(ctx context.Context, r DateRange) ([]PaidJob, error)
}

// Tx is the write side, valid only inside Store.WithTx.
type Tx interface {
	// LockJob locks the job and its contract. Returns ErrNotFound if the job
	// does not exist.
	LockJob(ctx context.Context, id JobID) (Job, Contract, error)

	// LockProfiles locks the given profiles in ascending id order.
	// Returns ErrNotFound if any of them is missing.
	LockProfiles(ctx context.Context, ids ...ProfileID) (map[ProfileID]Profile, error)

	// SumUnpaidForClient sums prices of unpaid jobs on the client's
	// non-terminated contracts. Zero when there are none.
	SumUnpaidForClient(ctx context.Context, clientID ProfileID) (decimal.Decimal, error)

	// SetBalance overwrites a locked profile's balance.
	SetBalance(ctx context.Context, id ProfileID, balance decimal.Decimal) error

	// MarkJobPaid flips an unpaid job to paid. Returns ErrAlreadyPaid if the
	// job was already paid.
	MarkJobPaid(ctx context.Context, id JobID, at time.Time) error
}

// Store combines reads with transactional writes.
type Store interface {
	Reader

	// WithTx runs fn in a single database transaction. If fn returns an
	// error the transaction is rolled back and that error is returned.
	WithTx(ctx context.Context, fn func(Tx) error) error
}
