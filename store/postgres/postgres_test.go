package postgres_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contractor-payments/marketplace"
	"github.com/warp/contractor-payments/store/postgres"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var paidAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newMockService(t *testing.T) (*marketplace.Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := postgres.Wrap(sqlx.NewDb(db, postgres.DriverName))
	svc := marketplace.NewService(store, marketplace.WithClock(func() time.Time { return paidAt }))
	return svc, mock
}

func q(sql string) string { return regexp.QuoteMeta(sql) }

var (
	jobCols      = []string{"id", "contract_id", "description", "price", "paid", "payment_date"}
	contractCols = []string{"id", "terms", "status", "client_id", "contractor_id"}
	profileCols  = []string{"id", "first_name", "last_name", "profession", "type", "balance"}
)

func expectLockJob(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(q("FROM jobs WHERE id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(jobCols).AddRow(2, 2, "work", "201.00", nil, nil))
	mock.ExpectQuery(q("FROM contracts WHERE id = $1 FOR UPDATE")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(contractCols).AddRow(2, "bla bla bla", "in_progress", 1, 6))
}

func expectLockProfiles(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(q("FROM profiles WHERE id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(1, "Harry", "Potter", "Wizard", "client", "1150.00"))
	mock.ExpectQuery(q("FROM profiles WHERE id = $1 FOR UPDATE")).
		WithArgs(6).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(6, "Linus", "Torvalds", "Programmer", "contractor", "1214.00"))
}

// =============================================================================
// PAY JOB
// =============================================================================

func TestPayJob_LocksRowsAndCommits(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	expectLockJob(mock)
	expectLockProfiles(mock)
	mock.ExpectExec(q("UPDATE profiles SET balance = $1 WHERE id = $2")).
		WithArgs("949", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE profiles SET balance = $1 WHERE id = $2")).
		WithArgs("1415", 6).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE jobs SET paid = TRUE, payment_date = $1")).
		WithArgs(paidAt, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	job, err := svc.PayJob(context.Background(), 2, marketplace.Profile{ID: 1, Type: marketplace.ProfileClient})

	require.NoError(t, err)
	assert.True(t, job.Paid)
	assert.True(t, decimal.RequireFromString("201").Equal(job.Price))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayJob_RollsBackWhenUpdateFails(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	expectLockJob(mock)
	expectLockProfiles(mock)
	mock.ExpectExec(q("UPDATE profiles SET balance = $1 WHERE id = $2")).
		WithArgs("949", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE profiles SET balance = $1 WHERE id = $2")).
		WithArgs("1415", 6).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.PayJob(context.Background(), 2, marketplace.Profile{ID: 1})

	require.ErrorIs(t, err, marketplace.ErrStoreFailure)
	assert.False(t, marketplace.IsClientError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayJob_RacedPaymentRollsBack(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	expectLockJob(mock)
	expectLockProfiles(mock)
	mock.ExpectExec(q("UPDATE profiles SET balance")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE profiles SET balance")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE jobs SET paid = TRUE")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.PayJob(context.Background(), 2, marketplace.Profile{ID: 1})

	require.ErrorIs(t, err, marketplace.ErrAlreadyPaid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPayJob_MissingJob(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM jobs WHERE id = $1 FOR UPDATE")).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(jobCols))
	mock.ExpectRollback()

	_, err := svc.PayJob(context.Background(), 99, marketplace.Profile{ID: 1})

	require.ErrorIs(t, err, marketplace.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// DEPOSIT
// =============================================================================

func TestDepositFunds_LocksProfileAndSumsUnpaid(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM profiles WHERE id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(1, "Harry", "Potter", "Wizard", "client", "1150.00"))
	mock.ExpectQuery(q("SELECT j.price")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("201.00"))
	mock.ExpectExec(q("UPDATE profiles SET balance = $1 WHERE id = $2")).
		WithArgs("1401.25", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := svc.DepositFunds(context.Background(), 1, decimal.RequireFromString("251.25"))

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1401.25").Equal(p.Balance))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDepositFunds_OverLimitRollsBack(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectBegin()
	mock.ExpectQuery(q("FROM profiles WHERE id = $1 FOR UPDATE")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows(profileCols).AddRow(1, "Harry", "Potter", "Wizard", "client", "1150.00"))
	mock.ExpectQuery(q("SELECT j.price")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"price"}).AddRow("100.00").AddRow("60.00"))
	mock.ExpectRollback()

	_, err := svc.DepositFunds(context.Background(), 1, decimal.RequireFromString("200.01"))

	require.ErrorIs(t, err, marketplace.ErrLimitExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// READS
// =============================================================================

func TestListPaidJobs_BindsTimestamps(t *testing.T) {
	svc, mock := newMockService(t)

	start := time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2020, 8, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(q("j.payment_date >= $1 AND j.payment_date <= $2")).
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows([]string{
			"job_id", "price", "payment_date",
			"client_id", "client_first_name", "client_last_name", "client_profession",
			"contractor_id", "contractor_first_name", "contractor_last_name", "contractor_profession",
		}).AddRow(7, "200.00", "2020-08-15T19:11:26.737Z", 1, "Harry", "Potter", "Wizard", 6, "Linus", "Torvalds", "Programmer"))

	best, found, err := svc.BestProfession(context.Background(), marketplace.DateRange{Start: start, End: end})

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Programmer", best.Profession)
	require.NoError(t, mock.ExpectationsWereMet())
}
