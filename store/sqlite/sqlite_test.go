package sqlite_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contractor-payments/marketplace"
	"github.com/warp/contractor-payments/seed"
	"github.com/warp/contractor-payments/store/sqlite"
	"github.com/warp/contractor-payments/store/sqlstore"
)

func newSeededStore(t *testing.T, path string) *sqlstore.Store {
	t.Helper()
	store, err := sqlite.New(path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, seed.LoadDefault(context.Background(), store))
	return store
}

func TestNew_MigratesIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketplace.db")

	first, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, second.Close())
}

func TestStore_RoundTripsMoneyAndTime(t *testing.T) {
	store := newSeededStore(t, ":memory:")
	ctx := context.Background()

	p, err := store.GetProfile(ctx, 2)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("231.11").Equal(p.Balance))
	assert.Equal(t, marketplace.ProfileClient, p.Type)

	job, err := store.GetJob(ctx, 14)
	require.NoError(t, err)
	assert.True(t, job.Paid)
	require.NotNil(t, job.PaymentDate)
	assert.True(t, time.Date(2020, 8, 14, 23, 11, 26, 737000000, time.UTC).Equal(*job.PaymentDate))

	unpaid, err := store.GetJob(ctx, 1)
	require.NoError(t, err)
	assert.False(t, unpaid.Paid)
	assert.Nil(t, unpaid.PaymentDate)
}

func TestStore_NotFound(t *testing.T) {
	store := newSeededStore(t, ":memory:")
	ctx := context.Background()

	_, err := store.GetProfile(ctx, 100)
	require.ErrorIs(t, err, marketplace.ErrNotFound)

	_, err = store.GetContract(ctx, 100)
	require.ErrorIs(t, err, marketplace.ErrNotFound)

	_, err = store.GetJob(ctx, 100)
	require.ErrorIs(t, err, marketplace.ErrNotFound)
}

func TestStore_RejectsNegativeBalance(t *testing.T) {
	store := newSeededStore(t, ":memory:")

	err := store.WithTx(context.Background(), func(tx marketplace.Tx) error {
		return tx.SetBalance(context.Background(), 1, decimal.RequireFromString("-1"))
	})

	require.ErrorIs(t, err, marketplace.ErrStoreFailure)
	p, err := store.GetProfile(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1150").Equal(p.Balance))
}

func TestStore_RollsBackOnError(t *testing.T) {
	store := newSeededStore(t, ":memory:")
	ctx := context.Background()

	err := store.WithTx(ctx, func(tx marketplace.Tx) error {
		if err := tx.SetBalance(ctx, 1, decimal.RequireFromString("1")); err != nil {
			return err
		}
		return marketplace.ErrForbidden
	})

	require.ErrorIs(t, err, marketplace.ErrForbidden)
	p, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("1150").Equal(p.Balance))
}

func TestStore_FileDatabaseSerializesPayments(t *testing.T) {
	// GIVEN: a file database shared by several pool connections
	store := newSeededStore(t, filepath.Join(t.TempDir(), "marketplace.db"))
	svc := marketplace.NewService(store)
	ctx := context.Background()

	client, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)

	// WHEN: the same job is paid from several goroutines
	const attempts = 6
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.PayJob(ctx, 2, client)
		}(i)
	}
	wg.Wait()

	// THEN: exactly one debit
	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, marketplace.ErrAlreadyPaid)
		}
	}
	assert.Equal(t, 1, ok)

	p, err := store.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("949").Equal(p.Balance))
}
