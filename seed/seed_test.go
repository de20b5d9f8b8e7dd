package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contractor-payments/marketplace"
	"github.com/warp/contractor-payments/seed"
	"github.com/warp/contractor-payments/store/sqlite"
)

func TestDefault_IsConsistent(t *testing.T) {
	d := seed.Default()

	require.Len(t, d.Profiles, 8)
	require.Len(t, d.Contracts, 9)
	require.Len(t, d.Jobs, 14)

	types := make(map[marketplace.ProfileID]marketplace.ProfileType)
	for _, p := range d.Profiles {
		types[p.ID] = p.Type
	}
	for _, c := range d.Contracts {
		assert.Equal(t, marketplace.ProfileClient, types[c.ClientID], "contract %d", c.ID)
		assert.Equal(t, marketplace.ProfileContractor, types[c.ContractorID], "contract %d", c.ID)
	}
	for _, j := range d.Jobs {
		assert.Equal(t, j.Paid, j.PaymentDate != nil, "job %d", j.ID)
	}
}

func TestLoadDefault_IsRepeatable(t *testing.T) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()

	require.NoError(t, seed.LoadDefault(ctx, store))
	require.NoError(t, seed.LoadDefault(ctx, store))

	p, err := store.GetProfile(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, "Linus Torvalds", p.FullName())

	c, err := store.GetContract(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, marketplace.ContractTerminated, c.Status)
}
