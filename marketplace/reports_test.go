package marketplace_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contractor-payments/marketplace"
)

func august2020() marketplace.DateRange {
	return marketplace.DateRange{
		Start: time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 8, 31, 23, 59, 59, 0, time.UTC),
	}
}

func TestBestProfession(t *testing.T) {
	svc, _ := newTestService(t)

	// Paid jobs on active contracts in August: Programmer 2683, Fighter 200.
	// Within Programmer, Alan Turing earned 2020 and Linus Torvalds 663.
	best, found, err := svc.BestProfession(context.Background(), august2020())

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Programmer", best.Profession)
	assert.Equal(t, "Alan Turing", best.FullName)
	assert.True(t, dec("2683").Equal(best.TotalPaid))
}

func TestBestProfession_SingleJobInRange(t *testing.T) {
	svc, _ := newTestService(t)

	// only job 10 (Fighter, 200) was paid on 2020-08-17 on an active contract
	rng := marketplace.DateRange{
		Start: time.Date(2020, 8, 17, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 8, 17, 23, 59, 59, 0, time.UTC),
	}
	best, found, err := svc.BestProfession(context.Background(), rng)

	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Fighter", best.Profession)
	assert.True(t, dec("200").Equal(best.TotalPaid))
}

func TestBestProfession_EmptyRange(t *testing.T) {
	svc, _ := newTestService(t)

	rng := marketplace.DateRange{
		Start: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	_, found, err := svc.BestProfession(context.Background(), rng)

	require.NoError(t, err)
	assert.False(t, found)
}

func TestBestProfession_InclusiveBounds(t *testing.T) {
	svc, _ := newTestService(t)

	// job 14 was paid at exactly 2020-08-14T23:11:26.737Z
	at := time.Date(2020, 8, 14, 23, 11, 26, 737000000, time.UTC)
	best, found, err := svc.BestProfession(context.Background(), marketplace.DateRange{Start: at, End: at})

	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, dec("121").Equal(best.TotalPaid))
}

func TestBestClients(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	t.Run("default limit", func(t *testing.T) {
		totals, err := svc.BestClients(ctx, august2020(), 0)
		require.NoError(t, err)
		require.Len(t, totals, 2)

		assert.Equal(t, marketplace.ProfileID(4), totals[0].ClientID)
		assert.Equal(t, "Ash Kethcum", totals[0].FullName)
		assert.True(t, dec("2020").Equal(totals[0].TotalPaid))

		assert.Equal(t, marketplace.ProfileID(2), totals[1].ClientID)
		assert.True(t, dec("442").Equal(totals[1].TotalPaid))
	})

	t.Run("larger limit", func(t *testing.T) {
		totals, err := svc.BestClients(ctx, august2020(), 10)
		require.NoError(t, err)
		require.Len(t, totals, 4)

		ids := make([]marketplace.ProfileID, len(totals))
		for i, c := range totals {
			ids[i] = c.ClientID
		}
		assert.Equal(t, []marketplace.ProfileID{4, 2, 1, 3}, ids)
	})

	t.Run("negative limit", func(t *testing.T) {
		_, err := svc.BestClients(ctx, august2020(), -1)
		require.ErrorIs(t, err, marketplace.ErrInvalidInput)
	})

	t.Run("empty range", func(t *testing.T) {
		rng := marketplace.DateRange{
			Start: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2030, 1, 2, 0, 0, 0, 0, time.UTC),
		}
		totals, err := svc.BestClients(ctx, rng, 0)
		require.NoError(t, err)
		assert.NotNil(t, totals)
		assert.Empty(t, totals)
	})
}

func TestReports_RejectInvalidRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	backwards := marketplace.DateRange{
		Start: time.Date(2020, 9, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 8, 1, 0, 0, 0, 0, time.UTC),
	}

	_, _, err := svc.BestProfession(ctx, backwards)
	require.ErrorIs(t, err, marketplace.ErrInvalidInput)

	_, err = svc.BestClients(ctx, marketplace.DateRange{}, 2)
	require.ErrorIs(t, err, marketplace.ErrInvalidInput)
}

func TestReports_PaymentsShowUpInRange(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// job 3 (202, Programmer) paid by client 2 at fixedNow
	_, err := svc.PayJob(ctx, 3, profile(t, store, 2))
	require.NoError(t, err)

	rng := marketplace.DateRange{Start: fixedNow.Add(-time.Hour), End: fixedNow.Add(time.Hour)}
	totals, err := svc.BestClients(ctx, rng, 0)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.Equal(t, marketplace.ProfileID(2), totals[0].ClientID)
	assert.True(t, dec("202").Equal(totals[0].TotalPaid))
}

// =============================================================================
// AGGREGATION TIE-BREAKS
// =============================================================================

func paidJob(price string, client marketplace.Profile, contractor marketplace.Profile) marketplace.PaidJob {
	return marketplace.PaidJob{Price: dec(price), Client: client, Contractor: contractor}
}

func TestSumByProfession_TiesOrderByName(t *testing.T) {
	client := marketplace.Profile{ID: 1}
	jobs := []marketplace.PaidJob{
		paidJob("50", client, marketplace.Profile{ID: 10, Profession: "Welder"}),
		paidJob("50", client, marketplace.Profile{ID: 11, Profession: "Carpenter"}),
		paidJob("20", client, marketplace.Profile{ID: 12, Profession: "Baker"}),
		paidJob("30", client, marketplace.Profile{ID: 12, Profession: "Baker"}),
	}

	totals := marketplace.SumByProfession(jobs)

	require.Len(t, totals, 3)
	assert.Equal(t, "Baker", totals[0].Profession)
	assert.Equal(t, "Carpenter", totals[1].Profession)
	assert.Equal(t, "Welder", totals[2].Profession)
}

func TestSumByProfession_NamesTopContractor(t *testing.T) {
	client := marketplace.Profile{ID: 1}
	ann := marketplace.Profile{ID: 4, FirstName: "Ann", LastName: "Lee", Profession: "Dev"}
	bo := marketplace.Profile{ID: 2, FirstName: "Bo", LastName: "Ng", Profession: "Dev"}
	cy := marketplace.Profile{ID: 3, FirstName: "Cy", LastName: "Ro", Profession: "Ops"}
	jobs := []marketplace.PaidJob{
		paidJob("30", client, ann),
		paidJob("10", client, bo),
		paidJob("20", client, bo),
		paidJob("5", client, cy),
	}

	totals := marketplace.SumByProfession(jobs)

	require.Len(t, totals, 2)
	assert.Equal(t, "Dev", totals[0].Profession)
	// Ann and Bo both earned 30; the lower id wins
	assert.Equal(t, "Bo Ng", totals[0].FullName)
	assert.Equal(t, "Cy Ro", totals[1].FullName)
}

func TestSumByClient_TiesOrderByID(t *testing.T) {
	contractor := marketplace.Profile{ID: 9, Profession: "Dev"}
	a := marketplace.Profile{ID: 3, FirstName: "Ann", LastName: "Lee"}
	b := marketplace.Profile{ID: 1, FirstName: "Bo", LastName: "Ng"}
	jobs := []marketplace.PaidJob{
		paidJob("10.10", a, contractor),
		paidJob("0.20", a, contractor),
		paidJob("10.30", b, contractor),
	}

	totals := marketplace.SumByClient(jobs)

	require.Len(t, totals, 2)
	assert.Equal(t, marketplace.ProfileID(1), totals[0].ClientID)
	assert.Equal(t, "Bo Ng", totals[0].FullName)
	assert.Equal(t, marketplace.ProfileID(3), totals[1].ClientID)
	assert.True(t, dec("10.3").Equal(totals[1].TotalPaid))
}

func TestSumByClient_Empty(t *testing.T) {
	totals := marketplace.SumByClient(nil)
	assert.NotNil(t, totals)
	assert.Empty(t, totals)
	assert.Empty(t, marketplace.SumByProfession(nil))
}
