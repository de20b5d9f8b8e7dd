/*
reports.go - Paid-job aggregations for the admin endpoints

The store returns flat PaidJob rows for the range. Grouping, summing and
ordering happen here with decimal arithmetic so the tie-break rules are
explicit:

  BestProfession: highest total, ties by profession name ascending;
                  fullName is the profession's top-earning contractor
  BestClients:    total descending, ties by client id ascending
*/
package marketplace

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// DefaultBestClientsLimit is used when the caller gives no limit.
const DefaultBestClientsLimit = 2

// BestProfession returns the contractor profession that earned the most in
// the range. found is false when no job was paid in the range.
func (s *Service) BestProfession(ctx context.Context, r DateRange) (best ProfessionTotal, found bool, err error) {
	if err := r.Validate(); err != nil {
		return ProfessionTotal{}, false, err
	}

	jobs, err := s.store.ListPaidJobs(ctx, r)
	if err != nil {
		return ProfessionTotal{}, false, err
	}

	totals := SumByProfession(jobs)
	if len(totals) == 0 {
		return ProfessionTotal{}, false, nil
	}
	return totals[0], true, nil
}

// BestClients returns up to limit clients ordered by amount paid in the
// range. A limit of zero means DefaultBestClientsLimit.
func (s *Service) BestClients(ctx context.Context, r DateRange, limit int) ([]ClientTotal, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultBestClientsLimit
	}
	if limit < 0 {
		return nil, invalidInput("limit must be a positive integer")
	}

	jobs, err := s.store.ListPaidJobs(ctx, r)
	if err != nil {
		return nil, err
	}

	totals := SumByClient(jobs)
	if len(totals) > limit {
		totals = totals[:limit]
	}
	return totals, nil
}

// SumByProfession groups paid jobs by contractor profession, ordered by
// total descending then profession ascending. Each total carries the name
// of its top-earning contractor, ties going to the lower profile id.
func SumByProfession(jobs []PaidJob) []ProfessionTotal {
	sums := make(map[string]decimal.Decimal)
	earned := make(map[ProfileID]decimal.Decimal)
	contractors := make(map[ProfileID]Profile)
	for _, j := range jobs {
		p := j.Contractor.Profession
		sums[p] = sums[p].Add(j.Price)
		earned[j.Contractor.ID] = earned[j.Contractor.ID].Add(j.Price)
		contractors[j.Contractor.ID] = j.Contractor
	}

	top := make(map[string]ProfileID)
	for id, sum := range earned {
		p := contractors[id].Profession
		cur, ok := top[p]
		if !ok {
			top[p] = id
			continue
		}
		if c := sum.Cmp(earned[cur]); c > 0 || (c == 0 && id < cur) {
			top[p] = id
		}
	}

	totals := make([]ProfessionTotal, 0, len(sums))
	for p, sum := range sums {
		totals = append(totals, ProfessionTotal{
			Profession: p,
			FullName:   contractors[top[p]].FullName(),
			TotalPaid:  sum,
		})
	}
	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].TotalPaid.Cmp(totals[j].TotalPaid); c != 0 {
			return c > 0
		}
		return totals[i].Profession < totals[j].Profession
	})
	return totals
}

// SumByClient groups paid jobs by client, ordered by total descending then
// client id ascending.
func SumByClient(jobs []PaidJob) []ClientTotal {
	index := make(map[ProfileID]int)
	var totals []ClientTotal
	for _, j := range jobs {
		pos, ok := index[j.Client.ID]
		if !ok {
			totals = append(totals, ClientTotal{
				ClientID:  j.Client.ID,
				FullName:  j.Client.FullName(),
				TotalPaid: decimal.Zero,
			})
			pos = len(totals) - 1
			index[j.Client.ID] = pos
		}
		totals[pos].TotalPaid = totals[pos].TotalPaid.Add(j.Price)
	}

	sort.Slice(totals, func(i, j int) bool {
		if c := totals[i].TotalPaid.Cmp(totals[j].TotalPaid); c != 0 {
			return c > 0
		}
		return totals[i].ClientID < totals[j].ClientID
	})
	if totals == nil {
		totals = []ClientTotal{}
	}
	return totals
}
