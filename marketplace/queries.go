// Contract and job lookups scoped to the calling profile. Listings never
// include terminated contracts or their jobs.

package marketplace

import "context"

// GetProfile loads a profile by id. Used to resolve the calling profile.
func (s *Service) GetProfile(ctx context.Context, id ProfileID) (Profile, error) {
	return s.store.GetProfile(ctx, id)
}

// ListContracts returns the caller's non-terminated contracts, as client or
// contractor.
func (s *Service) ListContracts(ctx context.Context, callerID ProfileID) ([]Contract, error) {
	contracts, err := s.store.ListActiveContracts(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if contracts == nil {
		contracts = []Contract{}
	}
	return contracts, nil
}

// GetContract returns the contract only to its client. Contractors and
// strangers get ErrNotFound, not ErrForbidden, so existence is not leaked.
func (s *Service) GetContract(ctx context.Context, id ContractID, callerID ProfileID) (Contract, error) {
	c, err := s.store.GetContract(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if c.ClientID != callerID {
		return Contract{}, ErrNotFound
	}
	return c, nil
}

// ListUnpaidJobs returns unpaid jobs on the caller's non-terminated contracts.
func (s *Service) ListUnpaidJobs(ctx context.Context, callerID ProfileID) ([]Job, error) {
	jobs, err := s.store.ListUnpaidJobs(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []Job{}
	}
	return jobs, nil
}
