/*
ledger.go - Balance ledger: job payments and client deposits

PURPOSE:
  The only code that mutates Profile.Balance or Job.Paid. Both operations run
  in one store transaction and hold row locks for its duration.

PAYMENT FLOW (PayJob):
  1. Lock job + contract
  2. Reject: missing or terminated (NotFound), caller not client (Forbidden),
     already paid (AlreadyPaid)
  3. Lock client and contractor profiles in id order
  4. Reject if the client's stored balance is below the price
  5. Debit client, credit contractor, mark job paid
  6. Commit

  The client's balance is always re-read under lock. The profile attached to
  the request was loaded before the transaction and may be stale.

DEPOSIT FLOW (DepositFunds):
  0. Reject non-positive amounts and sub-cent precision
  1. Lock the profile (must be a client)
  2. Sum unpaid jobs on its active contracts
  3. Reject if amount > ratio x unpaid total
  4. Increment balance
*/
package marketplace

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)

// PayJob pays the job on behalf of caller and returns the paid job.
func (s *Service) PayJob(ctx context.Context, jobID JobID, caller Profile) (Job, error) {
	var paid Job

	err := s.store.WithTx(ctx, func(tx Tx) error {
		job, contract, err := tx.LockJob(ctx, jobID)
		if err != nil {
			return err
		}
		if !contract.Active() {
			return ErrNotFound
		}
		if contract.ClientID != caller.ID {
			return ErrForbidden
		}
		if job.Paid {
			return ErrAlreadyPaid
		}

		profiles, err := tx.LockProfiles(ctx, contract.ClientID, contract.ContractorID)
		if err != nil {
			return err
		}
		client := profiles[contract.ClientID]
		contractor := profiles[contract.ContractorID]

		if client.Balance.LessThan(job.Price) {
			return &InsufficientFundsError{
				ProfileID: client.ID,
				JobID:     job.ID,
				Balance:   client.Balance,
				Price:     job.Price,
			}
		}

		if err := tx.SetBalance(ctx, client.ID, client.Balance.Sub(job.Price)); err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, contractor.ID, contractor.Balance.Add(job.Price)); err != nil {
			return err
		}

		at := s.now()
		if err := tx.MarkJobPaid(ctx, job.ID, at); err != nil {
			return err
		}

		job.Paid = true
		job.PaymentDate = &at
		paid = job
		return nil
	})

	if err != nil {
		s.observePayment(err, decimal.Zero)
		s.logOutcome(err).
			Int64("job_id", int64(jobID)).
			Int64("caller_id", int64(caller.ID)).
			Msg("job payment not applied")
		return Job{}, err
	}

	s.observer.ObservePayment(outcomeSuccess, paid.Price)
	s.log.Info().
		Int64("job_id", int64(paid.ID)).
		Int64("client_id", int64(caller.ID)).
		Str("price", paid.Price.String()).
		Msg("job paid")
	return paid, nil
}

// DepositFunds adds amount to a client's balance and returns the updated
// profile.
func (s *Service) DepositFunds(ctx context.Context, profileID ProfileID, amount decimal.Decimal) (Profile, error) {
	if !amount.IsPositive() {
		err := invalidInput("deposit amount must be positive")
		s.observer.ObserveDeposit(outcomeRejected, amount)
		return Profile{}, err
	}
	if !amount.Equal(amount.Round(2)) {
		err := invalidInput("amount must have at most two decimal places")
		s.observer.ObserveDeposit(outcomeRejected, amount)
		return Profile{}, err
	}

	var updated Profile

	err := s.store.WithTx(ctx, func(tx Tx) error {
		profiles, err := tx.LockProfiles(ctx, profileID)
		if err != nil {
			return err
		}
		profile := profiles[profileID]
		if !profile.IsClient() {
			return invalidInput("deposits are only accepted for client profiles")
		}

		totalUnpaid, err := tx.SumUnpaidForClient(ctx, profileID)
		if err != nil {
			return err
		}

		limit := totalUnpaid.Mul(s.depositRatio)
		if amount.GreaterThan(limit) {
			return &LimitExceededError{
				ProfileID:   profileID,
				Amount:      amount,
				TotalUnpaid: totalUnpaid,
				Limit:       limit,
			}
		}

		profile.Balance = profile.Balance.Add(amount)
		if err := tx.SetBalance(ctx, profileID, profile.Balance); err != nil {
			return err
		}
		updated = profile
		return nil
	})

	if err != nil {
		if IsClientError(err) || IsNotFound(err) {
			s.observer.ObserveDeposit(outcomeRejected, amount)
		} else {
			s.observer.ObserveDeposit(outcomeFailed, amount)
		}
		s.logOutcome(err).
			Int64("profile_id", int64(profileID)).
			Str("amount", amount.String()).
			Msg("deposit not applied")
		return Profile{}, err
	}

	s.observer.ObserveDeposit(outcomeSuccess, amount)
	s.log.Info().
		Int64("profile_id", int64(profileID)).
		Str("amount", amount.String()).
		Msg("deposit applied")
	return updated, nil
}

func (s *Service) observePayment(err error, amount decimal.Decimal) {
	switch {
	case IsClientError(err), IsNotFound(err), errors.Is(err, ErrForbidden):
		s.observer.ObservePayment(outcomeRejected, amount)
	default:
		s.observer.ObservePayment(outcomeFailed, amount)
	}
}

// logOutcome picks the level for a failed ledger call: business rejections
// are routine, anything else is a store problem.
func (s *Service) logOutcome(err error) *zerolog.Event {
	if IsClientError(err) || IsNotFound(err) || errors.Is(err, ErrForbidden) {
		return s.log.Warn().Err(err)
	}
	return s.log.Error().Err(err)
}
