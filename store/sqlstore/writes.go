package sqlstore

import (
	"context"
	"fmt"

	"github.com/warp/contractor-payments/marketplace"
)

// =============================================================================
// FIXTURE WRITES
//
// Profiles, contracts and jobs are created by the seed loader and by tests.
// Balances and payment state are only changed through marketplace.Tx.
// =============================================================================

// SaveProfile inserts a profile with an explicit id.
func (s *Store) SaveProfile(ctx context.Context, p marketplace.Profile) error {
	query := s.db.Rebind(`
		INSERT INTO profiles (id, first_name, last_name, profession, type, balance)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Profession, string(p.Type), p.Balance)
	if err != nil {
		return fmt.Errorf("failed to save profile %d: %w", p.ID, err)
	}
	return nil
}

// SaveContract inserts a contract with an explicit id.
func (s *Store) SaveContract(ctx context.Context, c marketplace.Contract) error {
	query := s.db.Rebind(`
		INSERT INTO contracts (id, terms, status, client_id, contractor_id)
		VALUES (?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Terms, string(c.Status), c.ClientID, c.ContractorID)
	if err != nil {
		return fmt.Errorf("failed to save contract %d: %w", c.ID, err)
	}
	return nil
}

// SaveJob inserts a job with an explicit id. An unpaid job is stored with a
// NULL paid column, matching rows created before payment existed.
func (s *Store) SaveJob(ctx context.Context, j marketplace.Job) error {
	var paid, paymentDate any
	if j.Paid {
		paid = true
	}
	if j.PaymentDate != nil {
		paymentDate = s.dialect.BindTime(*j.PaymentDate)
	}

	query := s.db.Rebind(`
		INSERT INTO jobs (id, contract_id, description, price, paid, payment_date)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query,
		j.ID, j.ContractID, j.Description, j.Price, paid, paymentDate)
	if err != nil {
		return fmt.Errorf("failed to save job %d: %w", j.ID, err)
	}
	return nil
}

// GetJob loads one job. Not part of marketplace.Reader; used by tests and
// the seed command to verify state.
func (s *Store) GetJob(ctx context.Context, id marketplace.JobID) (marketplace.Job, error) {
	query := s.db.Rebind(`SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`)

	var row jobRow
	if err := s.db.GetContext(ctx, &row, query, id); err != nil {
		return marketplace.Job{}, notFoundOr("get job", err)
	}
	return row.toDomain()
}
