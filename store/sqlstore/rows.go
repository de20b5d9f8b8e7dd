// Row types mirror table columns for sqlx scanning and convert to
// marketplace types. Money scans straight into decimal.Decimal.

package sqlstore

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/contractor-payments/marketplace"
)

type profileRow struct {
	ID         int64           `db:"id"`
	FirstName  string          `db:"first_name"`
	LastName   string          `db:"last_name"`
	Profession string          `db:"profession"`
	Type       string          `db:"type"`
	Balance    decimal.Decimal `db:"balance"`
}

func (r profileRow) toDomain() marketplace.Profile {
	return marketplace.Profile{
		ID:         marketplace.ProfileID(r.ID),
		FirstName:  r.FirstName,
		LastName:   r.LastName,
		Profession: r.Profession,
		Type:       marketplace.ProfileType(r.Type),
		Balance:    r.Balance,
	}
}

type contractRow struct {
	ID           int64  `db:"id"`
	Terms        string `db:"terms"`
	Status       string `db:"status"`
	ClientID     int64  `db:"client_id"`
	ContractorID int64  `db:"contractor_id"`
}

func (r contractRow) toDomain() marketplace.Contract {
	return marketplace.Contract{
		ID:           marketplace.ContractID(r.ID),
		Terms:        r.Terms,
		Status:       marketplace.ContractStatus(r.Status),
		ClientID:     marketplace.ProfileID(r.ClientID),
		ContractorID: marketplace.ProfileID(r.ContractorID),
	}
}

// payment_date is scanned as text on both databases. database/sql formats a
// driver time.Time as RFC3339Nano when the destination is a string.
type jobRow struct {
	ID          int64           `db:"id"`
	ContractID  int64           `db:"contract_id"`
	Description string          `db:"description"`
	Price       decimal.Decimal `db:"price"`
	Paid        sql.NullBool    `db:"paid"`
	PaymentDate sql.NullString  `db:"payment_date"`
}

func (r jobRow) toDomain() (marketplace.Job, error) {
	job := marketplace.Job{
		ID:          marketplace.JobID(r.ID),
		ContractID:  marketplace.ContractID(r.ContractID),
		Description: r.Description,
		Price:       r.Price,
		Paid:        r.Paid.Valid && r.Paid.Bool,
	}
	if r.PaymentDate.Valid && r.PaymentDate.String != "" {
		t, err := parseTime(r.PaymentDate.String)
		if err != nil {
			return marketplace.Job{}, marketplace.StoreError("parse payment date", err)
		}
		job.PaymentDate = &t
	}
	return job, nil
}

func jobsToDomain(rows []jobRow) ([]marketplace.Job, error) {
	jobs := make([]marketplace.Job, 0, len(rows))
	for _, r := range rows {
		j, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

type paidJobRow struct {
	JobID       int64           `db:"job_id"`
	Price       decimal.Decimal `db:"price"`
	PaymentDate string          `db:"payment_date"`

	ClientID         int64  `db:"client_id"`
	ClientFirstName  string `db:"client_first_name"`
	ClientLastName   string `db:"client_last_name"`
	ClientProfession string `db:"client_profession"`

	ContractorID         int64  `db:"contractor_id"`
	ContractorFirstName  string `db:"contractor_first_name"`
	ContractorLastName   string `db:"contractor_last_name"`
	ContractorProfession string `db:"contractor_profession"`
}

func (r paidJobRow) toDomain() (marketplace.PaidJob, error) {
	at, err := parseTime(r.PaymentDate)
	if err != nil {
		return marketplace.PaidJob{}, marketplace.StoreError("parse payment date", err)
	}
	return marketplace.PaidJob{
		JobID:       marketplace.JobID(r.JobID),
		Price:       r.Price,
		PaymentDate: at,
		Client: marketplace.Profile{
			ID:         marketplace.ProfileID(r.ClientID),
			FirstName:  r.ClientFirstName,
			LastName:   r.ClientLastName,
			Profession: r.ClientProfession,
			Type:       marketplace.ProfileClient,
		},
		Contractor: marketplace.Profile{
			ID:         marketplace.ProfileID(r.ContractorID),
			FirstName:  r.ContractorFirstName,
			LastName:   r.ContractorLastName,
			Profession: r.ContractorProfession,
			Type:       marketplace.ProfileContractor,
		},
	}, nil
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, TimeLayout, "2006-01-02 15:04:05.999999999-07:00"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
