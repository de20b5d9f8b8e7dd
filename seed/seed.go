/*
seed.go - Demo dataset loader

PURPOSE:
  Populates an empty store with the marketplace's reference dataset: four
  clients, four contractors, nine contracts and fourteen jobs. Handy for
  local runs and used by the API tests, which rely on its ids:

    contract 1: client 1 / contractor 5, terminated
    contract 7: client 4 / contractor 7, in progress

HOW IT WORKS:
  1. Reset the store (delete all rows)
  2. Insert profiles, contracts, jobs with fixed ids

NOTE:
  Reset wipes every table. Only use in development and tests.
*/
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/contractor-payments/marketplace"
)

// Writer is the subset of sqlstore.Store the loader needs.
type Writer interface {
	Reset(ctx context.Context) error
	SaveProfile(ctx context.Context, p marketplace.Profile) error
	SaveContract(ctx context.Context, c marketplace.Contract) error
	SaveJob(ctx context.Context, j marketplace.Job) error
}

// Dataset is a full set of fixtures.
type Dataset struct {
	Profiles  []marketplace.Profile
	Contracts []marketplace.Contract
	Jobs      []marketplace.Job
}

// Load resets the store and writes the dataset.
func Load(ctx context.Context, w Writer, d Dataset) error {
	if err := w.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	for _, p := range d.Profiles {
		if err := w.SaveProfile(ctx, p); err != nil {
			return err
		}
	}
	for _, c := range d.Contracts {
		if err := w.SaveContract(ctx, c); err != nil {
			return err
		}
	}
	for _, j := range d.Jobs {
		if err := w.SaveJob(ctx, j); err != nil {
			return err
		}
	}
	return nil
}

// LoadDefault loads Default().
func LoadDefault(ctx context.Context, w Writer) error {
	return Load(ctx, w, Default())
}

// Default returns the reference dataset.
func Default() Dataset {
	return Dataset{
		Profiles: []marketplace.Profile{
			client(1, "Harry", "Potter", "Wizard", "1150"),
			client(2, "Mr", "Robot", "Hacker", "231.11"),
			client(3, "John", "Snow", "Knows nothing", "451.3"),
			client(4, "Ash", "Kethcum", "Pokemon master", "1.3"),
			contractor(5, "John", "Lenon", "Musician", "64"),
			contractor(6, "Linus", "Torvalds", "Programmer", "1214"),
			contractor(7, "Alan", "Turing", "Programmer", "22"),
			contractor(8, "Aragorn", "II Elessar Telcontarion", "Fighter", "314"),
		},
		Contracts: []marketplace.Contract{
			contract(1, marketplace.ContractTerminated, 1, 5),
			contract(2, marketplace.ContractInProgress, 1, 6),
			contract(3, marketplace.ContractInProgress, 2, 6),
			contract(4, marketplace.ContractInProgress, 2, 7),
			contract(5, marketplace.ContractNew, 3, 8),
			contract(6, marketplace.ContractInProgress, 3, 7),
			contract(7, marketplace.ContractInProgress, 4, 7),
			contract(8, marketplace.ContractInProgress, 4, 6),
			contract(9, marketplace.ContractInProgress, 4, 8),
		},
		Jobs: []marketplace.Job{
			unpaid(1, 1, "200"),
			unpaid(2, 2, "201"),
			unpaid(3, 3, "202"),
			unpaid(4, 4, "200"),
			unpaid(5, 7, "200"),
			paid(6, 7, "2020", "2020-08-15T19:11:26.737Z"),
			paid(7, 2, "200", "2020-08-15T19:11:26.737Z"),
			paid(8, 3, "200", "2020-08-16T19:11:26.737Z"),
			paid(9, 1, "200", "2020-08-17T19:11:26.737Z"),
			paid(10, 5, "200", "2020-08-17T19:11:26.737Z"),
			paid(11, 1, "21", "2020-08-10T19:11:26.737Z"),
			paid(12, 2, "21", "2020-08-15T19:11:26.737Z"),
			paid(13, 3, "121", "2020-08-15T19:11:26.737Z"),
			paid(14, 3, "121", "2020-08-14T23:11:26.737Z"),
		},
	}
}

func client(id int64, first, last, profession, balance string) marketplace.Profile {
	return profile(id, first, last, profession, marketplace.ProfileClient, balance)
}

func contractor(id int64, first, last, profession, balance string) marketplace.Profile {
	return profile(id, first, last, profession, marketplace.ProfileContractor, balance)
}

func profile(id int64, first, last, profession string, t marketplace.ProfileType, balance string) marketplace.Profile {
	return marketplace.Profile{
		ID:         marketplace.ProfileID(id),
		FirstName:  first,
		LastName:   last,
		Profession: profession,
		Type:       t,
		Balance:    decimal.RequireFromString(balance),
	}
}

func contract(id int64, status marketplace.ContractStatus, clientID, contractorID int64) marketplace.Contract {
	return marketplace.Contract{
		ID:           marketplace.ContractID(id),
		Terms:        "bla bla bla",
		Status:       status,
		ClientID:     marketplace.ProfileID(clientID),
		ContractorID: marketplace.ProfileID(contractorID),
	}
}

func unpaid(id, contractID int64, price string) marketplace.Job {
	return marketplace.Job{
		ID:          marketplace.JobID(id),
		ContractID:  marketplace.ContractID(contractID),
		Description: "work",
		Price:       decimal.RequireFromString(price),
	}
}

func paid(id, contractID int64, price, at string) marketplace.Job {
	j := unpaid(id, contractID, price)
	t, err := time.Parse(time.RFC3339Nano, at)
	if err != nil {
		panic(fmt.Sprintf("seed: bad payment date %q: %v", at, err))
	}
	j.Paid = true
	j.PaymentDate = &t
	return j
}
