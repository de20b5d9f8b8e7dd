/*
Package marketplace holds the payment and reporting logic of the contractor
marketplace.

PURPOSE:
  Clients hire contractors through contracts. Contracts contain jobs. A job is
  paid by moving its price from the client's balance to the contractor's
  balance. This package owns every rule about those balances and about which
  contracts and jobs a profile can see.

KEY CONCEPTS IN THIS FILE (types.go):
  - Profile:  a client or contractor holding a single mutable balance
  - Contract: agreement between one client and one contractor
  - Job:      billable unit of work under a contract
  - DateRange: inclusive [Start, End] window used by reports

MONEY:
  All amounts are decimal.Decimal. Floats never touch a balance.

SEE ALSO:
  - ledger.go:  PayJob, DepositFunds (transactional)
  - reports.go: BestProfession, BestClients
  - queries.go: contract and job listings scoped to a caller
  - store.go:   persistence interfaces
*/
package marketplace

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProfileID int64
type ContractID int64
type JobID int64

// =============================================================================
// PROFILE
// =============================================================================

type ProfileType string

const (
	ProfileClient     ProfileType = "client"
	ProfileContractor ProfileType = "contractor"
)

// Profile is a user account. Balance is only mutated by the ledger.
type Profile struct {
	ID         ProfileID
	FirstName  string
	LastName   string
	Profession string
	Type       ProfileType
	Balance    decimal.Decimal
}

// FullName joins first and last name the way reports display it.
func (p Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

func (p Profile) IsClient() bool { return p.Type == ProfileClient }

// =============================================================================
// CONTRACT
// =============================================================================

type ContractStatus string

const (
	ContractNew        ContractStatus = "new"
	ContractInProgress ContractStatus = "in_progress"
	ContractTerminated ContractStatus = "terminated"
)

type Contract struct {
	ID           ContractID
	Terms        string
	Status       ContractStatus
	ClientID     ProfileID
	ContractorID ProfileID
}

// Active reports whether jobs under the contract can still be listed or paid.
func (c Contract) Active() bool { return c.Status != ContractTerminated }

// Involves reports whether the profile is either party of the contract.
func (c Contract) Involves(id ProfileID) bool {
	return c.ClientID == id || c.ContractorID == id
}

// =============================================================================
// JOB
// =============================================================================

// Job is unpaid until Paid is true. A NULL paid column and false both load as
// Paid=false.
type Job struct {
	ID          JobID
	ContractID  ContractID
	Description string
	Price       decimal.Decimal
	Paid        bool
	PaymentDate *time.Time
}

// =============================================================================
// REPORTING TYPES
// =============================================================================

// DateRange is inclusive on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() {
		return invalidInput("start and end are required")
	}
	if r.End.Before(r.Start) {
		return invalidInput("end must not be before start")
	}
	return nil
}

// Contains reports whether t falls within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// PaidJob is one paid job in a reporting window, flattened with both parties.
type PaidJob struct {
	JobID       JobID
	Price       decimal.Decimal
	PaymentDate time.Time
	Client      Profile
	Contractor  Profile
}

// ProfessionTotal is the sum of paid prices for one contractor profession.
// FullName names the contractor who earned the most within it.
type ProfessionTotal struct {
	Profession string
	FullName   string
	TotalPaid  decimal.Decimal
}

// ClientTotal is the sum of paid prices for one client.
type ClientTotal struct {
	ClientID  ProfileID
	FullName  string
	TotalPaid decimal.Decimal
}
