/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication and decouples them from
  the marketplace types. Field names follow the marketplace's established
  public API (ClientId, ContractorId, ContractId, paymentDate, firstName),
  so existing clients keep working.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts are exact decimals internally and rendered as JSON numbers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/contractor-payments/marketplace"
)

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ProfileDTO represents a profile in API responses.
type ProfileDTO struct {
	ID         int64   `json:"id"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Profession string  `json:"profession"`
	Balance    float64 `json:"balance"`
	Type       string  `json:"type"`
}

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID           int64  `json:"id"`
	Terms        string `json:"terms"`
	Status       string `json:"status"`
	ClientID     int64  `json:"ClientId"`
	ContractorID int64  `json:"ContractorId"`
}

// JobDTO represents a job in API responses. Paid is false for never-paid
// jobs even when the stored column is NULL.
type JobDTO struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Paid        bool    `json:"paid"`
	PaymentDate *string `json:"paymentDate"`
	ContractID  int64   `json:"ContractId"`
}

// BestProfessionDTO is the top-earning profession for a period.
type BestProfessionDTO struct {
	Profession string  `json:"profession"`
	FullName   string  `json:"fullName"`
	Paid       float64 `json:"paid"`
}

// BestClientDTO is one entry of the best-paying clients list.
type BestClientDTO struct {
	ID       int64   `json:"id"`
	FullName string  `json:"fullName"`
	Paid     float64 `json:"paid"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// DepositRequest is the body of POST /balances/deposit/{userId}.
// amount accepts a JSON number or a decimal string.
type DepositRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toProfileDTO(p marketplace.Profile) ProfileDTO {
	return ProfileDTO{
		ID:         int64(p.ID),
		FirstName:  p.FirstName,
		LastName:   p.LastName,
		Profession: p.Profession,
		Balance:    p.Balance.InexactFloat64(),
		Type:       string(p.Type),
	}
}

func toContractDTO(c marketplace.Contract) ContractDTO {
	return ContractDTO{
		ID:           int64(c.ID),
		Terms:        c.Terms,
		Status:       string(c.Status),
		ClientID:     int64(c.ClientID),
		ContractorID: int64(c.ContractorID),
	}
}

func toContractDTOs(cs []marketplace.Contract) []ContractDTO {
	dtos := make([]ContractDTO, len(cs))
	for i, c := range cs {
		dtos[i] = toContractDTO(c)
	}
	return dtos
}

func toJobDTO(j marketplace.Job) JobDTO {
	dto := JobDTO{
		ID:          int64(j.ID),
		Description: j.Description,
		Price:       j.Price.InexactFloat64(),
		Paid:        j.Paid,
		ContractID:  int64(j.ContractID),
	}
	if j.PaymentDate != nil {
		s := j.PaymentDate.UTC().Format(time.RFC3339Nano)
		dto.PaymentDate = &s
	}
	return dto
}

func toJobDTOs(js []marketplace.Job) []JobDTO {
	dtos := make([]JobDTO, len(js))
	for i, j := range js {
		dtos[i] = toJobDTO(j)
	}
	return dtos
}

func toBestClientDTOs(totals []marketplace.ClientTotal) []BestClientDTO {
	dtos := make([]BestClientDTO, len(totals))
	for i, t := range totals {
		dtos[i] = BestClientDTO{
			ID:       int64(t.ClientID),
			FullName: t.FullName,
			Paid:     t.TotalPaid.InexactFloat64(),
		}
	}
	return dtos
}
