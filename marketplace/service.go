/*
service.go - Marketplace service construction

PURPOSE:
  Service is the single entry point for the ledger, the reports and the
  query layer. It is built once in cmd/server over a Store and configured
  with functional options:

    WithLogger               zerolog logger for ledger outcomes
    WithClock                time source for payment dates (tests)
    WithDepositLimitRatio    deposit cap as a multiple of unpaid jobs
    WithObserver             ledger outcome sink (metrics package)

SEE ALSO:
  - ledger.go: PayJob, DepositFunds
  - reports.go: BestProfession, BestClients
  - queries.go: contract and job lookups
*/
package marketplace

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultDepositLimitRatio caps a deposit at 125% of the client's unpaid jobs.
var DefaultDepositLimitRatio = decimal.RequireFromString("1.25")

// Observer receives ledger outcomes. The metrics package implements it.
type Observer interface {
	ObservePayment(outcome string, amount decimal.Decimal)
	ObserveDeposit(outcome string, amount decimal.Decimal)
}

type nopObserver struct{}

func (nopObserver) ObservePayment(string, decimal.Decimal) {}
func (nopObserver) ObserveDeposit(string, decimal.Decimal) {}

// Service exposes the ledger, the report aggregator and the query layer over
// one Store. It holds no mutable state of its own and is safe for concurrent
// use.
type Service struct {
	store        Store
	log          zerolog.Logger
	now          func() time.Time
	depositRatio decimal.Decimal
	observer     Observer
}

type Option func(*Service)

func WithLogger(log zerolog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithClock overrides the time source used for payment dates.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithDepositLimitRatio(ratio decimal.Decimal) Option {
	return func(s *Service) {
		if ratio.IsPositive() {
			s.depositRatio = ratio
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:        store,
		log:          zerolog.Nop(),
		now:          func() time.Time { return time.Now().UTC() },
		depositRatio: DefaultDepositLimitRatio,
		observer:     nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
