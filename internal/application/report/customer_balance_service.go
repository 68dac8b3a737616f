package report

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/report"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const defaultBalanceConcurrency = 4

// CustomerBalanceRequest selects the posting date window and, optionally,
// the customers of the report
type CustomerBalanceRequest struct {
	FromDate  string   `form:"from_date" binding:"required"`
	ToDate    string   `form:"to_date" binding:"required"`
	Customers []string `form:"customer"`
}

// CustomerBalanceResponse is the report result set
type CustomerBalanceResponse struct {
	Columns []report.Column             `json:"columns"`
	Rows    []report.CustomerBalanceRow `json:"rows"`
}

// CustomerBalanceService builds the customer balance by cheque status report
type CustomerBalanceService struct {
	source      report.CustomerBalanceSource
	logger      *zap.Logger
	concurrency int
}

// NewCustomerBalanceService creates a new CustomerBalanceService
func NewCustomerBalanceService(source report.CustomerBalanceSource, logger *zap.Logger) *CustomerBalanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerBalanceService{source: source, logger: logger, concurrency: defaultBalanceConcurrency}
}

// CustomerBalanceByChequeStatus adds each customer's open cheques, per
// status, to their ledger balance over the window
func (s *CustomerBalanceService) CustomerBalanceByChequeStatus(ctx context.Context, req CustomerBalanceRequest) (*CustomerBalanceResponse, error) {
	filter, err := req.filter()
	if err != nil {
		return nil, err
	}

	customers, err := s.source.Customers(ctx, filter.Customers)
	if err != nil {
		return nil, err
	}
	payments, err := s.source.ChequePayments(ctx, filter)
	if err != nil {
		return nil, err
	}
	balances, err := s.balances(ctx, customers, filter)
	if err != nil {
		return nil, err
	}

	rows := report.BuildCustomerBalance(customers, balances, payments)
	s.logger.Debug("Customer balance report built",
		zap.Int("customers", len(rows)),
		zap.Int("cheques", len(payments)))
	return &CustomerBalanceResponse{Columns: report.CustomerBalanceColumns(), Rows: rows}, nil
}

// balances reads every customer's ledger balance, bounded by s.concurrency.
// The first failure is returned.
func (s *CustomerBalanceService) balances(ctx context.Context, customers []report.Customer, f report.CustomerBalanceFilter) (map[string]decimal.Decimal, error) {
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		firstErr error
	)
	out := make(map[string]decimal.Decimal, len(customers))
	sem := make(chan struct{}, s.concurrency)

	for _, c := range customers {
		wg.Add(1)
		go func(party string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			balance, err := s.source.PartyBalance(ctx, party, f.FromDate, f.ToDate)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[party] = balance
		}(c.Party)
	}
	wg.Wait()

	if firstErr != nil {
		s.logger.Warn("Could not read customer balances", zap.Error(firstErr))
		return nil, firstErr
	}
	return out, nil
}

func (r CustomerBalanceRequest) filter() (report.CustomerBalanceFilter, error) {
	from, err := time.Parse(currency.DateLayout, r.FromDate)
	if err != nil {
		return report.CustomerBalanceFilter{}, fmt.Errorf("from_date %q: %w", r.FromDate, shared.ErrInvalidInput)
	}
	to, err := time.Parse(currency.DateLayout, r.ToDate)
	if err != nil {
		return report.CustomerBalanceFilter{}, fmt.Errorf("to_date %q: %w", r.ToDate, shared.ErrInvalidInput)
	}
	f := report.CustomerBalanceFilter{FromDate: from, ToDate: to, Customers: r.Customers}
	if err := f.Validate(); err != nil {
		return report.CustomerBalanceFilter{}, err
	}
	return f, nil
}
