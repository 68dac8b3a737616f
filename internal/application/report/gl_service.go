package report

import (
	"context"
	"fmt"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/report"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// FormatGLRequest is a General Ledger result set to render.
// CompanyCurrency is read from the company when omitted.
type FormatGLRequest struct {
	Company         string            `json:"company"`
	CompanyCurrency string            `json:"company_currency"`
	Columns         []report.GLColumn `json:"columns" binding:"required"`
	Rows            []report.GLRow    `json:"rows"`
}

// FormatGLResponse holds the formatted money cells per row
type FormatGLResponse struct {
	CompanyCurrency string              `json:"company_currency"`
	CurrencyColumns []string            `json:"currency_columns"`
	Rows            []map[string]string `json:"rows"`
}

// GLService formats General Ledger money columns
type GLService struct {
	directory cheque.Directory
	logger    *zap.Logger
}

// NewGLService creates a new GLService
func NewGLService(directory cheque.Directory, logger *zap.Logger) *GLService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GLService{directory: directory, logger: logger}
}

// Format renders every currency column of the request
func (s *GLService) Format(ctx context.Context, req FormatGLRequest) (*FormatGLResponse, error) {
	companyCurrency := valueobject.Currency(req.CompanyCurrency)
	if companyCurrency.IsZero() {
		if req.Company == "" {
			return nil, fmt.Errorf("company or company_currency is required: %w", shared.ErrInvalidInput)
		}
		defaults, err := s.directory.CompanyDefaults(ctx, req.Company)
		if err != nil {
			s.logger.Warn("Could not load company currency", zap.String("company", req.Company), zap.Error(err))
			return nil, err
		}
		companyCurrency = defaults.DefaultCurrency
	}

	f := report.NewGLCurrencyFormatter(companyCurrency)
	return &FormatGLResponse{
		CompanyCurrency: companyCurrency.String(),
		CurrencyColumns: report.CurrencyColumns(req.Columns),
		Rows:            f.FormatRows(req.Columns, req.Rows),
	}, nil
}
