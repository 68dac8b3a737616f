package cheque

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RateLookup resolves exchange rates; satisfied by *currency.ExchangeRateLookup
type RateLookup interface {
	Lookup(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (decimal.Decimal, error)
}

// PlanKind tells the caller what is left after the local reconciliation steps
type PlanKind int

const (
	PlanNone   PlanKind = iota // A currency is unknown; nothing to do
	PlanDone                   // Resolved locally
	PlanLookup                 // A rate lookup is required
)

// RatePlan is the outcome of RateReconciler.Plan.
// For PlanLookup it carries everything needed to run the lookup without
// holding the row, and the revision the result must be applied against.
type RatePlan struct {
	Kind     PlanKind
	RowID    uuid.UUID
	RowIdx   int
	From     valueobject.Currency
	To       valueobject.Currency
	AsOf     time.Time
	Revision uint64
}

// NoticeLevel classifies a user-facing notice
type NoticeLevel string

const (
	NoticeWarning NoticeLevel = "warning"
	NoticeInfo    NoticeLevel = "info"
)

// Notice is a non-fatal message produced while cascading field changes
type Notice struct {
	Level   NoticeLevel `json:"level"`
	RowIdx  int         `json:"row_idx,omitempty"`
	Field   string      `json:"field,omitempty"`
	Message string      `json:"message"`
}

// CascadeScope suppresses cascading writes during one dispatch.
// It records the field that started the dispatch and every field written
// since, so that derived writes never bounce back into their source.
type CascadeScope struct {
	origin  string
	written map[string]struct{}
}

// NewCascadeScope starts a scope for an edit of origin
func NewCascadeScope(origin string) *CascadeScope {
	return &CascadeScope{origin: origin, written: make(map[string]struct{})}
}

// Origin returns the field that started the dispatch
func (s *CascadeScope) Origin() string {
	if s == nil {
		return ""
	}
	return s.origin
}

// CanWrite reports whether a derived write to field is allowed
func (s *CascadeScope) CanWrite(field string) bool {
	if s == nil {
		return true
	}
	if field == s.origin {
		return false
	}
	_, done := s.written[field]
	return !done
}

// MarkWritten records a write to field
func (s *CascadeScope) MarkWritten(field string) {
	if s == nil {
		return
	}
	s.written[field] = struct{}{}
}

// Written reports whether field was written during the dispatch
func (s *CascadeScope) Written(field string) bool {
	if s == nil {
		return false
	}
	_, ok := s.written[field]
	return ok
}

// RateReconciler keeps a row's rate, mirrors and company-currency amount consistent
type RateReconciler struct{}

// NewRateReconciler creates a RateReconciler
func NewRateReconciler() *RateReconciler {
	return &RateReconciler{}
}

// Plan applies the local reconciliation steps and reports whether a lookup is needed.
// The same-currency rule runs before the manual-override check, so a
// same-currency row is always at rate 1.
func (rc *RateReconciler) Plan(row *ChequeRow, dir PaymentType, postingDate time.Time, force bool) RatePlan {
	plan := RatePlan{RowID: row.ID, RowIdx: row.Idx, Revision: row.Revision()}

	if !row.CurrenciesKnown() {
		plan.Kind = PlanNone
		return plan
	}
	if row.SameCurrency() {
		rc.ApplySameCurrency(row)
		plan.Kind = PlanDone
		return plan
	}
	if !force && row.RateManuallySet {
		rc.RecomputeAmount(row)
		plan.Kind = PlanDone
		return plan
	}

	if postingDate.IsZero() {
		postingDate = time.Now()
	}
	plan.Kind = PlanLookup
	plan.From = row.BankCurrency(dir)
	plan.To = row.PartyCurrency(dir)
	plan.AsOf = currency.DateOnly(postingDate)
	return plan
}

// ApplySameCurrency sets rate 1, clears the mirrors and copies the amount
func (rc *RateReconciler) ApplySameCurrency(row *ChequeRow) {
	row.TargetExchangeRate = valueobject.One
	row.ExchangeRateMopToParty = decimal.NullDecimal{}
	row.ExchangeRatePartyToMop = decimal.NullDecimal{}
	row.AmountInCompanyCurrency = row.PaidAmount
}

// ApplyRate writes a looked-up rate and its mirrors onto the row
func (rc *RateReconciler) ApplyRate(row *ChequeRow, dir PaymentType, r decimal.Decimal) {
	row.TargetExchangeRate = r
	if row.ChequeCurrency.IsZero() {
		row.ChequeCurrency = row.BankCurrency(dir)
	}
	row.ExchangeRateMopToParty = decimal.NewNullDecimal(r)
	row.ExchangeRatePartyToMop = decimal.NewNullDecimal(valueobject.Reciprocal(r))
	rc.RecomputeAmount(row)
}

// ApplyNotFound zeroes the rate and returns the warning shown to the user
func (rc *RateReconciler) ApplyNotFound(row *ChequeRow, plan RatePlan) Notice {
	row.TargetExchangeRate = decimal.Zero
	row.ExchangeRateMopToParty = decimal.NullDecimal{}
	row.ExchangeRatePartyToMop = decimal.NullDecimal{}
	rc.RecomputeAmount(row)
	return Notice{
		Level:  NoticeWarning,
		RowIdx: row.Idx,
		Field:  FieldTargetExchangeRate,
		Message: fmt.Sprintf(
			"No Currency Exchange record found for %s → %s on or before %s. Please create one before proceeding.",
			plan.From, plan.To, plan.AsOf.Format(currency.DateLayout),
		),
	}
}

// ApplyLookupResult applies the outcome of a lookup started from plan.
// A not-found error becomes a notice; any other error is returned untouched.
func (rc *RateReconciler) ApplyLookupResult(row *ChequeRow, dir PaymentType, plan RatePlan, r decimal.Decimal, err error) (*Notice, error) {
	if err != nil {
		if errors.Is(err, currency.ErrRateNotFound) {
			n := rc.ApplyNotFound(row, plan)
			return &n, nil
		}
		return nil, err
	}
	rc.ApplyRate(row, dir, r)
	return nil, nil
}

// Reconcile runs the full reconciliation synchronously for a row the caller owns
func (rc *RateReconciler) Reconcile(ctx context.Context, lookup RateLookup, row *ChequeRow, dir PaymentType, postingDate time.Time, force bool) (*Notice, error) {
	plan := rc.Plan(row, dir, postingDate, force)
	if plan.Kind != PlanLookup {
		return nil, nil
	}
	r, err := lookup.Lookup(ctx, plan.From, plan.To, plan.AsOf)
	return rc.ApplyLookupResult(row, dir, plan, r, err)
}

// SetTargetExchangeRate records a manual rate edit
func (rc *RateReconciler) SetTargetExchangeRate(row *ChequeRow, v decimal.Decimal, syncMirrors bool, scope *CascadeScope) {
	if row.SameCurrency() {
		rc.ApplySameCurrency(row)
		return
	}

	row.TargetExchangeRate = v
	scope.MarkWritten(FieldTargetExchangeRate)
	row.RateManuallySet = true

	if syncMirrors {
		if v.IsPositive() {
			rc.writeMirror(row, FieldRateMopToParty, v, scope)
			rc.writeMirror(row, FieldRatePartyToMop, valueobject.Reciprocal(v), scope)
		} else {
			row.ExchangeRateMopToParty = decimal.NullDecimal{}
			row.ExchangeRatePartyToMop = decimal.NullDecimal{}
		}
	}

	rc.RecomputeAmount(row)
}

// SyncFromMirror handles a user edit of either mirror field.
// The other mirror becomes the reciprocal and target_exchange_rate follows
// exchange_rate_mop_to_party.
func (rc *RateReconciler) SyncFromMirror(row *ChequeRow, field string, value decimal.Decimal, scope *CascadeScope) error {
	if row.SameCurrency() {
		rc.ApplySameCurrency(row)
		return nil
	}

	var mopToParty decimal.Decimal
	switch field {
	case FieldRateMopToParty:
		row.ExchangeRateMopToParty = decimal.NewNullDecimal(value)
		scope.MarkWritten(field)
		rc.writeMirror(row, FieldRatePartyToMop, valueobject.Reciprocal(value), scope)
		mopToParty = value
	case FieldRatePartyToMop:
		row.ExchangeRatePartyToMop = decimal.NewNullDecimal(value)
		scope.MarkWritten(field)
		mopToParty = valueobject.Reciprocal(value)
		rc.writeMirror(row, FieldRateMopToParty, mopToParty, scope)
		if row.ExchangeRateMopToParty.Valid {
			mopToParty = row.ExchangeRateMopToParty.Decimal
		}
	default:
		return fmt.Errorf("%q is not an exchange rate mirror field", field)
	}

	if scope.CanWrite(FieldTargetExchangeRate) {
		row.TargetExchangeRate = mopToParty
		scope.MarkWritten(FieldTargetExchangeRate)
	}
	row.RateManuallySet = true
	rc.RecomputeAmount(row)
	return nil
}

// writeMirror stores v into a mirror unless the scope forbids it or the
// current value is already within tolerance
func (rc *RateReconciler) writeMirror(row *ChequeRow, field string, v decimal.Decimal, scope *CascadeScope) {
	if !scope.CanWrite(field) {
		return
	}
	target := &row.ExchangeRateMopToParty
	if field == FieldRatePartyToMop {
		target = &row.ExchangeRatePartyToMop
	}
	if target.Valid && valueobject.NearlyEqual(target.Decimal, v) {
		return
	}
	*target = decimal.NewNullDecimal(v)
	scope.MarkWritten(field)
}

// RecomputeAmount derives amount_in_company_currency from paid_amount and the rate
func (rc *RateReconciler) RecomputeAmount(row *ChequeRow) {
	if row.SameCurrency() {
		row.AmountInCompanyCurrency = row.PaidAmount
		return
	}
	if row.TargetExchangeRate.IsZero() {
		row.AmountInCompanyCurrency = decimal.Zero
		return
	}
	row.AmountInCompanyCurrency = row.PaidAmount.Mul(row.TargetExchangeRate)
}
