package cheque

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// fieldHandler applies one field edit. It is called with the session lock
// held and must return with it held.
type fieldHandler func(d *dispatch) error

// rowRef addresses a row across lock releases
type rowRef struct {
	table cheque.Table
	id    uuid.UUID
	rev   uint64
}

// dispatch carries the state of one field edit through its cascade
type dispatch struct {
	svc       *EntryService
	ctx       context.Context
	sess      *session
	change    FieldChange
	scope     *cheque.CascadeScope
	ref       rowRef
	parentRev uint64
	notices   []cheque.Notice
}

func (s *EntryService) newDispatch(ctx context.Context, sess *session, ch FieldChange) *dispatch {
	return &dispatch{
		svc:    s,
		ctx:    ctx,
		sess:   sess,
		change: ch,
		scope:  cheque.NewCascadeScope(ch.Field),
	}
}

func (d *dispatch) entry() *cheque.ChequeEntry {
	return d.sess.entry
}

func (d *dispatch) value() string {
	return strings.TrimSpace(d.change.Value)
}

func (d *dispatch) dir() cheque.PaymentType {
	return d.ref.table.Direction()
}

// unlocked runs fn with the session lock released
func (d *dispatch) unlocked(fn func()) {
	d.sess.mu.Unlock()
	defer d.sess.mu.Lock()
	fn()
}

// row re-resolves the edited row; nil when it is gone or was edited again
func (d *dispatch) row() *cheque.ChequeRow {
	return d.resolve(d.ref)
}

// resolve also returns nil once the row is frozen by a running or finished
// submission.
func (d *dispatch) resolve(ref rowRef) *cheque.ChequeRow {
	e := d.entry()
	if e == nil || !e.IsDraft() || d.sess.busy != "" {
		return nil
	}
	row := e.Row(ref.table, ref.id)
	if row == nil {
		d.svc.logger.Debug("Discarding result for removed row",
			zap.String("entry", e.Name),
			zap.String("row_id", ref.id.String()),
			zap.String("field", d.change.Field))
		return nil
	}
	if row.IsProcessed() {
		return nil
	}
	if row.Revision() != ref.rev {
		d.svc.logger.Debug("Discarding stale result",
			zap.String("entry", e.Name),
			zap.Int("row_idx", row.Idx),
			zap.Uint64("expected_revision", ref.rev),
			zap.Uint64("current_revision", row.Revision()),
			zap.String("field", d.change.Field))
		return nil
	}
	return row
}

// parentStale reports whether a parent edit was superseded while unlocked
func (d *dispatch) parentStale() bool {
	e := d.entry()
	if e == nil || !e.IsDraft() || d.sess.busy != "" {
		return true
	}
	if d.sess.fieldRev[d.change.Field] != d.parentRev {
		d.svc.logger.Debug("Discarding superseded parent edit",
			zap.String("entry", e.Name),
			zap.String("field", d.change.Field))
		return true
	}
	return false
}

func (d *dispatch) notify(n cheque.Notice) {
	d.notices = append(d.notices, n)
	d.svc.metrics.RecordNotice(d.ctx, string(n.Level))
}

// warnRemote turns a failed remote read into a notice; the field stays unchanged
func (d *dispatch) warnRemote(rowIdx int, field, what string, err error) {
	d.svc.logger.Warn("Remote lookup failed during cascade",
		zap.String("field", field),
		zap.Int("row_idx", rowIdx),
		zap.String("what", what),
		zap.Error(err))
	d.notify(cheque.Notice{
		Level:   cheque.NoticeWarning,
		RowIdx:  rowIdx,
		Field:   field,
		Message: fmt.Sprintf("Could not load %s: %v", what, err),
	})
}

// bumpRow marks a row as edited by this dispatch and returns its reference
func (d *dispatch) bumpRow(table cheque.Table, row *cheque.ChequeRow) rowRef {
	return rowRef{table: table, id: row.ID, rev: row.BumpRevision()}
}

// activeRefs bumps every active row and returns references to them
func (d *dispatch) activeRefs(mutate func(row *cheque.ChequeRow)) []rowRef {
	e := d.entry()
	table := e.ActiveTable()
	refs := make([]rowRef, 0, len(e.ActiveRows()))
	for _, row := range e.ActiveRows() {
		if row.IsProcessed() {
			continue
		}
		if mutate != nil {
			mutate(row)
		}
		refs = append(refs, d.bumpRow(table, row))
	}
	return refs
}

// reconcile runs rate reconciliation for one row, releasing the lock for the lookup
func (d *dispatch) reconcile(ref rowRef, force bool) {
	row := d.resolve(ref)
	if row == nil {
		return
	}
	plan := d.svc.reconciler.Plan(row, ref.table.Direction(), d.entry().EffectivePostingDate(), force)
	if plan.Kind != cheque.PlanLookup {
		return
	}

	var (
		rate decimal.Decimal
		err  error
	)
	d.unlocked(func() {
		rate, err = d.svc.lookupRate(d.ctx, plan)
	})
	d.applyLookup(ref, plan, rate, err)
}

// reconcileAll plans every row, then fans the lookups out concurrently.
// Each result is applied under the lock against a freshly resolved row.
func (d *dispatch) reconcileAll(refs []rowRef, force bool) {
	type job struct {
		ref  rowRef
		plan cheque.RatePlan
	}

	postingDate := d.entry().EffectivePostingDate()
	jobs := make([]job, 0, len(refs))
	for _, ref := range refs {
		row := d.resolve(ref)
		if row == nil {
			continue
		}
		plan := d.svc.reconciler.Plan(row, ref.table.Direction(), postingDate, force)
		if plan.Kind == cheque.PlanLookup {
			jobs = append(jobs, job{ref: ref, plan: plan})
		}
	}
	if len(jobs) == 0 {
		return
	}

	d.unlocked(func() {
		var wg sync.WaitGroup
		for _, j := range jobs {
			wg.Add(1)
			go func(j job) {
				defer wg.Done()
				rate, err := d.svc.lookupRate(d.ctx, j.plan)

				d.sess.mu.Lock()
				defer d.sess.mu.Unlock()
				d.applyLookup(j.ref, j.plan, rate, err)
			}(j)
		}
		wg.Wait()
	})
}

func (d *dispatch) applyLookup(ref rowRef, plan cheque.RatePlan, rate decimal.Decimal, err error) {
	row := d.resolve(ref)
	if row == nil {
		return
	}
	notice, err := d.svc.reconciler.ApplyLookupResult(row, ref.table.Direction(), plan, rate, err)
	if err != nil {
		d.warnRemote(row.Idx, cheque.FieldTargetExchangeRate, "exchange rate", err)
		return
	}
	if notice != nil {
		d.notify(*notice)
	}
}

// Remote reads. Each releases the session lock for the duration of the call.

func (d *dispatch) accountCurrency(account string) (valueobject.Currency, error) {
	var (
		cur valueobject.Currency
		err error
	)
	d.unlocked(func() {
		cur, err = d.svc.directory.AccountCurrency(d.ctx, account)
	})
	return cur, err
}

func (d *dispatch) partyName(partyType cheque.PartyType, party string) (string, error) {
	var (
		name string
		err  error
	)
	d.unlocked(func() {
		name, err = d.svc.directory.PartyName(d.ctx, partyType, party)
	})
	return name, err
}

func (d *dispatch) companyDefaults(company string) (*cheque.CompanyDefaults, error) {
	var (
		defaults *cheque.CompanyDefaults
		err      error
	)
	d.unlocked(func() {
		defaults, err = d.svc.directory.CompanyDefaults(d.ctx, company)
	})
	return defaults, err
}

// modeOfPaymentAccount resolves a Mode of Payment and the currency of its default account
func (d *dispatch) modeOfPaymentAccount(name, company string) (*cheque.ModeOfPaymentInfo, valueobject.Currency, error) {
	var (
		mop *cheque.ModeOfPaymentInfo
		cur valueobject.Currency
		err error
	)
	d.unlocked(func() {
		mop, err = d.svc.directory.ModeOfPayment(d.ctx, name, company)
		if err != nil || mop.DefaultAccount == "" {
			return
		}
		cur, err = d.svc.directory.AccountCurrency(d.ctx, mop.DefaultAccount)
	})
	return mop, cur, err
}

// Value parsing

func parseDecimal(field, v string) (decimal.Decimal, error) {
	if v == "" {
		return decimal.Zero, nil
	}
	dv, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", field, v, shared.ErrInvalidInput)
	}
	return dv, nil
}

func parseDate(field, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := cheque.ParseDate(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", field, v, shared.ErrInvalidInput)
	}
	return t, nil
}

func parseCurrency(field, v string) (valueobject.Currency, error) {
	if v == "" {
		return "", nil
	}
	cur, err := valueobject.ParseCurrency(v)
	if err != nil {
		return "", fmt.Errorf("invalid %s %q: %w", field, v, shared.ErrInvalidInput)
	}
	return cur, nil
}
