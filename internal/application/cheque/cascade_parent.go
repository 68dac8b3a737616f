package cheque

import (
	"fmt"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
)

func (s *EntryService) registerParentHandlers() {
	s.parentHandlers = map[string]fieldHandler{
		cheque.FieldPaymentType:   parentPaymentType,
		cheque.FieldPartyType:     parentPartyType,
		cheque.FieldParty:         parentParty,
		cheque.FieldBankAcc:       parentBankAcc,
		cheque.FieldChequeBank:    parentChequeBank,
		cheque.FieldModeOfPayment: parentModeOfPayment,
		cheque.FieldPostingDate:   parentPostingDate,

		cheque.FieldCompany:              setParent(func(e *cheque.ChequeEntry, v string) { e.Company = v }),
		cheque.FieldPartyName:            setParent(func(e *cheque.ChequeEntry, v string) { e.PartyName = v }),
		cheque.FieldPaidFrom:             setParent(func(e *cheque.ChequeEntry, v string) { e.PaidFrom = v }),
		cheque.FieldPaidTo:               setParent(func(e *cheque.ChequeEntry, v string) { e.PaidTo = v }),
		cheque.FieldAccount:              setParent(func(e *cheque.ChequeEntry, v string) { e.Account = v }),
		cheque.FieldCollectionFeeAccount: setParent(func(e *cheque.ChequeEntry, v string) { e.CollectionFeeAccount = v }),
		cheque.FieldPayableAccount:       setParent(func(e *cheque.ChequeEntry, v string) { e.PayableAccount = v }),
	}
}

func setParent(set func(e *cheque.ChequeEntry, v string)) fieldHandler {
	return func(d *dispatch) error {
		set(d.entry(), d.value())
		return nil
	}
}

func parentPaymentType(d *dispatch) error {
	pt := cheque.PaymentType(d.value())
	if !pt.IsValid() {
		return fmt.Errorf("payment type %q: %w", d.value(), shared.ErrInvalidInput)
	}
	e := d.entry()
	e.PaymentType = pt
	d.scope.MarkWritten(cheque.FieldPaymentType)

	partyType := pt.DefaultPartyType()
	if err := applyPartyType(d, partyType); err != nil {
		return err
	}
	if d.parentStale() {
		return nil
	}

	// Rows in both tables lose their party; each keeps its own direction
	e = d.entry()
	active := e.ActiveTable()
	var refs []rowRef
	for _, table := range []cheque.Table{cheque.TableReceive, cheque.TablePay} {
		for _, row := range e.Rows(table) {
			if row.IsProcessed() {
				continue
			}
			row.ClearParty(table.Direction())
			row.PartyType = partyType
			row.TargetExchangeRate = valueobject.One
			d.svc.reconciler.RecomputeAmount(row)
			ref := d.bumpRow(table, row)
			if table == active {
				refs = append(refs, ref)
			}
		}
	}
	d.reconcileAll(refs, false)
	return nil
}

func parentPartyType(d *dispatch) error {
	pt := cheque.PartyType(d.value())
	if !pt.IsValid() {
		return fmt.Errorf("party type %q: %w", d.value(), shared.ErrInvalidInput)
	}
	return applyPartyType(d, pt)
}

// applyPartyType resets the party and derives the default accounts for the
// (payment type, party type) pair from the company defaults
func applyPartyType(d *dispatch, pt cheque.PartyType) error {
	e := d.entry()
	e.PartyType = pt
	e.Party = ""
	e.PartyName = ""
	d.scope.MarkWritten(cheque.FieldPartyType)
	for _, row := range e.ActiveRows() {
		if !row.IsProcessed() {
			row.PartyType = pt
		}
	}

	if e.Company == "" {
		return nil
	}
	defaults, err := d.companyDefaults(e.Company)
	if err != nil {
		d.warnRemote(0, cheque.FieldPartyType, "company defaults", err)
		return nil
	}
	if d.parentStale() {
		return nil
	}

	applyAccountDefaults(d.entry(), pt, defaults)
	return nil
}

// applyAccountDefaults fills paid_from/paid_to for the (payment type, party type) pair
func applyAccountDefaults(e *cheque.ChequeEntry, pt cheque.PartyType, defaults *cheque.CompanyDefaults) {
	switch {
	case e.PaymentType == cheque.PaymentTypeReceive && pt == cheque.PartyTypeCustomer:
		e.PaidFrom = defaults.ReceivableAccount
		e.PaidTo = defaults.IncomingChequeWallet
	case e.PaymentType == cheque.PaymentTypeReceive && pt == cheque.PartyTypeSupplier:
		e.PaidFrom = defaults.PayableAccount
		e.PaidTo = defaults.IncomingChequeWallet
	case pt == cheque.PartyTypeCustomer:
		e.PaidTo = defaults.ReceivableAccount
	default:
		e.PaidTo = defaults.PayableAccount
	}
}

func parentParty(d *dispatch) error {
	e := d.entry()
	party := d.value()
	e.Party = party
	e.PartyName = ""
	if party == "" {
		return nil
	}

	name, err := d.partyName(e.PartyType, party)
	if err != nil {
		d.warnRemote(0, cheque.FieldParty, "party name", err)
		return nil
	}
	if d.parentStale() {
		return nil
	}

	e = d.entry()
	e.PartyName = name
	for _, row := range e.ActiveRows() {
		if !row.IsProcessed() {
			row.IssuerName = name
		}
	}
	return nil
}

func parentBankAcc(d *dispatch) error {
	e := d.entry()
	bankAcc := d.value()
	e.BankAcc = bankAcc
	e.Account = ""
	e.CollectionFeeAccount = ""
	e.PayableAccount = ""
	if bankAcc == "" {
		return nil
	}

	cur, err := d.accountCurrency(bankAcc)
	if err != nil {
		d.warnRemote(0, cheque.FieldBankAcc, "bank account currency", err)
		return nil
	}
	if d.parentStale() {
		return nil
	}

	dir := d.entry().PaymentType
	refs := d.activeRefs(func(row *cheque.ChequeRow) {
		row.SetBankAccount(dir, bankAcc)
		row.SetBankCurrency(dir, cur)
		row.ChequeCurrency = cur
		row.RateManuallySet = false
	})
	d.reconcileAll(refs, true)
	return nil
}

func parentChequeBank(d *dispatch) error {
	e := d.entry()
	e.ChequeBank = d.value()
	e.BankAcc = ""
	e.Account = ""
	e.CollectionFeeAccount = ""
	e.PayableAccount = ""

	dir := e.PaymentType
	d.activeRefs(func(row *cheque.ChequeRow) {
		row.ClearBankSide(dir)
		row.TargetExchangeRate = valueobject.One
		d.svc.reconciler.RecomputeAmount(row)
	})
	return nil
}

func parentModeOfPayment(d *dispatch) error {
	e := d.entry()
	name := d.value()
	e.ModeOfPayment = name
	if name == "" {
		e.ModeOfPaymentType = ""
		return nil
	}

	mop, cur, err := d.modeOfPaymentAccount(name, e.Company)
	if err != nil {
		d.warnRemote(0, cheque.FieldModeOfPayment, "mode of payment", err)
		return nil
	}
	if d.parentStale() {
		return nil
	}

	e = d.entry()
	e.ModeOfPaymentType = mop.Type
	if mop.DefaultAccount == "" {
		d.notify(cheque.Notice{
			Level:   cheque.NoticeInfo,
			Field:   cheque.FieldModeOfPayment,
			Message: fmt.Sprintf("Mode of Payment %s has no default account for %s", name, e.Company),
		})
		return nil
	}

	dir := e.PaymentType
	refs := d.activeRefs(func(row *cheque.ChequeRow) {
		row.SetBankAccount(dir, mop.DefaultAccount)
		row.SetBankCurrency(dir, cur)
		row.ChequeCurrency = cur
		row.RateManuallySet = false
	})
	d.reconcileAll(refs, true)
	return nil
}

// parentPostingDate re-derives every automatically rated row in both tables
func parentPostingDate(d *dispatch) error {
	date, err := parseDate(cheque.FieldPostingDate, d.value())
	if err != nil {
		return err
	}
	e := d.entry()
	e.PostingDate = date

	var refs []rowRef
	for _, table := range []cheque.Table{cheque.TableReceive, cheque.TablePay} {
		for _, row := range e.Rows(table) {
			if row.RateManuallySet || row.IsProcessed() {
				continue
			}
			refs = append(refs, d.bumpRow(table, row))
		}
	}
	d.reconcileAll(refs, false)
	return nil
}
