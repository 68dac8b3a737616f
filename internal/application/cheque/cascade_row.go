package cheque

import (
	"fmt"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
)

func (s *EntryService) registerRowHandlers() {
	s.rowHandlers = map[string]fieldHandler{
		cheque.FieldParty:               rowParty,
		cheque.FieldPartyType:           rowPartyType,
		cheque.FieldModeOfPayment:       rowModeOfPayment,
		cheque.FieldPaidAmount:          rowPaidAmount,
		cheque.FieldTargetExchangeRate:  rowTargetExchangeRate,
		cheque.FieldRateMopToParty:      rowMirror,
		cheque.FieldRatePartyToMop:      rowMirror,
		cheque.FieldChequeCurrency:      rowChequeCurrency,
		cheque.FieldAccountPaidFrom:     rowAccount,
		cheque.FieldAccountPaidTo:       rowAccount,
		cheque.FieldAccountCurrencyFrom: rowAccountCurrency,
		cheque.FieldAccountCurrency:     rowAccountCurrency,
		cheque.FieldFirstBeneficiary:    rowFirstBeneficiary,

		cheque.FieldReferenceNo:    setRow(func(r *cheque.ChequeRow, v string) { r.ReferenceNo = v }),
		cheque.FieldBank:           setRow(func(r *cheque.ChequeRow, v string) { r.Bank = v }),
		cheque.FieldChequeType:     setRow(func(r *cheque.ChequeRow, v string) { r.ChequeType = v }),
		cheque.FieldPersonName:     setRow(func(r *cheque.ChequeRow, v string) { r.PersonName = v }),
		cheque.FieldIssuerName:     setRow(func(r *cheque.ChequeRow, v string) { r.IssuerName = v }),
		cheque.FieldPictureOfCheck: setRow(func(r *cheque.ChequeRow, v string) { r.PictureOfCheck = v }),
		cheque.FieldReferenceDate:  rowReferenceDate,
	}
}

func setRow(set func(r *cheque.ChequeRow, v string)) fieldHandler {
	return func(d *dispatch) error {
		if row := d.row(); row != nil {
			set(row, d.value())
		}
		return nil
	}
}

func rowReferenceDate(d *dispatch) error {
	date, err := parseDate(cheque.FieldReferenceDate, d.value())
	if err != nil {
		return err
	}
	row := d.row()
	if row == nil {
		return nil
	}
	if date.IsZero() {
		row.ReferenceDate = nil
	} else {
		row.ReferenceDate = &date
	}
	return nil
}

func rowParty(d *dispatch) error {
	row := d.row()
	if row == nil {
		return nil
	}
	dir := d.dir()
	party := d.value()
	row.Party = party
	row.PartyName = ""
	if party == "" {
		row.ClearParty(dir)
		d.svc.reconciler.RecomputeAmount(row)
		return nil
	}

	e := d.entry()
	partyType := row.PartyType
	if partyType == "" {
		partyType = e.PartyType
	}
	company := e.Company
	bankAcc := e.BankAcc

	var (
		name      string
		account   string
		partyCur  valueobject.Currency
		bankCur   valueobject.Currency
		what      string
		remoteErr error
	)
	d.unlocked(func() {
		ctx := d.ctx
		dirSvc := d.svc.directory
		if name, remoteErr = dirSvc.PartyName(ctx, partyType, party); remoteErr != nil {
			what = "party name"
			return
		}
		account, remoteErr = dirSvc.PartyAccount(ctx, partyType, party, company)
		if remoteErr != nil || account == "" {
			defaults, err := dirSvc.CompanyDefaults(ctx, company)
			if err != nil {
				what, remoteErr = "party account", err
				return
			}
			remoteErr = nil
			account = defaults.ReceivableAccount
			if partyType == cheque.PartyTypeSupplier {
				account = defaults.PayableAccount
			}
		}
		if account != "" {
			if partyCur, remoteErr = dirSvc.AccountCurrency(ctx, account); remoteErr != nil {
				what = "party account currency"
				return
			}
		}
		if bankAcc != "" {
			if bankCur, remoteErr = dirSvc.AccountCurrency(ctx, bankAcc); remoteErr != nil {
				what = "bank account currency"
				return
			}
		}
	})

	row = d.row()
	if row == nil {
		return nil
	}
	if remoteErr != nil {
		d.warnRemote(row.Idx, cheque.FieldParty, what, remoteErr)
		return nil
	}

	row.PartyName = name
	row.IssuerName = name
	row.SetPartyAccount(dir, account)
	row.SetPartyCurrency(dir, partyCur)
	if bankAcc != "" {
		row.SetBankAccount(dir, bankAcc)
		row.SetBankCurrency(dir, bankCur)
	}
	d.reconcile(d.ref, false)
	return nil
}

func rowPartyType(d *dispatch) error {
	pt := cheque.PartyType(d.value())
	if pt != "" && !pt.IsValid() {
		return fmt.Errorf("party type %q: %w", d.value(), shared.ErrInvalidInput)
	}
	row := d.row()
	if row == nil {
		return nil
	}
	row.PartyType = pt
	row.ClearParty(d.dir())
	row.TargetExchangeRate = valueobject.One
	d.svc.reconciler.RecomputeAmount(row)
	return nil
}

func rowModeOfPayment(d *dispatch) error {
	row := d.row()
	if row == nil {
		return nil
	}
	name := d.value()
	row.ModeOfPayment = name
	if name == "" {
		return nil
	}

	mop, cur, err := d.modeOfPaymentAccount(name, d.entry().Company)
	row = d.row()
	if row == nil {
		return nil
	}
	if err != nil {
		d.warnRemote(row.Idx, cheque.FieldModeOfPayment, "mode of payment", err)
		return nil
	}
	if mop.DefaultAccount == "" {
		return nil
	}

	dir := d.dir()
	row.SetBankAccount(dir, mop.DefaultAccount)
	row.SetBankCurrency(dir, cur)
	row.ChequeCurrency = cur
	row.RateManuallySet = false
	d.reconcile(d.ref, true)
	return nil
}

func rowPaidAmount(d *dispatch) error {
	amount, err := parseDecimal(cheque.FieldPaidAmount, d.value())
	if err != nil {
		return err
	}
	row := d.row()
	if row == nil {
		return nil
	}
	row.PaidAmount = amount
	d.svc.reconciler.RecomputeAmount(row)
	return nil
}

func rowTargetExchangeRate(d *dispatch) error {
	rate, err := parseDecimal(cheque.FieldTargetExchangeRate, d.value())
	if err != nil {
		return err
	}
	if row := d.row(); row != nil {
		d.svc.reconciler.SetTargetExchangeRate(row, rate, true, d.scope)
	}
	return nil
}

func rowMirror(d *dispatch) error {
	rate, err := parseDecimal(d.change.Field, d.value())
	if err != nil {
		return err
	}
	if row := d.row(); row != nil {
		return d.svc.reconciler.SyncFromMirror(row, d.change.Field, rate, d.scope)
	}
	return nil
}

func rowChequeCurrency(d *dispatch) error {
	cur, err := parseCurrency(cheque.FieldChequeCurrency, d.value())
	if err != nil {
		return err
	}
	row := d.row()
	if row == nil {
		return nil
	}
	row.ChequeCurrency = cur
	row.RateManuallySet = false
	row.SetBankCurrency(d.dir(), cur)
	d.reconcile(d.ref, true)
	return nil
}

// rowAccount handles either account slot; the direction decides which side it is
func rowAccount(d *dispatch) error {
	row := d.row()
	if row == nil {
		return nil
	}
	dir := d.dir()
	account := d.value()
	bankSide := d.change.Field == cheque.BankAccountField(dir)

	if bankSide {
		row.SetBankAccount(dir, account)
	} else {
		row.SetPartyAccount(dir, account)
	}
	if account == "" {
		if bankSide {
			row.SetBankCurrency(dir, "")
		} else {
			row.SetPartyCurrency(dir, "")
		}
		return nil
	}

	cur, err := d.accountCurrency(account)
	row = d.row()
	if row == nil {
		return nil
	}
	if err != nil {
		d.warnRemote(row.Idx, d.change.Field, "account currency", err)
		return nil
	}

	if bankSide {
		row.SetBankCurrency(dir, cur)
		row.ChequeCurrency = cur
		row.RateManuallySet = false
		d.reconcile(d.ref, true)
		return nil
	}
	row.SetPartyCurrency(dir, cur)
	d.reconcile(d.ref, false)
	return nil
}

func rowAccountCurrency(d *dispatch) error {
	cur, err := parseCurrency(d.change.Field, d.value())
	if err != nil {
		return err
	}
	row := d.row()
	if row == nil {
		return nil
	}
	if d.change.Field == cheque.FieldAccountCurrency {
		row.AccountCurrency = cur
	} else {
		row.AccountCurrencyFrom = cur
	}
	d.reconcile(d.ref, false)
	return nil
}

func rowFirstBeneficiary(d *dispatch) error {
	row := d.row()
	if row == nil {
		return nil
	}
	e := d.entry()
	row.FirstBeneficiary = d.value()
	partyName := row.PartyName
	if partyName == "" {
		partyName = e.PartyName
	}
	if d.dir() == cheque.PaymentTypeReceive {
		row.PersonName = e.Company
		row.IssuerName = partyName
	} else {
		row.PersonName = partyName
		row.IssuerName = e.Company
	}
	return nil
}
