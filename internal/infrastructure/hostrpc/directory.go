package hostrpc

import (
	"context"
	"fmt"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
)

// Directory reads master data from the host
type Directory struct {
	client *Client
}

// NewDirectory creates a Directory over client
func NewDirectory(client *Client) *Directory {
	return &Directory{client: client}
}

// AccountCurrency returns the account's currency, "" when the master has none
func (d *Directory) AccountCurrency(ctx context.Context, account string) (valueobject.Currency, error) {
	if account == "" {
		return "", nil
	}
	var out struct {
		AccountCurrency string `json:"account_currency"`
	}
	if err := d.client.GetValue(ctx, "Account", []string{"account_currency"}, map[string]any{"name": account}, &out); err != nil {
		return "", err
	}
	if out.AccountCurrency == "" {
		return "", nil
	}
	cur, err := valueobject.ParseCurrency(out.AccountCurrency)
	if err != nil {
		return "", fmt.Errorf("account %s: %w", account, err)
	}
	return cur, nil
}

// PartyName returns customer_name or supplier_name
func (d *Directory) PartyName(ctx context.Context, partyType cheque.PartyType, party string) (string, error) {
	var field string
	switch partyType {
	case cheque.PartyTypeCustomer:
		field = "customer_name"
	case cheque.PartyTypeSupplier:
		field = "supplier_name"
	default:
		return "", shared.NewDomainError("INVALID_PARTY_TYPE", fmt.Sprintf("Unsupported party type %q", partyType))
	}

	var out map[string]string
	if err := d.client.GetValue(ctx, string(partyType), []string{field}, map[string]any{"name": party}, &out); err != nil {
		return "", err
	}
	return out[field], nil
}

// PartyAccount resolves the receivable or payable account of a party
func (d *Directory) PartyAccount(ctx context.Context, partyType cheque.PartyType, party, company string) (string, error) {
	var account string
	err := d.client.Call(ctx, "erpnext.accounts.party.get_party_account", map[string]any{
		"party_type": partyType,
		"party":      party,
		"company":    company,
	}, &account)
	return account, err
}

// CompanyDefaults reads the company accounts used to seed a document
func (d *Directory) CompanyDefaults(ctx context.Context, company string) (*cheque.CompanyDefaults, error) {
	var out cheque.CompanyDefaults
	err := d.client.GetValue(ctx, "Company", []string{
		"default_currency",
		"default_receivable_account",
		"default_payable_account",
		"default_incoming_cheque_wallet_account",
	}, map[string]any{"name": company}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type modeOfPaymentDoc struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Accounts []struct {
		Company        string `json:"company"`
		DefaultAccount string `json:"default_account"`
	} `json:"accounts"`
}

// ModeOfPayment resolves the mode's type and its default account for company.
// Without a company match the first configured account is used.
func (d *Directory) ModeOfPayment(ctx context.Context, name, company string) (*cheque.ModeOfPaymentInfo, error) {
	var doc modeOfPaymentDoc
	if err := d.client.Get(ctx, "Mode of Payment", name, &doc); err != nil {
		return nil, err
	}

	info := &cheque.ModeOfPaymentInfo{Name: doc.Name, Type: doc.Type}
	if info.Name == "" {
		info.Name = name
	}
	for _, acc := range doc.Accounts {
		if acc.Company == company {
			info.DefaultAccount = acc.DefaultAccount
			return info, nil
		}
	}
	if len(doc.Accounts) > 0 {
		info.DefaultAccount = doc.Accounts[0].DefaultAccount
	}
	return info, nil
}

var _ cheque.Directory = (*Directory)(nil)
