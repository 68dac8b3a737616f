package hostrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/erp/cheques/internal/domain/cheque"
)

const paymentEntryDoctype = "Payment Entry"

// PaymentEntryGateway creates and cancels Payment Entries on the host
type PaymentEntryGateway struct {
	client *Client
}

// NewPaymentEntryGateway creates a gateway over client
func NewPaymentEntryGateway(client *Client) *PaymentEntryGateway {
	return &PaymentEntryGateway{client: client}
}

// Create inserts the Payment Entry, submits it and returns its name. A draft
// whose submit fails is deleted again so a retry never leaves a second one.
func (g *PaymentEntryGateway) Create(ctx context.Context, req *cheque.PaymentEntryRequest) (string, error) {
	if req.Doctype == "" {
		req.Doctype = paymentEntryDoctype
	}
	stored, err := g.client.Insert(ctx, req)
	if err != nil {
		return "", err
	}

	var inserted struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(stored, &inserted); err != nil || inserted.Name == "" {
		return "", &RemoteCallError{Method: "frappe.client.insert", Message: "inserted Payment Entry has no name", Err: err}
	}

	var submitted struct {
		Name      string `json:"name"`
		DocStatus int    `json:"docstatus"`
	}
	if err := g.client.Submit(ctx, stored, &submitted); err != nil {
		submitErr := fmt.Errorf("submit %s: %w", inserted.Name, err)
		if delErr := g.client.Delete(context.WithoutCancel(ctx), paymentEntryDoctype, inserted.Name); delErr != nil {
			return "", errors.Join(submitErr, fmt.Errorf("draft %s left on host: %w", inserted.Name, delErr))
		}
		return "", submitErr
	}
	if submitted.Name != "" {
		return submitted.Name, nil
	}
	return inserted.Name, nil
}

// ListLinked returns Payment Entries that reference the given document
func (g *PaymentEntryGateway) ListLinked(ctx context.Context, entryName string) ([]cheque.LinkedPaymentEntry, error) {
	var rows []struct {
		Name      string `json:"name"`
		DocStatus int    `json:"docstatus"`
	}
	err := g.client.GetList(ctx, ListQuery{
		Doctype: paymentEntryDoctype,
		Filters: map[string]any{
			"reference_doctype": cheque.Doctype,
			"reference_link":    entryName,
		},
		Fields:  []string{"name", "docstatus"},
		OrderBy: "creation asc",
	}, &rows)
	if err != nil {
		return nil, err
	}

	out := make([]cheque.LinkedPaymentEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, cheque.LinkedPaymentEntry{Name: r.Name, DocStatus: cheque.DocStatus(r.DocStatus)})
	}
	return out, nil
}

// Cancel cancels a submitted Payment Entry
func (g *PaymentEntryGateway) Cancel(ctx context.Context, name string) error {
	return g.client.Cancel(ctx, paymentEntryDoctype, name)
}

var _ cheque.PaymentEntryGateway = (*PaymentEntryGateway)(nil)
