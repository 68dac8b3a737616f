package handler

import (
	"net/http"
	"testing"

	chequeapp "github.com/erp/cheques/internal/application/cheque"
	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentEntryHandler_ChequeActions(t *testing.T) {
	engine := gin.New()
	engine.POST("/payment-entries/cheque-actions", NewPaymentEntryHandler().ChequeActions)

	tests := []struct {
		name           string
		body           map[string]any
		wantRestricted bool
		wantActions    []string
		wantHint       string
	}{
		{
			name: "opened cheque in the incoming wallet",
			body: map[string]any{
				"docstatus":            1,
				"mode_of_payment_type": "Cheque",
				"payment_type":         "Receive",
				"cheque_type":          "Opened",
				"cheque_status":        cheque.StatusIncomingWallet,
			},
			wantRestricted: true,
			wantActions: []string{
				cheque.ActionReturnCheque,
				cheque.ActionMoveToOtherWallet,
				cheque.ActionEndorse,
				cheque.ActionDepositForCollection,
				cheque.ActionCollectInstantly,
			},
		},
		{
			name: "draft payment entry keeps configured options",
			body: map[string]any{
				"docstatus":            0,
				"mode_of_payment_type": "Cheque",
				"payment_type":         "Receive",
			},
			wantActions: []string{},
		},
		{
			name: "rate hint for a cross-currency entry",
			body: map[string]any{
				"docstatus":                  0,
				"paid_from_account_currency": "EGP",
				"paid_to_account_currency":   "USD",
				"target_exchange_rate":       "30",
			},
			wantActions: []string{},
			wantHint:    "Exchange Rate: 1 EGP = 0.03333 USD",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(engine, http.MethodPost, "/payment-entries/cheque-actions", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var got chequeapp.ChequeActionsResponse
			decodeData(t, w, &got)
			assert.Equal(t, tt.wantRestricted, got.Restricted)
			assert.Equal(t, tt.wantActions, got.Actions)
			assert.Equal(t, tt.wantHint, got.ExchangeRateHint)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		w := doJSON(engine, http.MethodPost, "/payment-entries/cheque-actions", "not json")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
