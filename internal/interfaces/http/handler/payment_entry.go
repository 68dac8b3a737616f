package handler

import (
	chequeapp "github.com/erp/cheques/internal/application/cheque"
	"github.com/gin-gonic/gin"
)

// PaymentEntryHandler exposes the cheque action policy of the Payment Entry form
type PaymentEntryHandler struct {
	BaseHandler
}

// NewPaymentEntryHandler creates a new PaymentEntryHandler
func NewPaymentEntryHandler() *PaymentEntryHandler {
	return &PaymentEntryHandler{}
}

// ChequeActions handles POST /payment-entries/cheque-actions
func (h *PaymentEntryHandler) ChequeActions(c *gin.Context) {
	var req chequeapp.ChequeActionsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.Success(c, chequeapp.ChequeActions(req))
}
