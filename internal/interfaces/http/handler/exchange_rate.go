package handler

import (
	currencyapp "github.com/erp/cheques/internal/application/currency"
	"github.com/gin-gonic/gin"
)

// ExchangeRateHandler serves Currency Exchange lookups and records
type ExchangeRateHandler struct {
	BaseHandler
	rateService *currencyapp.RateService
}

// NewExchangeRateHandler creates a new ExchangeRateHandler
func NewExchangeRateHandler(rateService *currencyapp.RateService) *ExchangeRateHandler {
	return &ExchangeRateHandler{rateService: rateService}
}

// Lookup handles GET /exchange-rates/lookup?from=&to=&date=
func (h *ExchangeRateHandler) Lookup(c *gin.Context) {
	var req currencyapp.LookupRequest
	if !h.BindQuery(c, &req) {
		return
	}
	resp, err := h.rateService.Lookup(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Record handles POST /exchange-rates
func (h *ExchangeRateHandler) Record(c *gin.Context) {
	var req currencyapp.RecordRateRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.rateService.Record(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}
