package handler

import (
	reportapp "github.com/erp/cheques/internal/application/report"
	"github.com/gin-gonic/gin"
)

// ReportHandler serves report data and formats report output for display
type ReportHandler struct {
	BaseHandler
	glService      *reportapp.GLService
	balanceService *reportapp.CustomerBalanceService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(glService *reportapp.GLService, balanceService *reportapp.CustomerBalanceService) *ReportHandler {
	return &ReportHandler{glService: glService, balanceService: balanceService}
}

// FormatGeneralLedger handles POST /reports/general-ledger/format
func (h *ReportHandler) FormatGeneralLedger(c *gin.Context) {
	var req reportapp.FormatGLRequest
	if !h.BindJSON(c, &req) {
		return
	}
	resp, err := h.glService.Format(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// CustomerBalanceByChequeStatus handles GET /reports/customer-balance-by-cheque-status
func (h *ReportHandler) CustomerBalanceByChequeStatus(c *gin.Context) {
	var req reportapp.CustomerBalanceRequest
	if !h.BindQuery(c, &req) {
		return
	}
	resp, err := h.balanceService.CustomerBalanceByChequeStatus(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
