package router

import (
	"github.com/erp/cheques/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the endpoint groups mounted under /api/<version>
type Handlers struct {
	ChequeEntry  *handler.ChequeEntryHandler
	ExchangeRate *handler.ExchangeRateHandler
	PaymentEntry *handler.PaymentEntryHandler
	Report       *handler.ReportHandler
}

// Register mounts every non-nil handler group on the router
func (h Handlers) Register(r *Router) {
	if e := h.ChequeEntry; e != nil {
		entries := NewDomainGroup("/cheque-entries")
		entries.POST("", e.Create).
			GET("/:id", e.Get).
			PATCH("/:id/fields", e.ChangeField).
			POST("/:id/validate", e.Validate).
			POST("/:id/submit", e.Submit).
			POST("/:id/cancel", e.Cancel)
		entries.Group("/:id/tables/:table/rows").
			POST("", e.AddRow).
			DELETE("/:row_id", e.RemoveRow).
			PATCH("/:row_id/fields", e.ChangeRowField).
			POST("/:row_id/picture", e.UploadPicture)
		r.Register(entries)
	}
	if x := h.ExchangeRate; x != nil {
		r.Register(NewDomainGroup("/exchange-rates").
			GET("/lookup", x.Lookup).
			POST("", x.Record))
	}
	if p := h.PaymentEntry; p != nil {
		r.Register(NewDomainGroup("/payment-entries").
			POST("/cheque-actions", p.ChequeActions))
	}
	if rep := h.Report; rep != nil {
		r.Register(NewDomainGroup("/reports").
			POST("/general-ledger/format", rep.FormatGeneralLedger).
			GET("/customer-balance-by-cheque-status", rep.CustomerBalanceByChequeStatus))
	}
}

// RegisterSystem mounts the unauthenticated system endpoints at the engine root
func RegisterSystem(engine *gin.Engine, sys *handler.SystemHandler) {
	engine.GET("/health", sys.Health)
	engine.GET("/metrics", sys.Metrics)
}
