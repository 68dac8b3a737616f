package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	chequeapp "github.com/erp/cheques/internal/application/cheque"
	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"github.com/erp/cheques/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChequeEntryHandler serves the Multiple Cheque Entry document endpoints
type ChequeEntryHandler struct {
	BaseHandler
	entryService *chequeapp.EntryService
}

// NewChequeEntryHandler creates a new ChequeEntryHandler
func NewChequeEntryHandler(entryService *chequeapp.EntryService) *ChequeEntryHandler {
	return &ChequeEntryHandler{entryService: entryService}
}

// FieldChangeRequest is one form edit. Value accepts any JSON scalar.
type FieldChangeRequest struct {
	Field string          `json:"field" binding:"required"`
	Value json.RawMessage `json:"value"`
}

// text renders the raw value the way the form would hold it
func (r FieldChangeRequest) text() (string, error) {
	raw := bytes.TrimSpace(r.Value)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	case '{', '[':
		return "", fmt.Errorf("value of %s must be a scalar", r.Field)
	}
	return string(raw), nil
}

// Create handles POST /cheque-entries
func (h *ChequeEntryHandler) Create(c *gin.Context) {
	var req chequeapp.CreateEntryRequest
	if !h.BindJSON(c, &req) {
		return
	}
	result, err := h.entryService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Get handles GET /cheque-entries/:id
func (h *ChequeEntryHandler) Get(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	entry, err := h.entryService.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// ChangeField handles PATCH /cheque-entries/:id/fields
func (h *ChequeEntryHandler) ChangeField(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	h.applyChange(c, chequeapp.FieldChange{EntryID: id})
}

// ChangeRowField handles PATCH /cheque-entries/:id/tables/:table/rows/:row_id/fields
func (h *ChequeEntryHandler) ChangeRowField(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	table, ok := h.table(c)
	if !ok {
		return
	}
	rowID, ok := h.ParseUUIDParam(c, "row_id")
	if !ok {
		return
	}
	h.applyChange(c, chequeapp.FieldChange{EntryID: id, Table: table, RowID: rowID})
}

func (h *ChequeEntryHandler) applyChange(c *gin.Context, ch chequeapp.FieldChange) {
	var req FieldChangeRequest
	if !h.BindJSON(c, &req) {
		return
	}
	value, err := req.text()
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	}
	ch.Field = strings.TrimSpace(req.Field)
	ch.Value = value

	result, err := h.entryService.ChangeField(c.Request.Context(), ch)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// AddRow handles POST /cheque-entries/:id/tables/:table/rows
func (h *ChequeEntryHandler) AddRow(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	table, ok := h.table(c)
	if !ok {
		return
	}
	result, err := h.entryService.AddRow(c.Request.Context(), id, table)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// RemoveRow handles DELETE /cheque-entries/:id/tables/:table/rows/:row_id
func (h *ChequeEntryHandler) RemoveRow(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	table, ok := h.table(c)
	if !ok {
		return
	}
	rowID, ok := h.ParseUUIDParam(c, "row_id")
	if !ok {
		return
	}
	result, err := h.entryService.RemoveRow(c.Request.Context(), id, table, rowID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// UploadPicture handles POST /cheque-entries/:id/tables/:table/rows/:row_id/picture.
// The scan is sent as the multipart field "file".
func (h *ChequeEntryHandler) UploadPicture(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	table, ok := h.table(c)
	if !ok {
		return
	}
	rowID, ok := h.ParseUUIDParam(c, "row_id")
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	f, err := file.Open()
	if err != nil {
		h.BadRequest(c, "could not read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, chequeapp.MaxPictureSize+1))
	if err != nil {
		h.BadRequest(c, "could not read uploaded file")
		return
	}
	if len(data) > chequeapp.MaxPictureSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
			fmt.Sprintf("picture exceeds %d bytes", chequeapp.MaxPictureSize))
		return
	}

	result, err := h.entryService.UploadPicture(c.Request.Context(), chequeapp.PictureUpload{
		EntryID: id,
		Table:   table,
		RowID:   rowID,
		Data:    data,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Validate handles POST /cheque-entries/:id/validate
func (h *ChequeEntryHandler) Validate(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	if err := h.entryService.Validate(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"valid": true})
}

// Submit handles POST /cheque-entries/:id/submit
func (h *ChequeEntryHandler) Submit(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	result, err := h.entryService.Submit(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Cancel handles POST /cheque-entries/:id/cancel
func (h *ChequeEntryHandler) Cancel(c *gin.Context) {
	id, ok := h.entryID(c)
	if !ok {
		return
	}
	result, err := h.entryService.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// entryID parses :id and tags the request logger with it
func (h *ChequeEntryHandler) entryID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := h.ParseUUIDParam(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	ctx := c.Request.Context()
	ctx, _ = logger.WithEntry(ctx, logger.FromContext(ctx), id.String())
	c.Request = c.Request.WithContext(ctx)
	return id, true
}

func (h *ChequeEntryHandler) table(c *gin.Context) (cheque.Table, bool) {
	table := cheque.Table(c.Param("table"))
	if !table.IsValid() {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput,
			fmt.Sprintf("unknown table %q", table))
		return "", false
	}
	return table, true
}
