// Package handler holds the gin handlers of the cheque entry API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"github.com/erp/cheques/internal/interfaces/http/dto"
	"github.com/erp/cheques/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// getRequestID extracts the request ID set by the RequestID middleware
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with an explicit status
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// BindJSON binds the body and writes the 400 itself on failure
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

// BindQuery binds the query string and writes the 400 itself on failure
func (h *BaseHandler) BindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, err.Error())
	default:
		middleware.HandleValidationError(c, err)
	}
}

// ParseUUIDParam reads a UUID path parameter and writes the 400 itself on failure
func (h *BaseHandler) ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "invalid "+name+": must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// HandleError maps service errors onto the response envelope.
//
// Typed errors are checked before plain domain errors because host failures
// and validation failures wrap sentinels that would otherwise hide their details.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var validationErr *cheque.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithDetails(
			dto.ErrCodeValidation, validationErr.Message, requestID,
			dto.RowValidationDetail{RowIdx: validationErr.RowIdx, Field: validationErr.Field},
		))
		return
	}

	var notFound *currency.LookupNotFoundError
	if errors.As(err, &notFound) || errors.Is(err, currency.ErrRateNotFound) {
		h.Error(c, http.StatusNotFound, dto.ErrCodeRateNotFound, err.Error())
		return
	}

	if errors.Is(err, shared.ErrRemoteCall) {
		logger.L(c.Request.Context()).Warn("Host call failed", zap.Error(err))
		h.Error(c, http.StatusBadGateway, dto.ErrCodeRemoteCall, err.Error())
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.APICode(domainErr.Code)
		h.Error(c, dto.StatusFor(code), code, strings.TrimSpace(err.Error()))
		return
	}

	logger.L(c.Request.Context()).Error("Unhandled error", zap.Error(err))
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "An unexpected error occurred")
}
