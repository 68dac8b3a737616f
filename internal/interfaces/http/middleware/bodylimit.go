package middleware

import (
	"net/http"
	"strings"

	"github.com/erp/cheques/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// BodyLimitConfig bounds request bodies. Field edits are small JSON
// documents; only picture uploads (multipart) need the larger budget.
type BodyLimitConfig struct {
	MaxBytes          int64
	MaxMultipartBytes int64 // 0 means MaxBytes
}

// BodyLimit applies one limit to every body
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return BodyLimitWithConfig(BodyLimitConfig{MaxBytes: maxBytes})
}

// BodyLimitWithConfig rejects declared bodies above the limit up front and
// caps streamed ones with http.MaxBytesReader.
func BodyLimitWithConfig(cfg BodyLimitConfig) gin.HandlerFunc {
	if cfg.MaxMultipartBytes == 0 {
		cfg.MaxMultipartBytes = cfg.MaxBytes
	}
	return func(c *gin.Context) {
		limit := cfg.MaxBytes
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			limit = cfg.MaxMultipartBytes
		}
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size", getRequestID(c)))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
