package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/cheques/internal/infrastructure/auth"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"github.com/erp/cheques/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by the bearer middleware
const (
	ClaimsKey     = "jwt_claims"
	SubjectKey    = "subject"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenVerifier validates a bearer token; *auth.TokenService satisfies it
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// JWTMiddlewareConfig holds configuration for the bearer middleware
type JWTMiddlewareConfig struct {
	Verifier TokenVerifier
	// SkipPaths never require a token
	SkipPaths []string
	Logger    *zap.Logger
}

// JWTAuth rejects requests without a valid bearer token and tags the
// request context with the token subject
func JWTAuth(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		if !strings.HasPrefix(header, BearerPrefix) {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing bearer token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
		if token == "" {
			abortUnauthorized(c, log, auth.ErrInvalidToken, "Missing bearer token")
			return
		}

		claims, err := cfg.Verifier.Verify(token)
		if err != nil {
			abortUnauthorized(c, log, err, "Token validation failed")
			return
		}

		c.Set(ClaimsKey, claims)
		c.Set(SubjectKey, claims.Actor())

		ctx, _ := logger.WithSubject(c.Request.Context(), logger.FromContext(c.Request.Context()), claims.Actor())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, err error, reason string) {
	log.Warn("Bearer authentication failed",
		zap.Error(err),
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
	)

	code, message := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, message = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid), errors.Is(err, auth.ErrMissingSubject):
		code, message = dto.ErrCodeTokenInvalid, err.Error()
	case errors.Is(err, auth.ErrInvalidToken) && reason != "Missing bearer token":
		code, message = dto.ErrCodeTokenInvalid, "Invalid token"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// GetClaims returns the verified claims, or nil on unauthenticated routes
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// GetSubject returns the caller recorded by JWTAuth
func GetSubject(c *gin.Context) string {
	return c.GetString(SubjectKey)
}
