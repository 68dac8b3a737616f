package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/erp/cheques/internal/infrastructure/auth"
	"github.com/erp/cheques/internal/infrastructure/config"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"github.com/erp/cheques/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(config.AuthConfig{
		Enabled:   true,
		JWTSecret: "middleware-test-secret-32-characters",
		Issuer:    "cheques",
	})
	require.NoError(t, err)
	return svc
}

func newAuthRouter(svc *auth.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.Use(JWTAuth(JWTMiddlewareConfig{Verifier: svc, SkipPaths: []string{"/health"}}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/whoami", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"subject":     GetSubject(c),
			"ctx_subject": logger.GetSubject(c.Request.Context()),
			"has_claims":  GetClaims(c) != nil,
		})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	svc := newTokenService(t)
	r := newAuthRouter(svc)

	valid, _, err := svc.Issue("bot", "accounts@example.com", time.Hour)
	require.NoError(t, err)
	expired, _, err := svc.Issue("bot", "", -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantErr  string
	}{
		{name: "skip path", path: "/health", wantCode: http.StatusOK},
		{name: "missing header", path: "/whoami", wantCode: http.StatusUnauthorized, wantErr: dto.ErrCodeUnauthorized},
		{name: "wrong scheme", path: "/whoami", header: "Basic abc", wantCode: http.StatusUnauthorized, wantErr: dto.ErrCodeUnauthorized},
		{name: "garbage token", path: "/whoami", header: "Bearer nope", wantCode: http.StatusUnauthorized, wantErr: dto.ErrCodeTokenInvalid},
		{name: "expired token", path: "/whoami", header: "Bearer " + expired, wantCode: http.StatusUnauthorized, wantErr: dto.ErrCodeTokenExpired},
		{name: "valid token", path: "/whoami", header: "Bearer " + valid, wantCode: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantErr == "" {
				return
			}
			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantErr, resp.Error.Code)
			assert.NotEmpty(t, resp.Error.RequestID)
		})
	}
}

func TestJWTAuth_SetsSubject(t *testing.T) {
	svc := newTokenService(t)
	r := newAuthRouter(svc)
	token, _, err := svc.Issue("bot", "accounts@example.com", time.Hour)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(AuthHeaderKey, "Bearer "+token)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "accounts@example.com", body["subject"])
	assert.Equal(t, "accounts@example.com", body["ctx_subject"])
	assert.Equal(t, true, body["has_claims"])
}
