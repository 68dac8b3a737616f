package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func corsRouter(cfg CORSConfig) *gin.Engine {
	r := gin.New()
	r.Use(CORSWithConfig(cfg))
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	return r
}

func TestCORSWithConfig(t *testing.T) {
	whitelist := DefaultCORSConfig()
	whitelist.AllowOrigins = []string{"https://erp.example.com"}

	wildcard := DefaultCORSConfig()
	wildcard.AllowOrigins = []string{"*"}

	tests := []struct {
		name            string
		cfg             CORSConfig
		method          string
		origin          string
		wantStatus      int
		wantAllowOrigin string
		wantCredentials string
	}{
		{name: "default refuses cross origin", cfg: DefaultCORSConfig(), method: http.MethodGet, origin: "https://evil.example", wantStatus: http.StatusOK},
		{name: "whitelisted origin", cfg: whitelist, method: http.MethodGet, origin: "https://erp.example.com", wantStatus: http.StatusOK, wantAllowOrigin: "https://erp.example.com", wantCredentials: "true"},
		{name: "unlisted origin", cfg: whitelist, method: http.MethodGet, origin: "https://other.example", wantStatus: http.StatusOK},
		{name: "wildcard drops credentials", cfg: wildcard, method: http.MethodGet, origin: "https://any.example", wantStatus: http.StatusOK, wantAllowOrigin: "*"},
		{name: "preflight allowed", cfg: whitelist, method: http.MethodOptions, origin: "https://erp.example.com", wantStatus: http.StatusNoContent, wantAllowOrigin: "https://erp.example.com", wantCredentials: "true"},
		{name: "preflight refused still 204", cfg: whitelist, method: http.MethodOptions, origin: "https://other.example", wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			corsRouter(tt.cfg).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantAllowOrigin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, tt.wantCredentials, w.Header().Get("Access-Control-Allow-Credentials"))
			if tt.wantAllowOrigin != "" {
				assert.Equal(t, "43200", w.Header().Get("Access-Control-Max-Age"))
				assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/test", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	t.Run("keeps caller id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		r.ServeHTTP(w, req)

		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "req-42", w.Body.String())
	})

	t.Run("generates when missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})

	t.Run("replaces oversized id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", MaxRequestIDLength+1))
		r.ServeHTTP(w, req)

		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})
}

func TestSecure(t *testing.T) {
	for _, hsts := range []bool{false, true} {
		r := gin.New()
		r.Use(Secure(hsts))
		r.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		if hsts {
			assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
		} else {
			assert.Empty(t, w.Header().Get("Strict-Transport-Security"))
		}
	}
}
