package hostrpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/erp/cheques/internal/infrastructure/config"
	"github.com/stretchr/testify/require"
)

// fakeHost routes /api/method/{method} to per-method handlers and records calls
type fakeHost struct {
	t       *testing.T
	mu      sync.Mutex
	methods map[string]func(args map[string]any) (int, any)
	calls   []recordedCall
}

type recordedCall struct {
	Method string
	Auth   string
	Args   map[string]any
}

func newFakeHost(t *testing.T) *fakeHost {
	return &fakeHost{t: t, methods: make(map[string]func(map[string]any) (int, any))}
}

func (h *fakeHost) on(method string, fn func(args map[string]any) (int, any)) {
	h.methods[method] = fn
}

func (h *fakeHost) reply(method string, message any) {
	h.on(method, func(map[string]any) (int, any) {
		return http.StatusOK, map[string]any{"message": message}
	})
}

func (h *fakeHost) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	method := strings.TrimPrefix(r.URL.Path, "/api/method/")
	body, _ := io.ReadAll(r.Body)
	var args map[string]any
	_ = json.Unmarshal(body, &args)

	h.mu.Lock()
	h.calls = append(h.calls, recordedCall{Method: method, Auth: r.Header.Get("Authorization"), Args: args})
	fn, ok := h.methods[method]
	h.mu.Unlock()

	if r.Method != http.MethodPost || !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	status, resp := fn(args)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *fakeHost) callsTo(method string) []recordedCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []recordedCall
	for _, c := range h.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func newTestClient(t *testing.T, host *fakeHost) *Client {
	t.Helper()
	srv := httptest.NewServer(host)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.HostConfig{
		BaseURL:   srv.URL + "/",
		APIKey:    "key",
		APISecret: "secret",
		Timeout:   2 * time.Second,
	})
	require.NoError(t, err)
	return c
}

var ctx = context.Background()
