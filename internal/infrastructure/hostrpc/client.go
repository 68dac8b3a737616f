// Package hostrpc talks to the host ERP over its REST/RPC dialect and adapts
// it to the cheque and currency ports.
package hostrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/erp/cheques/internal/infrastructure/config"
	"github.com/erp/cheques/internal/infrastructure/logger"
	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxResponseSize caps response bodies read from the host
const maxResponseSize = 10 * 1024 * 1024

// Client calls whitelisted host methods at POST {base}/api/method/{method}
type Client struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient builds a client from host configuration
func NewClient(cfg config.HostConfig, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hostrpc: base url is required")
	}
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimitPerSecond > 0 {
		limit = rate.Limit(cfg.RateLimitPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authHeader: "token " + cfg.APIKey + ":" + cfg.APISecret,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, burst),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Call invokes method with args and decodes the "message" field into out.
// out may be nil when the result is not needed.
func (c *Client) Call(ctx context.Context, method string, args any, out any) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "hostrpc", method,
		telemetry.WithAttribute(telemetry.SpanAttrHostMethod, method))
	defer func() {
		if err != nil {
			telemetry.RecordError(span, err)
		}
		span.End()
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return &RemoteCallError{Method: method, Err: err}
	}

	body, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("hostrpc: marshal %s args: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/method/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("hostrpc: build %s request: %w", method, err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if rid := logger.GetRequestID(ctx); rid != "" {
		req.Header.Set("X-Request-ID", rid)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &RemoteCallError{Method: method, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &RemoteCallError{Method: method, Status: resp.StatusCode, Err: err}
	}

	logger.WithLogger(ctx, c.logger).Debug("host call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	telemetry.SetAttribute(span, "http.status_code", resp.StatusCode)

	if resp.StatusCode >= http.StatusBadRequest {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		return &RemoteCallError{
			Method:  method,
			Status:  resp.StatusCode,
			ExcType: eb.ExcType,
			Message: eb.serverMessage(),
		}
	}

	if out == nil {
		return nil
	}
	var envelope struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return &RemoteCallError{Method: method, Status: resp.StatusCode, Message: "malformed response", Err: err}
	}
	if len(envelope.Message) == 0 || string(envelope.Message) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Message, out); err != nil {
		return &RemoteCallError{Method: method, Status: resp.StatusCode, Message: "unexpected response shape", Err: err}
	}
	return nil
}

// ListQuery describes a frappe.client.get_list call
type ListQuery struct {
	Doctype string   `json:"doctype"`
	Filters any      `json:"filters,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	OrderBy string   `json:"order_by,omitempty"`
	GroupBy string   `json:"group_by,omitempty"`
	Limit   int      `json:"limit_page_length"`
}

// GetList runs frappe.client.get_list and decodes the rows into out
func (c *Client) GetList(ctx context.Context, q ListQuery, out any) error {
	return c.Call(ctx, "frappe.client.get_list", q, out)
}

// Get fetches a whole document
func (c *Client) Get(ctx context.Context, doctype, name string, out any) error {
	return c.Call(ctx, "frappe.client.get", map[string]any{"doctype": doctype, "name": name}, out)
}

// GetValue fetches one or more fields of the first document matching filters.
// The result is an object keyed by field name.
func (c *Client) GetValue(ctx context.Context, doctype string, fields []string, filters map[string]any, out any) error {
	var fieldname any = fields
	if len(fields) == 1 {
		fieldname = fields[0]
	}
	return c.Call(ctx, "frappe.client.get_value", map[string]any{
		"doctype":   doctype,
		"fieldname": fieldname,
		"filters":   filters,
	}, out)
}

// Insert creates a document and returns the stored copy
func (c *Client) Insert(ctx context.Context, doc any) (json.RawMessage, error) {
	var stored json.RawMessage
	if err := c.Call(ctx, "frappe.client.insert", map[string]any{"doc": doc}, &stored); err != nil {
		return nil, err
	}
	return stored, nil
}

// Submit submits a previously inserted document
func (c *Client) Submit(ctx context.Context, doc json.RawMessage, out any) error {
	return c.Call(ctx, "frappe.client.submit", map[string]any{"doc": doc}, out)
}

// Delete removes a draft document
func (c *Client) Delete(ctx context.Context, doctype, name string) error {
	return c.Call(ctx, "frappe.client.delete", map[string]any{"doctype": doctype, "name": name}, nil)
}

// Cancel cancels a submitted document
func (c *Client) Cancel(ctx context.Context, doctype, name string) error {
	return c.Call(ctx, "frappe.client.cancel", map[string]any{"doctype": doctype, "name": name}, nil)
}
