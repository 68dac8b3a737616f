package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	chequeapp "github.com/erp/cheques/internal/application/cheque"
	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/erp/cheques/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// memEntryRepo keeps entries by ID with optimistic versions
type memEntryRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*cheque.ChequeEntry
}

func newMemEntryRepo() *memEntryRepo {
	return &memEntryRepo{entries: make(map[uuid.UUID]*cheque.ChequeEntry)}
}

func (r *memEntryRepo) FindByID(_ context.Context, id uuid.UUID) (*cheque.ChequeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return e, nil
}

func (r *memEntryRepo) FindByName(_ context.Context, name string) (*cheque.ChequeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memEntryRepo) Save(_ context.Context, e *cheque.ChequeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[e.ID] = e
	return nil
}

func (r *memEntryRepo) SetRowPaymentEntry(context.Context, uuid.UUID, string) error {
	return nil
}

// MockDirectory implements cheque.Directory for testing
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) AccountCurrency(ctx context.Context, account string) (valueobject.Currency, error) {
	args := m.Called(ctx, account)
	return valueobject.Currency(args.String(0)), args.Error(1)
}

func (m *MockDirectory) PartyName(ctx context.Context, partyType cheque.PartyType, party string) (string, error) {
	args := m.Called(ctx, partyType, party)
	return args.String(0), args.Error(1)
}

func (m *MockDirectory) PartyAccount(ctx context.Context, partyType cheque.PartyType, party, company string) (string, error) {
	args := m.Called(ctx, partyType, party, company)
	return args.String(0), args.Error(1)
}

func (m *MockDirectory) CompanyDefaults(ctx context.Context, company string) (*cheque.CompanyDefaults, error) {
	args := m.Called(ctx, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cheque.CompanyDefaults), args.Error(1)
}

func (m *MockDirectory) ModeOfPayment(ctx context.Context, name, company string) (*cheque.ModeOfPaymentInfo, error) {
	args := m.Called(ctx, name, company)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cheque.ModeOfPaymentInfo), args.Error(1)
}

func cairoDefaults() *cheque.CompanyDefaults {
	return &cheque.CompanyDefaults{
		DefaultCurrency:      "EGP",
		ReceivableAccount:    "Debtors - C",
		PayableAccount:       "Creditors - C",
		IncomingChequeWallet: "Cheque Wallet - C",
	}
}

// envelope mirrors dto.Response with a raw data payload
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string          `json:"code"`
		Message   string          `json:"message"`
		RequestID string          `json:"request_id"`
		Details   json.RawMessage `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, into))
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// entryFixture is a gin engine serving one ChequeEntryHandler
type entryFixture struct {
	engine    *gin.Engine
	repo      *memEntryRepo
	directory *MockDirectory
}

func newEntryFixture(t *testing.T, pictures chequeapp.PictureStore) *entryFixture {
	t.Helper()
	f := &entryFixture{
		engine:    gin.New(),
		repo:      newMemEntryRepo(),
		directory: new(MockDirectory),
	}
	f.directory.On("CompanyDefaults", mock.Anything, "Cairo Co").Return(cairoDefaults(), nil).Maybe()

	svc := chequeapp.NewEntryService(chequeapp.EntryServiceConfig{
		Repo:      f.repo,
		Directory: f.directory,
		Pictures:  pictures,
	})
	h := NewChequeEntryHandler(svc)

	g := f.engine.Group("/cheque-entries")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id/fields", h.ChangeField)
	g.POST("/:id/validate", h.Validate)
	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/tables/:table/rows", h.AddRow)
	g.DELETE("/:id/tables/:table/rows/:row_id", h.RemoveRow)
	g.PATCH("/:id/tables/:table/rows/:row_id/fields", h.ChangeRowField)
	g.POST("/:id/tables/:table/rows/:row_id/picture", h.UploadPicture)
	return f
}

func (f *entryFixture) do(method, path string, body any) *httptest.ResponseRecorder {
	return doJSON(f.engine, method, path, body)
}

// create posts a Receive draft for Cairo Co and returns it
func (f *entryFixture) create(t *testing.T) chequeapp.EntryResponse {
	t.Helper()
	w := f.do(http.MethodPost, "/cheque-entries", map[string]any{
		"payment_type": "Receive",
		"company":      "Cairo Co",
		"posting_date": "2024-03-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res chequeapp.MutationResult
	decodeData(t, w, &res)
	return *res.Entry
}

// addRow appends a row to table and returns the updated document
func (f *entryFixture) addRow(t *testing.T, id uuid.UUID, table cheque.Table) chequeapp.EntryResponse {
	t.Helper()
	w := f.do(http.MethodPost, "/cheque-entries/"+id.String()+"/tables/"+string(table)+"/rows", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res chequeapp.MutationResult
	decodeData(t, w, &res)
	return *res.Entry
}
