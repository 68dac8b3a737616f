package cheque

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// =============================================================================
// In-memory repository
// =============================================================================

type memRepo struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]*cheque.ChequeEntry
	versions map[uuid.UUID]int
	rowPE    map[uuid.UUID]string
	saves    int
	setErr   error
}

func newMemRepo() *memRepo {
	return &memRepo{
		entries:  make(map[uuid.UUID]*cheque.ChequeEntry),
		versions: make(map[uuid.UUID]int),
		rowPE:    make(map[uuid.UUID]string),
	}
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*cheque.ChequeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return e, nil
}

func (r *memRepo) FindByName(_ context.Context, name string) (*cheque.ChequeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRepo) Save(_ context.Context, e *cheque.ChequeEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves++
	stored, ok := r.versions[e.ID]
	if ok {
		if stored != e.Version {
			return shared.ErrConcurrencyConflict
		}
		e.Version++
	}
	r.versions[e.ID] = e.Version
	r.entries[e.ID] = e
	return nil
}

func (r *memRepo) SetRowPaymentEntry(_ context.Context, rowID uuid.UUID, pe string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	r.rowPE[rowID] = pe
	return nil
}

func (r *memRepo) paymentEntryOf(rowID uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rowPE[rowID]
}

// =============================================================================
// Host directory fake
// =============================================================================

type fakeDirectory struct {
	mu              sync.Mutex
	accountCurrency map[string]valueobject.Currency
	accountErr      map[string]error
	partyNames      map[string]string
	partyAccounts   map[string]string
	companies       map[string]*cheque.CompanyDefaults
	companyErr      error
	modes           map[string]*cheque.ModeOfPaymentInfo
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		accountCurrency: map[string]valueobject.Currency{
			"Debtors - C":       "EGP",
			"Creditors - C":     "EGP",
			"Cheque Wallet - C": "EGP",
			"USD Wallet - C":    "USD",
			"USD Bank - C":      "USD",
			"EGP Bank - C":      "EGP",
		},
		accountErr: make(map[string]error),
		partyNames: map[string]string{
			"CUST-001": "Nile Traders",
			"SUP-001":  "Delta Supplies",
		},
		partyAccounts: map[string]string{
			"CUST-001": "Debtors - C",
			"SUP-001":  "Creditors - C",
		},
		companies: map[string]*cheque.CompanyDefaults{
			"Cairo Co": {
				DefaultCurrency:      "EGP",
				ReceivableAccount:    "Debtors - C",
				PayableAccount:       "Creditors - C",
				IncomingChequeWallet: "Cheque Wallet - C",
			},
		},
		modes: map[string]*cheque.ModeOfPaymentInfo{
			"Cheque":     {Name: "Cheque", Type: "Cheque", DefaultAccount: "USD Wallet - C"},
			"Cheque EGP": {Name: "Cheque EGP", Type: "Cheque"},
		},
	}
}

func (f *fakeDirectory) AccountCurrency(_ context.Context, account string) (valueobject.Currency, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.accountErr[account]; err != nil {
		return "", err
	}
	return f.accountCurrency[account], nil
}

func (f *fakeDirectory) PartyName(_ context.Context, _ cheque.PartyType, party string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partyNames[party], nil
}

func (f *fakeDirectory) PartyAccount(_ context.Context, _ cheque.PartyType, party, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.partyAccounts[party], nil
}

func (f *fakeDirectory) CompanyDefaults(_ context.Context, company string) (*cheque.CompanyDefaults, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.companyErr != nil {
		return nil, f.companyErr
	}
	d, ok := f.companies[company]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return d, nil
}

func (f *fakeDirectory) ModeOfPayment(_ context.Context, name, _ string) (*cheque.ModeOfPaymentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.modes[name]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return m, nil
}

// =============================================================================
// Mock Payment Entry gateway
// =============================================================================

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Create(ctx context.Context, req *cheque.PaymentEntryRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) ListLinked(ctx context.Context, entryName string) ([]cheque.LinkedPaymentEntry, error) {
	args := m.Called(ctx, entryName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]cheque.LinkedPaymentEntry), args.Error(1)
}

func (m *MockGateway) Cancel(ctx context.Context, name string) error {
	args := m.Called(ctx, name)
	return args.Error(0)
}

// =============================================================================
// Idempotency store and event publisher
// =============================================================================

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{keys: make(map[string]bool)}
}

func (s *memIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memIdempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memIdempotency) Close() error { return nil }

type capturePublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// =============================================================================
// Rate lookups
// =============================================================================

// blockingLookup holds the first lookup until release is closed
type blockingLookup struct {
	inner   cheque.RateLookup
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingLookup(inner cheque.RateLookup) *blockingLookup {
	return &blockingLookup{
		inner:   inner,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (b *blockingLookup) Lookup(ctx context.Context, from, to valueobject.Currency, asOf time.Time) (decimal.Decimal, error) {
	first := false
	b.once.Do(func() { first = true })
	if first {
		close(b.started)
		<-b.release
	}
	return b.inner.Lookup(ctx, from, to, asOf)
}

// =============================================================================
// Picture store
// =============================================================================

type memPictures struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	putErr  error
}

func newMemPictures() *memPictures {
	return &memPictures{objects: make(map[string][]byte)}
}

func (p *memPictures) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.putErr != nil {
		return "", p.putErr
	}
	p.objects[key] = data
	return "mem://" + key, nil
}

func (p *memPictures) DownloadURL(_ context.Context, ref string) (string, time.Time, error) {
	return "https://files.test/" + ref, time.Time{}, nil
}

func (p *memPictures) Delete(_ context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, ref)
	return nil
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	svc         *EntryService
	repo        *memRepo
	directory   *fakeDirectory
	gateway     *MockGateway
	idempotency *memIdempotency
	publisher   *capturePublisher
	rates       *currency.MemoryRateStore
	pictures    *memPictures
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func mustRate(t *testing.T, from, to, rate, date string) *currency.ExchangeRate {
	t.Helper()
	r, err := currency.NewExchangeRate(from, to, dec(rate), day(date))
	require.NoError(t, err)
	return r
}

func newFixture(t *testing.T, lookup ...cheque.RateLookup) *fixture {
	t.Helper()
	f := &fixture{
		repo:        newMemRepo(),
		directory:   newFakeDirectory(),
		gateway:     new(MockGateway),
		idempotency: newMemIdempotency(),
		publisher:   &capturePublisher{},
		rates:       currency.NewMemoryRateStore(mustRate(t, "USD", "EGP", "30", "2024-01-01")),
		pictures:    newMemPictures(),
	}
	var rl cheque.RateLookup = currency.NewExchangeRateLookup(f.rates)
	if len(lookup) > 0 {
		rl = lookup[0]
	}
	f.svc = NewEntryService(EntryServiceConfig{
		Repo:        f.repo,
		Directory:   f.directory,
		Rates:       rl,
		Gateway:     f.gateway,
		Idempotency: f.idempotency,
		Publisher:   f.publisher,
		Pictures:    f.pictures,
		Logger:      zap.NewNop(),
	})
	return f
}

func (f *fixture) create(t *testing.T, pt cheque.PaymentType) *EntryResponse {
	t.Helper()
	res, err := f.svc.Create(context.Background(), CreateEntryRequest{
		PaymentType: pt,
		Company:     "Cairo Co",
		PostingDate: "2024-03-01",
	})
	require.NoError(t, err)
	return res.Entry
}

func (f *fixture) addRow(t *testing.T, entryID uuid.UUID, table cheque.Table) *cheque.ChequeRow {
	t.Helper()
	res, err := f.svc.AddRow(context.Background(), entryID, table)
	require.NoError(t, err)
	rows := res.Entry.ReceiveRows
	if table == cheque.TablePay {
		rows = res.Entry.PayRows
	}
	return rows[len(rows)-1]
}

func (f *fixture) setRow(t *testing.T, entryID uuid.UUID, table cheque.Table, rowID uuid.UUID, field, value string) *MutationResult {
	t.Helper()
	res, err := f.svc.ChangeField(context.Background(), FieldChange{
		EntryID: entryID,
		Table:   table,
		RowID:   rowID,
		Field:   field,
		Value:   value,
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) setParent(t *testing.T, entryID uuid.UUID, field, value string) *MutationResult {
	t.Helper()
	res, err := f.svc.ChangeField(context.Background(), FieldChange{
		EntryID: entryID,
		Field:   field,
		Value:   value,
	})
	require.NoError(t, err)
	return res
}

func findRow(resp *EntryResponse, id uuid.UUID) *cheque.ChequeRow {
	for _, r := range append(append([]*cheque.ChequeRow{}, resp.ReceiveRows...), resp.PayRows...) {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// receiveRow builds a ready Receive row: party EGP, cheque USD, 100 at 30
func (f *fixture) receiveRow(t *testing.T, entryID uuid.UUID) uuid.UUID {
	t.Helper()
	row := f.addRow(t, entryID, cheque.TableReceive)
	f.setRow(t, entryID, cheque.TableReceive, row.ID, cheque.FieldParty, "CUST-001")
	f.setRow(t, entryID, cheque.TableReceive, row.ID, cheque.FieldAccountPaidTo, "USD Wallet - C")
	f.setRow(t, entryID, cheque.TableReceive, row.ID, cheque.FieldPaidAmount, "100")
	return row.ID
}
