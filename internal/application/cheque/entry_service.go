package cheque

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/currency"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultIssueConcurrency = 4
	defaultIdempotencyTTL   = 24 * time.Hour
)

// EntryService owns the Multiple Cheque Entry form logic: field cascades,
// row management, validation, Payment Entry issuance and cancellation.
type EntryService struct {
	repo        cheque.Repository
	directory   cheque.Directory
	rates       cheque.RateLookup
	gateway     cheque.PaymentEntryGateway
	idempotency shared.IdempotencyStore
	publisher   shared.EventPublisher
	pictures    PictureStore
	reconciler  *cheque.RateReconciler
	sessions    *sessionRegistry
	metrics     *telemetry.ChequeMetrics
	logger      *zap.Logger

	issueConcurrency int
	idempotencyTTL   time.Duration

	parentHandlers map[string]fieldHandler
	rowHandlers    map[string]fieldHandler
}

// EntryServiceConfig holds the dependencies of EntryService
type EntryServiceConfig struct {
	Repo        cheque.Repository
	Directory   cheque.Directory
	Rates       cheque.RateLookup
	Gateway     cheque.PaymentEntryGateway
	Idempotency shared.IdempotencyStore
	Publisher   shared.EventPublisher
	Pictures    PictureStore
	Metrics     *telemetry.ChequeMetrics
	Logger      *zap.Logger

	// IssueConcurrency bounds concurrent Payment Entry creation per submit
	IssueConcurrency int
	// IdempotencyTTL is how long an issued row key is remembered
	IdempotencyTTL time.Duration
}

// NewEntryService creates a new EntryService
func NewEntryService(cfg EntryServiceConfig) *EntryService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	concurrency := cfg.IssueConcurrency
	if concurrency <= 0 {
		concurrency = defaultIssueConcurrency
	}
	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}

	s := &EntryService{
		repo:             cfg.Repo,
		directory:        cfg.Directory,
		rates:            cfg.Rates,
		gateway:          cfg.Gateway,
		idempotency:      cfg.Idempotency,
		publisher:        cfg.Publisher,
		pictures:         cfg.Pictures,
		reconciler:       cheque.NewRateReconciler(),
		sessions:         newSessionRegistry(),
		metrics:          cfg.Metrics,
		logger:           logger,
		issueConcurrency: concurrency,
		idempotencyTTL:   ttl,
	}
	s.registerParentHandlers()
	s.registerRowHandlers()
	return s
}

// acquire returns the locked session for a document, loading it on first use.
// The caller must unlock sess.mu.
func (s *EntryService) acquire(ctx context.Context, id uuid.UUID) (*session, error) {
	sess := s.sessions.get(id)
	sess.mu.Lock()
	if sess.entry == nil {
		entry, err := s.repo.FindByID(ctx, id)
		if err != nil {
			sess.mu.Unlock()
			s.sessions.evict(id)
			return nil, err
		}
		sess.entry = entry
		s.metrics.RecordSessions(ctx, s.sessions.size())
	}
	return sess, nil
}

// persist saves the document and publishes its pending events. A version
// conflict evicts the session so the next request starts from storage.
func (s *EntryService) persist(ctx context.Context, sess *session) error {
	if err := s.repo.Save(ctx, sess.entry); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Warn("Cheque entry modified concurrently, dropping cached copy",
				zap.String("entry", sess.entry.Name),
				zap.Int("version", sess.entry.Version))
			s.sessions.evict(sess.id)
		}
		return err
	}
	s.publish(ctx, sess.entry.PullDomainEvents()...)
	return nil
}

func (s *EntryService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.publisher == nil || len(events) == 0 {
		return
	}
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Error("Failed to publish cheque entry events",
			zap.Int("count", len(events)),
			zap.Error(err))
	}
}

// lookupRate runs a planned lookup and records its outcome
func (s *EntryService) lookupRate(ctx context.Context, plan cheque.RatePlan) (decimal.Decimal, error) {
	started := time.Now()
	rate, err := s.rates.Lookup(ctx, plan.From, plan.To, plan.AsOf)

	outcome := telemetry.LookupFound
	switch {
	case errors.Is(err, currency.ErrRateNotFound):
		outcome = telemetry.LookupNotFound
	case err != nil:
		outcome = telemetry.LookupError
	}
	s.metrics.RecordLookup(ctx, plan.From.String(), plan.To.String(), outcome, time.Since(started))
	return rate, err
}

// Create creates a draft document seeded from the company defaults
func (s *EntryService) Create(ctx context.Context, req CreateEntryRequest) (*MutationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_entry", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrPaymentType, string(req.PaymentType),
		"company", req.Company,
	)

	if !req.PaymentType.IsValid() {
		err := fmt.Errorf("payment type %q: %w", req.PaymentType, shared.ErrInvalidInput)
		telemetry.RecordError(span, err)
		return nil, err
	}
	postingDate, err := parseDate(cheque.FieldPostingDate, req.PostingDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var notices []cheque.Notice
	defaults, err := s.directory.CompanyDefaults(ctx, req.Company)
	if err != nil {
		s.logger.Warn("Could not load company defaults", zap.String("company", req.Company), zap.Error(err))
		notices = append(notices, cheque.Notice{
			Level:   cheque.NoticeWarning,
			Field:   cheque.FieldCompany,
			Message: fmt.Sprintf("Could not load company defaults: %v", err),
		})
		defaults = &cheque.CompanyDefaults{}
	}

	entry, err := cheque.NewChequeEntry(req.Name, req.PaymentType, req.Company, defaults.DefaultCurrency, postingDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	applyAccountDefaults(entry, entry.PartyType, defaults)
	entry.ChequeBank = req.ChequeBank
	entry.BankAcc = req.BankAcc

	sess := s.sessions.get(entry.ID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.entry = entry

	if req.ModeOfPayment != "" {
		d, err := s.apply(ctx, sess, FieldChange{
			EntryID: entry.ID,
			Field:   cheque.FieldModeOfPayment,
			Value:   req.ModeOfPayment,
		})
		if err != nil {
			s.sessions.evict(entry.ID)
			telemetry.RecordError(span, err)
			return nil, err
		}
		notices = append(notices, d.notices...)
	}

	if err := s.persist(ctx, sess); err != nil {
		s.sessions.evict(entry.ID)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Cheque entry created",
		zap.String("entry", entry.Name),
		zap.String("payment_type", string(entry.PaymentType)),
		zap.String("company", entry.Company))
	telemetry.SetAttribute(span, telemetry.SpanAttrEntryID, entry.ID.String())
	telemetry.SetOK(span)
	return &MutationResult{Entry: ToEntryResponse(entry), Notices: notices}, nil
}

// Get returns a snapshot of the document
func (s *EntryService) Get(ctx context.Context, id uuid.UUID) (*EntryResponse, error) {
	sess, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()
	return ToEntryResponse(sess.entry), nil
}

// ChangeField applies one user edit and its cascade, then persists
func (s *EntryService) ChangeField(ctx context.Context, ch FieldChange) (*MutationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_entry", "change_field")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, ch.EntryID.String(),
		telemetry.SpanAttrField, ch.Field,
	)
	if ch.IsRowChange() {
		telemetry.SetAttributes(span,
			telemetry.SpanAttrTable, string(ch.Table),
			telemetry.SpanAttrRowID, ch.RowID.String(),
		)
	}

	sess, err := s.acquire(ctx, ch.EntryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer sess.mu.Unlock()

	d, err := s.apply(ctx, sess, ch)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.persist(ctx, sess); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttribute(span, "notices", len(d.notices))
	telemetry.SetOK(span)
	return &MutationResult{Entry: ToEntryResponse(sess.entry), Notices: d.notices}, nil
}

// apply routes a change to its handler. Called with sess.mu held.
func (s *EntryService) apply(ctx context.Context, sess *session, ch FieldChange) (*dispatch, error) {
	e := sess.entry
	if err := e.EnsureDraft(); err != nil {
		return nil, err
	}
	if err := sess.ensureIdle(); err != nil {
		return nil, err
	}

	d := s.newDispatch(ctx, sess, ch)
	var handler fieldHandler

	if ch.IsRowChange() {
		if !ch.Table.IsValid() {
			return nil, fmt.Errorf("cheque table %q: %w", ch.Table, shared.ErrInvalidInput)
		}
		row := e.Row(ch.Table, ch.RowID)
		if row == nil {
			return nil, fmt.Errorf("row %s in %s: %w", ch.RowID, ch.Table, shared.ErrNotFound)
		}
		if row.IsProcessed() {
			return nil, fmt.Errorf("row %d already has Payment Entry %s: %w", row.Idx, row.PaymentEntry, shared.ErrInvalidState)
		}
		handler = s.rowHandlers[ch.Field]
		if handler == nil {
			return nil, fmt.Errorf("unknown row field %q: %w", ch.Field, shared.ErrInvalidInput)
		}
		d.ref = d.bumpRow(ch.Table, row)
	} else {
		handler = s.parentHandlers[ch.Field]
		if handler == nil {
			return nil, fmt.Errorf("unknown field %q: %w", ch.Field, shared.ErrInvalidInput)
		}
		d.parentRev = sess.bumpField(ch.Field)
	}

	if err := handler(d); err != nil {
		return nil, err
	}
	if sess.entry != nil {
		sess.entry.Touch()
	}
	return d, nil
}

// AddRow appends a row with the parent defaults. When a mode of payment is
// inherited its default account is applied as a bank-side selection.
func (s *EntryService) AddRow(ctx context.Context, entryID uuid.UUID, table cheque.Table) (*MutationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_entry", "add_row")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, entryID.String(),
		telemetry.SpanAttrTable, string(table),
	)

	sess, err := s.acquire(ctx, entryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer sess.mu.Unlock()

	if err := sess.ensureIdle(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	row, err := sess.entry.AddRow(table)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var notices []cheque.Notice
	if row.ModeOfPayment != "" {
		d, err := s.apply(ctx, sess, FieldChange{
			EntryID: entryID,
			Table:   table,
			RowID:   row.ID,
			Field:   cheque.FieldModeOfPayment,
			Value:   row.ModeOfPayment,
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		notices = d.notices
	}

	if err := s.persist(ctx, sess); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrRowID, row.ID.String())
	telemetry.SetOK(span)
	return &MutationResult{Entry: ToEntryResponse(sess.entry), Notices: notices}, nil
}

// RemoveRow deletes a row and renumbers the table
func (s *EntryService) RemoveRow(ctx context.Context, entryID uuid.UUID, table cheque.Table, rowID uuid.UUID) (*MutationResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_entry", "remove_row")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryID, entryID.String(),
		telemetry.SpanAttrTable, string(table),
		telemetry.SpanAttrRowID, rowID.String(),
	)

	sess, err := s.acquire(ctx, entryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer sess.mu.Unlock()

	if err := sess.ensureIdle(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := sess.entry.RemoveRow(table, rowID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.persist(ctx, sess); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return &MutationResult{Entry: ToEntryResponse(sess.entry)}, nil
}

// Validate runs the submit checks without issuing anything
func (s *EntryService) Validate(ctx context.Context, id uuid.UUID) error {
	sess, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()
	return cheque.ValidateForSubmit(sess.entry)
}

