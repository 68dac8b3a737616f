package cheque

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/domain/shared/valueobject"
	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// issueJob is a row snapshot taken under the session lock
type issueJob struct {
	row *cheque.ChequeRow
}

// issueSnapshot is everything issuance reads from the document
type issueSnapshot struct {
	header *cheque.ChequeEntry
	jobs   []issueJob
	// skipped are rows that already carry a Payment Entry
	skipped []RowOutcome
}

// snapshotForIssue copies the header and the unprocessed active rows.
// Called with the session lock held.
func snapshotForIssue(e *cheque.ChequeEntry) issueSnapshot {
	header := *e
	header.ReceiveRows = nil
	header.PayRows = nil

	snap := issueSnapshot{header: &header}
	for _, row := range e.ActiveRows() {
		if row.IsProcessed() {
			snap.skipped = append(snap.skipped, RowOutcome{
				RowID:        row.ID,
				RowIdx:       row.Idx,
				Status:       OutcomeSkipped,
				PaymentEntry: row.PaymentEntry,
			})
			continue
		}
		snap.jobs = append(snap.jobs, issueJob{row: row.Clone()})
	}
	return snap
}

func issueKey(entryName string, job issueJob) string {
	return fmt.Sprintf("cheque:%s:%s", entryName, job.row.ID)
}

// issueAll creates one Payment Entry per job, bounded by issueConcurrency.
// It must be called without the session lock and returns once every row
// has an outcome.
func (s *EntryService) issueAll(ctx context.Context, snap issueSnapshot) []RowOutcome {
	outcomes := make([]RowOutcome, len(snap.jobs))
	sem := make(chan struct{}, s.issueConcurrency)
	var wg sync.WaitGroup

	for i, job := range snap.jobs {
		wg.Add(1)
		go func(i int, job issueJob) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outcomes[i] = s.issueRow(ctx, snap.header, job)
		}(i, job)
	}
	wg.Wait()

	all := append(outcomes, snap.skipped...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].RowIdx < all[j].RowIdx })
	return all
}

// issueRow runs the issuance steps for one row
func (s *EntryService) issueRow(ctx context.Context, header *cheque.ChequeEntry, job issueJob) RowOutcome {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_issuer", "issue_row")
	defer span.End()

	row := job.row
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryName, header.Name,
		telemetry.SpanAttrRowID, row.ID.String(),
		telemetry.SpanAttrRowIdx, row.Idx,
	)
	out := RowOutcome{RowID: row.ID, RowIdx: row.Idx}
	log := s.logger.With(
		zap.String("entry", header.Name),
		zap.Int("row_idx", row.Idx),
		zap.String("row_id", row.ID.String()))

	key := issueKey(header.Name, job)
	if s.idempotency != nil {
		marked, err := s.idempotency.MarkProcessed(ctx, key, s.idempotencyTTL)
		if err != nil {
			log.Error("Failed to mark row for issuance", zap.Error(err))
			out.Status = OutcomeRemoteFailure
			out.Err = err
			out.Message = fmt.Sprintf("Row %d: %v", row.Idx, err)
			s.finishOutcome(ctx, header, out)
			telemetry.RecordError(span, err)
			return out
		}
		if !marked {
			log.Info("Row is already being issued, skipping")
			out.Status = OutcomeSkipped
			out.Message = fmt.Sprintf("Row %d is already being issued", row.Idx)
			s.finishOutcome(ctx, header, out)
			return out
		}
	}
	release := func() {
		if s.idempotency == nil {
			return
		}
		if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
			log.Warn("Failed to release issuance key", zap.Error(err))
		}
	}

	cur := s.issueCurrencies(ctx, header, row, log)
	if err := cheque.CheckZeroRate(row, header.PaymentType, cur); err != nil {
		release()
		log.Warn("Skipping row without exchange rate", zap.Error(err))
		out.Status = OutcomeZeroRate
		out.Err = err
		out.Message = err.Error()
		s.finishOutcome(ctx, header, out)
		return out
	}

	req, err := cheque.BuildPaymentEntryRequest(header, row, cur)
	if err != nil {
		release()
		out.Status = OutcomeZeroRate
		out.Err = err
		out.Message = err.Error()
		s.finishOutcome(ctx, header, out)
		return out
	}

	pe, err := s.gateway.Create(ctx, req)
	if err != nil {
		release()
		log.Error("Failed to create Payment Entry", zap.Error(err))
		out.Status = OutcomeRemoteFailure
		out.Err = err
		out.Message = fmt.Sprintf("Row %d: %v", row.Idx, err)
		s.finishOutcome(ctx, header, out)
		telemetry.RecordError(span, err)
		return out
	}

	out.Status = OutcomeIssued
	out.PaymentEntry = pe
	telemetry.SetAttribute(span, telemetry.SpanAttrPaymentEntry, pe)

	// The Payment Entry exists from here on and points back at the row through
	// cheque_table_no. A failed local write keeps the key so the row is not
	// issued a second time.
	if err := s.repo.SetRowPaymentEntry(ctx, row.ID, pe); err != nil {
		log.Error("Failed to store Payment Entry on row", zap.String("payment_entry", pe), zap.Error(err))
		telemetry.AddEvent(span, "row_write_failed", "error", err.Error())
		out.Message = fmt.Sprintf("Payment Entry %s created but not stored on row %d: %v", pe, row.Idx, err)
	}

	log.Info("Payment Entry issued", zap.String("payment_entry", pe))
	s.finishOutcome(ctx, header, out)
	telemetry.SetOK(span)
	return out
}

// issueCurrencies resolves both account currencies from the Account master,
// falling back to the row and then to the company currency.
func (s *EntryService) issueCurrencies(ctx context.Context, header *cheque.ChequeEntry, row *cheque.ChequeRow, log *zap.Logger) cheque.IssueCurrencies {
	resolve := func(account string, rowValue valueobject.Currency) valueobject.Currency {
		if account != "" {
			cur, err := s.directory.AccountCurrency(ctx, account)
			if err != nil {
				log.Warn("Could not read account currency, using row value",
					zap.String("account", account), zap.Error(err))
			} else if !cur.IsZero() {
				return cur
			}
		}
		if !rowValue.IsZero() {
			return rowValue
		}
		return header.CompanyCurrency
	}
	return cheque.IssueCurrencies{
		PaidFrom: resolve(row.AccountPaidFrom, row.AccountCurrencyFrom),
		PaidTo:   resolve(row.AccountPaidTo, row.AccountCurrency),
	}
}

func (s *EntryService) finishOutcome(ctx context.Context, header *cheque.ChequeEntry, out RowOutcome) {
	var metric string
	switch out.Status {
	case OutcomeIssued:
		metric = telemetry.IssuanceIssued
	case OutcomeSkipped:
		metric = telemetry.IssuanceSkipped
	case OutcomeZeroRate:
		metric = telemetry.IssuanceZeroRate
	default:
		metric = telemetry.IssuanceRemoteFailure
	}
	s.metrics.RecordIssuance(ctx, header.PaymentType.String(), metric)
}

// applyOutcomes writes issued Payment Entries back onto the live rows and
// records one event per attempted row. Called with the session lock held.
// Rows are resolved by ID only: an issued Payment Entry must never be lost
// because the row was edited meanwhile. A row that is gone or no longer
// matches what was issued is returned as a conflict.
func applyOutcomes(e *cheque.ChequeEntry, snap issueSnapshot, outcomes []RowOutcome) ([]string, error) {
	issuedFrom := make(map[uuid.UUID]*cheque.ChequeRow, len(snap.jobs))
	for _, job := range snap.jobs {
		issuedFrom[job.row.ID] = job.row
	}

	var (
		issued    []string
		conflicts []string
	)
	for _, out := range outcomes {
		switch out.Status {
		case OutcomeIssued:
			issued = append(issued, out.PaymentEntry)
			row, _, ok := e.FindRow(out.RowID)
			if !ok {
				conflicts = append(conflicts, fmt.Sprintf("row %d was removed after %s was issued", out.RowIdx, out.PaymentEntry))
				continue
			}
			if sent, ok := issuedFrom[row.ID]; ok && !row.SameIssuance(sent) {
				conflicts = append(conflicts, fmt.Sprintf("row %d changed after %s was issued", row.Idx, out.PaymentEntry))
			}
			row.PaymentEntry = out.PaymentEntry
			e.AddDomainEvent(cheque.NewPaymentEntryIssuedEvent(e, row))
		case OutcomeZeroRate, OutcomeRemoteFailure:
			reason := out.Message
			var zr *cheque.ZeroRateError
			if errors.As(out.Err, &zr) {
				reason = zr.Error()
			}
			e.AddDomainEvent(cheque.NewPaymentEntryFailedEvent(e, out.RowID, out.RowIdx, reason))
		}
	}
	if len(conflicts) > 0 {
		return issued, fmt.Errorf("cheque entry %s: %s: %w", e.Name, strings.Join(conflicts, "; "), shared.ErrConcurrencyConflict)
	}
	return issued, nil
}
