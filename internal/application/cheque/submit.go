package cheque

import (
	"context"
	"fmt"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Submit validates the document and issues one Payment Entry per pending row.
// The document is only marked submitted once every active row carries a
// Payment Entry; otherwise it stays a draft and can be submitted again.
func (s *EntryService) Submit(ctx context.Context, id uuid.UUID) (*SubmitResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_entry", "submit")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrEntryID, id.String())

	sess, err := s.acquire(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer sess.mu.Unlock()

	e := sess.entry
	if err := e.EnsureDraft(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := sess.ensureIdle(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := cheque.ValidateForSubmit(e); err != nil {
		s.logger.Info("Cheque entry failed validation", zap.String("entry", e.Name), zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, err
	}

	snap := snapshotForIssue(e)
	telemetry.SetAttributes(span,
		telemetry.SpanAttrEntryName, e.Name,
		telemetry.SpanAttrPaymentType, e.PaymentType.String(),
		telemetry.SpanAttrRowCount, len(snap.jobs)+len(snap.skipped),
	)

	sess.busy = "submitted"
	sess.mu.Unlock()
	outcomes := s.issueAll(ctx, snap)
	sess.mu.Lock()
	sess.busy = ""

	// An edit that was already waiting on a remote read may have hit a save
	// conflict and evicted the session; the next request reloads from storage,
	// where the issued Payment Entries are already stored per row.
	if !s.sessions.holds(sess) {
		err := fmt.Errorf("cheque entry %s was reloaded during submission: %w", e.Name, shared.ErrConcurrencyConflict)
		s.logger.Warn("Cheque entry session evicted during submission",
			zap.String("entry", e.Name),
			zap.Strings("payment_entries", issuedNames(outcomes)))
		telemetry.RecordError(span, err)
		return nil, err
	}

	issued, conflict := applyOutcomes(e, snap, outcomes)
	if conflict != nil {
		s.logger.Error("Cheque entry changed during submission",
			zap.String("entry", e.Name),
			zap.Strings("payment_entries", issued),
			zap.Error(conflict))
	}
	if conflict == nil && e.IsDraft() && e.AllRowsIssued() {
		if err := e.MarkSubmitted(); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	e.Touch()

	if err := s.persist(ctx, sess); err != nil {
		// Issued Payment Entries are already stored per row
		s.logger.Error("Failed to save cheque entry after issuance",
			zap.String("entry", e.Name),
			zap.Strings("payment_entries", issued),
			zap.Error(err))
		telemetry.RecordError(span, err)
		return nil, err
	}
	if conflict != nil {
		telemetry.RecordError(span, conflict)
		return nil, conflict
	}

	submitted := e.DocStatus == cheque.DocStatusSubmitted
	s.logger.Info("Cheque entry submission finished",
		zap.String("entry", e.Name),
		zap.Int("issued", len(issued)),
		zap.Int("rows", len(outcomes)),
		zap.Bool("submitted", submitted))
	telemetry.SetAttribute(span, telemetry.SpanAttrIssuedCount, len(issued))
	telemetry.SetOK(span)

	if issued == nil {
		issued = []string{}
	}
	return &SubmitResult{
		Entry:          ToEntryResponse(e),
		Submitted:      submitted,
		PaymentEntries: issued,
		Outcomes:       outcomes,
	}, nil
}

// Cancel cancels every submitted Payment Entry linked to the document and
// then the document itself. The first failure aborts the cancellation.
func (s *EntryService) Cancel(ctx context.Context, id uuid.UUID) (*CancelResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_entry", "cancel")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrEntryID, id.String())

	sess, err := s.acquire(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	defer sess.mu.Unlock()

	e := sess.entry
	if err := sess.ensureIdle(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if e.DocStatus != cheque.DocStatusSubmitted {
		err := e.MarkCancelled()
		telemetry.RecordError(span, err)
		return nil, err
	}
	name := e.Name

	var (
		cancelled []string
		cancelErr error
	)
	sess.busy = "cancelled"
	sess.mu.Unlock()
	func() {
		linked, err := s.gateway.ListLinked(ctx, name)
		if err != nil {
			cancelErr = fmt.Errorf("list Payment Entries of %s: %w", name, err)
			return
		}
		for _, pe := range linked {
			if pe.DocStatus != cheque.DocStatusSubmitted {
				continue
			}
			if err := s.gateway.Cancel(ctx, pe.Name); err != nil {
				cancelErr = fmt.Errorf("cancel Payment Entry %s: %w", pe.Name, err)
				return
			}
			cancelled = append(cancelled, pe.Name)
		}
	}()
	sess.mu.Lock()
	sess.busy = ""

	if cancelErr != nil {
		s.logger.Error("Cheque entry cancellation aborted",
			zap.String("entry", name),
			zap.Strings("cancelled", cancelled),
			zap.Error(cancelErr))
		telemetry.RecordError(span, cancelErr)
		return nil, cancelErr
	}

	if !s.sessions.holds(sess) {
		err := fmt.Errorf("cheque entry %s was reloaded during cancellation: %w", name, shared.ErrConcurrencyConflict)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := e.MarkCancelled(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.persist(ctx, sess); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Cheque entry cancelled",
		zap.String("entry", name),
		zap.Strings("payment_entries", cancelled))
	telemetry.SetOK(span)
	if cancelled == nil {
		cancelled = []string{}
	}
	return &CancelResult{Entry: ToEntryResponse(e), Cancelled: cancelled}, nil
}

func issuedNames(outcomes []RowOutcome) []string {
	var names []string
	for _, out := range outcomes {
		if out.Status == OutcomeIssued {
			names = append(names, out.PaymentEntry)
		}
	}
	return names
}
