package cheque

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/erp/cheques/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPictureSize caps an uploaded cheque picture
const MaxPictureSize = 10 << 20

var pictureExtensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// PictureStore keeps scanned cheque images. Put returns the reference
// written to picture_of_check.
type PictureStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	DownloadURL(ctx context.Context, ref string) (string, time.Time, error)
	Delete(ctx context.Context, ref string) error
}

// PictureUpload is one uploaded cheque scan
type PictureUpload struct {
	EntryID uuid.UUID
	Table   cheque.Table
	RowID   uuid.UUID
	Data    []byte
}

// PictureResult is the updated document plus a link to the stored picture
type PictureResult struct {
	MutationResult
	Reference   string    `json:"reference"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// UploadPicture stores a cheque scan and records it on the row. The content
// type is sniffed from the bytes. The upload happens outside the session lock;
// the row is then updated through the regular field path.
func (s *EntryService) UploadPicture(ctx context.Context, up PictureUpload) (*PictureResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "cheque_entry", "upload_picture")
	defer span.End()

	if s.pictures == nil {
		telemetry.RecordError(span, shared.ErrStorageDisabled)
		return nil, shared.ErrStorageDisabled
	}
	if len(up.Data) == 0 {
		return nil, fmt.Errorf("empty picture: %w", shared.ErrInvalidInput)
	}
	if len(up.Data) > MaxPictureSize {
		return nil, fmt.Errorf("picture larger than %d bytes: %w", MaxPictureSize, shared.ErrInvalidInput)
	}
	contentType := http.DetectContentType(up.Data)
	ext, ok := pictureExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("unsupported picture type %s: %w", contentType, shared.ErrInvalidInput)
	}

	// fail fast before uploading anything
	sess, err := s.acquire(ctx, up.EntryID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := sess.entry.EnsureDraft(); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	if err := sess.ensureIdle(); err != nil {
		sess.mu.Unlock()
		return nil, err
	}
	row := sess.entry.Row(up.Table, up.RowID)
	if row == nil {
		sess.mu.Unlock()
		return nil, fmt.Errorf("row %s in %s: %w", up.RowID, up.Table, shared.ErrNotFound)
	}
	previous := row.PictureOfCheck
	key := path.Join("cheques", sess.entry.Name, up.RowID.String(), uuid.NewString()+ext)
	sess.mu.Unlock()

	ref, err := s.pictures.Put(ctx, key, contentType, up.Data)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	res, err := s.ChangeField(ctx, FieldChange{
		EntryID: up.EntryID,
		Table:   up.Table,
		RowID:   up.RowID,
		Field:   cheque.FieldPictureOfCheck,
		Value:   ref,
	})
	if err != nil {
		if delErr := s.pictures.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
			s.logger.Warn("Failed to remove orphaned cheque picture", zap.String("ref", ref), zap.Error(delErr))
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if previous != "" && previous != ref {
		if err := s.pictures.Delete(ctx, previous); err != nil {
			s.logger.Warn("Failed to remove replaced cheque picture", zap.String("ref", previous), zap.Error(err))
		}
	}

	out := &PictureResult{MutationResult: *res, Reference: ref}
	if url, exp, err := s.pictures.DownloadURL(ctx, ref); err == nil {
		out.DownloadURL, out.ExpiresAt = url, exp
	}
	telemetry.SetOK(span)
	return out, nil
}
