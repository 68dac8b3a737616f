package cheque

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/erp/cheques/internal/domain/cheque"
	"github.com/erp/cheques/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestEntryService_UploadPicture(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the scan and sets picture_of_check", func(t *testing.T) {
		f := newFixture(t)
		entry := f.create(t, cheque.PaymentTypeReceive)
		row := f.addRow(t, entry.ID, cheque.TableReceive)

		res, err := f.svc.UploadPicture(ctx, PictureUpload{EntryID: entry.ID, Table: cheque.TableReceive, RowID: row.ID, Data: pngHeader})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(res.Reference, "mem://cheques/"+entry.Name+"/"+row.ID.String()+"/"))
		assert.True(t, strings.HasSuffix(res.Reference, ".png"))
		assert.Equal(t, "https://files.test/"+res.Reference, res.DownloadURL)
		assert.Equal(t, res.Reference, findRow(res.Entry, row.ID).PictureOfCheck)
	})

	t.Run("replacing a picture deletes the old one", func(t *testing.T) {
		f := newFixture(t)
		entry := f.create(t, cheque.PaymentTypeReceive)
		row := f.addRow(t, entry.ID, cheque.TableReceive)
		up := PictureUpload{EntryID: entry.ID, Table: cheque.TableReceive, RowID: row.ID, Data: pngHeader}

		first, err := f.svc.UploadPicture(ctx, up)
		require.NoError(t, err)
		_, err = f.svc.UploadPicture(ctx, up)
		require.NoError(t, err)

		assert.Equal(t, []string{first.Reference}, f.pictures.deleted)
	})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{name: "empty body", data: nil, wantErr: shared.ErrInvalidInput},
		{name: "plain text", data: []byte("not a cheque"), wantErr: shared.ErrInvalidInput},
		{name: "too large", data: append(append([]byte{}, pngHeader...), make([]byte, MaxPictureSize)...), wantErr: shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			entry := f.create(t, cheque.PaymentTypeReceive)
			row := f.addRow(t, entry.ID, cheque.TableReceive)

			_, err := f.svc.UploadPicture(ctx, PictureUpload{EntryID: entry.ID, Table: cheque.TableReceive, RowID: row.ID, Data: tt.data})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.pictures.objects)
		})
	}

	t.Run("unknown row uploads nothing", func(t *testing.T) {
		f := newFixture(t)
		entry := f.create(t, cheque.PaymentTypeReceive)

		_, err := f.svc.UploadPicture(ctx, PictureUpload{EntryID: entry.ID, Table: cheque.TableReceive, RowID: uuid.New(), Data: pngHeader})
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.Empty(t, f.pictures.objects)
	})

	t.Run("store failure is returned", func(t *testing.T) {
		f := newFixture(t)
		f.pictures.putErr = errors.New("bucket unavailable")
		entry := f.create(t, cheque.PaymentTypeReceive)
		row := f.addRow(t, entry.ID, cheque.TableReceive)

		_, err := f.svc.UploadPicture(ctx, PictureUpload{EntryID: entry.ID, Table: cheque.TableReceive, RowID: row.ID, Data: pngHeader})
		assert.EqualError(t, err, "bucket unavailable")
	})

	t.Run("without a store", func(t *testing.T) {
		svc := NewEntryService(EntryServiceConfig{Repo: newMemRepo()})
		_, err := svc.UploadPicture(ctx, PictureUpload{Data: pngHeader})
		require.Error(t, err)
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "STORAGE_DISABLED", de.Code)
	})
}
