package persistence

import (
	"errors"

	"github.com/erp/cheques/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// translateError maps driver errors onto domain sentinels. TranslateError
// covers most unique violations; raw pgconn errors still arrive from
// statements run outside GORM's translator.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return shared.ErrAlreadyExists
	}
	return err
}
