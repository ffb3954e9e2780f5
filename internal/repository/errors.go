package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Sentinel errors for infrastructure facts. Repositories return these
// (optionally wrapped) so services and handlers never observe
// storage-specific error shapes.
var (
	ErrNotFound    = errors.New("not found")
	ErrMalformedID = errors.New("malformed id")
	ErrUnavailable = errors.New("store unavailable")
)

// DuplicateKeyError reports a unique-index collision on one of the three
// unique taxpayer fields. It is constructed once at the persistence boundary;
// nothing downstream inspects driver errors.
type DuplicateKeyError struct {
	Field string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

// Closed mapping from unique constraint names to field paths. GORM derives
// these names from the uniqueIndex tags on model.Taxpayer and model.User.
var uniqueConstraintFields = map[string]string{
	"idx_taxpayers_certificate_no": "certificate_no",
	"idx_taxpayers_reference":      "reference",
	"idx_taxpayers_id_batch":       "id_batch",
	"idx_taxpayer_year":            "income_ledger.year",
	"idx_users_username":           "username",
	"idx_users_email":              "email",
}

const pgUniqueViolation = "23505"

// translateError converts driver/GORM errors into the repository taxonomy.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == pgUniqueViolation {
			field := uniqueConstraintFields[pgErr.ConstraintName]
			if field == "" {
				field = pgErr.ConstraintName
			}
			return &DuplicateKeyError{Field: field}
		}
		return fmt.Errorf("%w: %s", ErrUnavailable, pgErr.Code)
	}
	if errors.Is(err, gorm.ErrInvalidDB) {
		return ErrUnavailable
	}
	return err
}
