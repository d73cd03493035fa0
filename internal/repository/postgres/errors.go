package postgres

import (
	"database/sql"
	"errors"

	"familyvault/internal/repository"
)

// uniqueViolation is the SQLSTATE raised for unique constraint conflicts.
const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func isPgError(err error, code string) bool {
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == code
	}
	return false
}

// translate maps driver level errors onto repository sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return repository.ErrNotFound
	case isPgError(err, uniqueViolation):
		return repository.ErrDuplicate
	default:
		return err
	}
}

// expectOne returns notFound unless exactly one row was affected.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
