package errx

import (
	"database/sql"
	"errors"
	"net/http"
)

// WrapDatabase maps database/sql errors to AppError.
func WrapDatabase(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return New(err, http.StatusNotFound, NotFoundMessage)
	}

	return New(err, http.StatusBadGateway, DatabaseErrorMessage)
}
