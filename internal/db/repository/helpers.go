// Package repository implements the domain read repositories using SQLite.
// Registry writes do not live here: the lifecycle manager writes claims,
// rules, and generated-object records inside its own transactions.
package repository

import (
	"database/sql"
	"errors"
	"strings"

	"rulegate/internal/domain"
)

func mapDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Message: "resource not found"}
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &domain.ConflictError{Message: "resource already exists"}
	}
	return err
}
