package api

import (
	"errors"
	"net/http"

	"rulegate/internal/domain"
)

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var definition *domain.DefinitionError
	var ordering *domain.OrderingError
	var authzDenied *domain.AuthorizationDeniedError
	var nfu *domain.NotFoundOrUnauthorizedError
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &definition):
		return http.StatusBadRequest
	case errors.As(err, &ordering):
		return http.StatusConflict
	case errors.As(err, &authzDenied):
		return http.StatusForbidden
	case errors.As(err, &nfu):
		return http.StatusNotFound
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
