// Package domain defines core types, interfaces, and errors for the rule compiler.
package domain

import "fmt"

// DefinitionError indicates a malformed predicate, a reference to an
// undefined claim, or an unknown AST node kind. Raised synchronously when a
// rule or claim is defined; nothing is compiled.
type DefinitionError struct {
	Message string
}

func (e *DefinitionError) Error() string { return e.Message }

// OrderingError indicates a write rule was defined before any read rule
// exists for the same relation.
type OrderingError struct {
	Message string
}

func (e *OrderingError) Error() string { return e.Message }

// AuthorizationDeniedError is raised at access time by the strict accessor
// or the create guard. The message is deliberately generic so callers cannot
// learn which condition failed.
type AuthorizationDeniedError struct {
	Message string
}

func (e *AuthorizationDeniedError) Error() string { return e.Message }

// NotFoundOrUnauthorizedError is raised by update/delete guards when zero
// rows were affected. "No such row" and "row exists but is denied" are
// indistinguishable so existence is never leaked.
type NotFoundOrUnauthorizedError struct {
	Message string
}

func (e *NotFoundOrUnauthorizedError) Error() string { return e.Message }

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient administrative permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrDefinition creates a DefinitionError with a formatted message.
func ErrDefinition(format string, args ...interface{}) *DefinitionError {
	return &DefinitionError{Message: fmt.Sprintf(format, args...)}
}

// ErrOrdering creates an OrderingError with a formatted message.
func ErrOrdering(format string, args ...interface{}) *OrderingError {
	return &OrderingError{Message: fmt.Sprintf(format, args...)}
}

// ErrAuthorizationDenied creates an AuthorizationDeniedError. It takes no
// detail arguments on purpose: the message never names the failing condition.
func ErrAuthorizationDenied() *AuthorizationDeniedError {
	return &AuthorizationDeniedError{Message: "access denied"}
}

// ErrNotFoundOrUnauthorized creates a NotFoundOrUnauthorizedError for the
// given relation. The message carries only the relation name, never the row.
func ErrNotFoundOrUnauthorized(relation string) *NotFoundOrUnauthorizedError {
	return &NotFoundOrUnauthorizedError{Message: fmt.Sprintf("%s: not found or not authorized", relation)}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}
