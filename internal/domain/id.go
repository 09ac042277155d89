package domain

import (
	"regexp"

	"github.com/google/uuid"
)

// NewID generates a UUIDv7 string for compiler-owned entities.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is safe to use as a SQL identifier in
// generated artifacts. Names are checked once at definition time; rendering
// additionally quotes every identifier.
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}
