package domain

import "time"

// AuditEntry represents a single administrative audit record.
type AuditEntry struct {
	ID            string
	PrincipalName string
	Action        string // e.g. "DEFINE_RULE", "DROP_CLAIM"
	Target        string // claim name or relation/operation key
	Status        string // "ALLOWED", "DENIED", "ERROR"
	ErrorMessage  string
	CreatedAt     time.Time
}
