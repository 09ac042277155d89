package domain

import (
	"encoding/json"
	"time"
)

// Operation identifies which access path a rule governs.
type Operation string

// The four rule operations. A create/update/delete rule for a relation may
// only be defined once a read rule exists for that relation.
const (
	OpRead   Operation = "read"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid reports whether op is one of the four known operations.
func (op Operation) Valid() bool {
	switch op {
	case OpRead, OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// IsWrite reports whether op mutates rows.
func (op Operation) IsWrite() bool { return op.Valid() && op != OpRead }

// Rule is a per-(relation, operation) access definition. The composite key
// (Relation, Operation) is unique; redefining it replaces the prior rule and
// all artifacts compiled from it.
type Rule struct {
	ID        string
	Relation  string
	Operation Operation
	Columns   []string        // projection list; read rules only
	KeyColumn string          // row-identity column for update/delete scoping
	Predicate json.RawMessage // filter AST in wire form; empty list allowed
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultKeyColumn is the row-identity column assumed when a rule does not
// name one.
const DefaultKeyColumn = "id"

// DefineRuleRequest carries the parameters for defining (or redefining)
// a rule.
type DefineRuleRequest struct {
	Relation  string
	Operation Operation
	Columns   []string        // required for read, rejected otherwise
	KeyColumn string          // optional; defaults to "id"
	Predicate json.RawMessage // JSON array of filter conditions; null/empty means no filter
}

// Validate checks structural fields. Predicate contents are validated by the
// filter package.
func (r *DefineRuleRequest) Validate() error {
	if r.Relation == "" {
		return ErrValidation("relation is required")
	}
	if !ValidIdentifier(r.Relation) {
		return ErrDefinition("relation %q is not a valid identifier", r.Relation)
	}
	if !r.Operation.Valid() {
		return ErrDefinition("unknown operation %q", string(r.Operation))
	}
	if r.Operation == OpRead && len(r.Columns) == 0 {
		return ErrValidation("read rule requires a column projection list")
	}
	if r.Operation != OpRead && len(r.Columns) > 0 {
		return ErrValidation("%s rule must not carry a column list", r.Operation)
	}
	for _, c := range r.Columns {
		if !ValidIdentifier(c) {
			return ErrDefinition("column %q is not a valid identifier", c)
		}
	}
	if r.KeyColumn != "" && !ValidIdentifier(r.KeyColumn) {
		return ErrDefinition("key column %q is not a valid identifier", r.KeyColumn)
	}
	return nil
}
