// Package compile turns rule and claim definitions into generated-artifact
// specs: projection views, strict accessors, and write guards. The AST is
// first normalized into a small IR, then rendered into SQL in a separate
// step, so the shape logic stays testable without a live store.
package compile

import "rulegate/internal/domain"

// CondKind classifies a normalized leaf condition.
type CondKind string

// Leaf condition kinds.
const (
	CondIdentity CondKind = "identity"
	CondLiteral  CondKind = "literal"
	CondClaim    CondKind = "claim"
)

// LeafCond is a single Eq/InClaim condition in normalized form. Or/And never
// appear here; the projection expands them into branches and the other
// generators skip them.
type LeafCond struct {
	Column   string
	Kind     CondKind
	Literal  interface{}
	Claim    string
	Property string
	Allowed  []interface{}
}

// ProjectionSpec is the IR for a read projection: the requested columns,
// restricted by the predicate. Each branch is one Or-alternative (a flat
// conjunction of leaves); branches render as UNION arms of the view.
type ProjectionSpec struct {
	Relation string
	View     string
	Columns  []string
	Branches [][]LeafCond
}

// AccessorSpec is the IR for a strict accessor: one parameter per leaf
// condition (identity-defaulted or required), validated explicitly before
// any row is returned.
type AccessorSpec struct {
	Relation string
	Name     string
	Columns  []string
	Conds    []AccessorCond
}

// AccessorCond pairs a leaf condition with its accessor parameter name.
// Literal conditions carry no parameter.
type AccessorCond struct {
	Leaf  LeafCond
	Param string
}

// GuardSpec is the IR for a write guard. For create, Checks are re-validated
// against the incoming row. For update/delete, the leaves derive the
// row-selection predicate the mutation is scoped to.
type GuardSpec struct {
	Relation  string
	Event     domain.Operation
	KeyColumn string
	Checks    []LeafCond
}

// Artifact is one rendered store object: DDL for view kinds, an engine spec
// for stored-statement kinds, and always the JSON record payload persisted
// alongside.
type Artifact struct {
	Kind domain.ArtifactKind
	Name string
	DDL  string // non-empty only for view kinds
	Spec string // JSON consumed by the access engine
}

// Result is the outcome of compiling one rule or claim.
type Result struct {
	Artifacts    []Artifact
	Degradations []domain.Degradation
}

// ProjectionViewName returns the view name compiled for a relation's read
// projection.
func ProjectionViewName(relation string) string { return "read_" + relation }

// AccessorName returns the stored-statement name of a relation's strict
// accessor.
func AccessorName(relation string) string { return "get_" + relation }

// GuardName returns the stored-statement name of a relation's write guard
// for the given operation.
func GuardName(op domain.Operation, relation string) string {
	return "guard_" + string(op) + "_" + relation
}
