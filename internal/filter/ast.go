// Package filter defines the predicate language rule definitions are written
// in: a closed tagged union of conditions plus its JSON wire form.
//
// A rule predicate is a list of conditions joined by an implicit AND. Leaf
// conditions (Eq, InClaim) are supported everywhere; the Or and And
// combinators are fully supported only by the read projection. The compiler
// degrades gracefully elsewhere (see the compile package).
package filter

import "strings"

// Node is a single predicate condition.
type Node interface {
	node()
}

// Eq requires a column to equal a value.
type Eq struct {
	Column string
	Value  Value
}

// InClaim requires a column to appear in the caller's value set for a claim,
// optionally constrained by a property check. It is the flat spelling of
// Eq + ClaimMembership / ClaimPropertyCheck.
type InClaim struct {
	Column string
	Claim  string
	Check  *PropertyCheck
}

// Or matches when any of its conditions match.
type Or struct {
	Conditions []Node
}

// And matches when all of its conditions match.
type And struct {
	Conditions []Node
}

func (*Eq) node()      {}
func (*InClaim) node() {}
func (*Or) node()      {}
func (*And) node()     {}

// Value is the right-hand side of an Eq condition.
type Value interface {
	value()
}

// Identity compares against the caller's own subject id.
type Identity struct{}

// Literal compares against a fixed value.
type Literal struct {
	Value interface{}
}

// ClaimMembership requires the column value to appear in the claim's value
// set for the caller.
type ClaimMembership struct {
	Claim string
}

// ClaimPropertyCheck is membership plus an attribute-equality check on the
// claim row.
type ClaimPropertyCheck struct {
	Claim    string
	Property string
	Allowed  []interface{}
}

func (*Identity) value()           {}
func (*Literal) value()            {}
func (*ClaimMembership) value()    {}
func (*ClaimPropertyCheck) value() {}

// PropertyCheck constrains a claim row attribute to a set of allowed values.
type PropertyCheck struct {
	Property string
	Allowed  []interface{}
}

// Walk visits every node in the condition list depth-first.
func Walk(conds []Node, fn func(Node)) {
	for _, c := range conds {
		walkNode(c, fn)
	}
}

func walkNode(n Node, fn func(Node)) {
	fn(n)
	switch v := n.(type) {
	case *Or:
		Walk(v.Conditions, fn)
	case *And:
		Walk(v.Conditions, fn)
	}
}

// Claims returns the deduplicated claim names referenced anywhere in the
// condition list, in first-seen order.
func Claims(conds []Node) []string {
	seen := make(map[string]bool)
	var names []string
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	Walk(conds, func(n Node) {
		switch v := n.(type) {
		case *Eq:
			switch val := v.Value.(type) {
			case *ClaimMembership:
				add(val.Claim)
			case *ClaimPropertyCheck:
				add(val.Claim)
			}
		case *InClaim:
			add(v.Claim)
		}
	})
	return names
}

// HasCombinators reports whether any top-level condition is an Or/And node.
// The strict accessor and the write guards only handle flat conjunctions of
// leaf conditions.
func HasCombinators(conds []Node) bool {
	for _, c := range conds {
		switch c.(type) {
		case *Or, *And:
			return true
		}
	}
	return false
}

// ParamName derives an accessor parameter name from a claim name: strip one
// trailing plural "s", then append the identity-column suffix unless the
// singular already carries it. "org_ids" derives "org_id"; "projects"
// derives "project_id". Irregular plurals have no escape hatch.
func ParamName(claim string) string {
	singular := strings.TrimSuffix(claim, "s")
	if strings.HasSuffix(singular, "_id") {
		return singular
	}
	return singular + "_id"
}
