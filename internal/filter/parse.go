package filter

import (
	"bytes"
	"encoding/json"

	"rulegate/internal/domain"
)

// Wire-format discriminators. The union is closed: anything else is a
// DefinitionError at parse time, never a fallthrough at evaluation time.
const (
	kindEq            = "eq"
	kindInClaim       = "in_claim"
	kindOr            = "or"
	kindAnd           = "and"
	kindIdentity      = "identity"
	kindLiteral       = "literal"
	kindClaim         = "claim"
	kindClaimProperty = "claim_property"
)

type wireNode struct {
	Kind       string            `json:"kind"`
	Column     string            `json:"column,omitempty"`
	Value      *wireValue        `json:"value,omitempty"`
	Claim      string            `json:"claim,omitempty"`
	Property   string            `json:"property,omitempty"`
	Allowed    []interface{}     `json:"allowed,omitempty"`
	Conditions []json.RawMessage `json:"conditions,omitempty"`
}

type wireValue struct {
	Kind     string        `json:"kind"`
	Value    interface{}   `json:"value,omitempty"`
	Claim    string        `json:"claim,omitempty"`
	Property string        `json:"property,omitempty"`
	Allowed  []interface{} `json:"allowed,omitempty"`
}

// ParsePredicate decodes a rule predicate from its wire form: a JSON array
// of condition objects. A null, empty, or absent predicate parses to nil
// (no filter).
func ParsePredicate(raw json.RawMessage) ([]Node, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, domain.ErrDefinition("predicate must be a JSON array of conditions: %v", err)
	}
	conds := make([]Node, 0, len(items))
	for _, item := range items {
		n, err := parseNode(item)
		if err != nil {
			return nil, err
		}
		conds = append(conds, n)
	}
	return conds, nil
}

func parseNode(raw json.RawMessage) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, domain.ErrDefinition("malformed predicate condition: %v", err)
	}
	switch w.Kind {
	case kindEq:
		if w.Column == "" {
			return nil, domain.ErrDefinition("eq condition requires a column")
		}
		if w.Value == nil {
			return nil, domain.ErrDefinition("eq condition on %q requires a value", w.Column)
		}
		val, err := parseValue(w.Column, w.Value)
		if err != nil {
			return nil, err
		}
		return &Eq{Column: w.Column, Value: val}, nil

	case kindInClaim:
		if w.Column == "" || w.Claim == "" {
			return nil, domain.ErrDefinition("in_claim condition requires column and claim")
		}
		var check *PropertyCheck
		if w.Property != "" {
			if len(w.Allowed) == 0 {
				return nil, domain.ErrDefinition("property check on claim %q requires allowed values", w.Claim)
			}
			check = &PropertyCheck{Property: w.Property, Allowed: w.Allowed}
		}
		return &InClaim{Column: w.Column, Claim: w.Claim, Check: check}, nil

	case kindOr, kindAnd:
		if len(w.Conditions) == 0 {
			return nil, domain.ErrDefinition("%s condition requires at least one nested condition", w.Kind)
		}
		nested := make([]Node, 0, len(w.Conditions))
		for _, c := range w.Conditions {
			n, err := parseNode(c)
			if err != nil {
				return nil, err
			}
			nested = append(nested, n)
		}
		if w.Kind == kindOr {
			return &Or{Conditions: nested}, nil
		}
		return &And{Conditions: nested}, nil

	case "":
		return nil, domain.ErrDefinition("predicate condition is missing a kind")
	default:
		return nil, domain.ErrDefinition("unknown predicate condition kind %q", w.Kind)
	}
}

func parseValue(column string, w *wireValue) (Value, error) {
	switch w.Kind {
	case kindIdentity:
		return &Identity{}, nil
	case kindLiteral:
		return &Literal{Value: w.Value}, nil
	case kindClaim:
		if w.Claim == "" {
			return nil, domain.ErrDefinition("claim value on column %q requires a claim name", column)
		}
		return &ClaimMembership{Claim: w.Claim}, nil
	case kindClaimProperty:
		if w.Claim == "" || w.Property == "" || len(w.Allowed) == 0 {
			return nil, domain.ErrDefinition("claim_property value on column %q requires claim, property, and allowed values", column)
		}
		return &ClaimPropertyCheck{Claim: w.Claim, Property: w.Property, Allowed: w.Allowed}, nil
	case "":
		return nil, domain.ErrDefinition("value on column %q is missing a kind", column)
	default:
		return nil, domain.ErrDefinition("unknown value kind %q on column %q", w.Kind, column)
	}
}

// Validate checks every identifier referenced by the condition list. Claim
// existence is checked separately by the rule registry.
func Validate(conds []Node) error {
	var firstErr error
	Walk(conds, func(n Node) {
		if firstErr != nil {
			return
		}
		switch v := n.(type) {
		case *Eq:
			firstErr = validateLeafIdents(v.Column, claimOf(v.Value), propertyOf(v.Value))
		case *InClaim:
			prop := ""
			if v.Check != nil {
				prop = v.Check.Property
			}
			firstErr = validateLeafIdents(v.Column, v.Claim, prop)
		}
	})
	return firstErr
}

func validateLeafIdents(column, claim, property string) error {
	if !domain.ValidIdentifier(column) {
		return domain.ErrDefinition("column %q is not a valid identifier", column)
	}
	if claim != "" && !domain.ValidIdentifier(claim) {
		return domain.ErrDefinition("claim %q is not a valid identifier", claim)
	}
	if property != "" && !domain.ValidIdentifier(property) {
		return domain.ErrDefinition("claim property %q is not a valid identifier", property)
	}
	return nil
}

func claimOf(v Value) string {
	switch val := v.(type) {
	case *ClaimMembership:
		return val.Claim
	case *ClaimPropertyCheck:
		return val.Claim
	}
	return ""
}

func propertyOf(v Value) string {
	if val, ok := v.(*ClaimPropertyCheck); ok {
		return val.Property
	}
	return ""
}
