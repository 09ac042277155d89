package filter

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegate/internal/domain"
)

func mustParse(t *testing.T, raw string) []Node {
	t.Helper()
	conds, err := ParsePredicate(json.RawMessage(raw))
	require.NoError(t, err)
	return conds
}

func TestParsePredicate_EmptyFormsParseToNil(t *testing.T) {
	for _, raw := range []string{"", "null", "[]", "  "} {
		conds, err := ParsePredicate(json.RawMessage(raw))
		require.NoError(t, err, "raw %q", raw)
		assert.Empty(t, conds, "raw %q", raw)
	}
}

func TestParsePredicate_Leaves(t *testing.T) {
	conds := mustParse(t, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
		{"kind": "eq", "column": "public", "value": {"kind": "literal", "value": true}},
		{"kind": "eq", "column": "org_id", "value": {"kind": "claim", "claim": "orgs"}},
		{"kind": "in_claim", "column": "org_id", "claim": "orgs",
			"property": "role", "allowed": ["admin", "editor"]}
	]`)
	require.Len(t, conds, 4)

	eq := conds[0].(*Eq)
	assert.Equal(t, "owner", eq.Column)
	assert.IsType(t, &Identity{}, eq.Value)

	lit := conds[1].(*Eq).Value.(*Literal)
	assert.Equal(t, true, lit.Value)

	cm := conds[2].(*Eq).Value.(*ClaimMembership)
	assert.Equal(t, "orgs", cm.Claim)

	ic := conds[3].(*InClaim)
	assert.Equal(t, "orgs", ic.Claim)
	require.NotNil(t, ic.Check)
	assert.Equal(t, "role", ic.Check.Property)
	assert.Equal(t, []interface{}{"admin", "editor"}, ic.Check.Allowed)
}

func TestParsePredicate_NestedCombinators(t *testing.T) {
	conds := mustParse(t, `[
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
			{"kind": "and", "conditions": [
				{"kind": "in_claim", "column": "org_id", "claim": "orgs"},
				{"kind": "eq", "column": "archived", "value": {"kind": "literal", "value": false}}
			]}
		]}
	]`)
	require.Len(t, conds, 1)

	or := conds[0].(*Or)
	require.Len(t, or.Conditions, 2)
	and := or.Conditions[1].(*And)
	assert.Len(t, and.Conditions, 2)
}

func TestParsePredicate_Rejections(t *testing.T) {
	cases := map[string]string{
		"not an array":           `{"kind": "eq"}`,
		"missing kind":           `[{"column": "owner"}]`,
		"unknown kind":           `[{"kind": "gt", "column": "age"}]`,
		"eq without column":      `[{"kind": "eq", "value": {"kind": "identity"}}]`,
		"eq without value":       `[{"kind": "eq", "column": "owner"}]`,
		"unknown value kind":     `[{"kind": "eq", "column": "owner", "value": {"kind": "regex"}}]`,
		"claim without name":     `[{"kind": "eq", "column": "org_id", "value": {"kind": "claim"}}]`,
		"in_claim without claim": `[{"kind": "in_claim", "column": "org_id"}]`,
		"property without allowed": `[{"kind": "in_claim", "column": "org_id",
			"claim": "orgs", "property": "role"}]`,
		"empty combinator": `[{"kind": "or", "conditions": []}]`,
		"nested rejection": `[{"kind": "or", "conditions": [{"kind": "nope"}]}]`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePredicate(json.RawMessage(raw))
			require.Error(t, err)
			var def *domain.DefinitionError
			assert.ErrorAs(t, err, &def)
		})
	}
}

func TestValidate_RejectsBadIdentifiers(t *testing.T) {
	conds := []Node{
		&Eq{Column: "owner; DROP TABLE files", Value: &Identity{}},
	}
	err := Validate(conds)
	require.Error(t, err)
	var def *domain.DefinitionError
	assert.ErrorAs(t, err, &def)

	conds = []Node{
		&Or{Conditions: []Node{
			&InClaim{Column: "org_id", Claim: `orgs"`},
		}},
	}
	assert.Error(t, Validate(conds))

	conds = mustParse(t, `[
		{"kind": "in_claim", "column": "org_id", "claim": "orgs",
			"property": "role", "allowed": ["admin"]}
	]`)
	assert.NoError(t, Validate(conds))
}

func TestClaims_DeduplicatesInOrder(t *testing.T) {
	conds := mustParse(t, `[
		{"kind": "in_claim", "column": "org_id", "claim": "orgs"},
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "team_id", "value": {"kind": "claim", "claim": "teams"}},
			{"kind": "eq", "column": "org_id", "value": {"kind": "claim_property",
				"claim": "orgs", "property": "role", "allowed": ["admin"]}}
		]}
	]`)
	assert.Equal(t, []string{"orgs", "teams"}, Claims(conds))
}

func TestHasCombinators_TopLevelOnly(t *testing.T) {
	assert.False(t, HasCombinators(mustParse(t, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}}
	]`)))
	assert.True(t, HasCombinators(mustParse(t, `[
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "owner", "value": {"kind": "identity"}}
		]}
	]`)))
}

func TestParamName(t *testing.T) {
	cases := map[string]string{
		"orgs":     "org_id",
		"org_ids":  "org_id",
		"projects": "project_id",
		"teams":    "team_id",
		"access":   "acces_id", // naive singularization
	}
	for claim, want := range cases {
		assert.Equal(t, want, ParamName(claim), "claim %s", claim)
	}
}
