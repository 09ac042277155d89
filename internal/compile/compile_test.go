package compile

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegate/internal/domain"
	"rulegate/internal/filter"
)

func parse(t *testing.T, raw string) []filter.Node {
	t.Helper()
	conds, err := filter.ParsePredicate(json.RawMessage(raw))
	require.NoError(t, err)
	return conds
}

func artifactByKind(t *testing.T, res *Result, kind domain.ArtifactKind) Artifact {
	t.Helper()
	for _, a := range res.Artifacts {
		if a.Kind == kind {
			return a
		}
	}
	t.Fatalf("no %s artifact in result", kind)
	return Artifact{}
}

func TestClaim(t *testing.T) {
	art, err := Claim(&domain.Claim{
		Name:  "orgs",
		Query: "SELECT user_id AS subject, org_id AS value, role FROM org_members",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ArtifactClaimView, art.Kind)
	assert.Equal(t, "claim_orgs", art.Name)
	assert.Equal(t, `CREATE VIEW "claim_orgs" AS SELECT user_id AS subject, org_id AS value, role FROM org_members`, art.DDL)

	var spec ClaimArtifact
	require.NoError(t, json.Unmarshal([]byte(art.Spec), &spec))
	assert.Equal(t, "orgs", spec.Claim)
	assert.Equal(t, "claim_orgs", spec.View)
}

func TestCompileRead_FlatPredicate(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpRead, Columns: []string{"id", "title"}}
	res, err := Rule(rule, parse(t, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
		{"kind": "in_claim", "column": "org_id", "claim": "orgs"}
	]`))
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 2)
	assert.Empty(t, res.Degradations)

	proj := artifactByKind(t, res, domain.ArtifactProjection)
	assert.Equal(t, "read_files", proj.Name)
	assert.Contains(t, proj.DDL, `CREATE VIEW "read_files" AS`)
	assert.NotContains(t, proj.DDL, "UNION")
	// Leaves AND together into one arm: identity binds the subject, the
	// claim join constrains it.
	assert.Contains(t, proj.DDL, `t."owner" AS "__subject"`)
	assert.Contains(t, proj.DDL, `JOIN "claim_orgs" AS c1 ON c1."value" = t."org_id" AND c1."subject" = t."owner"`)

	acc := artifactByKind(t, res, domain.ArtifactAccessor)
	assert.Equal(t, "get_files", acc.Name)
	assert.Empty(t, acc.DDL)

	var spec AccessorArtifact
	require.NoError(t, json.Unmarshal([]byte(acc.Spec), &spec))
	assert.Equal(t, "files", spec.Relation)
	require.Len(t, spec.Params, 2)
	assert.Equal(t, ParamSpec{Name: "owner", Required: false}, spec.Params[0])
	assert.Equal(t, ParamSpec{Name: "org_id", Required: true}, spec.Params[1])
	require.Len(t, spec.Checks, 2)
	assert.Equal(t, "identity", spec.Checks[0].Kind)
	assert.Equal(t, "claim", spec.Checks[1].Kind)
	assert.Contains(t, spec.Checks[1].SQL, `"claim_orgs"."subject" = :caller`)
	assert.Contains(t, spec.Checks[1].SQL, `"claim_orgs"."value" = :org_id`)
	assert.Equal(t, `SELECT "id", "title" FROM "files" WHERE "owner" = :caller AND "org_id" = :org_id`, spec.SelectSQL)
}

func TestCompileRead_OrExpandsToUnionArms(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpRead, Columns: []string{"id"}}
	res, err := Rule(rule, parse(t, `[
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
			{"kind": "in_claim", "column": "org_id", "claim": "orgs"},
			{"kind": "eq", "column": "public", "value": {"kind": "literal", "value": true}}
		]}
	]`))
	require.NoError(t, err)

	proj := artifactByKind(t, res, domain.ArtifactProjection)
	assert.Equal(t, 2, strings.Count(proj.DDL, "UNION"))
	// The public arm carries no subject binding.
	assert.Contains(t, proj.DDL, `NULL AS "__subject"`)
	assert.Contains(t, proj.DDL, `WHERE t."public" = 1`)

	// The accessor degrades rather than failing the define.
	require.Len(t, res.Degradations, 1)
	assert.Equal(t, domain.ArtifactAccessor, res.Degradations[0].Artifact)
	require.Len(t, res.Artifacts, 1)
}

func TestCompileRead_AndOfOrDistributes(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpRead, Columns: []string{"id"}}
	res, err := Rule(rule, parse(t, `[
		{"kind": "eq", "column": "archived", "value": {"kind": "literal", "value": false}},
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
			{"kind": "in_claim", "column": "org_id", "claim": "orgs"}
		]}
	]`))
	require.NoError(t, err)

	proj := artifactByKind(t, res, domain.ArtifactProjection)
	// Two arms, each repeating the shared literal conjunct.
	assert.Equal(t, 1, strings.Count(proj.DDL, "UNION"))
	assert.Equal(t, 2, strings.Count(proj.DDL, `t."archived" = 0`))
}

func TestCompileRead_PropertyCheckRendersInList(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpRead, Columns: []string{"id"}}
	res, err := Rule(rule, parse(t, `[
		{"kind": "in_claim", "column": "org_id", "claim": "orgs",
			"property": "role", "allowed": ["admin", "editor"]}
	]`))
	require.NoError(t, err)

	proj := artifactByKind(t, res, domain.ArtifactProjection)
	assert.Contains(t, proj.DDL, `c1."role" IN ('admin', 'editor')`)
}

func TestCompileCreate(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpCreate}
	res, err := Rule(rule, parse(t, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
		{"kind": "eq", "column": "draft", "value": {"kind": "literal", "value": true}},
		{"kind": "in_claim", "column": "org_id", "claim": "orgs"}
	]`))
	require.NoError(t, err)

	art := artifactByKind(t, res, domain.ArtifactCreateGuard)
	assert.Equal(t, "guard_create_files", art.Name)

	var spec CreateGuardArtifact
	require.NoError(t, json.Unmarshal([]byte(art.Spec), &spec))
	require.Len(t, spec.Checks, 3)
	assert.Equal(t, WriteCheck{Kind: "identity", Column: "owner"}, spec.Checks[0])
	assert.Equal(t, WriteCheck{Kind: "literal", Column: "draft", Literal: true}, spec.Checks[1])
	assert.Equal(t, "claim", spec.Checks[2].Kind)
	assert.Contains(t, spec.Checks[2].SQL, `"claim_orgs"."value" = :value`)
}

func TestCompileCreate_CombinatorDegrades(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpCreate}
	res, err := Rule(rule, parse(t, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "a", "value": {"kind": "literal", "value": 1}},
			{"kind": "eq", "column": "b", "value": {"kind": "literal", "value": 2}}
		]}
	]`))
	require.NoError(t, err)

	require.Len(t, res.Degradations, 1)
	assert.Equal(t, domain.ArtifactCreateGuard, res.Degradations[0].Artifact)

	var spec CreateGuardArtifact
	require.NoError(t, json.Unmarshal([]byte(artifactByKind(t, res, domain.ArtifactCreateGuard).Spec), &spec))
	// The guard keeps the leaves it can express.
	require.Len(t, spec.Checks, 1)
	assert.Equal(t, "owner", spec.Checks[0].Column)
}

func TestCompileMutation(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpDelete, KeyColumn: "file_id"}
	res, err := Rule(rule, parse(t, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
		{"kind": "in_claim", "column": "org_id", "claim": "orgs",
			"property": "role", "allowed": ["admin"]}
	]`))
	require.NoError(t, err)

	art := artifactByKind(t, res, domain.ArtifactDeleteGuard)
	assert.Equal(t, "guard_delete_files", art.Name)

	var spec MutationGuardArtifact
	require.NoError(t, json.Unmarshal([]byte(art.Spec), &spec))
	assert.Equal(t, "file_id", spec.KeyColumn)
	assert.Contains(t, spec.WhereSQL, `"files"."owner" = :caller`)
	assert.Contains(t, spec.WhereSQL, `"claim_orgs"."value" = "files"."org_id"`)
	assert.Contains(t, spec.WhereSQL, `"claim_orgs"."role" IN ('admin')`)
}

func TestCompileMutation_DefaultKeyColumn(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpUpdate}
	res, err := Rule(rule, parse(t, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}}
	]`))
	require.NoError(t, err)

	var spec MutationGuardArtifact
	require.NoError(t, json.Unmarshal([]byte(artifactByKind(t, res, domain.ArtifactUpdateGuard).Spec), &spec))
	assert.Equal(t, domain.DefaultKeyColumn, spec.KeyColumn)
}

func TestCompileMutation_EmptyPredicateScopesToKeyOnly(t *testing.T) {
	rule := &domain.Rule{Relation: "files", Operation: domain.OpDelete}
	res, err := Rule(rule, nil)
	require.NoError(t, err)

	var spec MutationGuardArtifact
	require.NoError(t, json.Unmarshal([]byte(artifactByKind(t, res, domain.ArtifactDeleteGuard).Spec), &spec))
	assert.Empty(t, spec.WhereSQL)
}

func TestExpandBranches(t *testing.T) {
	// (a OR b) AND (c OR d) distributes into four branches.
	conds := parse(t, `[
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "a", "value": {"kind": "literal", "value": 1}},
			{"kind": "eq", "column": "b", "value": {"kind": "literal", "value": 2}}
		]},
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "c", "value": {"kind": "literal", "value": 3}},
			{"kind": "eq", "column": "d", "value": {"kind": "literal", "value": 4}}
		]}
	]`)
	branches, err := expandBranches(conds)
	require.NoError(t, err)
	require.Len(t, branches, 4)
	assert.Equal(t, "a", branches[0][0].Column)
	assert.Equal(t, "c", branches[0][1].Column)
	assert.Equal(t, "b", branches[3][0].Column)
	assert.Equal(t, "d", branches[3][1].Column)
}

func TestUniqueParam(t *testing.T) {
	taken := make(map[string]int)
	assert.Equal(t, "org_id", uniqueParam(taken, "org_id"))
	assert.Equal(t, "org_id_2", uniqueParam(taken, "org_id"))
	assert.Equal(t, "org_id_3", uniqueParam(taken, "org_id"))
}

func TestSQLLiteral(t *testing.T) {
	assert.Equal(t, "NULL", sqlLiteral(nil))
	assert.Equal(t, "1", sqlLiteral(true))
	assert.Equal(t, "0", sqlLiteral(false))
	assert.Equal(t, "'it''s'", sqlLiteral("it's"))
	assert.Equal(t, "42", sqlLiteral(float64(42)))
	assert.Equal(t, "1.5", sqlLiteral(1.5))
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"files"`, QuoteIdent("files"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}
