package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rulegate/internal/db"
	"rulegate/internal/db/repository"
	"rulegate/internal/domain"
	"rulegate/internal/lifecycle"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func asCtx(subject string) context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{Subject: subject})
}

// fixture opens a migrated store, seeds the demo schema, and compiles the
// membership claim every test predicate builds on.
func fixture(t *testing.T) (*Access, *lifecycle.Manager, *sql.DB) {
	t.Helper()
	writeDB, readDB := db.OpenTestSQLite(t)

	stmts := []string{
		`CREATE TABLE files (id TEXT PRIMARY KEY, owner TEXT, org_id TEXT, title TEXT, public INTEGER DEFAULT 0)`,
		`CREATE TABLE notes (id TEXT PRIMARY KEY, owner TEXT, org_id TEXT, body TEXT)`,
		`CREATE TABLE org_members (user_id TEXT, org_id TEXT, role TEXT)`,
		`INSERT INTO org_members VALUES ('alice', 'org1', 'admin'), ('bob', 'org1', 'viewer'), ('carol', 'org2', 'admin')`,
	}
	for _, s := range stmts {
		_, err := writeDB.Exec(s)
		require.NoError(t, err)
	}

	mgr := lifecycle.NewManager(writeDB, discardLogger())
	_, err := mgr.ApplyClaim(context.Background(), domain.DefineClaimRequest{
		Name:  "orgs",
		Query: "SELECT user_id AS subject, org_id AS value, role FROM org_members",
	})
	require.NoError(t, err)

	eng := NewAccess(readDB, writeDB, repository.NewArtifactRepo(readDB), discardLogger())
	return eng, mgr, writeDB
}

func defineRule(t *testing.T, mgr *lifecycle.Manager, relation string, op domain.Operation, columns []string, predicate string) *domain.CompileReport {
	t.Helper()
	report, err := mgr.ApplyRule(context.Background(), domain.DefineRuleRequest{
		Relation:  relation,
		Operation: op,
		Columns:   columns,
		Predicate: json.RawMessage(predicate),
	})
	require.NoError(t, err)
	return report
}

func titles(rows []map[string]interface{}) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r["title"].(string))
	}
	return out
}

func TestList_OwnerOrMembershipOrPublic(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	_, err := writeDB.Exec(`INSERT INTO files VALUES
		('f1', 'alice', 'org2', 'alice-private', 0),
		('f2', 'dave',  'org1', 'org1-shared',   0),
		('f3', 'dave',  'org2', 'readme',        1)`)
	require.NoError(t, err)

	defineRule(t, mgr, "files", domain.OpRead, []string{"id", "title"}, `[
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
			{"kind": "in_claim", "column": "org_id", "claim": "orgs"},
			{"kind": "eq", "column": "public", "value": {"kind": "literal", "value": true}}
		]}
	]`)

	rows, err := eng.List(asCtx("alice"), "files")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice-private", "org1-shared", "readme"}, titles(rows))

	rows, err = eng.List(asCtx("bob"), "files")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"org1-shared", "readme"}, titles(rows))

	// No principal in context: only public rows.
	rows, err = eng.List(context.Background(), "files")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"readme"}, titles(rows))
}

func TestList_DuplicateVisibilityPathsCollapse(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	// alice reaches f1 as owner and as public.
	_, err := writeDB.Exec(`INSERT INTO files VALUES ('f1', 'alice', 'org2', 'twice-visible', 1)`)
	require.NoError(t, err)

	defineRule(t, mgr, "files", domain.OpRead, []string{"id", "title"}, `[
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
			{"kind": "eq", "column": "public", "value": {"kind": "literal", "value": true}}
		]}
	]`)

	rows, err := eng.List(asCtx("alice"), "files")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestList_NoReadRule(t *testing.T) {
	eng, _, _ := fixture(t)

	_, err := eng.List(asCtx("alice"), "files")
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestFetch_ClaimParam(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	_, err := writeDB.Exec(`INSERT INTO files VALUES
		('f1', 'dave', 'org1', 'in-org1', 0),
		('f2', 'dave', 'org2', 'in-org2', 0)`)
	require.NoError(t, err)

	defineRule(t, mgr, "files", domain.OpRead, []string{"id", "title"},
		`[{"kind": "in_claim", "column": "org_id", "claim": "orgs"}]`)

	rows, err := eng.Fetch(asCtx("bob"), "files", map[string]interface{}{"org_id": "org1"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"in-org1"}, titles(rows))

	// bob is not in org2: denied, not empty.
	_, err = eng.Fetch(asCtx("bob"), "files", map[string]interface{}{"org_id": "org2"})
	var denied *domain.AuthorizationDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "access denied", denied.Error())

	// Claim-derived parameters are required.
	_, err = eng.Fetch(asCtx("bob"), "files", nil)
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestFetch_IdentityParamDefaultsToCaller(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	_, err := writeDB.Exec(`INSERT INTO files VALUES
		('f1', 'alice', 'org1', 'mine',   0),
		('f2', 'bob',   'org1', 'theirs', 0)`)
	require.NoError(t, err)

	defineRule(t, mgr, "files", domain.OpRead, []string{"id", "title"},
		`[{"kind": "eq", "column": "owner", "value": {"kind": "identity"}}]`)

	rows, err := eng.Fetch(asCtx("alice"), "files", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"mine"}, titles(rows))

	// Supplying someone else's identity is denied, never honored.
	_, err = eng.Fetch(asCtx("alice"), "files", map[string]interface{}{"owner": "bob"})
	var denied *domain.AuthorizationDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestFetch_SkippedForCombinatorPredicates(t *testing.T) {
	eng, mgr, _ := fixture(t)

	report := defineRule(t, mgr, "files", domain.OpRead, []string{"id", "title"}, `[
		{"kind": "or", "conditions": [
			{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
			{"kind": "eq", "column": "public", "value": {"kind": "literal", "value": true}}
		]}
	]`)
	require.Len(t, report.Degradations, 1)
	assert.Equal(t, domain.ArtifactAccessor, report.Degradations[0].Artifact)

	_, err := eng.Fetch(asCtx("alice"), "files", nil)
	var nf *domain.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestInsert_CreateGuard(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	defineRule(t, mgr, "notes", domain.OpRead, []string{"id", "body"}, `[]`)
	defineRule(t, mgr, "notes", domain.OpCreate, nil, `[
		{"kind": "eq", "column": "owner", "value": {"kind": "identity"}},
		{"kind": "in_claim", "column": "org_id", "claim": "orgs"}
	]`)

	err := eng.Insert(asCtx("alice"), "notes", map[string]interface{}{
		"id": "n1", "owner": "alice", "org_id": "org1", "body": "hello",
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, writeDB.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&count))
	assert.Equal(t, 1, count)

	var denied *domain.AuthorizationDeniedError

	// Claiming someone else's identity.
	err = eng.Insert(asCtx("alice"), "notes", map[string]interface{}{
		"id": "n2", "owner": "bob", "org_id": "org1",
	})
	assert.ErrorAs(t, err, &denied)

	// An org the caller is not a member of.
	err = eng.Insert(asCtx("alice"), "notes", map[string]interface{}{
		"id": "n3", "owner": "alice", "org_id": "org2",
	})
	assert.ErrorAs(t, err, &denied)

	// A guarded column missing from the row is never filled in.
	err = eng.Insert(asCtx("alice"), "notes", map[string]interface{}{
		"id": "n4", "owner": "alice",
	})
	assert.ErrorAs(t, err, &denied)

	require.NoError(t, writeDB.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestInsert_LiteralCheck(t *testing.T) {
	eng, mgr, _ := fixture(t)

	defineRule(t, mgr, "notes", domain.OpRead, []string{"id", "body"}, `[]`)
	defineRule(t, mgr, "notes", domain.OpCreate, nil,
		`[{"kind": "eq", "column": "org_id", "value": {"kind": "literal", "value": "org1"}}]`)

	err := eng.Insert(asCtx("alice"), "notes", map[string]interface{}{"id": "n1", "org_id": "org1"})
	require.NoError(t, err)

	err = eng.Insert(asCtx("alice"), "notes", map[string]interface{}{"id": "n2", "org_id": "org2"})
	var denied *domain.AuthorizationDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestUpdate_ScopedToOwner(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	_, err := writeDB.Exec(`INSERT INTO notes VALUES
		('n1', 'alice', 'org1', 'draft'),
		('n2', 'bob',   'org1', 'final')`)
	require.NoError(t, err)

	defineRule(t, mgr, "notes", domain.OpRead, []string{"id", "body"}, `[]`)
	defineRule(t, mgr, "notes", domain.OpUpdate, nil,
		`[{"kind": "eq", "column": "owner", "value": {"kind": "identity"}}]`)

	require.NoError(t, eng.Update(asCtx("alice"), "notes", "n1", map[string]interface{}{"body": "edited"}))

	var body string
	require.NoError(t, writeDB.QueryRow(`SELECT body FROM notes WHERE id = 'n1'`).Scan(&body))
	assert.Equal(t, "edited", body)

	// Someone else's row and a missing row fail identically.
	var nfu *domain.NotFoundOrUnauthorizedError
	err = eng.Update(asCtx("alice"), "notes", "n2", map[string]interface{}{"body": "hijack"})
	require.ErrorAs(t, err, &nfu)
	other := eng.Update(asCtx("alice"), "notes", "missing", map[string]interface{}{"body": "x"})
	require.ErrorAs(t, other, &nfu)
	assert.Equal(t, err.Error(), other.Error())

	require.NoError(t, writeDB.QueryRow(`SELECT body FROM notes WHERE id = 'n2'`).Scan(&body))
	assert.Equal(t, "final", body)
}

func TestDelete_ClaimScope(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	_, err := writeDB.Exec(`INSERT INTO notes VALUES
		('n1', 'dave', 'org1', 'a'),
		('n2', 'dave', 'org2', 'b')`)
	require.NoError(t, err)

	defineRule(t, mgr, "notes", domain.OpRead, []string{"id", "body"}, `[]`)
	defineRule(t, mgr, "notes", domain.OpDelete, nil, `[{
		"kind": "in_claim", "column": "org_id", "claim": "orgs",
		"property": "role", "allowed": ["admin"]
	}]`)

	// bob is only a viewer in org1.
	var nfu *domain.NotFoundOrUnauthorizedError
	err = eng.Delete(asCtx("bob"), "notes", "n1")
	assert.ErrorAs(t, err, &nfu)

	require.NoError(t, eng.Delete(asCtx("alice"), "notes", "n1"))

	// alice is not in org2 at all.
	err = eng.Delete(asCtx("alice"), "notes", "n2")
	assert.ErrorAs(t, err, &nfu)

	var count int
	require.NoError(t, writeDB.QueryRow(`SELECT COUNT(*) FROM notes`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestAnonymousLinkGrant(t *testing.T) {
	eng, mgr, writeDB := fixture(t)

	stmts := []string{
		`CREATE TABLE link_tokens (token TEXT PRIMARY KEY, file_id TEXT)`,
		`INSERT INTO link_tokens VALUES ('tok-1', 'f1')`,
		`INSERT INTO files VALUES ('f1', 'dave', 'org1', 'shared-by-link', 0), ('f2', 'dave', 'org1', 'hidden', 0)`,
	}
	for _, s := range stmts {
		_, err := writeDB.Exec(s)
		require.NoError(t, err)
	}

	_, err := mgr.ApplyClaim(context.Background(), domain.DefineClaimRequest{
		Name:  "link_grant",
		Query: "SELECT 'anonymous' AS subject, file_id AS value FROM link_tokens",
	})
	require.NoError(t, err)

	defineRule(t, mgr, "files", domain.OpRead, []string{"id", "title"},
		`[{"kind": "in_claim", "column": "id", "claim": "link_grant"}]`)

	rows, err := eng.List(context.Background(), "files")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"shared-by-link"}, titles(rows))
}
