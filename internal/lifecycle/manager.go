// Package lifecycle owns the generated-artifact state machine. Every define
// or drop runs as one transaction against the backing store: teardown of the
// owner's current artifacts, registry upsert, regeneration, and
// artifact-record rewrite commit together or not at all.
package lifecycle

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"rulegate/internal/compile"
	"rulegate/internal/domain"
	"rulegate/internal/filter"
)

// Manager is the sole writer of claims, rules, and generated-object records,
// and the only code that issues DDL for generated views.
type Manager struct {
	db     *sql.DB // write pool
	logger *slog.Logger
}

// NewManager creates a Manager over the write pool.
func NewManager(db *sql.DB, logger *slog.Logger) *Manager {
	return &Manager{db: db, logger: logger.With("component", "lifecycle")}
}

var _ domain.LifecycleManager = (*Manager)(nil)

// ApplyClaim upserts a claim definition and rebuilds its derived relation.
// The opaque query is evaluated once inside the transaction; a malformed
// query (or one missing the subject/value columns) fails the define with a
// DefinitionError and leaves no partial state.
func (m *Manager) ApplyClaim(ctx context.Context, req domain.DefineClaimRequest) (*domain.CompileReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply claim: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	claim := &domain.Claim{Name: req.Name, Query: req.Query}
	claim.ID, err = m.upsertClaim(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := m.teardown(ctx, tx, domain.OwnerClaim, claim.ID); err != nil {
		return nil, err
	}

	art, err := compile.Claim(claim)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, art.DDL); err != nil {
		return nil, domain.ErrDefinition("claim %q query is invalid: %v", claim.Name, err)
	}
	// Evaluate the derived relation once: this both validates the opaque
	// query against the store and enforces the subject/value contract.
	probe := fmt.Sprintf(`SELECT "subject", "value" FROM %q LIMIT 1`, art.Name)
	if err := m.probe(ctx, tx, probe); err != nil {
		return nil, domain.ErrDefinition("claim %q query is invalid: %v", claim.Name, err)
	}

	if err := m.insertArtifact(ctx, tx, domain.OwnerClaim, claim.ID, art); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply claim: %w", err)
	}
	m.logger.Info("claim compiled", "claim", claim.Name, "view", art.Name)
	return &domain.CompileReport{Artifacts: []string{art.Name}}, nil
}

// DropClaim removes a claim, its derived relation, and its artifact records.
// Dropping an unknown claim is a no-op.
func (m *Manager) DropClaim(ctx context.Context, name string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop claim: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var id string
	err = tx.QueryRowContext(ctx, `SELECT id FROM claims WHERE name = ?`, name).Scan(&id)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup claim %q: %w", name, err)
	}

	if err := m.teardown(ctx, tx, domain.OwnerClaim, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM claims WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete claim %q: %w", name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop claim: %w", err)
	}
	m.logger.Info("claim dropped", "claim", name)
	return nil
}

// ApplyRule validates a rule definition, upserts it, and rebuilds its
// artifacts. DefinitionError and OrderingError roll everything back;
// degradations do not fail the define.
func (m *Manager) ApplyRule(ctx context.Context, req domain.DefineRuleRequest) (*domain.CompileReport, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	conds, err := filter.ParsePredicate(req.Predicate)
	if err != nil {
		return nil, err
	}
	if err := filter.Validate(conds); err != nil {
		return nil, err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin apply rule: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Predicates may only reference claims that are already compiled.
	for _, claim := range filter.Claims(conds) {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM claims WHERE name = ?`, claim).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, domain.ErrDefinition("predicate references undefined claim %q", claim)
		}
		if err != nil {
			return nil, fmt.Errorf("lookup claim %q: %w", claim, err)
		}
	}

	// Read-before-write ordering, checked at definition time.
	if req.Operation.IsWrite() {
		var one int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM rules WHERE relation = ? AND operation = ?`,
			req.Relation, string(domain.OpRead)).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, domain.ErrOrdering("cannot define %s rule for %q before a read rule exists", req.Operation, req.Relation)
		}
		if err != nil {
			return nil, fmt.Errorf("lookup read rule for %q: %w", req.Relation, err)
		}
	}

	rule, err := m.upsertRule(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if err := m.teardown(ctx, tx, domain.OwnerRule, rule.ID); err != nil {
		return nil, err
	}

	res, err := compile.Rule(rule, conds)
	if err != nil {
		return nil, err
	}

	report := &domain.CompileReport{Degradations: res.Degradations}
	for _, art := range res.Artifacts {
		if art.DDL != "" {
			if _, err := tx.ExecContext(ctx, art.DDL); err != nil {
				return nil, domain.ErrDefinition("compile %s for %q: %v", art.Kind, rule.Relation, err)
			}
			// Evaluate the view once so a missing base relation or column
			// fails the define, not the first read.
			probe := fmt.Sprintf(`SELECT * FROM %q LIMIT 1`, art.Name)
			if err := m.probe(ctx, tx, probe); err != nil {
				return nil, domain.ErrDefinition("compile %s for %q: %v", art.Kind, rule.Relation, err)
			}
		}
		if err := m.insertArtifact(ctx, tx, domain.OwnerRule, rule.ID, art); err != nil {
			return nil, err
		}
		report.Artifacts = append(report.Artifacts, art.Name)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit apply rule: %w", err)
	}

	for _, d := range report.Degradations {
		m.logger.Warn("compile degradation",
			"relation", rule.Relation, "operation", rule.Operation,
			"artifact", d.Artifact, "reason", d.Reason)
	}
	m.logger.Info("rule compiled",
		"relation", rule.Relation, "operation", rule.Operation, "artifacts", report.Artifacts)
	return report, nil
}

// DropRule removes every rule for the relation (all four operations), their
// artifacts, and their records. Unknown relations are a no-op.
func (m *Manager) DropRule(ctx context.Context, relation string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin drop rule: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT id FROM rules WHERE relation = ?`, relation)
	if err != nil {
		return fmt.Errorf("list rules for %q: %w", relation, err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, id := range ids {
		if err := m.teardown(ctx, tx, domain.OwnerRule, id); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM rules WHERE relation = ?`, relation); err != nil {
		return fmt.Errorf("delete rules for %q: %w", relation, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit drop rule: %w", err)
	}
	m.logger.Info("rules dropped", "relation", relation, "count", len(ids))
	return nil
}

// probe executes a view-evaluating statement and surfaces the first error.
func (m *Manager) probe(ctx context.Context, tx *sql.Tx, query string) error {
	rows, err := tx.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	for rows.Next() {
	}
	rows.Close()
	return rows.Err()
}

// teardown removes every artifact currently owned by the given id: views are
// dropped from the store and all records deleted. Records are the only way
// the manager knows what exists, so they must never drift.
func (m *Manager) teardown(ctx context.Context, tx *sql.Tx, owner domain.OwnerKind, ownerID string) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT kind, name FROM generated_objects WHERE owner_kind = ? AND owner_id = ?`,
		string(owner), ownerID)
	if err != nil {
		return fmt.Errorf("list artifacts for %s %s: %w", owner, ownerID, err)
	}
	type obj struct {
		kind domain.ArtifactKind
		name string
	}
	var objs []obj
	for rows.Next() {
		var o obj
		var kind string
		if err := rows.Scan(&kind, &o.name); err != nil {
			rows.Close()
			return err
		}
		o.kind = domain.ArtifactKind(kind)
		objs = append(objs, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, o := range objs {
		if o.kind.IsView() {
			if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DROP VIEW IF EXISTS %q`, o.name)); err != nil {
				return fmt.Errorf("drop view %q: %w", o.name, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM generated_objects WHERE owner_kind = ? AND owner_id = ?`,
		string(owner), ownerID); err != nil {
		return fmt.Errorf("delete artifact records for %s %s: %w", owner, ownerID, err)
	}
	return nil
}

func (m *Manager) upsertClaim(ctx context.Context, tx *sql.Tx, req domain.DefineClaimRequest) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM claims WHERE name = ?`, req.Name).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = domain.NewID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claims (id, name, query) VALUES (?, ?, ?)`,
			id, req.Name, req.Query); err != nil {
			return "", fmt.Errorf("insert claim %q: %w", req.Name, err)
		}
	case err != nil:
		return "", fmt.Errorf("lookup claim %q: %w", req.Name, err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE claims SET query = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			req.Query, id); err != nil {
			return "", fmt.Errorf("update claim %q: %w", req.Name, err)
		}
	}
	return id, nil
}

func (m *Manager) upsertRule(ctx context.Context, tx *sql.Tx, req domain.DefineRuleRequest) (*domain.Rule, error) {
	rule := &domain.Rule{
		Relation:  req.Relation,
		Operation: req.Operation,
		Columns:   req.Columns,
		KeyColumn: req.KeyColumn,
		Predicate: req.Predicate,
	}
	if rule.KeyColumn == "" {
		rule.KeyColumn = domain.DefaultKeyColumn
	}

	var columns interface{}
	if len(rule.Columns) > 0 {
		encoded, err := json.Marshal(rule.Columns)
		if err != nil {
			return nil, fmt.Errorf("encode columns: %w", err)
		}
		columns = string(encoded)
	}
	var predicate interface{}
	if len(rule.Predicate) > 0 {
		predicate = string(rule.Predicate)
	}

	err := tx.QueryRowContext(ctx,
		`SELECT id FROM rules WHERE relation = ? AND operation = ?`,
		rule.Relation, string(rule.Operation)).Scan(&rule.ID)
	switch {
	case err == sql.ErrNoRows:
		rule.ID = domain.NewID()
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules (id, relation, operation, columns, key_column, predicate)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			rule.ID, rule.Relation, string(rule.Operation), columns, rule.KeyColumn, predicate); err != nil {
			return nil, fmt.Errorf("insert rule %s/%s: %w", rule.Relation, rule.Operation, err)
		}
	case err != nil:
		return nil, fmt.Errorf("lookup rule %s/%s: %w", rule.Relation, rule.Operation, err)
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE rules SET columns = ?, key_column = ?, predicate = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			columns, rule.KeyColumn, predicate, rule.ID); err != nil {
			return nil, fmt.Errorf("update rule %s/%s: %w", rule.Relation, rule.Operation, err)
		}
	}
	return rule, nil
}

func (m *Manager) insertArtifact(ctx context.Context, tx *sql.Tx, owner domain.OwnerKind, ownerID string, art compile.Artifact) error {
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO generated_objects (id, owner_kind, owner_id, kind, name, spec)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		domain.NewID(), string(owner), ownerID, string(art.Kind), art.Name, art.Spec); err != nil {
		return fmt.Errorf("record artifact %q: %w", art.Name, err)
	}
	return nil
}
