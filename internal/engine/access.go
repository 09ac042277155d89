// Package engine executes access-path operations through compiled
// artifacts. It never looks at rule predicates: projections are queried as
// views, accessors and guards are decoded from their stored specs and run as
// parameterized statements.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"rulegate/internal/compile"
	"rulegate/internal/domain"
)

// Access is the runtime entry point for reading and mutating governed
// relations. Reads go through the read pool; inserts, updates, and deletes
// go through the write pool.
type Access struct {
	read      *sql.DB
	write     *sql.DB
	artifacts domain.ArtifactRepository
	logger    *slog.Logger
}

// NewAccess creates an Access engine over the given pools and artifact
// records.
func NewAccess(read, write *sql.DB, artifacts domain.ArtifactRepository, logger *slog.Logger) *Access {
	return &Access{
		read:      read,
		write:     write,
		artifacts: artifacts,
		logger:    logger.With("component", "access"),
	}
}

// List returns every row of the relation visible to the calling subject:
// rows bound to the caller plus rows marked public. Rows reachable through
// more than one branch collapse to one result.
func (a *Access) List(ctx context.Context, relation string) ([]map[string]interface{}, error) {
	var spec compile.ProjectionArtifact
	if err := a.loadSpec(ctx, domain.ArtifactProjection, compile.ProjectionViewName(relation), &spec); err != nil {
		return nil, err
	}

	cols := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		cols[i] = compile.QuoteIdent(c)
	}
	subject := compile.QuoteIdent(compile.SubjectColumn)
	query := "SELECT DISTINCT " + strings.Join(cols, ", ") +
		" FROM " + compile.QuoteIdent(spec.View) +
		" WHERE " + subject + " = :caller OR " + subject + " IS NULL"

	rows, err := a.read.QueryContext(ctx, query, sql.Named("caller", domain.CallerSubject(ctx)))
	if err != nil {
		return nil, fmt.Errorf("query projection %s: %w", spec.View, err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// Fetch runs the relation's strict accessor. Identity parameters default to
// the caller and, when supplied, must match it; claim parameters are
// required and proven by membership before the select runs. Any failed
// check denies with a generic error.
func (a *Access) Fetch(ctx context.Context, relation string, params map[string]interface{}) ([]map[string]interface{}, error) {
	var spec compile.AccessorArtifact
	if err := a.loadSpec(ctx, domain.ArtifactAccessor, compile.AccessorName(relation), &spec); err != nil {
		return nil, err
	}

	caller := domain.CallerSubject(ctx)
	bound := map[string]interface{}{"caller": caller}
	for _, p := range spec.Params {
		v, ok := params[p.Name]
		if !ok {
			if p.Required {
				return nil, domain.ErrValidation("missing required parameter %q", p.Name)
			}
			v = caller
		}
		bound[p.Name] = v
	}

	for _, check := range spec.Checks {
		switch check.Kind {
		case "identity":
			if !valueEqual(bound[check.Param], caller) {
				return nil, domain.ErrAuthorizationDenied()
			}
		case "claim":
			ok, err := a.probe(ctx, check.SQL, bound)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, domain.ErrAuthorizationDenied()
			}
		default:
			return nil, fmt.Errorf("accessor %s: unknown check kind %q", relation, check.Kind)
		}
	}

	rows, err := a.read.QueryContext(ctx, spec.SelectSQL, namedArgs(spec.SelectSQL, bound)...)
	if err != nil {
		return nil, fmt.Errorf("run accessor for %s: %w", relation, err)
	}
	defer rows.Close()
	return collectRows(rows)
}

// Insert admits a new row through the relation's create guard. Every guard
// check runs against the incoming values; identity columns must carry the
// caller verbatim, literal columns the exact fixed value, and claim columns
// a value the caller can prove membership for. Nothing is coerced or filled
// in on the caller's behalf.
func (a *Access) Insert(ctx context.Context, relation string, row map[string]interface{}) error {
	var spec compile.CreateGuardArtifact
	if err := a.loadSpec(ctx, domain.ArtifactCreateGuard, compile.GuardName(domain.OpCreate, relation), &spec); err != nil {
		return err
	}

	caller := domain.CallerSubject(ctx)
	for _, check := range spec.Checks {
		v, present := row[check.Column]
		switch check.Kind {
		case "identity":
			if !present || !valueEqual(v, caller) {
				return domain.ErrAuthorizationDenied()
			}
		case "literal":
			if !present || !valueEqual(v, check.Literal) {
				return domain.ErrAuthorizationDenied()
			}
		case "claim":
			if !present {
				return domain.ErrAuthorizationDenied()
			}
			ok, err := a.probe(ctx, check.SQL, map[string]interface{}{"caller": caller, "value": v})
			if err != nil {
				return err
			}
			if !ok {
				return domain.ErrAuthorizationDenied()
			}
		default:
			return fmt.Errorf("create guard %s: unknown check kind %q", relation, check.Kind)
		}
	}

	cols := make([]string, 0, len(row))
	for c := range row {
		if !domain.ValidIdentifier(c) {
			return domain.ErrValidation("invalid column name %q", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	markers := make([]string, len(cols))
	args := make([]interface{}, len(cols))
	for i, c := range cols {
		quoted[i] = compile.QuoteIdent(c)
		markers[i] = ":v_" + c
		args[i] = sql.Named("v_"+c, row[c])
	}
	stmt := "INSERT INTO " + compile.QuoteIdent(spec.Relation) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(markers, ", ") + ")"
	if _, err := a.write.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", spec.Relation, err)
	}
	return nil
}

// Update mutates one row through the relation's update guard. The statement
// is scoped to the key and the guard predicate in one pass, so a missing row
// and a denied row are indistinguishable.
func (a *Access) Update(ctx context.Context, relation string, key interface{}, set map[string]interface{}) error {
	var spec compile.MutationGuardArtifact
	if err := a.loadSpec(ctx, domain.ArtifactUpdateGuard, compile.GuardName(domain.OpUpdate, relation), &spec); err != nil {
		return err
	}
	if len(set) == 0 {
		return domain.ErrValidation("update requires at least one column")
	}

	cols := make([]string, 0, len(set))
	for c := range set {
		if !domain.ValidIdentifier(c) {
			return domain.ErrValidation("invalid column name %q", c)
		}
		cols = append(cols, c)
	}
	sort.Strings(cols)

	assigns := make([]string, len(cols))
	bound := map[string]interface{}{
		"caller": domain.CallerSubject(ctx),
		"row_id": key,
	}
	for i, c := range cols {
		assigns[i] = compile.QuoteIdent(c) + " = :set_" + c
		bound["set_"+c] = set[c]
	}

	stmt := "UPDATE " + compile.QuoteIdent(spec.Relation) +
		" SET " + strings.Join(assigns, ", ") +
		" WHERE " + a.scope(spec)
	res, err := a.write.ExecContext(ctx, stmt, namedArgs(stmt, bound)...)
	if err != nil {
		return fmt.Errorf("update %s: %w", spec.Relation, err)
	}
	return affectedOrDenied(res, spec.Relation)
}

// Delete removes one row through the relation's delete guard, with the same
// not-found-or-unauthorized collapse as Update.
func (a *Access) Delete(ctx context.Context, relation string, key interface{}) error {
	var spec compile.MutationGuardArtifact
	if err := a.loadSpec(ctx, domain.ArtifactDeleteGuard, compile.GuardName(domain.OpDelete, relation), &spec); err != nil {
		return err
	}

	stmt := "DELETE FROM " + compile.QuoteIdent(spec.Relation) + " WHERE " + a.scope(spec)
	bound := map[string]interface{}{
		"caller": domain.CallerSubject(ctx),
		"row_id": key,
	}
	res, err := a.write.ExecContext(ctx, stmt, namedArgs(stmt, bound)...)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", spec.Relation, err)
	}
	return affectedOrDenied(res, spec.Relation)
}

// scope builds the WHERE clause of a guarded mutation: key match plus the
// compiled row predicate.
func (a *Access) scope(spec compile.MutationGuardArtifact) string {
	key := compile.QuoteIdent(spec.Relation) + "." + compile.QuoteIdent(spec.KeyColumn) + " = :row_id"
	if spec.WhereSQL == "" {
		return key
	}
	return key + " AND (" + spec.WhereSQL + ")"
}

// loadSpec fetches an artifact record and decodes its stored spec. A missing
// record means no rule produced this capability for the relation.
func (a *Access) loadSpec(ctx context.Context, kind domain.ArtifactKind, name string, out interface{}) error {
	art, err := a.artifacts.GetByKindName(ctx, kind, name)
	if err != nil {
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			return domain.ErrNotFound("no %s available: %s", kind, name)
		}
		return err
	}
	if err := json.Unmarshal([]byte(art.Spec), out); err != nil {
		return fmt.Errorf("decode %s spec %s: %w", kind, name, err)
	}
	return nil
}

// probe runs a stored EXISTS predicate and reports whether it held.
func (a *Access) probe(ctx context.Context, existsSQL string, vals map[string]interface{}) (bool, error) {
	query := "SELECT " + existsSQL
	var ok bool
	err := a.read.QueryRowContext(ctx, query, namedArgs(query, vals)...).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("run membership probe: %w", err)
	}
	return ok, nil
}

func affectedOrDenied(res sql.Result, relation string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFoundOrUnauthorized(relation)
	}
	return nil
}

// valueEqual compares a submitted value against an expected one without
// coercing either side into the other's type. JSON numbers arrive as
// float64, so comparison goes through the printed form.
func valueEqual(got, want interface{}) bool {
	if got == nil || want == nil {
		return got == want
	}
	return fmt.Sprintf("%v", got) == fmt.Sprintf("%v", want)
}
