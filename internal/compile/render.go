package compile

import (
	"encoding/json"
	"fmt"
	"strings"

	"rulegate/internal/domain"
)

// renderProjection renders the projection IR into a CREATE VIEW statement.
// Every branch selects the rule's columns plus the synthetic subject column;
// branches are joined with UNION so duplicate visibility paths collapse.
func renderProjection(spec ProjectionSpec) (Artifact, error) {
	arms := make([]string, 0, len(spec.Branches))
	for _, branch := range spec.Branches {
		arm, err := renderBranch(spec.Relation, spec.Columns, branch)
		if err != nil {
			return Artifact{}, err
		}
		arms = append(arms, arm)
	}
	ddl := "CREATE VIEW " + QuoteIdent(spec.View) + " AS\n" + strings.Join(arms, "\nUNION\n")

	record, err := json.Marshal(ProjectionArtifact{
		Relation: spec.Relation,
		View:     spec.View,
		Columns:  spec.Columns,
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal projection spec: %w", err)
	}
	return Artifact{
		Kind: domain.ArtifactProjection,
		Name: spec.View,
		DDL:  ddl,
		Spec: string(record),
	}, nil
}

// renderBranch renders one flat leaf conjunction as a SELECT arm. The first
// identity or claim condition binds the subject; later ones constrain it.
// A branch with neither is public: its subject renders as NULL.
func renderBranch(relation string, columns []string, leaves []LeafCond) (string, error) {
	var (
		joins   []string
		wheres  []string
		subject string
	)
	claimIdx := 0
	for _, leaf := range leaves {
		switch leaf.Kind {
		case CondLiteral:
			wheres = append(wheres, "t."+QuoteIdent(leaf.Column)+" = "+sqlLiteral(leaf.Literal))
		case CondIdentity:
			col := "t." + QuoteIdent(leaf.Column)
			if subject == "" {
				subject = col
			} else {
				wheres = append(wheres, col+" = "+subject)
			}
		case CondClaim:
			claimIdx++
			alias := fmt.Sprintf("c%d", claimIdx)
			on := []string{alias + `."value" = t.` + QuoteIdent(leaf.Column)}
			if leaf.Property != "" {
				on = append(on, alias+"."+QuoteIdent(leaf.Property)+" IN ("+sqlLiteralList(leaf.Allowed)+")")
			}
			if subject == "" {
				subject = alias + `."subject"`
			} else {
				on = append(on, alias+`."subject" = `+subject)
			}
			joins = append(joins, "JOIN "+QuoteIdent(domain.ClaimViewName(leaf.Claim))+" AS "+alias+" ON "+strings.Join(on, " AND "))
		default:
			return "", domain.ErrDefinition("unknown condition kind %q on column %q", leaf.Kind, leaf.Column)
		}
	}

	subjectExpr := "NULL"
	if subject != "" {
		subjectExpr = subject
	}
	sel := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		sel = append(sel, "t."+QuoteIdent(c))
	}
	sel = append(sel, subjectExpr+" AS "+QuoteIdent(SubjectColumn))

	var b strings.Builder
	b.WriteString("SELECT " + strings.Join(sel, ", "))
	b.WriteString(" FROM " + QuoteIdent(relation) + " AS t")
	for _, j := range joins {
		b.WriteString(" " + j)
	}
	if len(wheres) > 0 {
		b.WriteString(" WHERE " + strings.Join(wheres, " AND "))
	}
	return b.String(), nil
}

// renderAccessor renders the accessor IR into its stored spec: per-condition
// validation checks plus the final parameterized select.
func renderAccessor(spec AccessorSpec) (Artifact, error) {
	art := AccessorArtifact{Relation: spec.Relation, Columns: spec.Columns}
	var wheres []string
	for _, ac := range spec.Conds {
		leaf := ac.Leaf
		switch leaf.Kind {
		case CondIdentity:
			art.Params = append(art.Params, ParamSpec{Name: ac.Param, Required: false})
			art.Checks = append(art.Checks, WriteCheck{Kind: "identity", Column: leaf.Column, Param: ac.Param})
			wheres = append(wheres, QuoteIdent(leaf.Column)+" = :caller")
		case CondLiteral:
			wheres = append(wheres, QuoteIdent(leaf.Column)+" = "+sqlLiteral(leaf.Literal))
		case CondClaim:
			art.Params = append(art.Params, ParamSpec{Name: ac.Param, Required: true})
			art.Checks = append(art.Checks, WriteCheck{
				Kind:   "claim",
				Column: leaf.Column,
				Param:  ac.Param,
				SQL:    claimProbe(leaf, ":"+ac.Param),
			})
			wheres = append(wheres, QuoteIdent(leaf.Column)+" = :"+ac.Param)
		default:
			return Artifact{}, domain.ErrDefinition("unknown condition kind %q on column %q", leaf.Kind, leaf.Column)
		}
	}
	sel := make([]string, len(spec.Columns))
	for i, c := range spec.Columns {
		sel[i] = QuoteIdent(c)
	}
	sql := "SELECT " + strings.Join(sel, ", ") + " FROM " + QuoteIdent(spec.Relation)
	if len(wheres) > 0 {
		sql += " WHERE " + strings.Join(wheres, " AND ")
	}
	art.SelectSQL = sql

	record, err := json.Marshal(art)
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal accessor spec: %w", err)
	}
	return Artifact{Kind: domain.ArtifactAccessor, Name: spec.Name, Spec: string(record)}, nil
}

// renderCreateGuard renders the create-guard IR: one check per leaf, run
// against the incoming row values.
func renderCreateGuard(spec GuardSpec) (Artifact, error) {
	art := CreateGuardArtifact{Relation: spec.Relation}
	for _, leaf := range spec.Checks {
		switch leaf.Kind {
		case CondIdentity:
			art.Checks = append(art.Checks, WriteCheck{Kind: "identity", Column: leaf.Column})
		case CondLiteral:
			art.Checks = append(art.Checks, WriteCheck{Kind: "literal", Column: leaf.Column, Literal: leaf.Literal})
		case CondClaim:
			art.Checks = append(art.Checks, WriteCheck{Kind: "claim", Column: leaf.Column, SQL: claimProbe(leaf, ":value")})
		default:
			return Artifact{}, domain.ErrDefinition("unknown condition kind %q on column %q", leaf.Kind, leaf.Column)
		}
	}
	record, err := json.Marshal(art)
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal create guard spec: %w", err)
	}
	return Artifact{
		Kind: domain.ArtifactCreateGuard,
		Name: GuardName(domain.OpCreate, spec.Relation),
		Spec: string(record),
	}, nil
}

// renderMutationGuard renders the update/delete guard IR: the row-selection
// predicate the engine scopes the mutation to.
func renderMutationGuard(spec GuardSpec, kind domain.ArtifactKind) (Artifact, error) {
	var wheres []string
	for _, leaf := range spec.Checks {
		rowCol := QuoteIdent(spec.Relation) + "." + QuoteIdent(leaf.Column)
		switch leaf.Kind {
		case CondIdentity:
			wheres = append(wheres, rowCol+" = :caller")
		case CondLiteral:
			wheres = append(wheres, rowCol+" = "+sqlLiteral(leaf.Literal))
		case CondClaim:
			wheres = append(wheres, claimProbe(leaf, rowCol))
		default:
			return Artifact{}, domain.ErrDefinition("unknown condition kind %q on column %q", leaf.Kind, leaf.Column)
		}
	}
	record, err := json.Marshal(MutationGuardArtifact{
		Relation:  spec.Relation,
		KeyColumn: spec.KeyColumn,
		WhereSQL:  strings.Join(wheres, " AND "),
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal %s guard spec: %w", spec.Event, err)
	}
	return Artifact{Kind: kind, Name: GuardName(spec.Event, spec.Relation), Spec: string(record)}, nil
}

// claimProbe renders an EXISTS membership test for a claim condition. value
// is either a named parameter (":x") or a qualified row column; the caller
// identity always binds as :caller.
func claimProbe(leaf LeafCond, value string) string {
	view := QuoteIdent(domain.ClaimViewName(leaf.Claim))
	cond := view + `."subject" = :caller AND ` + view + `."value" = ` + value
	if leaf.Property != "" {
		cond += " AND " + view + "." + QuoteIdent(leaf.Property) + " IN (" + sqlLiteralList(leaf.Allowed) + ")"
	}
	return "EXISTS (SELECT 1 FROM " + view + " WHERE " + cond + ")"
}
