package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"rulegate/internal/domain"
)

// RuleRepo reads rule definitions from the registry.
type RuleRepo struct {
	db *sql.DB
}

// NewRuleRepo creates a RuleRepo over the given pool.
func NewRuleRepo(db *sql.DB) *RuleRepo {
	return &RuleRepo{db: db}
}

const ruleColumns = `id, relation, operation, columns, key_column, predicate, created_at, updated_at`

func (r *RuleRepo) Get(ctx context.Context, relation string, op domain.Operation) (*domain.Rule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE relation = ? AND operation = ?`, relation, string(op))
	rule, err := scanRule(row)
	if err != nil {
		return nil, mapDBError(err)
	}
	return rule, nil
}

func (r *RuleRepo) ListForRelation(ctx context.Context, relation string) ([]domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM rules WHERE relation = ? ORDER BY operation`, relation)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

func (r *RuleRepo) List(ctx context.Context) ([]domain.Rule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ruleColumns+` FROM rules ORDER BY relation, operation`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRules(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*domain.Rule, error) {
	var (
		rule      domain.Rule
		op        string
		columns   sql.NullString
		predicate sql.NullString
	)
	if err := row.Scan(&rule.ID, &rule.Relation, &op, &columns, &rule.KeyColumn, &predicate,
		&rule.CreatedAt, &rule.UpdatedAt); err != nil {
		return nil, err
	}
	rule.Operation = domain.Operation(op)
	if columns.Valid && columns.String != "" {
		if err := json.Unmarshal([]byte(columns.String), &rule.Columns); err != nil {
			return nil, fmt.Errorf("decode columns for rule %s: %w", rule.ID, err)
		}
	}
	if predicate.Valid {
		rule.Predicate = json.RawMessage(predicate.String)
	}
	return &rule, nil
}

func collectRules(rows *sql.Rows) ([]domain.Rule, error) {
	var rules []domain.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}
