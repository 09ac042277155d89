package repository

import (
	"context"
	"database/sql"

	"rulegate/internal/domain"
)

// AuditRepo persists administrative audit entries.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo creates an AuditRepo over the given pool.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, principal_name, action, target, status, error_message)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrincipalName, e.Action, e.Target, e.Status, e.ErrorMessage)
	return err
}

func (r *AuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal_name, action, target, status, error_message, created_at
		 FROM audit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.PrincipalName, &e.Action, &e.Target, &e.Status,
			&e.ErrorMessage, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
