package repository

import (
	"context"
	"database/sql"

	"rulegate/internal/domain"
)

// ClaimRepo reads claim definitions from the registry.
type ClaimRepo struct {
	db *sql.DB
}

// NewClaimRepo creates a ClaimRepo over the given pool.
func NewClaimRepo(db *sql.DB) *ClaimRepo {
	return &ClaimRepo{db: db}
}

func (r *ClaimRepo) GetByName(ctx context.Context, name string) (*domain.Claim, error) {
	var c domain.Claim
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, query, created_at, updated_at FROM claims WHERE name = ?`, name).
		Scan(&c.ID, &c.Name, &c.Query, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &c, nil
}

func (r *ClaimRepo) List(ctx context.Context) ([]domain.Claim, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, query, created_at, updated_at FROM claims ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		var c domain.Claim
		if err := rows.Scan(&c.ID, &c.Name, &c.Query, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		claims = append(claims, c)
	}
	return claims, rows.Err()
}
