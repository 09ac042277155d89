package repository

import (
	"context"
	"database/sql"

	"rulegate/internal/domain"
)

// ArtifactRepo reads generated-artifact records. Records are written only by
// the lifecycle manager, inside the same transaction that creates or drops
// the underlying objects.
type ArtifactRepo struct {
	db *sql.DB
}

// NewArtifactRepo creates an ArtifactRepo over the given pool.
func NewArtifactRepo(db *sql.DB) *ArtifactRepo {
	return &ArtifactRepo{db: db}
}

const artifactColumns = `id, owner_kind, owner_id, kind, name, spec, created_at`

func (r *ArtifactRepo) ListByOwner(ctx context.Context, owner domain.OwnerKind, ownerID string) ([]domain.Artifact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM generated_objects WHERE owner_kind = ? AND owner_id = ? ORDER BY name`,
		string(owner), ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectArtifacts(rows)
}

func (r *ArtifactRepo) GetByKindName(ctx context.Context, kind domain.ArtifactKind, name string) (*domain.Artifact, error) {
	var a domain.Artifact
	var owner, artifactKind string
	err := r.db.QueryRowContext(ctx,
		`SELECT `+artifactColumns+` FROM generated_objects WHERE kind = ? AND name = ?`,
		string(kind), name).
		Scan(&a.ID, &owner, &a.OwnerID, &artifactKind, &a.Name, &a.Spec, &a.CreatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	a.OwnerKind = domain.OwnerKind(owner)
	a.Kind = domain.ArtifactKind(artifactKind)
	return &a, nil
}

func (r *ArtifactRepo) List(ctx context.Context) ([]domain.Artifact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+artifactColumns+` FROM generated_objects ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectArtifacts(rows)
}

func collectArtifacts(rows *sql.Rows) ([]domain.Artifact, error) {
	var artifacts []domain.Artifact
	for rows.Next() {
		var a domain.Artifact
		var owner, kind string
		if err := rows.Scan(&a.ID, &owner, &a.OwnerID, &kind, &a.Name, &a.Spec, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.OwnerKind = domain.OwnerKind(owner)
		a.Kind = domain.ArtifactKind(kind)
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}
