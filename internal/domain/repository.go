package domain

import "context"

// ClaimRepository provides read access to stored claim definitions.
// Writes go through the lifecycle manager so registry rows and generated
// artifacts always change in the same transaction.
type ClaimRepository interface {
	GetByName(ctx context.Context, name string) (*Claim, error)
	List(ctx context.Context) ([]Claim, error)
}

// RuleRepository provides read access to stored rule definitions.
type RuleRepository interface {
	Get(ctx context.Context, relation string, op Operation) (*Rule, error)
	ListForRelation(ctx context.Context, relation string) ([]Rule, error)
	List(ctx context.Context) ([]Rule, error)
}

// ArtifactRepository provides read access to generated-artifact records.
type ArtifactRepository interface {
	ListByOwner(ctx context.Context, owner OwnerKind, ownerID string) ([]Artifact, error)
	GetByKindName(ctx context.Context, kind ArtifactKind, name string) (*Artifact, error)
	List(ctx context.Context) ([]Artifact, error)
}

// AuditRepository persists administrative audit entries.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
