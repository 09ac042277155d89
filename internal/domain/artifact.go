package domain

import "time"

// ArtifactKind classifies a generated, store-resident object.
type ArtifactKind string

// Artifact kinds. Claim views and projections are real views in the backing
// store; accessors and guards are stored statement specs executed by the
// access engine.
const (
	ArtifactClaimView   ArtifactKind = "claim_view"
	ArtifactProjection  ArtifactKind = "projection"
	ArtifactAccessor    ArtifactKind = "accessor"
	ArtifactCreateGuard ArtifactKind = "create_guard"
	ArtifactUpdateGuard ArtifactKind = "update_guard"
	ArtifactDeleteGuard ArtifactKind = "delete_guard"
)

// IsView reports whether artifacts of this kind exist as views in the
// backing store (and therefore need DDL on teardown).
func (k ArtifactKind) IsView() bool {
	return k == ArtifactClaimView || k == ArtifactProjection
}

// OwnerKind identifies what a generated artifact was compiled from.
type OwnerKind string

// Artifact owner kinds.
const (
	OwnerClaim OwnerKind = "claim"
	OwnerRule  OwnerKind = "rule"
)

// Artifact links a rule or claim to one generated object. The set of
// artifact records for an owner is an exact mirror of what exists in the
// backing store; the lifecycle manager is the only writer.
type Artifact struct {
	ID        string
	OwnerKind OwnerKind
	OwnerID   string
	Kind      ArtifactKind
	Name      string // view name or stored-statement name
	Spec      string // JSON spec consumed by the access engine
	CreatedAt time.Time
}
