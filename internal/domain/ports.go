package domain

import "context"

// Degradation records an artifact that was skipped or weakened because the
// predicate shape is unsupported for it. Non-fatal: the rule still compiles.
type Degradation struct {
	Artifact ArtifactKind
	Reason   string
}

// CompileReport summarizes one lifecycle apply: the artifact names now in
// the store and any degradations encountered.
type CompileReport struct {
	Artifacts    []string
	Degradations []Degradation
}

// LifecycleManager owns the Absent -> Compiled -> Absent state machine for
// generated objects. Each call is a single transaction against the backing
// store: teardown of prior artifacts, registry upsert, regeneration, and
// artifact-record rewrite are all-or-nothing.
// Implemented by lifecycle.Manager.
type LifecycleManager interface {
	ApplyClaim(ctx context.Context, req DefineClaimRequest) (*CompileReport, error)
	DropClaim(ctx context.Context, name string) error
	ApplyRule(ctx context.Context, req DefineRuleRequest) (*CompileReport, error)
	DropRule(ctx context.Context, relation string) error
}
