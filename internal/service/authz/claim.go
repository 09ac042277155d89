// Package authz exposes the administrative surface of the rule compiler:
// claim and rule definition, inspection, and bulk recompilation. Admin
// checks and audit entries live here; transactional compilation lives in the
// lifecycle manager.
package authz

import (
	"context"
	"log/slog"

	"rulegate/internal/domain"
)

// ClaimService manages claim definitions. Requires admin privileges for all
// mutations.
type ClaimService struct {
	lifecycle domain.LifecycleManager
	claims    domain.ClaimRepository
	audit     domain.AuditRepository
	logger    *slog.Logger
}

// NewClaimService creates a ClaimService.
func NewClaimService(lc domain.LifecycleManager, claims domain.ClaimRepository, audit domain.AuditRepository, logger *slog.Logger) *ClaimService {
	return &ClaimService{
		lifecycle: lc,
		claims:    claims,
		audit:     audit,
		logger:    logger.With("component", "claim_service"),
	}
}

// Define creates or replaces a claim and compiles its derived relation.
func (s *ClaimService) Define(ctx context.Context, req domain.DefineClaimRequest) (*domain.CompileReport, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	report, err := s.lifecycle.ApplyClaim(ctx, req)
	record(ctx, s.audit, "DEFINE_CLAIM", req.Name, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("claim defined", "claim", req.Name)
	return report, nil
}

// Drop removes a claim and its derived relation. Dropping an undefined
// claim is a no-op.
func (s *ClaimService) Drop(ctx context.Context, name string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	err := s.lifecycle.DropClaim(ctx, name)
	record(ctx, s.audit, "DROP_CLAIM", name, err)
	if err != nil {
		return err
	}
	s.logger.Info("claim dropped", "claim", name)
	return nil
}

// Get returns one claim definition by name.
func (s *ClaimService) Get(ctx context.Context, name string) (*domain.Claim, error) {
	return s.claims.GetByName(ctx, name)
}

// List returns all claim definitions.
func (s *ClaimService) List(ctx context.Context) ([]domain.Claim, error) {
	return s.claims.List(ctx)
}
