package authz

import (
	"context"

	"rulegate/internal/domain"
)

// AuditService exposes the administrative audit trail.
type AuditService struct {
	repo domain.AuditRepository
}

// NewAuditService creates an AuditService.
func NewAuditService(repo domain.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// List returns the most recent audit entries, newest first.
func (s *AuditService) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, limit)
}
