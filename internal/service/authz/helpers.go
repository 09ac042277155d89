package authz

import (
	"context"

	"rulegate/internal/domain"
)

func requireAdmin(ctx context.Context) error {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return domain.ErrAccessDenied("authentication required")
	}
	if !p.IsAdmin {
		return domain.ErrAccessDenied("admin privileges required")
	}
	return nil
}

func callerName(ctx context.Context) string {
	p, _ := domain.PrincipalFromContext(ctx)
	return p.Subject
}

// record writes one audit entry for an administrative action. Audit failures
// never fail the action itself.
func record(ctx context.Context, audit domain.AuditRepository, action, target string, opErr error) {
	e := &domain.AuditEntry{
		PrincipalName: callerName(ctx),
		Action:        action,
		Target:        target,
		Status:        "ALLOWED",
	}
	if opErr != nil {
		e.Status = "ERROR"
		e.ErrorMessage = opErr.Error()
	}
	_ = audit.Insert(ctx, e)
}
