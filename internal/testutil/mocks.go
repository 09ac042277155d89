// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase.
package testutil

import (
	"context"

	"rulegate/internal/domain"
)

// MockAuditRepo implements domain.AuditRepository for testing.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, e *domain.AuditEntry) error
	ListFn   func(ctx context.Context, limit int) ([]domain.AuditEntry, error)
	Entries  []*domain.AuditEntry // collected entries for assertions
}

// Insert collects the entry, first applying InsertFn when set.
func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, e)
	return nil
}

// List implements the interface method for testing.
func (m *MockAuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, limit)
	}
	panic("unexpected call to MockAuditRepo.List")
}

// LastEntry returns the last collected audit entry, or nil if none.
func (m *MockAuditRepo) LastEntry() *domain.AuditEntry {
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// HasAction returns true if any collected entry has the given action.
func (m *MockAuditRepo) HasAction(action string) bool {
	for _, e := range m.Entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

var _ domain.AuditRepository = (*MockAuditRepo)(nil)

// MockLifecycle implements domain.LifecycleManager for testing.
type MockLifecycle struct {
	ApplyClaimFn func(ctx context.Context, req domain.DefineClaimRequest) (*domain.CompileReport, error)
	DropClaimFn  func(ctx context.Context, name string) error
	ApplyRuleFn  func(ctx context.Context, req domain.DefineRuleRequest) (*domain.CompileReport, error)
	DropRuleFn   func(ctx context.Context, relation string) error
}

// ApplyClaim implements the interface method for testing.
func (m *MockLifecycle) ApplyClaim(ctx context.Context, req domain.DefineClaimRequest) (*domain.CompileReport, error) {
	if m.ApplyClaimFn != nil {
		return m.ApplyClaimFn(ctx, req)
	}
	return &domain.CompileReport{}, nil
}

// DropClaim implements the interface method for testing.
func (m *MockLifecycle) DropClaim(ctx context.Context, name string) error {
	if m.DropClaimFn != nil {
		return m.DropClaimFn(ctx, name)
	}
	return nil
}

// ApplyRule implements the interface method for testing.
func (m *MockLifecycle) ApplyRule(ctx context.Context, req domain.DefineRuleRequest) (*domain.CompileReport, error) {
	if m.ApplyRuleFn != nil {
		return m.ApplyRuleFn(ctx, req)
	}
	return &domain.CompileReport{}, nil
}

// DropRule implements the interface method for testing.
func (m *MockLifecycle) DropRule(ctx context.Context, relation string) error {
	if m.DropRuleFn != nil {
		return m.DropRuleFn(ctx, relation)
	}
	return nil
}

var _ domain.LifecycleManager = (*MockLifecycle)(nil)

// MockClaimRepo implements domain.ClaimRepository for testing.
type MockClaimRepo struct {
	GetByNameFn func(ctx context.Context, name string) (*domain.Claim, error)
	ListFn      func(ctx context.Context) ([]domain.Claim, error)
}

// GetByName implements the interface method for testing.
func (m *MockClaimRepo) GetByName(ctx context.Context, name string) (*domain.Claim, error) {
	if m.GetByNameFn != nil {
		return m.GetByNameFn(ctx, name)
	}
	panic("unexpected call to MockClaimRepo.GetByName")
}

// List implements the interface method for testing.
func (m *MockClaimRepo) List(ctx context.Context) ([]domain.Claim, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	panic("unexpected call to MockClaimRepo.List")
}

var _ domain.ClaimRepository = (*MockClaimRepo)(nil)

// MockRuleRepo implements domain.RuleRepository for testing.
type MockRuleRepo struct {
	GetFn             func(ctx context.Context, relation string, op domain.Operation) (*domain.Rule, error)
	ListForRelationFn func(ctx context.Context, relation string) ([]domain.Rule, error)
	ListFn            func(ctx context.Context) ([]domain.Rule, error)
}

// Get implements the interface method for testing.
func (m *MockRuleRepo) Get(ctx context.Context, relation string, op domain.Operation) (*domain.Rule, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, relation, op)
	}
	panic("unexpected call to MockRuleRepo.Get")
}

// ListForRelation implements the interface method for testing.
func (m *MockRuleRepo) ListForRelation(ctx context.Context, relation string) ([]domain.Rule, error) {
	if m.ListForRelationFn != nil {
		return m.ListForRelationFn(ctx, relation)
	}
	panic("unexpected call to MockRuleRepo.ListForRelation")
}

// List implements the interface method for testing.
func (m *MockRuleRepo) List(ctx context.Context) ([]domain.Rule, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	panic("unexpected call to MockRuleRepo.List")
}

var _ domain.RuleRepository = (*MockRuleRepo)(nil)
