package authz

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"rulegate/internal/domain"
)

// RuleService manages rule definitions. Requires admin privileges for all
// mutations.
type RuleService struct {
	lifecycle domain.LifecycleManager
	rules     domain.RuleRepository
	claims    domain.ClaimRepository
	audit     domain.AuditRepository
	logger    *slog.Logger
}

// NewRuleService creates a RuleService.
func NewRuleService(lc domain.LifecycleManager, rules domain.RuleRepository, claims domain.ClaimRepository, audit domain.AuditRepository, logger *slog.Logger) *RuleService {
	return &RuleService{
		lifecycle: lc,
		rules:     rules,
		claims:    claims,
		audit:     audit,
		logger:    logger.With("component", "rule_service"),
	}
}

// Define creates or replaces the rule for (relation, operation) and compiles
// its artifacts. Degradations in the report are non-fatal.
func (s *RuleService) Define(ctx context.Context, req domain.DefineRuleRequest) (*domain.CompileReport, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	target := fmt.Sprintf("%s/%s", req.Relation, req.Operation)
	report, err := s.lifecycle.ApplyRule(ctx, req)
	record(ctx, s.audit, "DEFINE_RULE", target, err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("rule defined",
		"relation", req.Relation,
		"operation", string(req.Operation),
		"artifacts", len(report.Artifacts),
		"degradations", len(report.Degradations))
	return report, nil
}

// Drop removes every rule for a relation along with all compiled artifacts.
// Dropping a relation with no rules is a no-op.
func (s *RuleService) Drop(ctx context.Context, relation string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	err := s.lifecycle.DropRule(ctx, relation)
	record(ctx, s.audit, "DROP_RULE", relation, err)
	if err != nil {
		return err
	}
	s.logger.Info("rules dropped", "relation", relation)
	return nil
}

// Get returns the rule for (relation, operation).
func (s *RuleService) Get(ctx context.Context, relation string, op domain.Operation) (*domain.Rule, error) {
	return s.rules.Get(ctx, relation, op)
}

// ListForRelation returns every rule defined for a relation.
func (s *RuleService) ListForRelation(ctx context.Context, relation string) ([]domain.Rule, error) {
	return s.rules.ListForRelation(ctx, relation)
}

// List returns all rule definitions.
func (s *RuleService) List(ctx context.Context) ([]domain.Rule, error) {
	return s.rules.List(ctx)
}

// RecompileAll regenerates every artifact from the stored definitions:
// claims first, then read rules, then write rules, so each wave only
// depends on objects the previous wave restored. Used after restoring a
// registry backup or when the backing store lost its views.
func (s *RuleService) RecompileAll(ctx context.Context) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}

	claims, err := s.claims.List(ctx)
	if err != nil {
		return err
	}
	rules, err := s.rules.List(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, c := range claims {
		g.Go(func() error {
			_, err := s.lifecycle.ApplyClaim(gctx, domain.DefineClaimRequest{Name: c.Name, Query: c.Query})
			if err != nil {
				return fmt.Errorf("recompile claim %s: %w", c.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		record(ctx, s.audit, "RECOMPILE_ALL", "", err)
		return err
	}

	waves := [][]domain.Rule{nil, nil}
	for _, r := range rules {
		if r.Operation == domain.OpRead {
			waves[0] = append(waves[0], r)
		} else {
			waves[1] = append(waves[1], r)
		}
	}
	for _, wave := range waves {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(4)
		for _, r := range wave {
			g.Go(func() error {
				_, err := s.lifecycle.ApplyRule(gctx, domain.DefineRuleRequest{
					Relation:  r.Relation,
					Operation: r.Operation,
					Columns:   r.Columns,
					KeyColumn: r.KeyColumn,
					Predicate: r.Predicate,
				})
				if err != nil {
					return fmt.Errorf("recompile rule %s/%s: %w", r.Relation, r.Operation, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			record(ctx, s.audit, "RECOMPILE_ALL", "", err)
			return err
		}
	}

	record(ctx, s.audit, "RECOMPILE_ALL", "", nil)
	s.logger.Info("recompiled all definitions", "claims", len(claims), "rules", len(rules))
	return nil
}
