package compile

import (
	"encoding/json"
	"fmt"

	"rulegate/internal/domain"
	"rulegate/internal/filter"
)

// Claim compiles a claim definition into its derived-relation artifact. The
// opaque query is wrapped verbatim; validation happens when the lifecycle
// manager probes the view inside the apply transaction.
func Claim(c *domain.Claim) (Artifact, error) {
	view := c.ViewName()
	spec, err := json.Marshal(ClaimArtifact{Claim: c.Name, View: view})
	if err != nil {
		return Artifact{}, fmt.Errorf("marshal claim spec: %w", err)
	}
	return Artifact{
		Kind: domain.ArtifactClaimView,
		Name: view,
		DDL:  "CREATE VIEW " + QuoteIdent(view) + " AS " + c.Query,
		Spec: string(spec),
	}, nil
}

// Rule compiles a rule into its artifact set.
//
// read rules produce a projection view (Or/And fully supported via branch
// expansion) and, best-effort, a strict accessor. create/update/delete rules
// produce a guard. Unsupported predicate shapes degrade: the affected
// artifact is skipped or thinned and the degradation is reported, never
// fatal.
func Rule(rule *domain.Rule, conds []filter.Node) (*Result, error) {
	switch rule.Operation {
	case domain.OpRead:
		return compileRead(rule, conds)
	case domain.OpCreate:
		return compileCreate(rule, conds)
	case domain.OpUpdate, domain.OpDelete:
		return compileMutation(rule, conds)
	default:
		return nil, domain.ErrDefinition("unknown operation %q", string(rule.Operation))
	}
}

func compileRead(rule *domain.Rule, conds []filter.Node) (*Result, error) {
	res := &Result{}

	branches, err := expandBranches(conds)
	if err != nil {
		return nil, err
	}
	proj := ProjectionSpec{
		Relation: rule.Relation,
		View:     ProjectionViewName(rule.Relation),
		Columns:  rule.Columns,
		Branches: branches,
	}
	projArt, err := renderProjection(proj)
	if err != nil {
		return nil, err
	}
	res.Artifacts = append(res.Artifacts, projArt)

	if filter.HasCombinators(conds) {
		res.Degradations = append(res.Degradations, domain.Degradation{
			Artifact: domain.ArtifactAccessor,
			Reason:   "predicate contains or/and conditions; accessor generation skipped",
		})
		return res, nil
	}
	acc, err := buildAccessor(rule, conds)
	if err != nil {
		return nil, err
	}
	accArt, err := renderAccessor(acc)
	if err != nil {
		return nil, err
	}
	res.Artifacts = append(res.Artifacts, accArt)
	return res, nil
}

func compileCreate(rule *domain.Rule, conds []filter.Node) (*Result, error) {
	res := &Result{}
	spec := GuardSpec{Relation: rule.Relation, Event: domain.OpCreate}
	for _, c := range conds {
		leaf, ok, err := normalizeLeaf(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Degradations = append(res.Degradations, domain.Degradation{
				Artifact: domain.ArtifactCreateGuard,
				Reason:   "or/and condition dropped from create guard",
			})
			continue
		}
		spec.Checks = append(spec.Checks, leaf)
	}
	art, err := renderCreateGuard(spec)
	if err != nil {
		return nil, err
	}
	res.Artifacts = append(res.Artifacts, art)
	return res, nil
}

func compileMutation(rule *domain.Rule, conds []filter.Node) (*Result, error) {
	res := &Result{}
	kind := domain.ArtifactUpdateGuard
	if rule.Operation == domain.OpDelete {
		kind = domain.ArtifactDeleteGuard
	}
	key := rule.KeyColumn
	if key == "" {
		key = domain.DefaultKeyColumn
	}
	spec := GuardSpec{Relation: rule.Relation, Event: rule.Operation, KeyColumn: key}
	for _, c := range conds {
		leaf, ok, err := normalizeLeaf(c)
		if err != nil {
			return nil, err
		}
		if !ok {
			res.Degradations = append(res.Degradations, domain.Degradation{
				Artifact: kind,
				Reason:   fmt.Sprintf("or/and condition dropped from %s guard predicate", rule.Operation),
			})
			continue
		}
		spec.Checks = append(spec.Checks, leaf)
	}
	art, err := renderMutationGuard(spec, kind)
	if err != nil {
		return nil, err
	}
	res.Artifacts = append(res.Artifacts, art)
	return res, nil
}

// normalizeLeaf converts an Eq/InClaim node into a LeafCond. ok is false for
// Or/And nodes. Unknown node kinds cannot reach here: the parser rejects
// them at definition time.
func normalizeLeaf(n filter.Node) (LeafCond, bool, error) {
	switch v := n.(type) {
	case *filter.Eq:
		switch val := v.Value.(type) {
		case *filter.Identity:
			return LeafCond{Column: v.Column, Kind: CondIdentity}, true, nil
		case *filter.Literal:
			return LeafCond{Column: v.Column, Kind: CondLiteral, Literal: val.Value}, true, nil
		case *filter.ClaimMembership:
			return LeafCond{Column: v.Column, Kind: CondClaim, Claim: val.Claim}, true, nil
		case *filter.ClaimPropertyCheck:
			return LeafCond{
				Column: v.Column, Kind: CondClaim,
				Claim: val.Claim, Property: val.Property, Allowed: val.Allowed,
			}, true, nil
		default:
			return LeafCond{}, false, domain.ErrDefinition("unknown value kind %T on column %q", val, v.Column)
		}
	case *filter.InClaim:
		leaf := LeafCond{Column: v.Column, Kind: CondClaim, Claim: v.Claim}
		if v.Check != nil {
			leaf.Property = v.Check.Property
			leaf.Allowed = v.Check.Allowed
		}
		return leaf, true, nil
	case *filter.Or, *filter.And:
		return LeafCond{}, false, nil
	default:
		return LeafCond{}, false, domain.ErrDefinition("unknown condition kind %T", n)
	}
}

// expandBranches turns a condition list (implicit AND) into its disjunctive
// normal form: one flat leaf conjunction per Or-alternative.
func expandBranches(conds []filter.Node) ([][]LeafCond, error) {
	branches := [][]LeafCond{{}}
	for _, c := range conds {
		alts, err := alternatives(c)
		if err != nil {
			return nil, err
		}
		next := make([][]LeafCond, 0, len(branches)*len(alts))
		for _, b := range branches {
			for _, alt := range alts {
				merged := make([]LeafCond, 0, len(b)+len(alt))
				merged = append(merged, b...)
				merged = append(merged, alt...)
				next = append(next, merged)
			}
		}
		branches = next
	}
	return branches, nil
}

func alternatives(n filter.Node) ([][]LeafCond, error) {
	switch v := n.(type) {
	case *filter.Or:
		var alts [][]LeafCond
		for _, c := range v.Conditions {
			sub, err := expandBranches([]filter.Node{c})
			if err != nil {
				return nil, err
			}
			alts = append(alts, sub...)
		}
		return alts, nil
	case *filter.And:
		return expandBranches(v.Conditions)
	default:
		leaf, ok, err := normalizeLeaf(n)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrDefinition("unsupported condition kind %T", n)
		}
		return [][]LeafCond{{leaf}}, nil
	}
}

func buildAccessor(rule *domain.Rule, conds []filter.Node) (AccessorSpec, error) {
	spec := AccessorSpec{
		Relation: rule.Relation,
		Name:     AccessorName(rule.Relation),
		Columns:  rule.Columns,
	}
	taken := make(map[string]int)
	for _, c := range conds {
		leaf, ok, err := normalizeLeaf(c)
		if err != nil {
			return AccessorSpec{}, err
		}
		if !ok {
			// Callers check HasCombinators before building.
			return AccessorSpec{}, domain.ErrDefinition("accessor cannot be built from or/and conditions")
		}
		ac := AccessorCond{Leaf: leaf}
		switch leaf.Kind {
		case CondIdentity:
			ac.Param = uniqueParam(taken, leaf.Column)
		case CondClaim:
			ac.Param = uniqueParam(taken, filter.ParamName(leaf.Claim))
		}
		spec.Conds = append(spec.Conds, ac)
	}
	return spec, nil
}

// uniqueParam disambiguates repeated parameter names with a numeric suffix.
func uniqueParam(taken map[string]int, name string) string {
	taken[name]++
	if taken[name] == 1 {
		return name
	}
	return fmt.Sprintf("%s_%d", name, taken[name])
}
