package domain

import "time"

// Claim is a named, opaque query exposing (subject, value) pairs, used as a
// building block inside rule predicates. The query text is never parsed by
// the compiler; it is compiled into a derived relation (a view named
// "claim_<name>") that runs with the definer's access rights.
//
// The query must yield a column named "subject" (the identity a row belongs
// to) and a column named "value" (the attribute granted to that identity).
// Additional columns are allowed and can be tested with property checks.
type Claim struct {
	ID        string
	Name      string
	Query     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ViewName returns the name of the derived relation compiled for this claim.
func (c *Claim) ViewName() string { return ClaimViewName(c.Name) }

// ClaimViewName maps a claim name to its derived-relation name.
func ClaimViewName(claim string) string { return "claim_" + claim }

// DefineClaimRequest carries the parameters for defining (or redefining)
// a claim.
type DefineClaimRequest struct {
	Name  string
	Query string
}

// Validate checks request fields.
func (r *DefineClaimRequest) Validate() error {
	if r.Name == "" {
		return ErrValidation("claim name is required")
	}
	if !ValidIdentifier(r.Name) {
		return ErrDefinition("claim name %q is not a valid identifier", r.Name)
	}
	if r.Query == "" {
		return ErrValidation("claim query is required")
	}
	return nil
}
