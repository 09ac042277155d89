package compile

// Engine-facing artifact specs, persisted as JSON on the artifact record.
// The access engine decodes these and never re-derives anything from the
// rule predicate at request time.

// ProjectionArtifact tells the engine how to read through a projection view.
type ProjectionArtifact struct {
	Relation string   `json:"relation"`
	View     string   `json:"view"`
	Columns  []string `json:"columns"`
}

// SubjectColumn is the synthetic column projection views expose to bind each
// row to the subject allowed to see it. NULL marks rows visible to everyone.
const SubjectColumn = "__subject"

// AccessorArtifact is the stored spec of a strict accessor.
type AccessorArtifact struct {
	Relation  string       `json:"relation"`
	Columns   []string     `json:"columns"`
	Params    []ParamSpec  `json:"params"`
	Checks    []WriteCheck `json:"checks"`
	SelectSQL string       `json:"select_sql"`
}

// ParamSpec describes one accessor parameter. Identity-derived parameters
// default to the caller identity; claim-derived parameters are required.
type ParamSpec struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// WriteCheck is one validation the engine runs before admitting an access.
// Identity checks compare a bound value to the caller in the engine; claim
// checks run the stored membership probe; literal checks compare against the
// fixed value.
type WriteCheck struct {
	Kind    string      `json:"kind"` // "identity" | "literal" | "claim"
	Column  string      `json:"column"`
	Param   string      `json:"param,omitempty"`
	Literal interface{} `json:"literal,omitempty"`
	SQL     string      `json:"sql,omitempty"`
}

// CreateGuardArtifact is the stored spec of a create guard: every check runs
// against the incoming row before the insert is admitted.
type CreateGuardArtifact struct {
	Relation string       `json:"relation"`
	Checks   []WriteCheck `json:"checks"`
}

// MutationGuardArtifact is the stored spec of an update/delete guard: the
// mutation is scoped to WhereSQL (plus the key column) and zero affected
// rows surface as not-found-or-unauthorized.
type MutationGuardArtifact struct {
	Relation  string `json:"relation"`
	KeyColumn string `json:"key_column"`
	WhereSQL  string `json:"where_sql"` // empty means no row filter
}

// ClaimArtifact records the derived relation compiled for a claim.
type ClaimArtifact struct {
	Claim string `json:"claim"`
	View  string `json:"view"`
}
