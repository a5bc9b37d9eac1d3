package api

// Agent is a managed entity owned by the fleet registry. The client holds
// only a local, disposable copy per call. Optional fields are pointers so a
// value missing from a response stays distinguishable from an empty one.
type Agent struct {
	ID      string `json:"id"`
	OrgID   string `json:"orgID"`
	Kind    string `json:"kind"`
	Name    string `json:"name"`
	Version string `json:"version"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
	Status  string `json:"status"`

	Config    *string `json:"config,omitempty"`
	LastSeen  *string `json:"lastSeen,omitempty"`
	CreatedAt *string `json:"createdAt,omitempty"`
	UpdatedAt *string `json:"updatedAt,omitempty"`

	Labels []Label `json:"labels"`
}

// Label is a key-value pair attached to zero or more agents.
type Label struct {
	ID    string `json:"id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LabelRef identifies a label without carrying its payload, used when
// submitting label associations.
type LabelRef struct {
	ID string `json:"id"`
}

// QueryAgentsInput carries the filter, sort and pagination options for the agents
// query. Only OrgID is required; zero values of the optional fields are
// omitted from the request.
type QueryAgentsInput struct {
	OrgID     string `validate:"required"`
	Kind      string
	Name      string
	NameExact bool
	Version   string
	OS        string
	Arch      string
	Status    string

	// LabelIDs restricts results to agents carrying the listed labels;
	// LabelFilterMode selects ANY (at least one) or ALL (every one) and
	// defaults to ANY when unset.
	LabelIDs        []string
	LabelFilterMode string

	SortBy string
	Desc   bool

	// Page is 1-based; PerPage falls back to the configured default when
	// zero. The service clamps both to its accepted range.
	Page    int
	PerPage int
}

// AgentPaginator is the result envelope of an agents query.
type AgentPaginator struct {
	Agents     []Agent `json:"agents"`
	TotalCount int     `json:"totalCount"`
	Page       int     `json:"page"`
	PerPage    int     `json:"perPage"`
	TotalPages int     `json:"totalPages"`
}

// CreateAgentInput is the registration request. The required fields are
// validated client-side before any network call.
type CreateAgentInput struct {
	Kind    string `validate:"required"`
	Name    string `validate:"required"`
	Version string `validate:"required"`
	// Config may be empty; agents without a pipeline config still register.
	Config string
	OS     string `validate:"required"`
	Arch   string `validate:"required"`

	Distro      string
	PackageType string
	Labels      []Label
}

// CreateAgentResult carries the outcome of a registration. Token is
// returned exactly once and cannot be recovered later.
type CreateAgentResult struct {
	ID        string `json:"id"`
	Token     string `json:"token"`
	CreatedAt string `json:"createdAt"`
}

// AddMetricsInput is a counters push. Both counters are cumulative totals
// from the agent's perspective; the registry computes deltas and rates.
type AddMetricsInput struct {
	// Timestamp in RFC3339Nano format.
	Timestamp        string `validate:"required"`
	InputBytesTotal  float64
	OutputBytesTotal float64
}

// ChatResponse is the outcome of a simple chat completion: the first
// choice's text content and the HTTP status of the exchange.
type ChatResponse struct {
	Content    string `json:"content"`
	StatusCode int    `json:"statusCode"`
}
