package registry

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/telemetryforge/agent/config"
	"github.com/telemetryforge/agent/internal/api"
	"github.com/telemetryforge/agent/internal/auth"
	"github.com/telemetryforge/agent/internal/defs"
	"github.com/telemetryforge/agent/internal/jsontok"
	"github.com/telemetryforge/agent/internal/transport"
	"github.com/telemetryforge/agent/internal/wire"
)

// Config carries everything a registry client needs to reach the fleet API.
type Config struct {
	// Registry endpoint, e.g. https://api.fluent.do/graphql. The path
	// defaults to /graphql when the URL carries none.
	Endpoint string
	// Bearer token sent on every request. Empty means unauthenticated.
	AuthToken string
	// Optional forward proxy, http://host:port with an explicit port.
	Proxy string
	// TLS material for https endpoints.
	TLS config.TLSConfig
	// Page size applied when a query does not set one. Zero means 20.
	DefaultPerPage int
	// Sort field applied when a query does not set one. Empty leaves the
	// ordering to the service.
	DefaultSort string
	// Per request timeout. Zero means no client side deadline.
	RequestTimeout time.Duration

	UserAgent string
}

// Client talks to the fleet registry over its GraphQL endpoint. One client
// is safe for concurrent use; per call state lives on the stack.
type Client struct {
	endpoint       transport.Endpoint
	upstream       transport.Upstream
	auth           auth.HeaderProvider
	validate       *validator.Validate
	defaultPerPage int
	defaultSort    string
	log            *zap.SugaredLogger
}

// NewClient validates cfg, resolves the endpoint and proxy and returns a
// client ready to issue operations.
func NewClient(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	endpoint, err := transport.ParseEndpoint(cfg.Endpoint, defs.PathGraphQL)
	if err != nil {
		return nil, err
	}

	opts := transport.Options{Timeout: cfg.RequestTimeout}
	if cfg.Proxy != defs.EmptyString {
		proxy, err := transport.ParseProxy(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		opts.Proxy = &proxy
		log.Debugf("registry: requests go through proxy %s", proxy.URL())
	}
	if endpoint.UseTLS {
		tlsConf, err := transport.NewTLSConfig(&cfg.TLS)
		if err != nil {
			return nil, err
		}
		opts.TLS = tlsConf
	}

	perPage := cfg.DefaultPerPage
	if perPage <= 0 {
		perPage = defs.DefaultPerPage
	}
	if cfg.DefaultSort != defs.EmptyString && !defs.IsValidSortField(cfg.DefaultSort) {
		return nil, defs.ErrConfig().WithDetail("unknown sort field " + cfg.DefaultSort)
	}

	return &Client{
		endpoint:       endpoint,
		upstream:       transport.NewUpstream(endpoint, opts),
		auth:           auth.NewBearerTokenProvider(cfg.AuthToken, cfg.UserAgent),
		validate:       validator.New(),
		defaultPerPage: perPage,
		defaultSort:    cfg.DefaultSort,
		log:            log,
	}, nil
}

// Close releases pooled connections. The client must not be used afterwards.
func (c *Client) Close() {
	c.upstream.Close()
}

// QueryAgents lists agents matching input. Optional filters that are left
// at their zero value are omitted from the request entirely.
func (c *Client) QueryAgents(ctx context.Context, input api.QueryAgentsInput) (*api.AgentPaginator, error) {
	if err := c.validateInput(input); err != nil {
		return nil, err
	}
	sortBy := input.SortBy
	if sortBy == defs.EmptyString {
		sortBy = c.defaultSort
	}
	if sortBy != defs.EmptyString && !defs.IsValidSortField(sortBy) {
		return nil, defs.ErrValidation().WithDetail("unknown sort field " + sortBy)
	}

	page := input.Page
	if page <= 0 {
		page = 1
	}
	perPage := input.PerPage
	if perPage <= 0 {
		perPage = c.defaultPerPage
	}

	in := wire.Variables{
		"orgID":   input.OrgID,
		"page":    page,
		"perPage": perPage,
	}
	setOptional(in, "kind", input.Kind)
	setOptional(in, "name", input.Name)
	if input.NameExact {
		in["nameExact"] = true
	}
	setOptional(in, "version", input.Version)
	setOptional(in, "os", input.OS)
	setOptional(in, "arch", input.Arch)
	setOptional(in, "status", input.Status)
	setOptional(in, "sortBy", sortBy)
	if input.Desc {
		in["desc"] = true
	}
	if len(input.LabelIDs) > 0 {
		in["labelIDs"] = input.LabelIDs
		mode := input.LabelFilterMode
		if mode == defs.EmptyString {
			mode = defs.LabelFilterAny
		}
		in["labelFilterMode"] = mode
	}

	buf, toks, data, err := c.do(ctx, queryAgentsDocument, wire.Variables{"input": in})
	if err != nil {
		return nil, err
	}
	agents, ok := jsontok.ObjectKey(buf, toks, data, "agents")
	if !ok || jsontok.IsNull(buf, toks[agents]) {
		return nil, defs.ErrMapping().WithDetail("response has no agents field")
	}
	return hydratePaginator(buf, toks, agents)
}

// GetAgent fetches one agent by id. A missing agent is not an error; the
// call returns (nil, nil).
func (c *Client) GetAgent(ctx context.Context, agentID string) (*api.Agent, error) {
	if agentID == defs.EmptyString {
		return nil, defs.ErrValidation().WithDetail("agent id is required")
	}
	buf, toks, data, err := c.do(ctx, getAgentDocument, wire.Variables{"id": agentID})
	if err != nil {
		return nil, err
	}
	return c.singleAgent(buf, toks, data, "agent")
}

// GetAgentByName fetches one agent by its exact name inside an
// organization. A missing agent returns (nil, nil).
func (c *Client) GetAgentByName(ctx context.Context, orgID, name string) (*api.Agent, error) {
	if orgID == defs.EmptyString {
		return nil, defs.ErrValidation().WithDetail("organization id is required")
	}
	if name == defs.EmptyString {
		return nil, defs.ErrValidation().WithDetail("agent name is required")
	}
	buf, toks, data, err := c.do(ctx, getAgentByNameDocument, wire.Variables{
		"orgID": orgID,
		"name":  name,
	})
	if err != nil {
		return nil, err
	}
	return c.singleAgent(buf, toks, data, "agentByName")
}

// CreateAgent registers a new agent and returns its identity together with
// the one time token the registry minted for it.
func (c *Client) CreateAgent(ctx context.Context, input api.CreateAgentInput) (*api.CreateAgentResult, error) {
	if err := c.validateInput(input); err != nil {
		return nil, err
	}
	if !defs.IsValidAgentKind(input.Kind) {
		return nil, defs.ErrValidation().WithDetail("unknown agent kind " + input.Kind)
	}

	in := wire.Variables{
		"kind":    input.Kind,
		"name":    input.Name,
		"version": input.Version,
		"config":  input.Config,
		"os":      input.OS,
		"arch":    input.Arch,
	}
	setOptional(in, "distro", input.Distro)
	setOptional(in, "packageType", input.PackageType)
	if len(input.Labels) > 0 {
		in["labels"] = labelMap(input.Labels)
	}

	buf, toks, data, err := c.do(ctx, createAgentDocument, wire.Variables{"input": in})
	if err != nil {
		return nil, err
	}
	created, ok := jsontok.ObjectKey(buf, toks, data, "createAgent")
	if !ok || jsontok.IsNull(buf, toks[created]) {
		return nil, defs.ErrMapping().WithDetail("response has no createAgent field")
	}
	return hydrateCreateResult(buf, toks, created)
}

// UpdateAgent pushes new metadata for an existing agent. Nil pointers mean
// the field stays untouched on the registry side. Labels, when present, are
// ensured on the agent in the same mutation.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, config, distro, packageType *string, labels []api.Label) error {
	if agentID == defs.EmptyString {
		return defs.ErrValidation().WithDetail("agent id is required")
	}
	in := wire.Variables{"agentID": agentID}
	if config != nil {
		in["config"] = *config
	}
	if distro != nil {
		in["distro"] = *distro
	}
	if packageType != nil {
		in["packageType"] = *packageType
	}
	if len(labels) > 0 {
		in["ensureLabels"] = labelMap(labels)
	}

	_, _, _, err := c.do(ctx, updateAgentDocument, wire.Variables{"in": in})
	return err
}

// AddMetrics reports cumulative byte counters for the calling agent. The
// registry derives the agent identity from the auth token, so no id travels
// in the payload.
func (c *Client) AddMetrics(ctx context.Context, input api.AddMetricsInput) error {
	if err := c.validateInput(input); err != nil {
		return err
	}
	if _, err := time.Parse(time.RFC3339Nano, input.Timestamp); err != nil {
		return defs.ErrValidation().WithDetail("timestamp is not RFC3339: " + input.Timestamp)
	}

	in := wire.Variables{
		"timestamp":        input.Timestamp,
		"inputBytesTotal":  input.InputBytesTotal,
		"outputBytesTotal": input.OutputBytesTotal,
	}
	_, _, _, err := c.do(ctx, addMetricsDocument, wire.Variables{"input": in})
	return err
}

// AssignLabels attaches labels to an agent, keeping whatever labels it
// already has. An empty set is a no-op and touches no network.
func (c *Client) AssignLabels(ctx context.Context, agentID string, labels []api.Label) error {
	if agentID == defs.EmptyString {
		return defs.ErrValidation().WithDetail("agent id is required")
	}
	if len(labels) == 0 {
		return nil
	}
	in := wire.Variables{
		"agentIDs": []string{agentID},
		"labels":   labelMap(labels),
	}
	_, _, _, err := c.do(ctx, assignLabelsDocument, wire.Variables{"in": in})
	return err
}

// do runs one operation end to end: encode variables, post, tokenize and
// sort out the error precedence. On success it returns the response buffer,
// its tokens and the index of the data object.
func (c *Client) do(ctx context.Context, document string, vars wire.Variables) ([]byte, []jsontok.Token, int, error) {
	blob, err := wire.EncodeVariables(vars)
	if err != nil {
		return nil, nil, 0, err
	}
	body, err := wire.BuildRequest(document, blob)
	if err != nil {
		return nil, nil, 0, err
	}

	resp, err := c.upstream.Post(ctx, c.endpoint.Path, body, c.auth.GetAuthHeader())
	if err != nil {
		return nil, nil, 0, err
	}

	toks, perr := jsontok.Parse(resp.Body)
	if perr != nil {
		// A broken payload on a failing status is reported as the
		// status, not as a parse problem.
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return nil, nil, 0, defs.ErrProtocol(resp.StatusCode)
		}
		return nil, nil, 0, perr
	}
	if len(toks) == 0 || toks[0].Type != jsontok.TypeObject {
		return nil, nil, 0, defs.ErrParse(0).WithDetail("response root is not an object")
	}

	// A GraphQL error array wins over the HTTP status code.
	if messages, found := graphQLErrors(resp.Body, toks); found {
		return nil, nil, 0, defs.ErrGraphQL(resp.StatusCode, messages)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, nil, 0, defs.ErrProtocol(resp.StatusCode)
	}

	data, ok := jsontok.ObjectKey(resp.Body, toks, 0, "data")
	if !ok || jsontok.IsNull(resp.Body, toks[data]) {
		return nil, nil, 0, defs.ErrMapping().WithDetail("response has no data object")
	}
	return resp.Body, toks, data, nil
}

func (c *Client) singleAgent(buf []byte, toks []jsontok.Token, data int, field string) (*api.Agent, error) {
	idx, ok := jsontok.ObjectKey(buf, toks, data, field)
	if !ok || jsontok.IsNull(buf, toks[idx]) {
		// Not found is an outcome, not a failure.
		return nil, nil
	}
	return hydrateAgent(buf, toks, idx)
}

func (c *Client) validateInput(input interface{}) error {
	if err := c.validate.Struct(input); err != nil {
		return defs.ErrValidation().WithDetail(err.Error()).WithCause(err)
	}
	return nil
}

// graphQLErrors reports the messages of a non-empty top level errors array.
func graphQLErrors(buf []byte, toks []jsontok.Token) ([]string, bool) {
	arr, ok := jsontok.ObjectKey(buf, toks, 0, "errors")
	if !ok || toks[arr].Type != jsontok.TypeArray || toks[arr].Size == 0 {
		return nil, false
	}
	messages := make([]string, 0, toks[arr].Size)
	for i := 0; i < toks[arr].Size; i++ {
		elem, ok := jsontok.ArrayElem(toks, arr, i)
		if !ok || toks[elem].Type != jsontok.TypeObject {
			continue
		}
		msg, ok := jsontok.ObjectKey(buf, toks, elem, "message")
		if !ok || toks[msg].Type != jsontok.TypeString {
			continue
		}
		text, err := jsontok.Unquote(buf, toks[msg])
		if err != nil {
			continue
		}
		messages = append(messages, text)
	}
	return messages, true
}

func setOptional(vars wire.Variables, key, value string) {
	if value != defs.EmptyString {
		vars[key] = value
	}
}

func labelMap(labels []api.Label) map[string]string {
	out := make(map[string]string, len(labels))
	for _, l := range labels {
		out[l.Key] = l.Value
	}
	return out
}
