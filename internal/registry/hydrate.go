package registry

import (
	"github.com/telemetryforge/agent/internal/api"
	"github.com/telemetryforge/agent/internal/defs"
	"github.com/telemetryforge/agent/internal/jsontok"
)

// hydrateAgent maps an agent object token onto api.Agent. Required fields
// missing from the payload fail the whole call; optional ones stay nil.
func hydrateAgent(buf []byte, toks []jsontok.Token, idx int) (*api.Agent, error) {
	if toks[idx].Type != jsontok.TypeObject {
		return nil, defs.ErrMapping().WithDetail("agent is not an object")
	}

	var agent api.Agent
	var err error
	required := []struct {
		key string
		dst *string
	}{
		{"id", &agent.ID},
		{"orgID", &agent.OrgID},
		{"kind", &agent.Kind},
		{"name", &agent.Name},
		{"version", &agent.Version},
		{"os", &agent.OS},
		{"arch", &agent.Arch},
		{"status", &agent.Status},
	}
	for _, f := range required {
		*f.dst, err = requiredString(buf, toks, idx, f.key)
		if err != nil {
			return nil, err
		}
	}

	optional := []struct {
		key string
		dst **string
	}{
		{"config", &agent.Config},
		{"lastSeen", &agent.LastSeen},
		{"createdAt", &agent.CreatedAt},
		{"updatedAt", &agent.UpdatedAt},
	}
	for _, f := range optional {
		*f.dst, err = optionalString(buf, toks, idx, f.key)
		if err != nil {
			return nil, err
		}
	}

	labels, ok := jsontok.ObjectKey(buf, toks, idx, "labels")
	if ok && toks[labels].Type == jsontok.TypeArray {
		agent.Labels = make([]api.Label, 0, toks[labels].Size)
		for i := 0; i < toks[labels].Size; i++ {
			elem, ok := jsontok.ArrayElem(toks, labels, i)
			if !ok {
				return nil, defs.ErrMapping().WithDetail("labels array is shorter than its size")
			}
			label, err := hydrateLabel(buf, toks, elem)
			if err != nil {
				return nil, err
			}
			agent.Labels = append(agent.Labels, label)
		}
	}

	return &agent, nil
}

func hydrateLabel(buf []byte, toks []jsontok.Token, idx int) (api.Label, error) {
	var label api.Label
	if toks[idx].Type != jsontok.TypeObject {
		return label, defs.ErrMapping().WithDetail("label is not an object")
	}
	var err error
	if label.ID, err = requiredString(buf, toks, idx, "id"); err != nil {
		return label, err
	}
	if label.Key, err = requiredString(buf, toks, idx, "key"); err != nil {
		return label, err
	}
	if label.Value, err = requiredString(buf, toks, idx, "value"); err != nil {
		return label, err
	}
	return label, nil
}

// hydratePaginator maps the agents envelope: a data array of agents plus
// the paginatorInfo counters, both required.
func hydratePaginator(buf []byte, toks []jsontok.Token, idx int) (*api.AgentPaginator, error) {
	if toks[idx].Type != jsontok.TypeObject {
		return nil, defs.ErrMapping().WithDetail("agents envelope is not an object")
	}

	arr, ok := jsontok.ObjectKey(buf, toks, idx, "data")
	if !ok || toks[arr].Type != jsontok.TypeArray {
		return nil, defs.ErrMapping().WithDetail("agents envelope has no data array")
	}

	page := api.AgentPaginator{Agents: make([]api.Agent, 0, toks[arr].Size)}
	for i := 0; i < toks[arr].Size; i++ {
		elem, ok := jsontok.ArrayElem(toks, arr, i)
		if !ok {
			return nil, defs.ErrMapping().WithDetail("data array is shorter than its size")
		}
		agent, err := hydrateAgent(buf, toks, elem)
		if err != nil {
			return nil, err
		}
		page.Agents = append(page.Agents, *agent)
	}

	info, ok := jsontok.ObjectKey(buf, toks, idx, "paginatorInfo")
	if !ok || toks[info].Type != jsontok.TypeObject {
		return nil, defs.ErrMapping().WithDetail("agents envelope has no paginatorInfo")
	}
	var err error
	if page.TotalCount, err = requiredInt(buf, toks, info, "totalCount"); err != nil {
		return nil, err
	}
	if page.Page, err = requiredInt(buf, toks, info, "page"); err != nil {
		return nil, err
	}
	if page.PerPage, err = requiredInt(buf, toks, info, "perPage"); err != nil {
		return nil, err
	}
	if page.TotalPages, err = requiredInt(buf, toks, info, "totalPages"); err != nil {
		return nil, err
	}
	return &page, nil
}

func hydrateCreateResult(buf []byte, toks []jsontok.Token, idx int) (*api.CreateAgentResult, error) {
	if toks[idx].Type != jsontok.TypeObject {
		return nil, defs.ErrMapping().WithDetail("createAgent result is not an object")
	}
	var result api.CreateAgentResult
	var err error
	if result.ID, err = requiredString(buf, toks, idx, "id"); err != nil {
		return nil, err
	}
	if result.Token, err = requiredString(buf, toks, idx, "token"); err != nil {
		return nil, err
	}
	if result.CreatedAt, err = requiredString(buf, toks, idx, "createdAt"); err != nil {
		return nil, err
	}
	return &result, nil
}

func requiredString(buf []byte, toks []jsontok.Token, obj int, key string) (string, error) {
	idx, ok := jsontok.ObjectKey(buf, toks, obj, key)
	if !ok || jsontok.IsNull(buf, toks[idx]) {
		return defs.EmptyString, defs.ErrMapping().WithDetail("missing required field " + key)
	}
	if toks[idx].Type != jsontok.TypeString {
		return defs.EmptyString, defs.ErrMapping().WithDetail("field " + key + " is not a string")
	}
	return jsontok.Unquote(buf, toks[idx])
}

func optionalString(buf []byte, toks []jsontok.Token, obj int, key string) (*string, error) {
	idx, ok := jsontok.ObjectKey(buf, toks, obj, key)
	if !ok || jsontok.IsNull(buf, toks[idx]) {
		return nil, nil
	}
	if toks[idx].Type != jsontok.TypeString {
		return nil, defs.ErrMapping().WithDetail("field " + key + " is not a string")
	}
	value, err := jsontok.Unquote(buf, toks[idx])
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func requiredInt(buf []byte, toks []jsontok.Token, obj int, key string) (int, error) {
	idx, ok := jsontok.ObjectKey(buf, toks, obj, key)
	if !ok || toks[idx].Type != jsontok.TypePrimitive {
		return 0, defs.ErrMapping().WithDetail("missing required field " + key)
	}
	value, err := jsontok.Int(buf, toks[idx])
	if err != nil {
		return 0, defs.ErrMapping().WithDetail("field " + key + " is not an integer").WithCause(err)
	}
	return value, nil
}
