package wire

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/telemetryforge/agent/internal/defs"
)

type requestEnvelope struct {
	Query     string      `json:"query"`
	Variables interface{} `json:"variables,omitempty"`
}

// BuildRequest composes the operation document and an encoded variables blob
// into the final request body. The document is never assembled from input
// values; only the variables are parameterized. Pass nil encodedVars for an
// operation without variables.
func BuildRequest(document string, encodedVars []byte) ([]byte, error) {
	env := requestEnvelope{Query: document}

	if encodedVars != nil {
		var vars interface{}
		if err := msgpack.Unmarshal(encodedVars, &vars); err != nil {
			return nil, defs.ErrValidation().WithDetail("failed to decode variables blob").WithCause(err)
		}
		env.Variables = vars
	}

	body, err := json.Marshal(env)
	if err != nil {
		return nil, defs.ErrValidation().WithDetail("failed to build request body").WithCause(err)
	}
	return body, nil
}

// BuildBody expands an encoded variables blob into a bare JSON document,
// for endpoints that take the payload directly instead of an operation
// envelope.
func BuildBody(encodedVars []byte) ([]byte, error) {
	var payload interface{}
	if err := msgpack.Unmarshal(encodedVars, &payload); err != nil {
		return nil, defs.ErrValidation().WithDetail("failed to decode payload blob").WithCause(err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, defs.ErrValidation().WithDetail("failed to build request body").WithCause(err)
	}
	return body, nil
}
