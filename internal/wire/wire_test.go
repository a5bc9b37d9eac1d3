package wire

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telemetryforge/agent/internal/defs"
)

func TestEncodeVariables_and_BuildRequest(t *testing.T) {
	//Arrange
	vars := Variables{
		"input": Variables{
			"orgID":   "o-1",
			"page":    2,
			"desc":    true,
			"labels":  map[string]string{"env": "prod"},
			"ids":     []string{"a", "b"},
			"skipped": nil,
		},
	}

	//Act
	blob, err := EncodeVariables(vars)
	assert.NoError(t, err)
	body, err := BuildRequest("query Q($input: In!) { q(in: $input) }", blob)

	//Assert
	assert.NoError(t, err)

	var envelope struct {
		Query     string `json:"query"`
		Variables struct {
			Input map[string]interface{} `json:"input"`
		} `json:"variables"`
	}
	assert.NoError(t, json.Unmarshal(body, &envelope))
	assert.Equal(t, "query Q($input: In!) { q(in: $input) }", envelope.Query)
	assert.Equal(t, "o-1", envelope.Variables.Input["orgID"])
	assert.Equal(t, float64(2), envelope.Variables.Input["page"])
	assert.Equal(t, true, envelope.Variables.Input["desc"])
	assert.Equal(t, map[string]interface{}{"env": "prod"}, envelope.Variables.Input["labels"])
	assert.Equal(t, []interface{}{"a", "b"}, envelope.Variables.Input["ids"])
}

func TestEncodeVariables_rejects_unsupported_type(t *testing.T) {
	//Arrange
	vars := Variables{
		"input": Variables{
			"bad": make(chan int),
		},
	}

	//Act
	_, err := EncodeVariables(vars)

	//Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindValidation, defs.KindOf(err))
	assert.Contains(t, err.Error(), "$.input.bad")
}

func TestEncodeVariables_rejects_unsupported_list_element(t *testing.T) {
	//Act
	_, err := EncodeVariables(Variables{
		"list": []interface{}{"fine", struct{}{}},
	})

	//Assert
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "$.list[1]")
}

func TestBuildRequest_without_variables(t *testing.T) {
	//Act
	body, err := BuildRequest("query { ping }", nil)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, `{"query":"query { ping }"}`, string(body))
}

func TestBuildBody_bare_payload(t *testing.T) {
	//Arrange
	blob, err := EncodeVariables(Variables{
		"model":       "gpt-4o-mini",
		"temperature": 0.0,
	})
	assert.NoError(t, err)

	//Act
	body, err := BuildBody(blob)

	//Assert
	assert.NoError(t, err)

	var payload map[string]interface{}
	assert.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "gpt-4o-mini", payload["model"])
	assert.Equal(t, float64(0), payload["temperature"])
	_, hasQuery := payload["query"]
	assert.False(t, hasQuery)
}
