// Package wire builds the request payloads exchanged with the fleet
// registry and the completion endpoint. Variable values are first packed
// into a compact msgpack blob, then expanded into the JSON envelope right
// before the request goes out, so every operation shares one encoding path
// regardless of how its variables were assembled.
package wire

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/telemetryforge/agent/internal/defs"
)

// Variables is the typed key-value payload parameterizing an operation
// document. Key order is not significant; consumers look values up by key.
type Variables map[string]interface{}

// EncodeVariables serializes vars into its compact binary form. Supported
// value types are strings, booleans, integers, floats, nil, nested maps and
// lists. Any other type is a programmer error and fails the encode rather
// than being coerced.
func EncodeVariables(vars Variables) ([]byte, error) {
	if err := checkValue(vars, "$"); err != nil {
		return nil, err
	}

	data, err := msgpack.Marshal(map[string]interface{}(vars))
	if err != nil {
		return nil, defs.ErrValidation().WithDetail("failed to encode variables").WithCause(err)
	}
	return data, nil
}

func checkValue(v interface{}, path string) error {
	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return nil
	case Variables:
		return checkMap(map[string]interface{}(val), path)
	case map[string]interface{}:
		return checkMap(val, path)
	case map[string]string:
		return nil
	case []interface{}:
		for i, item := range val {
			if err := checkValue(item, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		return nil
	case []string:
		return nil
	default:
		return defs.ErrValidation().
			WithDetail(fmt.Sprintf("unsupported variable type %T at %s", v, path))
	}
}

func checkMap(m map[string]interface{}, path string) error {
	for k, item := range m {
		if err := checkValue(item, path+"."+k); err != nil {
			return err
		}
	}
	return nil
}
