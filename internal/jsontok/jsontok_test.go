package jsontok

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/telemetryforge/agent/internal/defs"
)

func TestParse_flat_object(t *testing.T) {
	//Arrange
	buf := []byte(`{"name":"edge-1","count":41,"ok":true}`)

	//Act
	toks, err := Parse(buf)

	//Assert
	assert.NoError(t, err)
	assert.Equal(t, TypeObject, toks[0].Type)
	assert.Equal(t, 3, toks[0].Size)

	name, ok := ObjectKey(buf, toks, 0, "name")
	assert.True(t, ok)
	value, err := Unquote(buf, toks[name])
	assert.NoError(t, err)
	assert.Equal(t, "edge-1", value)

	count, ok := ObjectKey(buf, toks, 0, "count")
	assert.True(t, ok)
	n, err := Int(buf, toks[count])
	assert.NoError(t, err)
	assert.Equal(t, 41, n)
}

func TestParse_key_lookup_skips_nested_objects(t *testing.T) {
	//Arrange, the nested sibling carries the same key name
	buf := []byte(`{"outer":{"id":"nested"},"id":"direct"}`)

	//Act
	toks, err := Parse(buf)

	//Assert
	assert.NoError(t, err)
	idx, ok := ObjectKey(buf, toks, 0, "id")
	assert.True(t, ok)
	value, _ := Unquote(buf, toks[idx])
	assert.Equal(t, "direct", value)
}

func TestParse_key_missing_in_direct_children(t *testing.T) {
	//Arrange, the key exists only inside a nested object
	buf := []byte(`{"outer":{"token":"hidden"}}`)

	//Act
	toks, err := Parse(buf)

	//Assert
	assert.NoError(t, err)
	_, ok := ObjectKey(buf, toks, 0, "token")
	assert.False(t, ok)
}

func TestParse_deeply_nested_response_shape(t *testing.T) {
	//Arrange
	buf := []byte(`{"data":{"agents":{"data":[` +
		`{"id":"a-1","labels":[{"id":"l-1","key":"env","value":"prod"}]},` +
		`{"id":"a-2","labels":[]}` +
		`],"paginatorInfo":{"totalCount":2,"page":1,"perPage":20,"totalPages":1}}}}`)

	//Act
	toks, err := Parse(buf)

	//Assert
	assert.NoError(t, err)

	data, ok := ObjectKey(buf, toks, 0, "data")
	assert.True(t, ok)
	agents, ok := ObjectKey(buf, toks, data, "agents")
	assert.True(t, ok)
	list, ok := ObjectKey(buf, toks, agents, "data")
	assert.True(t, ok)
	assert.Equal(t, TypeArray, toks[list].Type)
	assert.Equal(t, 2, toks[list].Size)

	second, ok := ArrayElem(toks, list, 1)
	assert.True(t, ok)
	id, ok := ObjectKey(buf, toks, second, "id")
	assert.True(t, ok)
	value, _ := Unquote(buf, toks[id])
	assert.Equal(t, "a-2", value)

	info, ok := ObjectKey(buf, toks, agents, "paginatorInfo")
	assert.True(t, ok)
	total, ok := ObjectKey(buf, toks, info, "totalCount")
	assert.True(t, ok)
	n, _ := Int(buf, toks[total])
	assert.Equal(t, 2, n)
}

func TestParse_truncated_input_reports_offset(t *testing.T) {
	//Arrange
	buf := []byte(`{"a":`)

	//Act
	_, err := Parse(buf)

	//Assert
	assert.Error(t, err)
	ce, ok := err.(*defs.ClientError)
	assert.True(t, ok)
	assert.Equal(t, defs.ErrorKindParse, ce.Kind)
	assert.Equal(t, len(buf), ce.Offset)
}

func TestParse_unbalanced_container_reports_offset(t *testing.T) {
	//Arrange
	buf := []byte(`{"a":[1,2}`)

	//Act
	_, err := Parse(buf)

	//Assert
	assert.Error(t, err)
	ce := err.(*defs.ClientError)
	assert.Equal(t, defs.ErrorKindParse, ce.Kind)
	assert.Equal(t, 9, ce.Offset)
}

func TestParse_unterminated_string(t *testing.T) {
	//Act
	_, err := Parse([]byte(`{"a":"broken`))

	//Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindParse, defs.KindOf(err))
}

func TestParse_token_budget(t *testing.T) {
	//Arrange, one array with more elements than the budget allows
	buf := []byte("[" + strings.Repeat("1,", maxTokens+1) + "1]")

	//Act
	_, err := Parse(buf)

	//Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindParse, defs.KindOf(err))
	assert.Contains(t, err.Error(), "token budget")
}

func TestUnquote_escapes(t *testing.T) {
	//Arrange
	buf := []byte(`{"msg":"line1\nline2\t\"quoted\" \\ é 😀"}`)

	//Act
	toks, err := Parse(buf)

	//Assert
	assert.NoError(t, err)
	idx, ok := ObjectKey(buf, toks, 0, "msg")
	assert.True(t, ok)
	value, err := Unquote(buf, toks[idx])
	assert.NoError(t, err)
	assert.Equal(t, "line1\nline2\t\"quoted\" \\ é 😀", value)
}

func TestUnquote_invalid_escape(t *testing.T) {
	//Act
	_, err := Parse([]byte(`{"msg":"bad\x"}`))

	//Assert
	assert.Error(t, err)
	assert.Equal(t, defs.ErrorKindParse, defs.KindOf(err))
}

func TestParse_primitives(t *testing.T) {
	//Arrange
	buf := []byte(`{"f":-12.5,"t":true,"n":null}`)

	//Act
	toks, err := Parse(buf)

	//Assert
	assert.NoError(t, err)

	f, ok := ObjectKey(buf, toks, 0, "f")
	assert.True(t, ok)
	v, err := Float(buf, toks[f])
	assert.NoError(t, err)
	assert.Equal(t, -12.5, v)

	n, ok := ObjectKey(buf, toks, 0, "n")
	assert.True(t, ok)
	assert.True(t, IsNull(buf, toks[n]))

	tr, ok := ObjectKey(buf, toks, 0, "t")
	assert.True(t, ok)
	assert.False(t, IsNull(buf, toks[tr]))
}

func TestValueSize_spans_nested_values(t *testing.T) {
	//Arrange
	buf := []byte(`[{"a":[1,2]},"tail"]`)

	//Act
	toks, err := Parse(buf)

	//Assert
	assert.NoError(t, err)
	// element 0 is the object spanning itself, its key and the inner array
	assert.Equal(t, 5, ValueSize(toks, 1))

	tail, ok := ArrayElem(toks, 0, 1)
	assert.True(t, ok)
	value, _ := Unquote(buf, toks[tail])
	assert.Equal(t, "tail", value)
}

func TestArrayElem_out_of_range(t *testing.T) {
	//Arrange
	buf := []byte(`[1,2]`)
	toks, err := Parse(buf)
	assert.NoError(t, err)

	//Act
	_, ok := ArrayElem(toks, 0, 2)

	//Assert
	assert.False(t, ok)
}
