package completion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFenced(t *testing.T) {
	raw := "Here you go:\n```json\n{\"a\": 1}\n```\nanything after"
	got, err := ExtractJSON(raw)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, got)
}

func TestExtractJSONBare(t *testing.T) {
	got, err := ExtractJSON(`prefix {"a": {"b": "}"}} suffix`)
	require.NoError(t, err)
	// Braces inside strings must not confuse the matcher.
	assert.JSONEq(t, `{"a": {"b": "}"}}`, got)
}

func TestExtractJSONEscapedQuote(t *testing.T) {
	got, err := ExtractJSON(`{"a": "say \"hi\" {now}"}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": "say \"hi\" {now}"}`, got)
}

func TestExtractJSONMissing(t *testing.T) {
	_, err := ExtractJSON("no json at all")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ExtractJSON(`{"never": "closed"`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseStructured(t *testing.T) {
	schema := CompileSchema("t.json", `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": {"type": "string"}, "count": {"type": "integer"}}
	}`)

	var out struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	err := ParseStructured("```json\n{\"name\": \"x\", \"count\": 2}\n```", schema, &out)
	require.NoError(t, err)
	assert.Equal(t, "x", out.Name)
	assert.Equal(t, 2, out.Count)

	// Schema violation maps onto the malformed class.
	err = ParseStructured(`{"count": 2}`, schema, &out)
	assert.ErrorIs(t, err, ErrMalformed)
}
