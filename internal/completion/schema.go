package completion

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CompileSchema compiles an embedded JSON Schema document. Schema
// compilation failures are programming errors, so this panics; call it
// from package var initializers.
func CompileSchema(name, doc string) *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, strings.NewReader(doc)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	s, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return s
}

// ExtractJSON pulls the first JSON object out of a completion. Models
// usually answer with a fenced ```json block; bare objects are accepted
// too. Returns ErrMalformed when no object can be found.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)

	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		rest := trimmed[idx+3:]
		rest = strings.TrimPrefix(rest, "json")
		if end := strings.Index(rest, "```"); end >= 0 {
			trimmed = strings.TrimSpace(rest[:end])
		}
	}

	start := strings.IndexByte(trimmed, '{')
	if start < 0 {
		return "", fmt.Errorf("%w: no JSON object in completion", ErrMalformed)
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(trimmed); i++ {
		ch := trimmed[i]
		if escaped {
			escaped = false
			continue
		}
		switch ch {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return trimmed[start : i+1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("%w: unterminated JSON object in completion", ErrMalformed)
}

// ParseStructured extracts the JSON object from a completion, validates
// it against the schema, and decodes it into out. Any failure is
// ErrMalformed so the caller's retry loop treats it uniformly.
func ParseStructured(text string, schema *jsonschema.Schema, out any) error {
	raw, err := ExtractJSON(text)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if schema != nil {
		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("%w: schema violation: %v", ErrMalformed, err)
		}
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return nil
}
