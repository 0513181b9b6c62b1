package mcp

import (
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/m-mizutani/goerr/v2"
)

// schemaParams flattens an MCP tool input schema into the parameter map
// of a tool descriptor. The decision prompt works on plain name and
// description pairs, so nested structure collapses to one line per
// top-level property.
func schemaParams(inputSchema any) (map[string]string, error) {
	if inputSchema == nil {
		return nil, nil
	}

	// InputSchema is loosely typed; go through JSON to reach a
	// jsonschema.Schema regardless of the concrete representation.
	schemaJSON, err := json.Marshal(inputSchema)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to marshal input schema")
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal input schema")
	}

	if len(schema.Properties) == 0 {
		return nil, nil
	}

	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	params := make(map[string]string, len(schema.Properties))
	for name, prop := range schema.Properties {
		params[name] = describeProperty(prop, required[name])
	}
	return params, nil
}

func describeProperty(prop *jsonschema.Schema, required bool) string {
	if prop == nil {
		return ""
	}

	var parts []string
	if prop.Type != "" {
		parts = append(parts, prop.Type)
	}
	if prop.Description != "" {
		parts = append(parts, prop.Description)
	}
	if len(prop.Enum) > 0 {
		values := make([]string, 0, len(prop.Enum))
		for _, v := range prop.Enum {
			if s, ok := v.(string); ok {
				values = append(values, s)
			}
		}
		if len(values) > 0 {
			parts = append(parts, "one of: "+strings.Join(values, ", "))
		}
	}
	if required {
		parts = append(parts, "required")
	}

	return strings.Join(parts, "; ")
}
