package schema

import (
	"fmt"
	"strings"
)

// normalizeDefinition converts an authored schema definition into JSON
// Schema form. Definitions carrying a top-level "fields" list use the
// simple authoring form:
//
//	fields:
//	  - name: difficulty
//	    type: string
//	    enum: [beginner, intermediate, advanced]
//	    required: true
//	additional: false
//
// Anything else is treated as a raw JSON Schema and passed through.
func normalizeDefinition(def map[string]any) (map[string]any, error) {
	if len(def) == 0 {
		return nil, fmt.Errorf("%w: empty definition", ErrInvalidSchema)
	}
	rawFields, ok := def["fields"]
	if !ok {
		return def, nil
	}
	list, ok := rawFields.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: fields must be a list", ErrInvalidSchema)
	}

	properties := make(map[string]any, len(list))
	var required []any
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: field entries must be mappings", ErrInvalidSchema)
		}
		name, _ := entry["name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("%w: field entry missing name", ErrInvalidSchema)
		}
		prop, err := normalizeField(name, entry)
		if err != nil {
			return nil, err
		}
		properties[name] = prop
		if req, ok := entry["required"].(bool); ok && req {
			required = append(required, name)
		}
	}

	out := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": true,
	}
	if len(required) > 0 {
		out["required"] = required
	}
	if add, ok := def["additional"].(bool); ok {
		out["additionalProperties"] = add
	}
	return out, nil
}

func normalizeField(name string, entry map[string]any) (map[string]any, error) {
	prop := map[string]any{}
	typ, _ := entry["type"].(string)
	switch typ {
	case "", "any":
	case "string", "number", "integer", "boolean", "object":
		prop["type"] = typ
	case "array":
		prop["type"] = "array"
		items := map[string]any{"type": "string"}
		if it, ok := entry["items"].(string); ok && it != "" {
			items["type"] = it
		}
		if pattern, ok := entry["pattern"].(string); ok && pattern != "" {
			items["pattern"] = pattern
		}
		prop["items"] = items
	default:
		return nil, fmt.Errorf("%w: field %s has unknown type %q", ErrInvalidSchema, name, typ)
	}
	if typ != "array" {
		if pattern, ok := entry["pattern"].(string); ok && pattern != "" {
			prop["pattern"] = pattern
		}
	}
	if enum, ok := entry["enum"].([]any); ok && len(enum) > 0 {
		prop["enum"] = enum
	}
	return prop, nil
}
