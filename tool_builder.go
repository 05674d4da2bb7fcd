package mcp

import (
	"sort"
	"strings"
)

// ToolBuilder holds a tool definition built by NewTool.
type ToolBuilder struct {
	name         string
	description  string
	params       []paramDef
	outputParams []paramDef
}

type paramDef struct {
	name         string
	paramType    string // "" accepts any value; "array:T" is an array of T
	description  string
	required     bool
	enum         []string
	defaultValue any
	properties   map[string]*paramDef
}

// Name returns the tool's name
func (t *ToolBuilder) Name() string {
	return t.name
}

// Description returns the tool's description with whitespace runs collapsed
// to single spaces.
func (t *ToolBuilder) Description() string {
	return strings.Join(strings.Fields(t.description), " ")
}

// BuildSchema returns the JSON Schema for the tool's input parameters.
func (t *ToolBuilder) BuildSchema() map[string]any {
	return t.buildSchema()
}

// BuildOutputSchema returns the JSON Schema for the tool's structured output,
// or nil when none was declared with Output.
func (t *ToolBuilder) BuildOutputSchema() map[string]any {
	return t.buildOutputSchema()
}

func (t *ToolBuilder) buildSchema() map[string]any {
	return buildObjectSchema(t.params)
}

func (t *ToolBuilder) buildOutputSchema() map[string]any {
	if len(t.outputParams) == 0 {
		return nil
	}
	return buildObjectSchema(t.outputParams)
}

func buildObjectSchema(params []paramDef) map[string]any {
	properties := make(map[string]any, len(params))
	var required []string

	for i := range params {
		properties[params[i].name] = buildParamSchema(&params[i])
		if params[i].required {
			required = append(required, params[i].name)
		}
	}

	schema := map[string]any{
		"type":                 "object",
		"properties":           properties,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		sort.Strings(required)
		schema["required"] = required
	}
	return schema
}

func buildParamSchema(param *paramDef) map[string]any {
	var schema map[string]any
	switch {
	case param.paramType == "":
		schema = map[string]any{}
	case strings.HasPrefix(param.paramType, "array:"):
		schema = map[string]any{
			"type":  "array",
			"items": map[string]any{"type": strings.TrimPrefix(param.paramType, "array:")},
		}
	case param.paramType == "object":
		if len(param.properties) == 0 {
			schema = map[string]any{"type": "object", "additionalProperties": true}
		} else {
			props := make([]paramDef, 0, len(param.properties))
			for _, p := range param.properties {
				props = append(props, *p)
			}
			schema = buildObjectSchema(props)
		}
	default:
		schema = map[string]any{"type": param.paramType}
	}

	if param.description != "" {
		schema["description"] = param.description
	}
	if len(param.enum) > 0 {
		schema["enum"] = param.enum
	}
	if param.defaultValue != nil {
		schema["default"] = param.defaultValue
	}
	return schema
}
