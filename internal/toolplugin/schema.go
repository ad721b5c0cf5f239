package toolplugin

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/haasonsaas/orchkernel/pkg/orcmodels"
)

// BuildJSONSchema turns a ToolDescriptor's parameter list into the JSON
// Schema document providers expect, and that ValidateArgs checks calls
// against before a plugin's Execute ever runs.
func BuildJSONSchema(params []orcmodels.ToolParameter) map[string]any {
	props := make(map[string]any, len(params))
	var required []string
	for _, p := range params {
		props[p.Name] = map[string]any{
			"type":        jsonSchemaType(p.Type),
			"description": p.Description,
		}
		if p.Required {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func jsonSchemaType(t orcmodels.ToolParamType) string {
	switch t {
	case orcmodels.ParamNumber:
		return "number"
	case orcmodels.ParamBool:
		return "boolean"
	case orcmodels.ParamObject:
		return "object"
	default:
		return "string"
	}
}

// ValidateArgs compiles descriptor's schema and checks args (already
// decoded into orcmodels.Value) against it. Returns a descriptive error on
// mismatch; callers surface this as a tool-level "Error: ..." result rather
// than aborting the session.
func ValidateArgs(descriptor orcmodels.ToolDescriptor, args map[string]orcmodels.Value) error {
	schema := BuildJSONSchema(descriptor.Parameters)
	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("toolplugin: marshal schema for %s: %w", descriptor.Name, err)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("toolplugin: unmarshal schema for %s: %w", descriptor.Name, err)
	}

	compiler := jsonschema.NewCompiler()
	uri := "mem://tool/" + descriptor.Name
	if err := compiler.AddResource(uri, doc); err != nil {
		return fmt.Errorf("toolplugin: add schema resource for %s: %w", descriptor.Name, err)
	}
	compiled, err := compiler.Compile(uri)
	if err != nil {
		return fmt.Errorf("toolplugin: compile schema for %s: %w", descriptor.Name, err)
	}

	plain := make(map[string]any, len(args))
	for k, v := range args {
		var decoded any
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("toolplugin: marshal arg %s: %w", k, err)
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("toolplugin: unmarshal arg %s: %w", k, err)
		}
		plain[k] = decoded
	}

	if err := compiled.Validate(plain); err != nil {
		return fmt.Errorf("arguments for %s failed validation: %w", descriptor.Name, err)
	}
	return nil
}
