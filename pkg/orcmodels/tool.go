package orcmodels

// ToolParamType enumerates the primitive JSON types a tool parameter accepts.
type ToolParamType string

const (
	ParamString ToolParamType = "string"
	ParamNumber ToolParamType = "number"
	ParamBool   ToolParamType = "boolean"
	ParamObject ToolParamType = "object"
)

// ToolParameter describes one parameter of a tool's schema.
type ToolParameter struct {
	Name        string
	Type        ToolParamType
	Description string
	Required    bool
}

// ToolDescriptor is the static, provider-facing description of a plugin: the
// part an LLM sees in its tool directory. Handlers live alongside this in
// the registry, not here, so the descriptor stays provider-round-trip-safe.
type ToolDescriptor struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}
