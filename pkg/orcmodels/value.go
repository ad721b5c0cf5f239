// Package orcmodels holds the wire-level types shared by every subsystem of
// the orchestration kernel: activations, sessions, messages, agent profiles,
// tool plugins, event log entries, and workflow definitions.
package orcmodels

import "encoding/json"

// ValueKind tags the dynamic type carried by a Value.
type ValueKind string

const (
	KindString ValueKind = "string"
	KindNumber ValueKind = "number"
	KindBool   ValueKind = "boolean"
	KindObject ValueKind = "object"
	KindArray  ValueKind = "array"
	KindNull   ValueKind = "null"
)

// Value is a tagged union for dynamic tool arguments (Record<string, unknown>
// at the tool boundary). It round-trips through JSON for provider calls.
type Value struct {
	Kind   ValueKind
	Str    string
	Num    float64
	Bool   bool
	Obj    map[string]Value
	Arr    []Value
}

// MarshalJSON encodes the Value per its Kind.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindObject:
		return json.Marshal(v.Obj)
	case KindArray:
		return json.Marshal(v.Arr)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes raw JSON into the appropriate Kind.
func (v *Value) UnmarshalJSON(data []byte) error {
	var probe any
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*v = fromAny(probe)
	return nil
}

func fromAny(a any) Value {
	switch t := a.(type) {
	case nil:
		return Value{Kind: KindNull}
	case string:
		return Value{Kind: KindString, Str: t}
	case float64:
		return Value{Kind: KindNumber, Num: t}
	case bool:
		return Value{Kind: KindBool, Bool: t}
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, v := range t {
			obj[k] = fromAny(v)
		}
		return Value{Kind: KindObject, Obj: obj}
	case []any:
		arr := make([]Value, len(t))
		for i, v := range t {
			arr[i] = fromAny(v)
		}
		return Value{Kind: KindArray, Arr: arr}
	default:
		return Value{Kind: KindNull}
	}
}

// ValuesFromJSON decodes a raw JSON object into a map of Values, the shape
// tool handlers receive as args.
func ValuesFromJSON(raw json.RawMessage) (map[string]Value, error) {
	if len(raw) == 0 {
		return map[string]Value{}, nil
	}
	var m map[string]Value
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// AsString returns the scalar string form of a Value, used by workflow
// template substitution ("the string form of outputs[stepId][key]").
func (v Value) AsString() (string, bool) {
	switch v.Kind {
	case KindString:
		return v.Str, true
	case KindNumber:
		return json.Number(trimFloat(v.Num)).String(), true
	case KindBool:
		if v.Bool {
			return "true", true
		}
		return "false", true
	case KindNull:
		return "", true
	default:
		return "", false
	}
}

func trimFloat(f float64) string {
	b, _ := json.Marshal(f)
	return string(b)
}
