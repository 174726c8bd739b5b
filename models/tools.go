package models

import "encoding/json"

// ToolCall is an opaque action descriptor the assistant executed. The display
// layer renders it; nothing in this module interprets it beyond Name.
type ToolCall json.RawMessage

// MarshalJSON emits the raw descriptor, or null when empty.
func (t ToolCall) MarshalJSON() ([]byte, error) {
	if len(t) == 0 {
		return []byte("null"), nil
	}
	return []byte(t), nil
}

// UnmarshalJSON keeps a copy of the raw descriptor.
func (t *ToolCall) UnmarshalJSON(data []byte) error {
	*t = append((*t)[:0], data...)
	return nil
}

// Name best-effort extracts a label for an action chip. Backends use either
// "name", "tool" or "function.name".
func (t ToolCall) Name() string {
	var probe struct {
		Name     string `json:"name"`
		Tool     string `json:"tool"`
		Function struct {
			Name string `json:"name"`
		} `json:"function"`
	}
	if err := json.Unmarshal([]byte(t), &probe); err != nil {
		return ""
	}
	switch {
	case probe.Name != "":
		return probe.Name
	case probe.Tool != "":
		return probe.Tool
	default:
		return probe.Function.Name
	}
}
