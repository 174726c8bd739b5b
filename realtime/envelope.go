package realtime

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/Desarso/advisorchat/events"
	"github.com/Desarso/advisorchat/models"
)

// Envelope is one text frame on the wire.
type Envelope struct {
	Event events.Category `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// PartialPayloadError is returned with a payload that decoded except for
// Fields, which were left at their zero value.
type PartialPayloadError struct {
	Category events.Category
	Fields   []string
}

func (e *PartialPayloadError) Error() string {
	return fmt.Sprintf("decode %s payload: skipped fields %s", e.Category, strings.Join(e.Fields, ", "))
}

// EncodeEnvelope marshals payload under category.
func EncodeEnvelope(category events.Category, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", category, err)
	}
	return json.Marshal(Envelope{Event: category, Data: data})
}

// DecodeEnvelope parses a frame and decodes its payload into the typed
// struct for known categories. Unknown categories yield the raw payload.
// When single fields of an object payload have the wrong type the rest is
// still returned, together with a *PartialPayloadError.
func DecodeEnvelope(frame []byte) (events.Category, any, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return "", nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Event == "" {
		return "", nil, fmt.Errorf("decode envelope: missing event name")
	}

	var target any
	switch env.Event {
	case events.ChatMessage:
		target = &models.ChatMessageEvent{}
	case events.TaskUpdate:
		target = &models.TaskUpdate{}
	case events.ProactiveUpdate:
		target = &models.ProactiveUpdate{}
	case events.Notification:
		target = &models.Notification{}
	default:
		return env.Event, env.Data, nil
	}

	var partial error
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, target); err != nil {
			skipped, ok := decodeFields(env.Data, target)
			if !ok {
				return env.Event, nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
			}
			partial = &PartialPayloadError{Category: env.Event, Fields: skipped}
		}
	}

	switch v := target.(type) {
	case *models.ChatMessageEvent:
		return env.Event, *v, partial
	case *models.TaskUpdate:
		return env.Event, *v, partial
	case *models.ProactiveUpdate:
		return env.Event, *v, partial
	case *models.Notification:
		return env.Event, *v, partial
	}
	return env.Event, env.Data, nil
}

// decodeFields decodes an object payload one member at a time and returns
// the names that did not fit target. ok is false when data is not an object.
func decodeFields(data json.RawMessage, target any) (skipped []string, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, false
	}
	for name, value := range fields {
		one, err := json.Marshal(map[string]json.RawMessage{name: value})
		if err != nil || json.Unmarshal(one, target) != nil {
			skipped = append(skipped, name)
		}
	}
	sort.Strings(skipped)
	return skipped, true
}
