// Package profile manages the durable user profile: extraction of structured
// attributes from model output and their additive merge.
package profile

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/cognirag/cognirag/internal/types"
)

// emptyLikeValues are attribute values treated as "no information". They are
// dropped before merging so placeholder output never pollutes the profile.
var emptyLikeValues = map[string]struct{}{
	"":    {},
	"未知":  {},
	"null": {},
	"None": {},
	"未提供": {},
	"未提及": {},
}

// Delta is one turn's extracted profile information. Event is a single
// structured event, appended to the profile's event list on merge.
type Delta struct {
	BasicInfo map[string]string
	Event     map[string]string
}

// IsEmpty reports whether the delta carries no usable attributes.
func (d *Delta) IsEmpty() bool {
	return d == nil || (len(d.BasicInfo) == 0 && len(d.Event) == 0)
}

// deltaSchema describes the shape the extraction model must return.
var deltaSchema = &jsonschema.Schema{
	Type: "object",
	Properties: map[string]*jsonschema.Schema{
		"基本信息": {Type: "object"},
		"事件":   {Type: "object"},
	},
}

// ParseModelOutput extracts a profile delta from raw model output.
//
// The model is prompted for JSON but frequently returns single-quoted
// pseudo-JSON or wraps the object in prose. Recovery order: normalize quote
// characters and parse directly; fall back to the substring between the
// first "{" and the last "}"; give up and return nil so the caller treats
// the turn as a no-op.
func ParseModelOutput(raw string) *Delta {
	normalized := strings.ReplaceAll(strings.TrimSpace(raw), "'", `"`)

	parsed, err := decodeObject(normalized)
	if err != nil {
		start := strings.Index(normalized, "{")
		end := strings.LastIndex(normalized, "}")
		if start < 0 || end <= start {
			return nil
		}
		parsed, err = decodeObject(normalized[start : end+1])
		if err != nil {
			return nil
		}
	}

	resolved, err := deltaSchema.Resolve(nil)
	if err != nil {
		return nil
	}
	if err := resolved.Validate(parsed); err != nil {
		return nil
	}

	delta := &Delta{
		BasicInfo: stringifyAttrs(parsed["基本信息"]),
		Event:     stringifyAttrs(parsed["事件"]),
	}
	if delta.IsEmpty() {
		return nil
	}
	return delta
}

// Merge applies delta to existing under the additive rule: BasicInfo keys
// already present are never overwritten, and the event is appended after
// sentinel filtering. The input profile is not mutated. The returned flag
// reports whether anything new was added.
func Merge(existing types.Profile, delta *Delta) (types.Profile, bool) {
	updated := existing.Clone()
	if updated.BasicInfo == nil {
		updated.BasicInfo = make(map[string]string)
	}
	if delta.IsEmpty() {
		return updated, false
	}

	changed := false
	for key, value := range delta.BasicInfo {
		if !isValidValue(value) {
			continue
		}
		if _, ok := updated.BasicInfo[key]; ok {
			continue
		}
		updated.BasicInfo[key] = value
		changed = true
	}

	if len(delta.Event) > 0 {
		event := make(map[string]string, len(delta.Event))
		for key, value := range delta.Event {
			if isValidValue(value) {
				event[key] = value
			}
		}
		if len(event) > 0 {
			updated.Events = append(updated.Events, event)
			changed = true
		}
	}

	return updated, changed
}

func isValidValue(value string) bool {
	_, emptyLike := emptyLikeValues[value]
	return !emptyLike
}

func decodeObject(data string) (map[string]any, error) {
	var parsed map[string]any
	if err := json.Unmarshal([]byte(data), &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode profile object: %w", err)
	}
	return parsed, nil
}

// stringifyAttrs flattens a decoded JSON object into string attributes.
// Non-scalar values are skipped; numbers keep their literal rendering.
func stringifyAttrs(value any) map[string]string {
	obj, ok := value.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil
	}
	out := make(map[string]string, len(obj))
	for key, val := range obj {
		switch v := val.(type) {
		case string:
			out[key] = v
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			out[key] = strconv.FormatBool(v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
