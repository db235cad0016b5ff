package nlu

import (
	"encoding/json"
	"strings"

	"github.com/siseonlab/voicecoach/domain/entities"
)

// stripCodeFence removes a markdown code fence the model sometimes wraps
// its JSON in, with or without a language tag.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "```") {
		return s
	}

	parts := strings.Split(s, "```")
	if len(parts) < 2 {
		return s
	}
	body := parts[1]
	body = strings.TrimPrefix(body, "json")
	return strings.TrimSpace(body)
}

// parseClassification decodes a {"action": ..., "confidence": ...}
// response and validates the action through parse. Any action outside the
// vocabulary is coerced to nil; a missing confidence defaults to 0.
func parseClassification(raw string, parse func(string) (*entities.Action, bool)) (entities.Classification, error) {
	var payload struct {
		Action     *string  `json:"action"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return entities.Classification{}, err
	}

	result := entities.Classification{}
	if payload.Action != nil {
		if action, ok := parse(*payload.Action); ok {
			result.Action = action
		}
	}
	if result.Action != nil && payload.Confidence != nil {
		result.Confidence = clampConfidence(*payload.Confidence)
	}
	return result, nil
}

// parseFormValue decodes a {"normalized": ..., "raw": ...} response,
// falling back to the original transcript for the raw field.
func parseFormValue(raw, transcript string) (entities.FormValue, error) {
	var payload struct {
		Normalized *string `json:"normalized"`
		Raw        *string `json:"raw"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &payload); err != nil {
		return entities.FormValue{}, err
	}

	value := entities.FormValue{
		Normalized: payload.Normalized,
		Raw:        transcript,
	}
	if payload.Raw != nil && *payload.Raw != "" {
		value.Raw = *payload.Raw
	}
	return value, nil
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
