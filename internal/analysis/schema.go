package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ResultSchema is the canonical JSON schema for a normalized analysis
// document. It is embedded into the instruction document sent to the model
// and used for advisory post-normalization validation.
var ResultSchema = map[string]any{
	"type": "json_schema",
	"json_schema": map[string]any{
		"name":   "etho_analysis",
		"strict": true,
		"schema": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pet_detected":    map[string]any{"type": "boolean"},
				"species":         map[string]any{"type": "string"},
				"breed_detected":  map[string]any{"type": "string"},
				"morphology_type": map[string]any{"type": "string"},
				"morphology_adjustments_applied": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string"},
				},
				"video_type":    map[string]any{"type": "string"},
				"video_context": map[string]any{"type": "string"},
				"overall_assessment": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"distress_score": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
						"zone":           map[string]any{"enum": []any{"green", "yellow", "red"}},
						"zone_label":     map[string]any{"enum": []any{"LOW", "MODERATE", "ELEVATED"}},
						"confidence":     map[string]any{"enum": []any{"high", "medium", "low"}},
						"primary_state":  map[string]any{"type": "string"},
						"summary":        map[string]any{"type": "string"},
					},
					"required": []any{"distress_score", "zone", "zone_label"},
				},
				"visual_analysis": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"facs_codes_detected": map[string]any{"type": "array"},
						"key_observations":    map[string]any{"type": "array"},
						"body_posture":        map[string]any{"type": "string"},
						"confidence":          map[string]any{"type": "string"},
					},
				},
				"audio_analysis": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"vocalizations_detected":     map[string]any{"type": "array"},
						"solicitation_purr_detected": map[string]any{"type": "boolean"},
					},
				},
				"timeline": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"timestamp":         map[string]any{"type": "string"},
							"event_type":        map[string]any{"type": "string"},
							"event_description": map[string]any{"type": "string"},
							"distress_score":    map[string]any{"type": "number"},
							"zone":              map[string]any{"type": "string"},
						},
					},
				},
				"interpret_lines": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"timestamp":                   map[string]any{"type": "string"},
							"first_person_interpretation": map[string]any{"type": "string"},
							"trigger":                     map[string]any{"type": "string"},
							"zone":                        map[string]any{"type": "string"},
						},
					},
				},
				"advisory": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"headline":                 map[string]any{"type": "string"},
						"detailed_recommendations": map[string]any{"type": "array"},
						"urgency":                  map[string]any{"type": "string"},
					},
				},
			},
			"required": []any{
				"pet_detected", "species", "breed_detected", "morphology_type",
				"overall_assessment", "visual_analysis", "audio_analysis",
				"timeline", "interpret_lines", "advisory",
			},
		},
	},
}

// SchemaJSON returns the canonical schema serialized for embedding into the
// instruction document.
func SchemaJSON() string {
	b, err := json.MarshalIndent(ResultSchema, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

// ValidateResult checks a document against the canonical schema. Validation
// is advisory: the orchestrator logs failures but still returns the document.
func ValidateResult(doc map[string]any) error {
	inner, ok := ResultSchema["json_schema"].(map[string]any)["schema"]
	if !ok {
		return fmt.Errorf("canonical schema has no inner schema document")
	}
	raw, err := json.Marshal(inner)
	if err != nil {
		return fmt.Errorf("failed to serialize canonical schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("analysis.json", bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("failed to load canonical schema: %w", err)
	}
	schema, err := compiler.Compile("analysis.json")
	if err != nil {
		return fmt.Errorf("failed to compile canonical schema: %w", err)
	}

	// Round-trip through JSON so Go-native values (ints, typed slices)
	// validate the same way a decoded response does.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode document for validation: %w", err)
	}
	var decoded any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		return fmt.Errorf("failed to decode document for validation: %w", err)
	}

	if err := schema.Validate(decoded); err != nil {
		return fmt.Errorf("analysis document does not match schema: %w", err)
	}
	return nil
}
