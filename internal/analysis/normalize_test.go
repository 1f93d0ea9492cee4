package analysis

import (
	"encoding/json"
	"reflect"
	"testing"
)

func assessment(doc map[string]any) map[string]any {
	m, ok := doc["overall_assessment"].(map[string]any)
	if !ok {
		return nil
	}
	return m
}

func TestNormalize_ZoneThresholds(t *testing.T) {
	tests := []struct {
		score     float64
		wantZone  string
		wantLabel string
	}{
		{0, "green", "LOW"},
		{33, "green", "LOW"},
		{34, "yellow", "MODERATE"},
		{50, "yellow", "MODERATE"},
		{66, "yellow", "MODERATE"},
		{67, "red", "ELEVATED"},
		{100, "red", "ELEVATED"},
	}

	for _, tt := range tests {
		doc := map[string]any{
			"overall_assessment": map[string]any{"distress_score": tt.score},
		}
		got := assessment(Normalize(doc))
		if got["zone"] != tt.wantZone || got["zone_label"] != tt.wantLabel {
			t.Errorf("score %v: got zone=%v label=%v, want %s/%s",
				tt.score, got["zone"], got["zone_label"], tt.wantZone, tt.wantLabel)
		}
	}
}

func TestNormalize_OverridesContradictoryZone(t *testing.T) {
	doc := map[string]any{
		"overall_assessment": map[string]any{
			"distress_score": float64(10),
			"zone":           "red",
			"zone_label":     "ELEVATED",
		},
	}
	got := assessment(Normalize(doc))
	if got["zone"] != "green" || got["zone_label"] != "LOW" {
		t.Fatalf("contradictory zone not corrected: %#v", got)
	}
}

func TestNormalize_MissingAssessmentFullyDefaulted(t *testing.T) {
	got := Normalize(map[string]any{"species": "dog"})

	a := assessment(got)
	if a == nil {
		t.Fatal("overall_assessment missing after normalization")
	}
	// Default score 50 lands in the yellow zone.
	if a["distress_score"] != 50 || a["zone"] != "yellow" || a["zone_label"] != "MODERATE" {
		t.Fatalf("unexpected defaulted assessment: %#v", a)
	}
	if a["confidence"] != "medium" || a["summary"] != "Analysis in progress" {
		t.Fatalf("assessment defaults incomplete: %#v", a)
	}
	if got["species"] != "dog" {
		t.Fatal("present keys must be preserved")
	}
	if adv, _ := got["advisory"].(map[string]any); adv["urgency"] != "routine" {
		t.Fatalf("advisory defaults missing: %#v", got["advisory"])
	}
}

func TestNormalize_OneLevelBackfillOnly(t *testing.T) {
	doc := map[string]any{
		"visual_analysis": map[string]any{
			"body_posture": "crouched low",
		},
	}
	got := Normalize(doc)

	va, _ := got["visual_analysis"].(map[string]any)
	if va["body_posture"] != "crouched low" {
		t.Fatal("present sub-key must be untouched")
	}
	if _, ok := va["facs_codes_detected"]; !ok {
		t.Fatal("missing sub-key must be backfilled")
	}
	if va["confidence"] != "medium" {
		t.Fatalf("missing sub-key not defaulted: %#v", va)
	}
}

func TestNormalize_InterpretLineTruncation(t *testing.T) {
	doc := map[string]any{
		"interpret_lines": []any{
			map[string]any{"first_person_interpretation": "Expected more food in the bowl right now"},
			map[string]any{"first_person_interpretation": "Don't want."},
			map[string]any{"timestamp": "0:03"},
		},
	}
	got := Normalize(doc)

	lines, _ := got["interpret_lines"].([]any)
	first, _ := lines[0].(map[string]any)
	if first["first_person_interpretation"] != "Expected more food in the bowl" {
		t.Fatalf("truncation wrong: %q", first["first_person_interpretation"])
	}
	second, _ := lines[1].(map[string]any)
	if second["first_person_interpretation"] != "Don't want." {
		t.Fatalf("short line must pass through unchanged: %q", second["first_person_interpretation"])
	}
	third, _ := lines[2].(map[string]any)
	if _, ok := third["first_person_interpretation"]; ok {
		t.Fatal("entries without the text field must not gain one")
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	doc := map[string]any{
		"species": "cat",
		"overall_assessment": map[string]any{
			"distress_score": float64(80),
			"zone":           "green",
		},
		"interpret_lines": []any{
			map[string]any{"first_person_interpretation": "That loud machine is coming closer to me"},
		},
	}

	once := Normalize(doc)
	twice := Normalize(once)

	a, _ := json.Marshal(once)
	b, _ := json.Marshal(twice)
	if string(a) != string(b) {
		t.Fatalf("Normalize is not idempotent:\nonce:  %s\ntwice: %s", a, b)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	doc := map[string]any{
		"overall_assessment": map[string]any{
			"distress_score": float64(90),
			"zone":           "green",
		},
		"interpret_lines": []any{
			map[string]any{"first_person_interpretation": "one two three four five six seven"},
		},
	}
	snapshot, _ := json.Marshal(doc)

	_ = Normalize(doc)

	after, _ := json.Marshal(doc)
	if !reflect.DeepEqual(snapshot, after) {
		t.Fatalf("input mutated:\nbefore: %s\nafter:  %s", snapshot, after)
	}
}

func TestDefaults_ReturnsFreshCopy(t *testing.T) {
	a := Defaults()
	a["species"] = "mutated"
	a["overall_assessment"].(map[string]any)["zone"] = "mutated"

	b := Defaults()
	if b["species"] != "unknown" {
		t.Fatal("Defaults() must not share top-level state between calls")
	}
	if b["overall_assessment"].(map[string]any)["zone"] != "yellow" {
		t.Fatal("Defaults() must not share nested state between calls")
	}
}
