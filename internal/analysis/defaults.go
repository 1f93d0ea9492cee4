package analysis

// Zone thresholds for the distress score. Scores at or below GreenMax map to
// the green zone, at or below YellowMax to yellow, everything above to red.
const (
	GreenMax  = 33
	YellowMax = 66
)

// maxInterpretWords caps first-person interpretation lines; they are rendered
// as subtitles in the UI.
const maxInterpretWords = 6

// Defaults returns the canonical analysis document. Every key absent from a
// model response is backfilled from here. A fresh copy is returned on each
// call so callers may mutate it freely.
func Defaults() map[string]any {
	return map[string]any{
		"pet_detected":                    true,
		"species":                         "unknown",
		"breed_detected":                  "unknown",
		"morphology_type":                 "standard",
		"morphology_adjustments_applied":  []any{},
		"video_type":                      "single_shot",
		"video_context":                   "Pet video analysis",
		"overall_assessment": map[string]any{
			"distress_score": 50,
			"zone":           "yellow",
			"zone_label":     "MODERATE",
			"confidence":     "medium",
			"primary_state":  "alert",
			"summary":        "Analysis in progress",
		},
		"visual_analysis": map[string]any{
			"facs_codes_detected": []any{},
			"key_observations":    []any{},
			"body_posture":        "Not assessed",
			"confidence":          "medium",
		},
		"audio_analysis": map[string]any{
			"vocalizations_detected":     []any{},
			"solicitation_purr_detected": false,
		},
		"timeline":        []any{},
		"interpret_lines": []any{},
		"advisory": map[string]any{
			"headline":                 "Continue monitoring",
			"detailed_recommendations": []any{},
			"urgency":                  "routine",
		},
	}
}

// zoneForScore maps a distress score to its zone and display label.
func zoneForScore(score float64) (zone, label string) {
	switch {
	case score <= GreenMax:
		return "green", "LOW"
	case score <= YellowMax:
		return "yellow", "MODERATE"
	default:
		return "red", "ELEVATED"
	}
}
