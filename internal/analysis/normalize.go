package analysis

import "strings"

// Normalize augments an extracted document to satisfy the canonical analysis
// schema. It is a pure function: the input is never mutated, and applying it
// twice yields the same document as applying it once.
//
// Rules:
//   - missing top-level keys are inserted from Defaults() verbatim
//   - keys present as maps in both input and defaults get a one-level
//     key-wise backfill (deeper gaps are the model's responsibility)
//   - zone and zone_label are recomputed from distress_score unconditionally;
//     model-supplied zones are advisory only
//   - first_person_interpretation lines are capped at maxInterpretWords words
func Normalize(doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = v
	}

	for key, def := range Defaults() {
		cur, present := out[key]
		if !present {
			out[key] = def
			continue
		}
		defMap, defIsMap := def.(map[string]any)
		curMap, curIsMap := cur.(map[string]any)
		if defIsMap && curIsMap {
			out[key] = backfill(curMap, defMap)
		}
	}

	assessment, ok := out["overall_assessment"].(map[string]any)
	if !ok {
		// Model returned a non-object assessment; fall back to the default
		// document so the zone invariant still holds.
		assessment = Defaults()["overall_assessment"].(map[string]any)
	}
	out["overall_assessment"] = recomputeZone(assessment)

	if lines, ok := out["interpret_lines"].([]any); ok {
		out["interpret_lines"] = capInterpretLines(lines)
	}

	return out
}

// backfill copies cur and inserts any default sub-key missing from it.
// Present sub-keys are left untouched; the merge is exactly one level deep.
func backfill(cur, def map[string]any) map[string]any {
	merged := make(map[string]any, len(cur))
	for k, v := range cur {
		merged[k] = v
	}
	for k, v := range def {
		if _, ok := merged[k]; !ok {
			merged[k] = v
		}
	}
	return merged
}

// recomputeZone derives zone and zone_label from the distress score,
// overriding whatever the model supplied.
func recomputeZone(assessment map[string]any) map[string]any {
	out := make(map[string]any, len(assessment))
	for k, v := range assessment {
		out[k] = v
	}
	score := numberOr(out["distress_score"], 50)
	zone, label := zoneForScore(score)
	out["zone"] = zone
	out["zone_label"] = label
	return out
}

func capInterpretLines(lines []any) []any {
	out := make([]any, len(lines))
	for i, entry := range lines {
		m, ok := entry.(map[string]any)
		if !ok {
			out[i] = entry
			continue
		}
		text, ok := m["first_person_interpretation"].(string)
		if !ok {
			out[i] = entry
			continue
		}
		capped := capWords(text, maxInterpretWords)
		if capped == text {
			out[i] = entry
			continue
		}
		line := make(map[string]any, len(m))
		for k, v := range m {
			line[k] = v
		}
		line["first_person_interpretation"] = capped
		out[i] = line
	}
	return out
}

// capWords truncates s to its first n whitespace-delimited words.
func capWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) <= n {
		return s
	}
	return strings.Join(words[:n], " ")
}

// numberOr coerces a decoded JSON value to float64, falling back to def for
// anything non-numeric.
func numberOr(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}
