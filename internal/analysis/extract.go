package analysis

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// rawSnippetLimit bounds how much of an unparseable response is kept on a
// parse_error document.
const rawSnippetLimit = 1000

// ErrNoJSON is returned by Extract when no strategy recovers a JSON object.
var ErrNoJSON = errors.New("no JSON object found in model output")

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// Extract recovers a JSON object from raw model output. Strategies are tried
// in order, first success wins:
//  1. parse the whole string
//  2. parse the interior of a fenced code block (```json or bare ```)
//  3. parse the greedy span from the first '{' to the last '}'
//
// A failure in one strategy falls through to the next.
func Extract(raw string) (map[string]any, error) {
	trimmed := strings.TrimSpace(raw)

	if doc, ok := tryParse(trimmed); ok {
		return doc, nil
	}

	if m := fencedBlock.FindStringSubmatch(raw); m != nil {
		if doc, ok := tryParse(m[1]); ok {
			return doc, nil
		}
	}

	if span := braceSpan(raw); span != "" {
		if doc, ok := tryParse(span); ok {
			return doc, nil
		}
	}

	return nil, ErrNoJSON
}

// ParseFailure builds the parse_error document for output that defeated
// every extraction strategy, preserving a bounded snippet of the input.
func ParseFailure(raw string) Result {
	r := errorResult(ErrTypeParse, "Failed to parse JSON response")
	if len(raw) > rawSnippetLimit {
		raw = raw[:rawSnippetLimit]
	}
	r["raw_response"] = raw
	return r
}

func tryParse(s string) (map[string]any, bool) {
	if s == "" {
		return nil, false
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(s), &doc); err != nil {
		return nil, false
	}
	return doc, true
}

// braceSpan returns the greedy substring from the first '{' to the last '}'.
func braceSpan(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(s, "}")
	if end < start {
		return ""
	}
	return s[start : end+1]
}
