// Package ethological holds the instruction document sent with every video
// analysis request. The research framework lives in an embedded template;
// the output contract is appended from the canonical schema.
package ethological

import (
	_ "embed"
	"strings"
)

//go:embed system.tmpl
var systemPrompt string

// directive is the per-request analysis instruction layered on top of the
// research framework.
const directive = `
Analyze this pet video comprehensively using the ethological research frameworks above.

Pay close attention to:
1. MICRO-EXPRESSIONS: Brief facial signals (lip licks, whale eye, ear flicks, brow raises)
2. BODY LANGUAGE: Posture, weight distribution, tail position, muscle tension
3. VOCALIZATIONS: Any sounds, their pitch, duration, and pattern (apply Morton's Rules)
4. TEMPORAL CHANGES: How the pet's state changes throughout the video
5. CONTEXT: What's happening in the environment that might affect the pet
6. BREED MORPHOLOGY: Apply appropriate normalization rules for the detected breed

CRITICAL OUTPUT RULES:
- All interpret_lines first_person_interpretation MUST be 6 words or fewer - these are subtitles
- Always cite specific FACS codes (EAD101, AU145, AD137, etc.) for dogs
- Always use FGS scoring for cats when pain signals are present
- Note any morphology adjustments applied
- For compilations, mention "This compilation shows multiple moments" in summary
- Provide at least 3-5 timeline markers with research basis
- Be CONSERVATIVE with green zone - if in doubt, use yellow
- NEVER say a hissing, growling, or cowering animal is "relaxed"

Return your analysis as valid JSON matching the schema below. Any text
outside the JSON object is an error.
`

// SystemPrompt returns the ethological research framework.
func SystemPrompt() string {
	return systemPrompt
}

// Instruction builds the full instruction document: research framework,
// analysis directive, and the serialized output schema.
func Instruction(schemaJSON string) string {
	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n")
	b.WriteString(directive)
	b.WriteString("\nOutput schema:\n")
	b.WriteString(schemaJSON)
	return b.String()
}
