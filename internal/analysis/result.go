// Package analysis turns raw multimodal model output into the canonical
// Etho analysis document: JSON extraction from unreliable text, defaulting
// against the canonical schema, and cross-field consistency enforcement.
package analysis

// Result is an analysis document. It is either a full AnalysisResult or an
// error document tagged with one of the ErrType* kinds, never both.
type Result map[string]any

// Error kinds carried in the "error_type" field of an error Result.
const (
	// ErrTypeParse means no extraction strategy could recover JSON from
	// the model output. The raw snippet is preserved for diagnostics.
	ErrTypeParse = "parse_error"

	// ErrTypeNoPet means the analysis ran but found no qualifying animal.
	// This is a valid empty outcome, not a fault.
	ErrTypeNoPet = "no_pet_detected"

	// ErrTypeFailed means upload, ingestion or inference faulted or
	// timed out.
	ErrTypeFailed = "analysis_failed"
)

// IsError reports whether r is an error document.
func (r Result) IsError() bool {
	v, _ := r["error"].(bool)
	return v
}

// ErrorType returns the error kind, or "" for a successful analysis.
func (r Result) ErrorType() string {
	if !r.IsError() {
		return ""
	}
	s, _ := r["error_type"].(string)
	return s
}

// Message returns the human-readable message of an error document.
func (r Result) Message() string {
	s, _ := r["message"].(string)
	return s
}

func errorResult(kind, message string) Result {
	return Result{
		"error":      true,
		"error_type": kind,
		"message":    message,
	}
}
