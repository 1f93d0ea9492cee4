package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// mockEngine is a configurable Engine for orchestrator tests.
type mockEngine struct {
	// Configurable behavior
	SubmitErr error
	Statuses  []MediaStatus // consumed one per PollStatus call; last repeats
	InferErr  error
	Response  string

	// Recorded state
	pollCalls    atomic.Int64
	inferCalls   atomic.Int64
	releaseCalls atomic.Int64
	released     atomic.Bool
}

func (m *mockEngine) Submit(ctx context.Context, media io.Reader, mimeType string) (MediaFile, error) {
	if m.SubmitErr != nil {
		return MediaFile{}, m.SubmitErr
	}
	return MediaFile{Name: "files/mock-1", URI: "uri://mock-1", MIMEType: mimeType}, nil
}

func (m *mockEngine) PollStatus(ctx context.Context, f MediaFile) (MediaStatus, error) {
	n := int(m.pollCalls.Add(1)) - 1
	if len(m.Statuses) == 0 {
		return StatusReady, nil
	}
	if n >= len(m.Statuses) {
		n = len(m.Statuses) - 1
	}
	return m.Statuses[n], nil
}

func (m *mockEngine) Infer(ctx context.Context, f MediaFile, instruction string, timeout time.Duration) (string, error) {
	m.inferCalls.Add(1)
	if m.InferErr != nil {
		return "", m.InferErr
	}
	return m.Response, nil
}

func (m *mockEngine) Release(ctx context.Context, f MediaFile) error {
	m.releaseCalls.Add(1)
	m.released.Store(true)
	return nil
}

func (m *mockEngine) Model() string { return "gemini-2.0-flash" }

var _ Engine = (*mockEngine)(nil)

func newTestAnalyzer(engine Engine) *Analyzer {
	opts := Options{PollInterval: time.Millisecond, InferTimeout: time.Second}
	return New(engine, "analyze this video", opts, slog.Default())
}

func analyzeString(t *testing.T, engine *mockEngine) Result {
	t.Helper()
	a := newTestAnalyzer(engine)
	r := a.Analyze(context.Background(), strings.NewReader("media"), "video/mp4", false)
	if !engine.released.Load() {
		t.Fatal("remote media must be released on every path")
	}
	return r
}

func TestAnalyze_HappyPath(t *testing.T) {
	engine := &mockEngine{
		Statuses: []MediaStatus{StatusProcessing, StatusProcessing, StatusReady},
		Response: `{"pet_detected": true, "species": "dog", "overall_assessment": {"distress_score": 72}}`,
	}
	r := analyzeString(t, engine)

	if r.IsError() {
		t.Fatalf("expected success, got %#v", r)
	}
	a, _ := r["overall_assessment"].(map[string]any)
	if a["zone"] != "red" || a["zone_label"] != "ELEVATED" {
		t.Fatalf("zone not derived from score: %#v", a)
	}
	if r["_model_used"] != "gemini-2.0-flash" {
		t.Fatalf("missing model metadata: %#v", r["_model_used"])
	}
	if r["_from_cache"] != false {
		t.Fatal("_from_cache must always be false")
	}
	if r["_analysis_version"] != AnalysisVersion {
		t.Fatalf("missing analysis version: %#v", r["_analysis_version"])
	}
	if id, _ := r["_request_id"].(string); id == "" {
		t.Fatal("missing request id")
	}
	if engine.pollCalls.Load() != 3 {
		t.Fatalf("expected 3 status polls, got %d", engine.pollCalls.Load())
	}
}

func TestAnalyze_NoPetDetected(t *testing.T) {
	engine := &mockEngine{
		Response: `{"pet_detected": false, "message": "Only furniture visible"}`,
	}
	r := analyzeString(t, engine)

	if r.ErrorType() != ErrTypeNoPet {
		t.Fatalf("expected %s, got %#v", ErrTypeNoPet, r)
	}
	if r.Message() != "Only furniture visible" {
		t.Fatalf("remote message not preserved: %q", r.Message())
	}
	if _, ok := r["overall_assessment"]; ok {
		t.Fatal("no-pet result must not be normalized into an AnalysisResult")
	}
}

func TestAnalyze_NoPetDetectedFallbackMessage(t *testing.T) {
	engine := &mockEngine{Response: `{"pet_detected": false}`}
	r := analyzeString(t, engine)

	if r.ErrorType() != ErrTypeNoPet || r.Message() == "" {
		t.Fatalf("expected no_pet_detected with fallback message, got %#v", r)
	}
}

func TestAnalyze_FailedIngestionSkipsInference(t *testing.T) {
	engine := &mockEngine{
		Statuses: []MediaStatus{StatusProcessing, StatusFailed},
	}
	r := analyzeString(t, engine)

	if r.ErrorType() != ErrTypeFailed {
		t.Fatalf("expected %s, got %#v", ErrTypeFailed, r)
	}
	if engine.inferCalls.Load() != 0 {
		t.Fatal("inference must not run after failed ingestion")
	}
}

func TestAnalyze_SubmitFailure(t *testing.T) {
	engine := &mockEngine{SubmitErr: fmt.Errorf("quota exceeded")}
	a := newTestAnalyzer(engine)

	r := a.Analyze(context.Background(), strings.NewReader("media"), "video/mp4", false)
	if r.ErrorType() != ErrTypeFailed {
		t.Fatalf("expected %s, got %#v", ErrTypeFailed, r)
	}
	if !strings.Contains(r.Message(), "quota exceeded") {
		t.Fatalf("fault message not preserved: %q", r.Message())
	}
	if engine.releaseCalls.Load() != 0 {
		t.Fatal("nothing to release when submission never succeeded")
	}
}

func TestAnalyze_InferFailure(t *testing.T) {
	engine := &mockEngine{InferErr: fmt.Errorf("deadline exceeded")}
	r := analyzeString(t, engine)

	if r.ErrorType() != ErrTypeFailed {
		t.Fatalf("expected %s, got %#v", ErrTypeFailed, r)
	}
	if !strings.Contains(r.Message(), "deadline exceeded") {
		t.Fatalf("fault message not preserved: %q", r.Message())
	}
}

func TestAnalyze_ParseFailurePassthrough(t *testing.T) {
	engine := &mockEngine{Response: "the model rambled instead of returning JSON"}
	r := analyzeString(t, engine)

	if r.ErrorType() != ErrTypeParse {
		t.Fatalf("expected %s, got %#v", ErrTypeParse, r)
	}
	if r["raw_response"] != engine.Response {
		t.Fatalf("raw response not preserved: %#v", r["raw_response"])
	}
}

func TestAnalyze_CancelledDuringPollStillReleases(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine := &mockEngine{Statuses: []MediaStatus{StatusProcessing}}
	a := newTestAnalyzer(engine)

	r := a.Analyze(ctx, strings.NewReader("media"), "video/mp4", false)
	if r.ErrorType() != ErrTypeFailed {
		t.Fatalf("expected %s, got %#v", ErrTypeFailed, r)
	}
	if !engine.released.Load() {
		t.Fatal("release must run even after caller cancellation")
	}
}

func TestAnalyze_UseCacheIsInert(t *testing.T) {
	engine := &mockEngine{Response: `{"pet_detected": true}`}
	a := newTestAnalyzer(engine)

	r := a.Analyze(context.Background(), strings.NewReader("media"), "video/mp4", true)
	if r.IsError() {
		t.Fatalf("expected success, got %#v", r)
	}
	if r["_from_cache"] != false {
		t.Fatal("_from_cache must stay false regardless of the flag")
	}
}
