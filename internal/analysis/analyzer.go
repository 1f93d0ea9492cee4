package analysis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MediaStatus is the remote-side ingestion state of submitted media.
type MediaStatus string

const (
	// StatusProcessing means the remote side is still preparing the media.
	StatusProcessing MediaStatus = "processing"
	// StatusReady means the media can be used for inference.
	StatusReady MediaStatus = "ready"
	// StatusFailed means remote ingestion failed terminally.
	StatusFailed MediaStatus = "failed"
)

// MediaFile is a handle to media stored on the remote inference service.
type MediaFile struct {
	Name     string
	URI      string
	MIMEType string
}

// Engine is the remote multimodal inference capability. Implementations wrap
// a provider's media-file API: submit media, poll until ingested, run an
// instruction against it, and free the remote storage.
type Engine interface {
	Submit(ctx context.Context, media io.Reader, mimeType string) (MediaFile, error)
	PollStatus(ctx context.Context, f MediaFile) (MediaStatus, error)
	Infer(ctx context.Context, f MediaFile, instruction string, timeout time.Duration) (string, error)
	Release(ctx context.Context, f MediaFile) error
	Model() string
}

// AnalysisVersion tags every successful result so consumers can detect
// schema evolution.
const AnalysisVersion = "etho-v13-gemini"

// Options tunes the orchestration of a single analysis request.
type Options struct {
	// PollInterval is the sleep between remote ingestion status polls.
	PollInterval time.Duration
	// InferTimeout bounds the inference call; generous to accommodate
	// long videos.
	InferTimeout time.Duration
}

// DefaultOptions mirror the provider's recommended settings for video.
func DefaultOptions() Options {
	return Options{
		PollInterval: 2 * time.Second,
		InferTimeout: 300 * time.Second,
	}
}

// Analyzer orchestrates one analysis request end to end: submission, the
// ingestion poll loop, inference, extraction and normalization. It is
// stateless across requests and safe for concurrent use.
type Analyzer struct {
	engine      Engine
	instruction string
	logger      *slog.Logger

	mu   sync.RWMutex
	opts Options
}

// New creates an Analyzer. instruction is the fixed analysis instruction
// document sent with every inference call.
func New(engine Engine, instruction string, opts Options, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultOptions().PollInterval
	}
	if opts.InferTimeout <= 0 {
		opts.InferTimeout = DefaultOptions().InferTimeout
	}
	return &Analyzer{
		engine:      engine,
		instruction: instruction,
		logger:      logger,
		opts:        opts,
	}
}

// Reconfigure swaps the orchestration options; used by config hot reload.
func (a *Analyzer) Reconfigure(opts Options) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if opts.PollInterval > 0 {
		a.opts.PollInterval = opts.PollInterval
	}
	if opts.InferTimeout > 0 {
		a.opts.InferTimeout = opts.InferTimeout
	}
}

func (a *Analyzer) options() Options {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.opts
}

// ModelName reports the model identifier behind the engine.
func (a *Analyzer) ModelName() string {
	return a.engine.Model()
}

// Analyze runs the full pipeline for one piece of media and always returns a
// document: either a normalized AnalysisResult or an error Result. Remote
// faults never propagate as Go errors.
//
// useCache is accepted for interface stability but has no effect; no cache
// is implemented and _from_cache is always false.
func (a *Analyzer) Analyze(ctx context.Context, media io.Reader, mimeType string, useCache bool) Result {
	_ = useCache
	opts := a.options()
	requestID := uuid.NewString()
	logger := a.logger.With("request_id", requestID)

	file, err := a.engine.Submit(ctx, media, mimeType)
	if err != nil {
		logger.Error("media submission failed", "error", err)
		return a.failure(requestID, fmt.Errorf("submission failed: %w", err))
	}
	// Remote storage is freed on every path, including caller cancellation.
	// Failure to release is logged, never escalated.
	defer func() {
		if err := a.engine.Release(context.WithoutCancel(ctx), file); err != nil {
			logger.Warn("failed to release remote media", "file", file.Name, "error", err)
		}
	}()
	logger.Info("media submitted", "file", file.Name, "mime_type", mimeType)

	if err := a.awaitIngestion(ctx, file, opts.PollInterval); err != nil {
		logger.Error("media ingestion failed", "file", file.Name, "error", err)
		return a.failure(requestID, err)
	}

	raw, err := a.engine.Infer(ctx, file, a.instruction, opts.InferTimeout)
	if err != nil {
		logger.Error("inference failed", "file", file.Name, "error", err)
		return a.failure(requestID, fmt.Errorf("inference failed: %w", err))
	}

	doc, err := Extract(raw)
	if err != nil {
		// Returned unchanged: normalization never runs on unparseable data.
		logger.Warn("could not extract JSON from model output", "error", err)
		return ParseFailure(raw)
	}

	if detected, ok := doc["pet_detected"].(bool); ok && !detected {
		message, _ := doc["message"].(string)
		if message == "" {
			message = "No pet detected in video"
		}
		logger.Info("no pet detected")
		r := errorResult(ErrTypeNoPet, message)
		a.attachMetadata(r, requestID)
		return r
	}

	normalized := Result(Normalize(doc))
	a.attachMetadata(normalized, requestID)

	if err := ValidateResult(normalized); err != nil {
		// Advisory only: the normalizer already guarantees the invariants
		// consumers depend on.
		logger.Warn("normalized document failed schema validation", "error", err)
	}

	logger.Info("analysis complete",
		"species", normalized["species"],
		"zone", zoneOf(normalized),
	)
	return normalized
}

// awaitIngestion polls the remote ingestion status until it leaves the
// processing state, yielding between polls.
func (a *Analyzer) awaitIngestion(ctx context.Context, f MediaFile, interval time.Duration) error {
	for {
		status, err := a.engine.PollStatus(ctx, f)
		if err != nil {
			return fmt.Errorf("status poll failed: %w", err)
		}
		switch status {
		case StatusReady:
			return nil
		case StatusFailed:
			return fmt.Errorf("video processing failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (a *Analyzer) failure(requestID string, err error) Result {
	r := errorResult(ErrTypeFailed, err.Error())
	a.attachMetadata(r, requestID)
	return r
}

func (a *Analyzer) attachMetadata(r Result, requestID string) {
	r["_model_used"] = a.engine.Model()
	r["_from_cache"] = false
	r["_request_id"] = requestID
	if !r.IsError() {
		r["_analysis_version"] = AnalysisVersion
	}
}

func zoneOf(r Result) string {
	assessment, _ := r["overall_assessment"].(map[string]any)
	zone, _ := assessment["zone"].(string)
	return zone
}
