// Package gemini implements the remote inference capability on top of the
// Gemini API: the Files API for media ingestion and GenerateContent for
// native video understanding.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jackzampolin/etho/internal/analysis"
)

// inferAttempts bounds retries of transient GenerateContent failures.
const inferAttempts = 3

// Config holds the Gemini connection and generation settings.
type Config struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// DefaultConfig returns generation settings tuned for consistent video
// analysis output.
func DefaultConfig() Config {
	return Config{
		Model:           "gemini-2.0-flash",
		Temperature:     0.3,
		TopP:            0.95,
		TopK:            40,
		MaxOutputTokens: 8192,
	}
}

// Client talks to the Gemini API. It implements analysis.Engine.
type Client struct {
	cfg    Config
	client *genai.Client
}

var _ analysis.Engine = (*Client)(nil)

// New creates a Gemini client. A missing API key is a configuration error
// surfaced at startup, not at request time.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini: API key is not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig().Model
	}

	cl, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &Client{cfg: cfg, client: cl}, nil
}

// Close releases the underlying API connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Submit uploads media to the Files API and returns its remote handle.
// The file enters a processing state; callers poll until it becomes ready.
func (c *Client) Submit(ctx context.Context, media io.Reader, mimeType string) (analysis.MediaFile, error) {
	f, err := c.client.UploadFile(ctx, "", media, &genai.UploadFileOptions{MIMEType: mimeType})
	if err != nil {
		return analysis.MediaFile{}, fmt.Errorf("gemini: upload failed: %w", err)
	}
	return analysis.MediaFile{Name: f.Name, URI: f.URI, MIMEType: f.MIMEType}, nil
}

// PollStatus reports the ingestion state of an uploaded file.
func (c *Client) PollStatus(ctx context.Context, f analysis.MediaFile) (analysis.MediaStatus, error) {
	file, err := c.client.GetFile(ctx, f.Name)
	if err != nil {
		return "", fmt.Errorf("gemini: get file: %w", err)
	}
	switch file.State {
	case genai.FileStateProcessing:
		return analysis.StatusProcessing, nil
	case genai.FileStateActive:
		return analysis.StatusReady, nil
	case genai.FileStateFailed:
		return analysis.StatusFailed, nil
	default:
		return "", fmt.Errorf("gemini: unexpected file state %v", file.State)
	}
}

// Infer runs the instruction against a prepared file and returns the raw
// model text. Transient failures are retried; the timeout caps the whole
// call including retries.
func (c *Client) Infer(ctx context.Context, f analysis.MediaFile, instruction string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m := c.client.GenerativeModel(c.cfg.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(c.cfg.Temperature),
		TopP:             ptrFloat32(c.cfg.TopP),
		TopK:             ptrInt32(c.cfg.TopK),
		MaxOutputTokens:  ptrInt32(c.cfg.MaxOutputTokens),
		ResponseMIMEType: "application/json",
	}

	parts := []genai.Part{
		genai.FileData{URI: f.URI, MIMEType: f.MIMEType},
		genai.Text(instruction),
	}

	var text string
	err := retry.Do(
		func() error {
			resp, err := m.GenerateContent(ctx, parts...)
			if err != nil {
				return err
			}
			text = firstText(resp)
			if text == "" {
				return errors.New("empty response")
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(inferAttempts),
		retry.Delay(300*time.Millisecond),
	)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}
	return text, nil
}

// Release deletes the uploaded file from remote storage.
func (c *Client) Release(ctx context.Context, f analysis.MediaFile) error {
	if err := c.client.DeleteFile(ctx, f.Name); err != nil {
		return fmt.Errorf("gemini: delete file: %w", err)
	}
	return nil
}

// firstText returns the first text part across response candidates.
func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return strings.TrimSpace(string(t))
			}
		}
	}
	return ""
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
