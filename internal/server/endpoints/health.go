package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/etho/internal/api"
	"github.com/jackzampolin/etho/internal/config"
	"github.com/jackzampolin/etho/internal/svcctx"
	"github.com/jackzampolin/etho/version"
)

// ServiceInfoResponse is the response for the service root endpoint.
type ServiceInfoResponse struct {
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}

// RootEndpoint handles GET / with basic service discovery info.
type RootEndpoint struct{}

var _ api.Endpoint = (*RootEndpoint)(nil)

func (e *RootEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/{$}", e.handler
}

func (e *RootEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Service info
//	@Description	Basic service identity and endpoint listing
//	@Tags			meta
//	@Produce		json
//	@Success		200	{object}	ServiceInfoResponse
//	@Router			/ [get]
func (e *RootEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServiceInfoResponse{
		Service: "Etho Pet Behavior Analysis",
		Version: version.GitRelease,
		Endpoints: map[string]string{
			"health":  "GET /health",
			"models":  "GET /api/models",
			"analyze": "POST /api/video/upload",
		},
	})
}

func (e *RootEndpoint) Command(_ func() string) *cobra.Command {
	// Covered by the health command
	return nil
}

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status           string `json:"status"`
	GeminiConfigured bool   `json:"gemini_configured"`
	Version          string `json:"version"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

var _ api.Endpoint = (*HealthEndpoint)(nil)

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Health check
//	@Description	Reports service health and whether a Gemini API key is configured
//	@Tags			meta
//	@Produce		json
//	@Success		200	{object}	HealthResponse
//	@Router			/health [get]
func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Version: version.GitRelease}

	if mgr := svcctx.ConfigFrom(r.Context()); mgr != nil {
		key := config.ResolveEnvVars(mgr.Get().Gemini.APIKey)
		resp.GeminiConfigured = strings.TrimSpace(key) != ""
	} else {
		// Without a config manager the analyzer presence is the signal.
		resp.GeminiConfigured = svcctx.AnalyzerFrom(r.Context()) != nil
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			fmt.Printf("Status:  %s\n", resp.Status)
			fmt.Printf("Gemini:  configured=%t\n", resp.GeminiConfigured)
			fmt.Printf("Version: %s\n", resp.Version)
			return nil
		},
	}
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
