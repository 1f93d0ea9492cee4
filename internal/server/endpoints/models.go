package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/etho/internal/api"
	"github.com/jackzampolin/etho/internal/svcctx"
)

// ModelInfo describes an available analysis model.
type ModelInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	Active       bool     `json:"active"`
}

// ModelsResponse is the response for the model listing endpoint.
type ModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelsEndpoint handles GET /api/models.
type ModelsEndpoint struct{}

var _ api.Endpoint = (*ModelsEndpoint)(nil)

func (e *ModelsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/models", e.handler
}

func (e *ModelsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		List analysis models
//	@Description	Lists the multimodal models available for video analysis
//	@Tags			models
//	@Produce		json
//	@Success		200	{object}	ModelsResponse
//	@Router			/api/models [get]
func (e *ModelsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	active := ""
	if a := svcctx.AnalyzerFrom(r.Context()); a != nil {
		active = a.ModelName()
	}

	models := []ModelInfo{
		{
			Name:        "gemini-2.0-flash",
			Description: "Fast multimodal model with native video understanding",
			Capabilities: []string{
				"video", "audio", "structured_output",
			},
		},
		{
			Name:        "gemini-2.5-pro",
			Description: "Higher quality multimodal model for detailed analysis",
			Capabilities: []string{
				"video", "audio", "structured_output",
			},
		},
	}
	for i := range models {
		models[i].Active = models[i].Name == active
	}

	writeJSON(w, http.StatusOK, ModelsResponse{Models: models})
}

func (e *ModelsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available analysis models",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ModelsResponse
			if err := client.Get(cmd.Context(), "/api/models", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
