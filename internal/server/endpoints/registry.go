package endpoints

import (
	"github.com/jackzampolin/etho/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	MaxUploadBytes int64
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		&RootEndpoint{},
		&HealthEndpoint{},
		&ModelsEndpoint{},
		&VideoUploadEndpoint{MaxUploadBytes: cfg.MaxUploadBytes},
	}
}
