package config

// DefaultConfig returns the baseline configuration. The Gemini API key is
// an ${ENV_VAR} reference so the config file never carries the credential
// itself.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8000",
		},
		Gemini: GeminiConfig{
			APIKey:              "${GEMINI_API_KEY}",
			Model:               "gemini-2.0-flash",
			Temperature:         0.3,
			TopP:                0.95,
			TopK:                40,
			MaxOutputTokens:     8192,
			PollIntervalSeconds: 2,
			InferTimeoutSeconds: 300,
		},
		Upload: UploadConfig{
			MaxSizeMB: 100,
		},
	}
}
