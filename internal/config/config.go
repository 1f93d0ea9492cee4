// Package config loads and hot-reloads service configuration from a YAML
// file, environment variables, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/jackzampolin/etho/internal/analysis"
	"github.com/jackzampolin/etho/internal/gemini"
)

// Config is the full service configuration.
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server"`
	Gemini GeminiConfig `mapstructure:"gemini" yaml:"gemini"`
	Upload UploadConfig `mapstructure:"upload" yaml:"upload"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// GeminiConfig holds remote inference settings. The API key may use
// ${ENV_VAR} syntax; it is resolved when the client config is built.
type GeminiConfig struct {
	APIKey              string  `mapstructure:"api_key" yaml:"api_key"`
	Model               string  `mapstructure:"model" yaml:"model"`
	Temperature         float32 `mapstructure:"temperature" yaml:"temperature"`
	TopP                float32 `mapstructure:"top_p" yaml:"top_p"`
	TopK                int32   `mapstructure:"top_k" yaml:"top_k"`
	MaxOutputTokens     int32   `mapstructure:"max_output_tokens" yaml:"max_output_tokens"`
	PollIntervalSeconds int     `mapstructure:"poll_interval_seconds" yaml:"poll_interval_seconds"`
	InferTimeoutSeconds int     `mapstructure:"infer_timeout_seconds" yaml:"infer_timeout_seconds"`
}

// UploadConfig holds upload validation settings.
type UploadConfig struct {
	MaxSizeMB int64 `mapstructure:"max_size_mb" yaml:"max_size_mb"`
}

// Manager handles loading and hot-reloading configuration.
type Manager struct {
	mu        sync.RWMutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a new config manager and loads initial config.
func NewManager(cfgFile string) (*Manager, error) {
	cm := &Manager{
		callbacks: make([]func(*Config), 0),
	}

	if err := cm.initViper(cfgFile); err != nil {
		return nil, err
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}
	cm.config = cfg

	return cm, nil
}

// initViper sets up viper with defaults and config file.
func (cm *Manager) initViper(cfgFile string) error {
	defaults := DefaultConfig()
	viper.SetDefault("server", defaults.Server)
	viper.SetDefault("gemini", defaults.Gemini)
	viper.SetDefault("upload", defaults.Upload)

	// Environment variables with ETHO_ prefix
	viper.SetEnvPrefix("ETHO")
	viper.AutomaticEnv()

	// Config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.etho")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// load parses the current viper state into a Config struct.
func (cm *Manager) load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Get returns the current configuration (thread-safe).
func (cm *Manager) Get() *Config {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.config
}

// OnChange registers a callback for config changes.
func (cm *Manager) OnChange(fn func(*Config)) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.callbacks = append(cm.callbacks, fn)
}

// WatchConfig enables hot-reloading of configuration.
func (cm *Manager) WatchConfig() {
	viper.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := cm.load()
		if err != nil {
			return
		}

		cm.mu.Lock()
		cm.config = cfg
		callbacks := make([]func(*Config), len(cm.callbacks))
		copy(callbacks, cm.callbacks)
		cm.mu.Unlock()

		for _, fn := range callbacks {
			fn(cfg)
		}
	})
	viper.WatchConfig()
}

// ResolveEnvVars expands ${ENV_VAR} references in a string.
func ResolveEnvVars(value string) string {
	if value == "" {
		return value
	}
	pattern := regexp.MustCompile(`\$\{([^}]+)\}`)
	return pattern.ReplaceAllStringFunc(value, func(match string) string {
		varName := match[2 : len(match)-1]
		return os.Getenv(varName)
	})
}

// ToClientConfig converts the gemini section into a client configuration,
// resolving the ${ENV_VAR} reference in the API key.
func (c *Config) ToClientConfig() gemini.Config {
	return gemini.Config{
		APIKey:          ResolveEnvVars(c.Gemini.APIKey),
		Model:           c.Gemini.Model,
		Temperature:     c.Gemini.Temperature,
		TopP:            c.Gemini.TopP,
		TopK:            c.Gemini.TopK,
		MaxOutputTokens: c.Gemini.MaxOutputTokens,
	}
}

// AnalyzerOptions converts the gemini section into orchestration options.
func (c *Config) AnalyzerOptions() analysis.Options {
	return analysis.Options{
		PollInterval: time.Duration(c.Gemini.PollIntervalSeconds) * time.Second,
		InferTimeout: time.Duration(c.Gemini.InferTimeoutSeconds) * time.Second,
	}
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.Upload.MaxSizeMB << 20
}

// Validate checks settings that must be correct before the server starts.
// A missing API key surfaces here instead of on the first request.
func (c *Config) Validate() error {
	if strings.TrimSpace(ResolveEnvVars(c.Gemini.APIKey)) == "" {
		return errors.New("gemini.api_key is not set (export GEMINI_API_KEY or set it in config.yaml)")
	}
	if c.Gemini.Model == "" {
		return errors.New("gemini.model must not be empty")
	}
	return nil
}

// WriteDefault writes the default configuration to the specified path.
func WriteDefault(path string) error {
	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# Etho configuration
# API keys use ${ENV_VAR} syntax to reference environment variables
# Set these in your shell: export GEMINI_API_KEY=xxx

`)
	return os.WriteFile(path, append(header, data...), 0o644)
}
