package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gemini.APIKey != "${GEMINI_API_KEY}" {
		t.Error("expected gemini API key placeholder")
	}
	if cfg.Gemini.Model == "" {
		t.Error("expected a default model")
	}
	if cfg.Gemini.PollIntervalSeconds != 2 {
		t.Errorf("expected 2s poll interval, got %d", cfg.Gemini.PollIntervalSeconds)
	}
	if cfg.Gemini.InferTimeoutSeconds != 300 {
		t.Errorf("expected 300s infer timeout, got %d", cfg.Gemini.InferTimeoutSeconds)
	}
	if cfg.Upload.MaxSizeMB != 100 {
		t.Errorf("expected 100MB upload cap, got %d", cfg.Upload.MaxSizeMB)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		os.Setenv("TEST_API_KEY", "secret123")
		defer os.Unsetenv("TEST_API_KEY")

		result := ResolveEnvVars("${TEST_API_KEY}")
		if result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestConfig_ToClientConfig(t *testing.T) {
	os.Setenv("TEST_GEMINI_KEY", "gm-key-123")
	defer os.Unsetenv("TEST_GEMINI_KEY")

	cfg := &Config{
		Gemini: GeminiConfig{
			APIKey:      "${TEST_GEMINI_KEY}",
			Model:       "gemini-2.0-flash",
			Temperature: 0.3,
		},
	}

	cc := cfg.ToClientConfig()
	if cc.APIKey != "gm-key-123" {
		t.Errorf("expected resolved key, got %s", cc.APIKey)
	}
	if cc.Model != "gemini-2.0-flash" {
		t.Errorf("model not carried over: %s", cc.Model)
	}
}

func TestConfig_AnalyzerOptions(t *testing.T) {
	cfg := &Config{
		Gemini: GeminiConfig{PollIntervalSeconds: 2, InferTimeoutSeconds: 300},
	}

	opts := cfg.AnalyzerOptions()
	if opts.PollInterval != 2*time.Second {
		t.Errorf("expected 2s poll interval, got %v", opts.PollInterval)
	}
	if opts.InferTimeout != 300*time.Second {
		t.Errorf("expected 300s infer timeout, got %v", opts.InferTimeout)
	}
}

func TestConfig_MaxUploadBytes(t *testing.T) {
	cfg := &Config{Upload: UploadConfig{MaxSizeMB: 100}}
	if got := cfg.MaxUploadBytes(); got != 100<<20 {
		t.Errorf("expected %d, got %d", int64(100<<20), got)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Run("rejects unresolved API key", func(t *testing.T) {
		cfg := &Config{
			Gemini: GeminiConfig{APIKey: "${NOT_SET_ANYWHERE_999}", Model: "gemini-2.0-flash"},
		}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for missing API key")
		}
	})

	t.Run("accepts literal API key", func(t *testing.T) {
		cfg := &Config{
			Gemini: GeminiConfig{APIKey: "direct-key", Model: "gemini-2.0-flash"},
		}
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects empty model", func(t *testing.T) {
		cfg := &Config{
			Gemini: GeminiConfig{APIKey: "direct-key"},
		}
		if err := cfg.Validate(); err == nil {
			t.Error("expected error for empty model")
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
gemini:
  model: "gemini-2.5-pro"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Gemini.Model != "gemini-2.5-pro" {
			t.Errorf("expected gemini-2.5-pro, got %s", cfg.Gemini.Model)
		}
	})

	t.Run("fills unset keys from defaults", func(t *testing.T) {
		tmpDir := t.TempDir()
		configFile := filepath.Join(tmpDir, "config.yaml")

		configContent := `
server:
  port: "9090"
`
		if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.Server.Port != "9090" {
			t.Errorf("expected 9090, got %s", cfg.Server.Port)
		}
		if cfg.Gemini.PollIntervalSeconds != 2 {
			t.Errorf("default poll interval not applied: %d", cfg.Gemini.PollIntervalSeconds)
		}
	})
}

func TestManager_OnChange(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("server:\n  port: \"8000\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 2 {
		t.Errorf("expected 2 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configFile, []byte("server:\n  port: \"8000\"\n"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.Server.Port
			}
			done <- struct{}{}
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read written config: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "${GEMINI_API_KEY}") {
		t.Error("written config missing API key placeholder")
	}
	if !strings.Contains(content, "poll_interval_seconds") {
		t.Error("written config missing poll interval key")
	}
}
