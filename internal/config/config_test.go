package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsFloatOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal float32
		expected   float32
	}{
		{"parses float", "TEST_FLOAT_1", "0.25", 0.7, 0.25},
		{"uses default for empty", "TEST_FLOAT_2", "", 0.7, 0.7},
		{"uses default for garbage", "TEST_FLOAT_3", "warm", 0.7, 0.7},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.envValue)

			result := getEnvAsFloatOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestLoadAPIKey_PrefersEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "  env-key  ")

	key, err := loadAPIKey(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "env-key" {
		t.Errorf("Expected 'env-key', got %q", key)
	}
}

func TestLoadAPIKey_FromSecretsFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "secrets.toml")
	content := "[api_keys]\nGEMINI_API_KEY = \"file-key\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	key, err := loadAPIKey(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "file-key" {
		t.Errorf("Expected 'file-key', got %q", key)
	}
}

func TestLoadAPIKey_Missing(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := loadAPIKey(filepath.Join(t.TempDir(), "missing.toml"))
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "secrets.toml")
	if err := os.WriteFile(path, []byte("[api_keys]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadAPIKey(path); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey for empty table, got %v", err)
	}
}

func TestLoadAPIKey_MalformedFile(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	path := filepath.Join(t.TempDir(), "secrets.toml")
	if err := os.WriteFile(path, []byte("[api_keys\nGEMINI_API_KEY ="), 0o600); err != nil {
		t.Fatal(err)
	}

	_, err := loadAPIKey(path)
	if err == nil || errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("GEMINI_API_KEY", "k")
	for _, key := range []string{"PORT", "SESSION_SECRET", "SESSION_TTL_MINUTES", "GEMINI_MODEL", "GEMINI_TEMPERATURE",
		"GEMINI_TOP_P", "GEMINI_TOP_K", "GEMINI_MAX_OUTPUT_TOKENS", "GEMINI_CONCURRENT_REQUESTS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected port 8080, got %q", cfg.Port)
	}
	if cfg.GeminiModel != "gemini-1.5-flash" {
		t.Errorf("unexpected model %q", cfg.GeminiModel)
	}
	if cfg.GeminiTemperature != 0.7 || cfg.GeminiTopP != 0.9 || cfg.GeminiTopK != 40 || cfg.GeminiMaxOutputTokens != 1000 {
		t.Errorf("unexpected sampling config: %+v", cfg)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("unexpected session TTL %v", cfg.SessionTTL)
	}
	if len(cfg.SessionSecret) != 64 {
		t.Errorf("expected generated 32-byte hex secret, got %d chars", len(cfg.SessionSecret))
	}
}
