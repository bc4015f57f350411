package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY is not set in the environment or the secrets file")

type Config struct {
	// Server
	Port     string
	Env      string
	LogDebug bool

	// Redis (optional, relays turn events between instances)
	RedisURL string

	// Sessions
	SessionSecret string
	SessionTTL    time.Duration

	// Gemini AI
	GeminiAPIKey          string
	GeminiModel           string
	GeminiTemperature     float32
	GeminiTopP            float32
	GeminiTopK            int32
	GeminiMaxOutputTokens int32
	GeminiConcurrentReqs  int

	// Rate limiting
	ChatRequestsPerMin int

	// Frontend
	FrontendURL string
}

// secretsFile mirrors the host secret store layout:
//
//	[api_keys]
//	GEMINI_API_KEY = "..."
type secretsFile struct {
	APIKeys struct {
		GeminiAPIKey string `toml:"GEMINI_API_KEY"`
	} `toml:"api_keys"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	apiKey, err := loadAPIKey(getEnvOrDefault("SECRETS_FILE", ".streamlit/secrets.toml"))
	if err != nil {
		return nil, err
	}

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret, err = randomSecret()
		if err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
	}

	cfg := &Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		Env:                   getEnvOrDefault("ENV", "development"),
		LogDebug:              getEnvAsBoolOrDefault("LOG_DEBUG", false),
		RedisURL:              getEnvOrDefault("REDIS_URL", ""),
		SessionSecret:         secret,
		SessionTTL:            time.Duration(getEnvAsIntOrDefault("SESSION_TTL_MINUTES", 24*60)) * time.Minute,
		GeminiAPIKey:          apiKey,
		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-1.5-flash"),
		GeminiTemperature:     getEnvAsFloatOrDefault("GEMINI_TEMPERATURE", 0.7),
		GeminiTopP:            getEnvAsFloatOrDefault("GEMINI_TOP_P", 0.9),
		GeminiTopK:            int32(getEnvAsIntOrDefault("GEMINI_TOP_K", 40)),
		GeminiMaxOutputTokens: int32(getEnvAsIntOrDefault("GEMINI_MAX_OUTPUT_TOKENS", 1000)),
		GeminiConcurrentReqs:  getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		ChatRequestsPerMin:    getEnvAsIntOrDefault("CHAT_REQUESTS_PER_MINUTE", 20),
		FrontendURL:           getEnvOrDefault("FRONTEND_URL", "http://localhost:8080"),
	}

	if cfg.GeminiConcurrentReqs < 1 {
		cfg.GeminiConcurrentReqs = 1
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}

	return cfg, nil
}

// loadAPIKey prefers the environment and falls back to the secrets file.
// A missing file is not an error; a malformed one is.
func loadAPIKey(secretsPath string) (string, error) {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key, nil
	}

	var secrets secretsFile
	if _, err := toml.DecodeFile(secretsPath, &secrets); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrMissingAPIKey
		}
		return "", fmt.Errorf("read secrets file %s: %w", secretsPath, err)
	}

	key := strings.TrimSpace(secrets.APIKeys.GeminiAPIKey)
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsFloatOrDefault(key string, defaultVal float32) float32 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 32)
	if err != nil {
		return defaultVal
	}
	return float32(f)
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
