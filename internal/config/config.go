package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Supported completion providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderPipeShift = "pipeshift"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string
	MigrationsPath string
	LogLevel       string
	LogFormat      string
	PrometheusPort string
	Port           string
	TelegramToken  string

	LLM LLMConfig

	InviteCodePrefix string
	PersonasFile     string
}

// LLMConfig selects and configures the completion provider.
type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables
// take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		MigrationsPath:   getEnvOrDefault("MIGRATIONS_PATH", "migrations"),
		LogLevel:         getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        getEnvOrDefault("LOG_FORMAT", "text"),
		PrometheusPort:   getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		Port:             getEnvOrDefault("PORT", "8080"),
		TelegramToken:    os.Getenv("TELEGRAM_TOKEN"),
		InviteCodePrefix: strings.ToUpper(getEnvOrDefault("INVITE_CODE_PREFIX", "LIORA")),
		PersonasFile:     os.Getenv("PERSONAS_FILE"),
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	llm, err := loadLLM()
	if err != nil {
		return nil, err
	}
	cfg.LLM = llm

	if !isUpperAlpha(cfg.InviteCodePrefix) {
		return nil, fmt.Errorf("INVITE_CODE_PREFIX must contain only letters A-Z, got %q", cfg.InviteCodePrefix)
	}

	return cfg, nil
}

func loadLLM() (LLMConfig, error) {
	llm := LLMConfig{
		Provider: strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderGemini)),
		Model:    os.Getenv("LLM_MODEL"),
	}

	var keyVar string
	switch llm.Provider {
	case ProviderGemini:
		keyVar = "GEMINI_API_KEY"
	case ProviderOpenAI:
		keyVar = "OPENAI_API_KEY"
	case ProviderPipeShift:
		keyVar = "PIPESHIFT_API_KEY"
		llm.BaseURL = getEnvOrDefault("PIPESHIFT_BASE_URL", "https://api.pipeshift.com/api/v0/")
	case ProviderAnthropic:
		keyVar = "ANTHROPIC_API_KEY"
	default:
		return llm, fmt.Errorf("unsupported LLM_PROVIDER %q", llm.Provider)
	}

	if llm.APIKey = os.Getenv(keyVar); llm.APIKey == "" {
		return llm, fmt.Errorf("%s environment variable is required for provider %s", keyVar, llm.Provider)
	}
	return llm, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func isUpperAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
