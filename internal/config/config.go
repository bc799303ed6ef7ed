// Package config loads the browser agent's environment-variable
// configuration (spec.md §6). A .env file in the working directory is
// loaded first, if present, the same ambient convenience the teacher pack's
// CLI tools (jholhewres-goclaw, kadirpekel-hector) both carry via godotenv.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Provider identifies which LLM backend to use.
type Provider string

const (
	ProviderGLM    Provider = "glm"
	ProviderOpenAI Provider = "openai"
	ProviderClaude Provider = "claude"
)

// Config is the fully resolved, validated runtime configuration.
type Config struct {
	Provider      Provider
	GLMAPIKey     string
	OpenAIAPIKey  string
	ClaudeAPIKey  string
	MaxIterations int
	UserDataDir   string
}

// Load reads environment variables (after optionally loading a .env file)
// and validates that the selected provider has an API key. Variables
// already set in the process environment take precedence over .env
// entries, so callers can override before calling Load.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; missing .env is not an error

	cfg := &Config{
		Provider:      Provider(envOrDefault("LLM_PROVIDER", "glm")),
		GLMAPIKey:     os.Getenv("GLM_API_KEY"),
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		ClaudeAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		MaxIterations: 50,
		UserDataDir:   envOrDefault("BROWSER_USER_DATA_DIR", ".browser-agent-profile"),
	}

	if raw := os.Getenv("MAX_ITERATIONS"); raw != "" {
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("MAX_ITERATIONS must be a positive integer, got %q", raw)
		}
		cfg.MaxIterations = n
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Provider {
	case ProviderGLM:
		if c.GLMAPIKey == "" {
			return fmt.Errorf("GLM_API_KEY is required when LLM_PROVIDER=glm")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case ProviderClaude:
		if c.ClaudeAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required when LLM_PROVIDER=claude")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q: must be one of glm, openai, claude", c.Provider)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
