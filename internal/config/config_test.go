package config

import (
	"os"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LLM_PROVIDER", "GLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "MAX_ITERATIONS", "BROWSER_USER_DATA_DIR"} {
		old, had := os.LookupEnv(key)
		os.Unsetenv(key)
		t.Cleanup(func() {
			if had {
				os.Setenv(key, old)
			}
		})
	}
}

func TestLoadDefaultsToGLM(t *testing.T) {
	clearEnv(t)
	os.Setenv("GLM_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != ProviderGLM {
		t.Errorf("Provider = %q, want %q", cfg.Provider, ProviderGLM)
	}
	if cfg.MaxIterations != 50 {
		t.Errorf("MaxIterations = %d, want 50", cfg.MaxIterations)
	}
}

func TestLoadMissingAPIKeyErrors(t *testing.T) {
	clearEnv(t)
	os.Setenv("LLM_PROVIDER", "openai")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error when OPENAI_API_KEY is unset and provider=openai")
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	clearEnv(t)
	os.Setenv("LLM_PROVIDER", "bedrock")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestLoadRejectsNonPositiveMaxIterations(t *testing.T) {
	clearEnv(t)
	os.Setenv("GLM_API_KEY", "test-key")
	os.Setenv("MAX_ITERATIONS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error for MAX_ITERATIONS=0")
	}
}
