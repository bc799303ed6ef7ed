// Package main provides the CLI entry point for the browser agent: an
// interactive REPL that reads one natural-language task per line, drives a
// real headed Chromium browser through an LLM-decided observe->think->act
// loop, and prints the resulting summary.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/AlexanderGhosty/browser-ai-agent/internal/agent"
	"github.com/AlexanderGhosty/browser-ai-agent/internal/browser"
	"github.com/AlexanderGhosty/browser-ai-agent/internal/config"
	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm"
	"github.com/AlexanderGhosty/browser-ai-agent/internal/llm/providers"
	"github.com/spf13/cobra"
)

const banner = `
========================================
  Browser AI Agent
  Drives a real browser from plain English tasks.
  Blank line, "quit", or "exit" to stop.
========================================
`

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd(logger)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// cliOverrides holds the flag values that take precedence over the
// corresponding env vars, following the teacher's flag-layers-over-env
// pattern in cmd/nexus/commands.go.
type cliOverrides struct {
	provider      string
	maxIterations int
	profileDir    string
}

func buildRootCmd(logger *slog.Logger) *cobra.Command {
	var overrides cliOverrides

	rootCmd := &cobra.Command{
		Use:          "browseragent",
		Short:        "Browser AI Agent - drive a real browser from natural-language tasks",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runREPL(logger, overrides)
		},
	}
	rootCmd.Flags().StringVar(&overrides.provider, "provider", "", "LLM provider to use (glm, openai, claude); overrides LLM_PROVIDER")
	rootCmd.Flags().IntVar(&overrides.maxIterations, "max-iterations", 0, "maximum agent loop iterations per task; overrides MAX_ITERATIONS")
	rootCmd.Flags().StringVar(&overrides.profileDir, "profile-dir", "", "persistent browser profile directory; overrides BROWSER_USER_DATA_DIR")
	return rootCmd
}

func runREPL(logger *slog.Logger, overrides cliOverrides) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(cfg, overrides)

	provider, err := buildProvider(cfg)
	if err != nil {
		return fmt.Errorf("build LLM provider: %w", err)
	}

	browserCfg := browser.DefaultConfig(cfg.UserDataDir)
	mgr, err := browser.NewManager(browserCfg)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer mgr.Close()

	stdinReader := bufio.NewReader(os.Stdin)
	askUser := func(question string) string {
		fmt.Printf("\n[agent asks] %s\n> ", question)
		line, _ := stdinReader.ReadString('\n')
		return strings.TrimSpace(line)
	}

	loop := agent.NewLoop(mgr, provider, modelForProvider(cfg), cfg.MaxIterations, askUser, logger)

	fmt.Print(banner)

	for {
		fmt.Print("\ntask> ")
		line, err := stdinReader.ReadString('\n')
		if err != nil {
			return nil
		}
		task := strings.TrimSpace(line)
		if task == "" || task == "quit" || task == "exit" {
			return nil
		}

		fmt.Println(strings.Repeat("-", 40))
		summary, err := loop.Run(context.Background(), task)
		if err != nil {
			fmt.Printf("Run ended with an error: %v\n", err)
			continue
		}
		fmt.Println(strings.Repeat("-", 40))
		fmt.Printf("Summary: %s\n", summary)
	}
}

// applyOverrides layers CLI flags over the env-derived config, following the
// teacher's flag-over-env precedence in cmd/nexus/commands.go. Missing
// provider credentials for a flag-overridden provider still surface as a
// startup error from buildProvider's own per-provider checks.
func applyOverrides(cfg *config.Config, overrides cliOverrides) {
	if overrides.provider != "" {
		cfg.Provider = config.Provider(overrides.provider)
	}
	if overrides.maxIterations > 0 {
		cfg.MaxIterations = overrides.maxIterations
	}
	if overrides.profileDir != "" {
		cfg.UserDataDir = overrides.profileDir
	}
}

// buildProvider constructs the configured LLM provider. Claude is wired but
// reserved: selecting it constructs a ClaudeProvider whose Chat always
// errors, since the agent loop has not yet been adapted to its native
// message format.
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case config.ProviderGLM:
		return providers.NewGLM(cfg.GLMAPIKey, "")
	case config.ProviderOpenAI:
		return providers.NewOpenAI(cfg.OpenAIAPIKey, "")
	case config.ProviderClaude:
		return providers.NewClaude(cfg.ClaudeAPIKey, "")
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

func modelForProvider(cfg *config.Config) string {
	switch cfg.Provider {
	case config.ProviderGLM:
		return "glm-4.6"
	case config.ProviderOpenAI:
		return "gpt-4o"
	case config.ProviderClaude:
		return "claude-sonnet-4-20250514"
	default:
		return ""
	}
}
