// Package config handles configuration loading and validation for refinery.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Reviewer backends.
const (
	ReviewerHeuristic = "heuristic"
	ReviewerLint      = "lint"
	ReviewerLLM       = "llm"
)

// Rewriter backends.
const (
	RewriterHeuristic = "heuristic"
	RewriterLLM       = "llm"
)

// Verifier backends. An empty verifier disables verification.
const (
	VerifierNone    = ""
	VerifierCommand = "command"
)

// Trail storage backends.
const (
	TrailJSON   = "json"
	TrailSQLite = "sqlite"
)

// LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// DefaultTheme is the name of the default output theme.
const DefaultTheme = "tokyo-night"

// Config holds the application configuration.
type Config struct {
	SandboxRoot   string       `yaml:"sandbox_root"`
	MaxIterations int          `yaml:"max_iterations"`
	FileExt       string       `yaml:"file_ext"`
	Exclude       []string     `yaml:"exclude"`
	Agents        AgentsConfig `yaml:"agents"`
	Trail         TrailConfig  `yaml:"trail"`
	MetricsFile   string       `yaml:"metrics_file"`
	Theme         string       `yaml:"theme"`
}

// AgentsConfig selects and configures the reviewer, rewriter and verifier.
type AgentsConfig struct {
	Reviewer  string          `yaml:"reviewer"`
	Rewriter  string          `yaml:"rewriter"`
	Verifier  string          `yaml:"verifier"`
	Timeout   time.Duration   `yaml:"timeout"` // per collaborator call
	Heuristic HeuristicConfig `yaml:"heuristic"`
	Lint      LintConfig      `yaml:"lint"`
	Verify    VerifyConfig    `yaml:"verify"`
	LLM       LLMConfig       `yaml:"llm"`
}

// HeuristicConfig configures the marker-based reviewer and rewriter.
type HeuristicConfig struct {
	Marker        string `yaml:"marker"`         // text whose presence means "accepted"
	CommentPrefix string `yaml:"comment_prefix"` // line comment token of the target language
}

// LintConfig configures the lint-score reviewer.
type LintConfig struct {
	Command  string  `yaml:"command"`   // command template, see pkg/tmpl.CommandData
	MinScore float64 `yaml:"min_score"` // accept at or above this score (0-10)
}

// VerifyConfig configures the command verifier.
type VerifyConfig struct {
	Command string `yaml:"command"` // command template, exit 0 means accepted
}

// LLMConfig configures the language-model reviewer and rewriter.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	APIKeyEnv   string  `yaml:"api_key_env"` // defaults per provider
	BaseURL     string  `yaml:"base_url"`    // openai-compatible endpoints only
}

// TrailConfig selects where trail records are stored.
type TrailConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SandboxRoot:   "sandbox",
		MaxIterations: 3,
		FileExt:       ".py",
		Exclude:       []string{"*_fixed_*"},
		Agents: AgentsConfig{
			Reviewer: ReviewerHeuristic,
			Rewriter: RewriterHeuristic,
			Verifier: VerifierNone,
			Timeout:  2 * time.Minute,
			Heuristic: HeuristicConfig{
				Marker:        "# FIXED",
				CommentPrefix: "#",
			},
			Lint: LintConfig{
				Command:  "python -m pylint {{ .Path | shq }}",
				MinScore: 8.0,
			},
			Verify: VerifyConfig{
				Command: "python -m pytest {{ .Dir | shq }}",
			},
			LLM: LLMConfig{
				Provider:    ProviderGemini,
				Model:       "gemini-1.5-flash",
				Temperature: 0.1,
				MaxTokens:   2000,
			},
		},
		Trail: TrailConfig{
			Backend: TrailJSON,
			Path:    filepath.Join("logs", "experiment_data.json"),
		},
		Theme: DefaultTheme,
	}
}

// DefaultConfigPath returns the default config file path, relative to the
// working directory.
func DefaultConfigPath() string {
	return "refinery.yaml"
}

// Load reads configuration from the given path.
// If configPath is empty or doesn't exist, returns defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	// Apply defaults for zero values
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}

	return os.WriteFile(path, data, 0o644)
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.SandboxRoot == "" {
		c.SandboxRoot = defaults.SandboxRoot
	}
	if c.MaxIterations == 0 {
		c.MaxIterations = defaults.MaxIterations
	}
	if c.FileExt == "" {
		c.FileExt = defaults.FileExt
	}
	if c.Agents.Reviewer == "" {
		c.Agents.Reviewer = defaults.Agents.Reviewer
	}
	if c.Agents.Rewriter == "" {
		c.Agents.Rewriter = defaults.Agents.Rewriter
	}
	if c.Agents.Timeout == 0 {
		c.Agents.Timeout = defaults.Agents.Timeout
	}
	if c.Agents.Heuristic.Marker == "" {
		c.Agents.Heuristic.Marker = defaults.Agents.Heuristic.Marker
	}
	if c.Agents.Heuristic.CommentPrefix == "" {
		c.Agents.Heuristic.CommentPrefix = defaults.Agents.Heuristic.CommentPrefix
	}
	if c.Agents.Lint.Command == "" {
		c.Agents.Lint.Command = defaults.Agents.Lint.Command
	}
	if c.Agents.Verify.Command == "" {
		c.Agents.Verify.Command = defaults.Agents.Verify.Command
	}
	if c.Agents.LLM.Provider == "" {
		c.Agents.LLM.Provider = defaults.Agents.LLM.Provider
	}
	if c.Agents.LLM.Model == "" {
		c.Agents.LLM.Model = defaultModel(c.Agents.LLM.Provider)
	}
	if c.Agents.LLM.MaxTokens == 0 {
		c.Agents.LLM.MaxTokens = defaults.Agents.LLM.MaxTokens
	}
	if c.Agents.LLM.APIKeyEnv == "" {
		c.Agents.LLM.APIKeyEnv = defaultAPIKeyEnv(c.Agents.LLM.Provider)
	}
	if c.Trail.Backend == "" {
		c.Trail.Backend = defaults.Trail.Backend
	}
	if c.Trail.Path == "" {
		c.Trail.Path = defaultTrailPath(c.Trail.Backend)
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

func defaultModel(provider string) string {
	if provider == ProviderOpenAI {
		return "gpt-4o-mini"
	}
	return "gemini-1.5-flash"
}

func defaultAPIKeyEnv(provider string) string {
	if provider == ProviderOpenAI {
		return "OPENAI_API_KEY"
	}
	return "GOOGLE_API_KEY"
}

func defaultTrailPath(backend string) string {
	if backend == TrailSQLite {
		return filepath.Join("logs", "trail.db")
	}
	return filepath.Join("logs", "experiment_data.json")
}

// UsesLLM reports whether any configured collaborator calls a language model.
func (c *Config) UsesLLM() bool {
	return c.Agents.Reviewer == ReviewerLLM || c.Agents.Rewriter == RewriterLLM
}
