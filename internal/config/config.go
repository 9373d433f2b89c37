// Package config loads the application configuration from a YAML file with
// environment-variable fallback for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dayflow/internal/provider"
)

// Keys holds the API credentials. Any key left empty in the file is filled
// from the corresponding environment variable.
type Keys struct {
	Gemini     string `yaml:"gemini"`
	Anthropic  string `yaml:"anthropic"`
	OpenAI     string `yaml:"openai"`
	Perplexity string `yaml:"perplexity"`
}

// Memory tunes conversation retention.
type Memory struct {
	MaxBytes int `yaml:"max_bytes"`
}

// Config is the full application configuration.
type Config struct {
	Provider string `yaml:"provider"` // gemini | anthropic | openai; empty = detect
	Model    string `yaml:"model"`
	DBPath   string `yaml:"db_path"`
	Keys     Keys   `yaml:"keys"`
	Memory   Memory `yaml:"memory"`
}

// DefaultPath returns ~/.dayflow/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".dayflow", "config.yaml")
	}
	return filepath.Join(home, ".dayflow", "config.yaml")
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		DBPath: filepath.Join(filepath.Dir(DefaultPath()), "dayflow.db"),
	}
}

// Load reads the YAML file at path and fills missing credentials from the
// environment. A missing file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	fill := func(dst *string, envVar string) {
		if *dst == "" {
			*dst = os.Getenv(envVar)
		}
	}
	fill(&c.Keys.Gemini, "GEMINI_API_KEY")
	fill(&c.Keys.Anthropic, "ANTHROPIC_API_KEY")
	fill(&c.Keys.OpenAI, "OPENAI_API_KEY")
	fill(&c.Keys.Perplexity, "PERPLEXITY_API_KEY")
}

// Credentials converts the key set into the provider registry's form.
func (c Config) Credentials() provider.Credentials {
	return provider.Credentials{
		GeminiAPIKey:    c.Keys.Gemini,
		AnthropicAPIKey: c.Keys.Anthropic,
		OpenAIAPIKey:    c.Keys.OpenAI,
	}
}

// DetectProvider resolves which vendor family to use. An explicit provider
// in the config wins; otherwise the first family with a configured key is
// chosen, in the order anthropic, openai, gemini.
func (c Config) DetectProvider() (provider.Provider, error) {
	if c.Provider != "" {
		p := provider.Provider(c.Provider)
		switch p {
		case provider.ProviderGemini, provider.ProviderAnthropic, provider.ProviderOpenAI:
			return p, nil
		}
		return "", fmt.Errorf("unknown provider %q (valid: gemini, anthropic, openai)", c.Provider)
	}

	candidates := []struct {
		key      string
		provider provider.Provider
	}{
		{c.Keys.Anthropic, provider.ProviderAnthropic},
		{c.Keys.OpenAI, provider.ProviderOpenAI},
		{c.Keys.Gemini, provider.ProviderGemini},
	}
	for _, cand := range candidates {
		if cand.key != "" {
			return cand.provider, nil
		}
	}
	return "", fmt.Errorf("no API key found; set one of: ANTHROPIC_API_KEY, OPENAI_API_KEY, GEMINI_API_KEY")
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(p provider.Provider) string {
	switch p {
	case provider.ProviderGemini:
		return "gemini-2.5-flash"
	case provider.ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case provider.ProviderOpenAI:
		return "gpt-4o-mini"
	}
	return ""
}
