package provider

import (
	"sync"

	"go.uber.org/zap"
)

// Credentials carries the API keys available to the process. Empty keys are
// legal; the corresponding adapter fails with a ConfigError when used.
type Credentials struct {
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string
}

// Registry hands out exactly one adapter instance per vendor family for the
// process lifetime, so the cached session survives across turns.
type Registry struct {
	creds  Credentials
	logger *zap.Logger

	mu      sync.Mutex
	clients map[Provider]ChatClient
}

// NewRegistry creates a registry over the given credentials.
func NewRegistry(creds Credentials, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		creds:   creds,
		logger:  logger,
		clients: make(map[Provider]ChatClient),
	}
}

// Client returns the shared adapter for the vendor family, constructing it
// on first use.
func (r *Registry) Client(p Provider) (ChatClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[p]; ok {
		return client, nil
	}

	var client ChatClient
	switch p {
	case ProviderGemini:
		cfg := DefaultGeminiConfig(r.creds.GeminiAPIKey)
		cfg.Logger = r.logger.Named("gemini")
		client = NewGeminiClientWithConfig(cfg)
	case ProviderAnthropic:
		cfg := DefaultAnthropicConfig(r.creds.AnthropicAPIKey)
		cfg.Logger = r.logger.Named("anthropic")
		client = NewAnthropicClientWithConfig(cfg)
	case ProviderOpenAI:
		cfg := DefaultOpenAIConfig(r.creds.OpenAIAPIKey)
		cfg.Logger = r.logger.Named("openai")
		client = NewOpenAIClientWithConfig(cfg)
	default:
		return nil, &ConfigError{Provider: p, Reason: "unknown provider"}
	}

	r.clients[p] = client
	return client, nil
}

// Register installs a pre-built client for a provider, replacing any cached
// instance. Used by tests and by callers with custom adapter configs.
func (r *Registry) Register(p Provider, client ChatClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[p] = client
}
