package provider

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"dayflow/internal/chat"
)

// AnthropicConfig holds configuration for the Anthropic client.
type AnthropicConfig struct {
	APIKey    string
	Model     string
	MaxTokens int64
	Logger    *zap.Logger
}

// DefaultAnthropicConfig returns sensible defaults.
func DefaultAnthropicConfig(apiKey string) AnthropicConfig {
	return AnthropicConfig{
		APIKey:    apiKey,
		Model:     "claude-3-5-haiku-latest",
		MaxTokens: 4096,
	}
}

// AnthropicClient implements ChatClient on the official SDK. The Messages
// API is stateless, so the "session" is the bound configuration; the full
// history travels with every request.
type AnthropicClient struct {
	config AnthropicConfig
	logger *zap.Logger

	mu     sync.Mutex
	client *anthropic.Client
	cfg    SessionConfig
}

// NewAnthropicClient creates a client with default config.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return NewAnthropicClientWithConfig(DefaultAnthropicConfig(apiKey))
}

// NewAnthropicClientWithConfig creates a client with custom config.
func NewAnthropicClientWithConfig(config AnthropicConfig) *AnthropicClient {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.MaxTokens <= 0 {
		config.MaxTokens = 4096
	}
	return &AnthropicClient{
		config: config,
		logger: logger,
		cfg:    SessionConfig{Model: config.Model},
	}
}

func (c *AnthropicClient) Provider() Provider { return ProviderAnthropic }

// Configure rebinds generation parameters.
func (c *AnthropicClient) Configure(cfg SessionConfig) error {
	if c.config.APIKey == "" {
		return &ConfigError{Provider: ProviderAnthropic, Reason: "API key not configured"}
	}
	if cfg.Model == "" {
		return &ConfigError{Provider: ProviderAnthropic, Reason: "model identifier required"}
	}
	if !strings.HasPrefix(cfg.Model, "claude-") {
		return &ConfigError{Provider: ProviderAnthropic, Reason: fmt.Sprintf("unsupported model %q", cfg.Model)}
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

func (c *AnthropicClient) ensureClient() *anthropic.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		client := anthropic.NewClient(option.WithAPIKey(c.config.APIKey))
		c.client = &client
	}
	return c.client
}

// buildParams converts the history. System-role messages join the request's
// system blocks alongside the configured preamble; the Messages API has no
// system role in the turn list. A history entry equal to the configured
// preamble is skipped so the preamble is never sent twice.
func (c *AnthropicClient) buildParams(history []chat.Message) (anthropic.MessageNewParams, error) {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	if cfg.Model == "" {
		return anthropic.MessageNewParams{}, &ConfigError{Provider: ProviderAnthropic, Reason: "client not configured; call Configure first"}
	}

	var system []anthropic.TextBlockParam
	if cfg.SystemPreamble != "" {
		system = append(system, anthropic.TextBlockParam{Text: cfg.SystemPreamble})
	}

	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		switch m.Role {
		case chat.RoleSystem:
			if m.Content != cfg.SystemPreamble {
				system = append(system, anthropic.TextBlockParam{Text: m.Content})
			}
		case chat.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}
	if len(messages) == 0 {
		return anthropic.MessageNewParams{}, &ConfigError{Provider: ProviderAnthropic, Reason: "empty message history"}
	}

	return anthropic.MessageNewParams{
		Model:     anthropic.Model(cfg.Model),
		MaxTokens: c.config.MaxTokens,
		System:    system,
		Messages:  messages,
	}, nil
}

// Send returns the full reply text.
func (c *AnthropicClient) Send(ctx context.Context, history []chat.Message) (string, error) {
	params, err := c.buildParams(history)
	if err != nil {
		return "", err
	}

	msg, err := c.ensureClient().Messages.New(ctx, params)
	if err != nil {
		return "", &TransportError{Provider: ProviderAnthropic, Err: err}
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(text.Text)
		}
	}
	reply := strings.TrimSpace(sb.String())
	if reply == "" {
		return "", &TransportError{Provider: ProviderAnthropic, Err: fmt.Errorf("no completion returned")}
	}
	return reply, nil
}

// SendStream surfaces text deltas from the SDK's SSE stream as fragments.
func (c *AnthropicClient) SendStream(ctx context.Context, history []chat.Message) (*Stream, error) {
	params, err := c.buildParams(history)
	if err != nil {
		return nil, err
	}

	fragments := make(chan string, 100)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errc)

		stream := c.ensureClient().Messages.NewStreaming(ctx, params)
		for stream.Next() {
			event := stream.Current()
			delta, ok := event.AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			text, ok := delta.Delta.AsAny().(anthropic.TextDelta)
			if !ok || text.Text == "" {
				continue
			}
			select {
			case fragments <- text.Text:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		if err := stream.Err(); err != nil {
			errc <- &TransportError{Provider: ProviderAnthropic, Err: err}
		}
	}()

	return NewStream(fragments, errc), nil
}
