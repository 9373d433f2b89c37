package provider

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"dayflow/internal/chat"
)

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	MaxOutputTokens int32
	Logger          *zap.Logger
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:          apiKey,
		Model:           "gemini-2.5-flash",
		Temperature:     1,
		TopP:            0.95,
		MaxOutputTokens: 8192,
	}
}

// GeminiClient implements ChatClient on the official genai SDK. A chat
// session is opened lazily, seeded with all-but-last history, and cached
// until Configure changes the model, preamble, or tool flag.
type GeminiClient struct {
	config GeminiConfig
	logger *zap.Logger

	mu      sync.Mutex
	client  *genai.Client
	cfg     SessionConfig
	session *genai.Chat
}

// NewGeminiClient creates a client with default config.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a client with custom config.
func NewGeminiClientWithConfig(config GeminiConfig) *GeminiClient {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeminiClient{
		config: config,
		logger: logger,
		cfg:    SessionConfig{Model: config.Model},
	}
}

func (c *GeminiClient) Provider() Provider { return ProviderGemini }

// Configure rebinds generation parameters and drops the cached session so
// the next send opens a fresh one.
func (c *GeminiClient) Configure(cfg SessionConfig) error {
	if c.config.APIKey == "" {
		return &ConfigError{Provider: ProviderGemini, Reason: "API key not configured"}
	}
	if cfg.Model == "" {
		return &ConfigError{Provider: ProviderGemini, Reason: "model identifier required"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cfg != c.cfg {
		c.session = nil
	}
	c.cfg = cfg
	return nil
}

// ensureClient lazily constructs the SDK client.
func (c *GeminiClient) ensureClient(ctx context.Context) error {
	if c.client != nil {
		return nil
	}
	if c.config.APIKey == "" {
		return &ConfigError{Provider: ProviderGemini, Reason: "API key not configured"}
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return &ConfigError{Provider: ProviderGemini, Reason: fmt.Sprintf("failed to create client: %v", err)}
	}
	c.client = client
	return nil
}

// generateConfig builds the per-session generation config, including the
// system instruction and the optional Google Search tool.
func (c *GeminiClient) generateConfig(cfg SessionConfig) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(c.config.Temperature),
		TopP:            genai.Ptr(c.config.TopP),
		MaxOutputTokens: c.config.MaxOutputTokens,
	}
	if cfg.SystemPreamble != "" {
		gc.SystemInstruction = genai.NewContentFromText(cfg.SystemPreamble, genai.RoleUser)
	}
	if cfg.EnableSearchTool {
		gc.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return gc
}

// toGeminiHistory converts role-tagged messages. Gemini chat history only
// knows user and model roles; system-role entries (the compaction summary
// note) are carried as user content so their information survives. A system
// entry equal to the configured preamble is skipped: it already travels as
// the session's SystemInstruction.
func toGeminiHistory(msgs []chat.Message, preamble string) []*genai.Content {
	out := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == chat.RoleSystem && m.Content == preamble {
			continue
		}
		var role genai.Role = genai.RoleUser
		if m.Role == chat.RoleAssistant {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(m.Content, role))
	}
	return out
}

// ensureSession opens the chat session on first use, seeded with everything
// but the final message, and returns it together with that final message.
func (c *GeminiClient) ensureSession(ctx context.Context, history []chat.Message) (*genai.Chat, string, error) {
	if len(history) == 0 {
		return nil, "", &ConfigError{Provider: ProviderGemini, Reason: "empty message history"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ensureClient(ctx); err != nil {
		return nil, "", err
	}

	last := history[len(history)-1]
	if c.session == nil {
		session, err := c.client.Chats.Create(ctx, c.cfg.Model, c.generateConfig(c.cfg), toGeminiHistory(history[:len(history)-1], c.cfg.SystemPreamble))
		if err != nil {
			return nil, "", &TransportError{Provider: ProviderGemini, Err: err}
		}
		c.session = session
		c.logger.Debug("gemini session opened",
			zap.String("model", c.cfg.Model),
			zap.Int("seed_messages", len(history)-1),
			zap.Bool("search_tool", c.cfg.EnableSearchTool))
	}
	return c.session, last.Content, nil
}

// Send delivers the final message on the cached session and returns the
// complete reply text.
func (c *GeminiClient) Send(ctx context.Context, history []chat.Message) (string, error) {
	session, last, err := c.ensureSession(ctx, history)
	if err != nil {
		return "", err
	}

	resp, err := session.SendMessage(ctx, genai.Part{Text: last})
	if err != nil {
		return "", &TransportError{Provider: ProviderGemini, Err: err}
	}
	text := resp.Text()
	if text == "" {
		return "", &TransportError{Provider: ProviderGemini, Err: fmt.Errorf("no completion returned")}
	}
	return text, nil
}

// SendStream delivers the final message and surfaces reply chunks as they
// arrive from the SDK's streaming iterator.
func (c *GeminiClient) SendStream(ctx context.Context, history []chat.Message) (*Stream, error) {
	session, last, err := c.ensureSession(ctx, history)
	if err != nil {
		return nil, err
	}

	fragments := make(chan string, 100)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errc)

		for resp, err := range session.SendMessageStream(ctx, genai.Part{Text: last}) {
			if err != nil {
				errc <- &TransportError{Provider: ProviderGemini, Err: err}
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			select {
			case fragments <- text:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return NewStream(fragments, errc), nil
}
