package provider

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dayflow/internal/chat"
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// DefaultOpenAIConfig returns sensible defaults.
func DefaultOpenAIConfig(apiKey string) OpenAIConfig {
	return OpenAIConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
		Timeout: 120 * time.Second,
	}
}

// OpenAIClient implements ChatClient against the chat-completions API.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	mu  sync.Mutex
	cfg SessionConfig
}

// NewOpenAIClient creates a client with default config.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return NewOpenAIClientWithConfig(DefaultOpenAIConfig(apiKey))
}

// NewOpenAIClientWithConfig creates a client with custom config.
func NewOpenAIClientWithConfig(config OpenAIConfig) *OpenAIClient {
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
		cfg:    SessionConfig{Model: config.Model},
	}
}

func (c *OpenAIClient) Provider() Provider { return ProviderOpenAI }

// Configure rebinds the generation parameters. The chat-completions API is
// stateless, so there is no session handle to drop; the stored config simply
// shapes the next request.
func (c *OpenAIClient) Configure(cfg SessionConfig) error {
	if c.apiKey == "" {
		return &ConfigError{Provider: ProviderOpenAI, Reason: "API key not configured"}
	}
	if cfg.Model == "" {
		return &ConfigError{Provider: ProviderOpenAI, Reason: "model identifier required"}
	}
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
	return nil
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

type openAIRequest struct {
	Model         string               `json:"model"`
	Messages      []openAIMessage      `json:"messages"`
	MaxTokens     int                  `json:"max_tokens,omitempty"`
	Temperature   float64              `json:"temperature,omitempty"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *openAIStreamOptions `json:"stream_options,omitempty"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		Delta *struct {
			Role    string `json:"role,omitempty"`
			Content string `json:"content,omitempty"`
		} `json:"delta,omitempty"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// buildRequest converts the role-tagged history, folding the configured
// preamble into the leading system message when the history has none.
func (c *OpenAIClient) buildRequest(history []chat.Message, stream bool) (openAIRequest, error) {
	c.mu.Lock()
	cfg := c.cfg
	c.mu.Unlock()

	if cfg.Model == "" {
		return openAIRequest{}, &ConfigError{Provider: ProviderOpenAI, Reason: "client not configured; call Configure first"}
	}

	messages := make([]openAIMessage, 0, len(history)+1)
	hasSystem := false
	for _, m := range history {
		if m.Role == chat.RoleSystem {
			hasSystem = true
		}
		messages = append(messages, openAIMessage{Role: string(m.Role), Content: m.Content})
	}
	if !hasSystem && cfg.SystemPreamble != "" {
		messages = append([]openAIMessage{{Role: "system", Content: cfg.SystemPreamble}}, messages...)
	}
	if len(messages) == 0 {
		return openAIRequest{}, &ConfigError{Provider: ProviderOpenAI, Reason: "empty message history"}
	}

	req := openAIRequest{
		Model:       cfg.Model,
		Messages:    messages,
		MaxTokens:   4096,
		Temperature: 0.7,
		Stream:      stream,
	}
	if stream {
		req.StreamOptions = &openAIStreamOptions{IncludeUsage: true}
	}
	return req, nil
}

// Send returns the full completion for the history.
func (c *OpenAIClient) Send(ctx context.Context, history []chat.Message) (string, error) {
	if c.apiKey == "" {
		return "", &ConfigError{Provider: ProviderOpenAI, Reason: "API key not configured"}
	}

	reqBody, err := c.buildRequest(history, false)
	if err != nil {
		return "", err
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &TransportError{Provider: ProviderOpenAI, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: ProviderOpenAI, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return "", &ConfigError{Provider: ProviderOpenAI, Reason: "invalid API key"}
	}
	if resp.StatusCode != http.StatusOK {
		return "", &TransportError{Provider: ProviderOpenAI,
			Err: fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))}
	}

	var openaiResp openAIResponse
	if err := json.Unmarshal(body, &openaiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if openaiResp.Error != nil {
		return "", &TransportError{Provider: ProviderOpenAI,
			Err: fmt.Errorf("API error: %s", openaiResp.Error.Message)}
	}
	if len(openaiResp.Choices) == 0 {
		return "", &TransportError{Provider: ProviderOpenAI, Err: fmt.Errorf("no completion returned")}
	}

	return strings.TrimSpace(openaiResp.Choices[0].Message.Content), nil
}

// SendStream opens an SSE stream and surfaces content deltas as fragments.
func (c *OpenAIClient) SendStream(ctx context.Context, history []chat.Message) (*Stream, error) {
	if c.apiKey == "" {
		return nil, &ConfigError{Provider: ProviderOpenAI, Reason: "API key not configured"}
	}

	reqBody, err := c.buildRequest(history, true)
	if err != nil {
		return nil, err
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	fragments := make(chan string, 100)
	errc := make(chan error, 1)

	go func() {
		defer close(fragments)
		defer close(errc)

		req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			errc <- fmt.Errorf("failed to create request: %w", err)
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			errc <- &TransportError{Provider: ProviderOpenAI, Err: err}
			return
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			errc <- &TransportError{Provider: ProviderOpenAI,
				Err: fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))}
			return
		}

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()

			// SSE format: "data: {...}"
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			data := strings.TrimPrefix(line, "data: ")
			if data == "[DONE]" {
				return
			}

			var chunk openAIResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue // skip malformed chunks
			}
			if len(chunk.Choices) > 0 && chunk.Choices[0].Delta != nil {
				content := chunk.Choices[0].Delta.Content
				if content == "" {
					continue
				}
				select {
				case fragments <- content:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
			}
		}
		if err := scanner.Err(); err != nil {
			errc <- &TransportError{Provider: ProviderOpenAI, Err: err}
		}
	}()

	return NewStream(fragments, errc), nil
}
