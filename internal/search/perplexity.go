// Package search provides the web-search backend used by the 검색해줘
// command. Perplexity's chat-completions endpoint doubles as a search API:
// one request, one synthesized answer with current information.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const systemPrompt = "당신은 검색 전문가입니다. 사용자의 검색어에 대해 최신의 정확한 정보를 제공합니다. 답변은 명확하고 구체적이어야 하며, 가능한 한 최신 정보를 포함해야 합니다."

// PerplexityConfig holds the connection settings for the Perplexity API.
type PerplexityConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	Logger  *zap.Logger
}

// DefaultPerplexityConfig returns the settings used in production.
func DefaultPerplexityConfig(apiKey string) PerplexityConfig {
	return PerplexityConfig{
		APIKey:  apiKey,
		BaseURL: "https://api.perplexity.ai",
		Model:   "llama-3.1-sonar-small-128k-online",
		Timeout: 60 * time.Second,
	}
}

// PerplexityClient implements planner.Searcher over the Perplexity API.
type PerplexityClient struct {
	cfg        PerplexityConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewPerplexityClient creates a client with production defaults.
func NewPerplexityClient(apiKey string) *PerplexityClient {
	return NewPerplexityClientWithConfig(DefaultPerplexityConfig(apiKey))
}

// NewPerplexityClientWithConfig creates a client with explicit settings.
func NewPerplexityClientWithConfig(cfg PerplexityConfig) *PerplexityClient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PerplexityClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model    string              `json:"model"`
	Messages []perplexityMessage `json:"messages"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Search asks Perplexity for current information on the query and returns
// the synthesized answer text.
func (c *PerplexityClient) Search(ctx context.Context, query string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("perplexity: api key not configured")
	}

	body, err := json.Marshal(perplexityRequest{
		Model: c.cfg.Model,
		Messages: []perplexityMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "다음 주제에 대해 최신 정보를 알려주세요: " + query},
		},
	})
	if err != nil {
		return "", fmt.Errorf("perplexity: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("perplexity: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	c.logger.Debug("perplexity search", zap.String("query", query))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("perplexity: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("perplexity: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed perplexityResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("perplexity: decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("perplexity: empty response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
