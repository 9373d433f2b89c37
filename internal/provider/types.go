// Package provider normalizes the chat and streaming APIs of the supported
// LLM vendors behind one client shape. One adapter instance exists per
// vendor family for the process lifetime; its cached session is invalidated
// whenever the model, preamble, or tool flags change.
package provider

import (
	"context"

	"dayflow/internal/chat"
)

// Provider identifies an LLM vendor family.
type Provider string

const (
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// ForModel infers the vendor family from a model identifier.
func ForModel(model string) (Provider, bool) {
	switch {
	case hasPrefix(model, "gemini-"):
		return ProviderGemini, true
	case hasPrefix(model, "claude-"):
		return ProviderAnthropic, true
	case hasPrefix(model, "gpt-"), hasPrefix(model, "o1-"), hasPrefix(model, "o3-"):
		return ProviderOpenAI, true
	}
	return "", false
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// SessionConfig binds generation parameters for subsequent sessions.
type SessionConfig struct {
	Model            string
	SystemPreamble   string
	EnableSearchTool bool
}

// ChatClient is the adapter contract. Send and SendStream convert the
// role-tagged history into the vendor's shape, lazily opening a session
// seeded with all-but-last message as prior turns and sending the final
// message. Configure is last-write-wins and affects only sessions created
// afterwards, never one already mid-stream.
type ChatClient interface {
	Provider() Provider

	// Configure (re)binds the model, system preamble, and tool flags,
	// invalidating any cached session. A missing credential or unsupported
	// model surfaces as a *ConfigError, not a transport failure.
	Configure(cfg SessionConfig) error

	// Send returns the full reply text for the history.
	Send(ctx context.Context, history []chat.Message) (string, error)

	// SendStream returns a lazy, finite, non-restartable fragment stream.
	SendStream(ctx context.Context, history []chat.Message) (*Stream, error)
}
