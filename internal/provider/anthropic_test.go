package provider

import (
	"testing"

	"dayflow/internal/chat"
)

func TestAnthropicBuildParams_PreambleNotDuplicated(t *testing.T) {
	c := NewAnthropicClient("test-key")
	preamble := "당신은 일정 비서입니다."
	if err := c.Configure(SessionConfig{Model: "claude-3-5-haiku-latest", SystemPreamble: preamble}); err != nil {
		t.Fatal(err)
	}

	// The preamble sits in memory as a system message and in the session
	// config; it must reach the request's system blocks exactly once.
	params, err := c.buildParams([]chat.Message{
		chat.System(preamble),
		chat.System("이전 대화 요약: 일정 논의"),
		chat.User("안녕"),
	})
	if err != nil {
		t.Fatal(err)
	}

	if len(params.System) != 2 {
		t.Fatalf("system blocks = %d, want preamble + summary note", len(params.System))
	}
	if params.System[0].Text != preamble {
		t.Errorf("first system block = %q, want the preamble", params.System[0].Text)
	}
	if params.System[1].Text != "이전 대화 요약: 일정 논의" {
		t.Errorf("second system block = %q, want the summary note", params.System[1].Text)
	}
	if len(params.Messages) != 1 {
		t.Errorf("turn messages = %d, want the user turn only", len(params.Messages))
	}
}

func TestAnthropicConfigure_Validation(t *testing.T) {
	if err := NewAnthropicClient("").Configure(SessionConfig{Model: "claude-3-5-haiku-latest"}); !IsConfigError(err) {
		t.Errorf("missing key err = %v, want ConfigError", err)
	}
	c := NewAnthropicClient("test-key")
	if err := c.Configure(SessionConfig{Model: "gpt-4o-mini"}); !IsConfigError(err) {
		t.Errorf("foreign model err = %v, want ConfigError", err)
	}
}
