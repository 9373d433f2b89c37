package provider

import (
	"testing"

	"dayflow/internal/chat"
)

func TestToGeminiHistory_RoleMapping(t *testing.T) {
	msgs := []chat.Message{
		chat.System("이전 대화 요약: 일정 논의"),
		chat.User("안녕"),
		chat.Assistant("안녕하세요"),
	}

	out := toGeminiHistory(msgs, "")
	if len(out) != 3 {
		t.Fatalf("history length = %d, want 3", len(out))
	}

	// Gemini history only knows user and model; system content rides along
	// as user content.
	wantRoles := []string{"user", "user", "model"}
	for i, c := range out {
		if c.Role != wantRoles[i] {
			t.Errorf("entry %d role = %q, want %q", i, c.Role, wantRoles[i])
		}
		if len(c.Parts) != 1 || c.Parts[0].Text != msgs[i].Content {
			t.Errorf("entry %d parts = %v, want single text part %q", i, c.Parts, msgs[i].Content)
		}
	}
}

func TestToGeminiHistory_SkipsConfiguredPreamble(t *testing.T) {
	preamble := "당신은 일정 비서입니다."
	msgs := []chat.Message{
		chat.System(preamble),
		chat.System("이전 대화 요약: 일정 논의"),
		chat.User("안녕"),
	}

	out := toGeminiHistory(msgs, preamble)
	if len(out) != 2 {
		t.Fatalf("history length = %d, want preamble dropped", len(out))
	}
	if out[0].Parts[0].Text != "이전 대화 요약: 일정 논의" {
		t.Errorf("first entry = %q, want the summary note", out[0].Parts[0].Text)
	}
	if out[1].Parts[0].Text != "안녕" {
		t.Errorf("second entry = %q, want the user turn", out[1].Parts[0].Text)
	}
}
