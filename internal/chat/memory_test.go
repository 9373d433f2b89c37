package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeSummarizer struct {
	summary string
	err     error
	calls   int
	seen    []Message
}

func (f *fakeSummarizer) Summarize(_ context.Context, msgs []Message) (string, error) {
	f.calls++
	f.seen = msgs
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func TestMemory_SystemMessageAlwaysFirst(t *testing.T) {
	m := NewMemory(&fakeSummarizer{})
	ctx := context.Background()

	if err := m.Add(ctx, User("안녕")); err != nil {
		t.Fatal(err)
	}
	if err := m.Add(ctx, System("너는 컨설턴트야")); err != nil {
		t.Fatal(err)
	}

	msgs := m.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleSystem {
		t.Errorf("system message should be first, got %s", msgs[0].Role)
	}
}

func TestMemory_SystemMessageEvictsPrior(t *testing.T) {
	m := NewMemory(&fakeSummarizer{})
	ctx := context.Background()

	m.Add(ctx, System("첫 번째 프리앰블"))
	m.Add(ctx, User("질문"))
	m.Add(ctx, System("두 번째 프리앰블"))

	var systems int
	for _, msg := range m.Messages() {
		if msg.Role == RoleSystem {
			systems++
			if msg.Content != "두 번째 프리앰블" {
				t.Errorf("stale system message retained: %q", msg.Content)
			}
		}
	}
	if systems != 1 {
		t.Errorf("expected exactly 1 system message, got %d", systems)
	}
}

func TestMemory_EmptyMessageDropped(t *testing.T) {
	m := NewMemory(&fakeSummarizer{})
	if err := m.Add(context.Background(), User("")); err != nil {
		t.Fatal(err)
	}
	if m.Len() != 0 {
		t.Errorf("empty message should not be retained")
	}
}

func TestMemory_CompactionBoundsLog(t *testing.T) {
	sum := &fakeSummarizer{summary: "지난 대화는 운동 계획에 관한 것"}
	m := NewMemory(sum, WithMaxBytes(300))
	ctx := context.Background()

	m.Add(ctx, System("프리앰블"))
	big := strings.Repeat("긴 대화 내용 ", 20)
	m.Add(ctx, User(big))
	m.Add(ctx, Assistant(big))
	m.Add(ctx, User("마지막 질문"))

	if sum.calls == 0 {
		t.Fatal("expected compaction to call the summarizer")
	}

	msgs := m.Messages()
	// system + summary note + last two originals
	if len(msgs) > 4 {
		t.Fatalf("compacted log too large: %d messages", len(msgs))
	}
	if msgs[0].Content != "프리앰블" {
		t.Errorf("system preamble lost during compaction: %q", msgs[0].Content)
	}
	if !strings.HasPrefix(msgs[1].Content, summaryPrefix) {
		t.Errorf("expected summary note second, got %q", msgs[1].Content)
	}
	if msgs[len(msgs)-1].Content != "마지막 질문" {
		t.Errorf("newest message must survive compaction, got %q", msgs[len(msgs)-1].Content)
	}
	if m.Summary() != sum.summary {
		t.Errorf("Summary() = %q, want %q", m.Summary(), sum.summary)
	}
}

func TestMemory_CompactionExcludesNewestFromSummary(t *testing.T) {
	sum := &fakeSummarizer{summary: "요약"}
	m := NewMemory(sum, WithMaxBytes(100))
	ctx := context.Background()

	m.Add(ctx, User("하나"))
	m.Add(ctx, Assistant("둘"))
	m.Add(ctx, User(strings.Repeat("셋 ", 50)))

	if sum.calls == 0 {
		t.Fatal("expected compaction")
	}
	last := sum.seen[len(sum.seen)-1]
	if strings.HasPrefix(last.Content, "셋") {
		t.Error("newest message must not be part of the summarized window")
	}
}

func TestMemory_CompactNoopUnderThreeMessages(t *testing.T) {
	sum := &fakeSummarizer{summary: "요약"}
	m := NewMemory(sum)
	ctx := context.Background()

	m.Add(ctx, User("하나"))
	m.Add(ctx, Assistant("둘"))

	if err := m.Compact(ctx); err != nil {
		t.Fatal(err)
	}
	if sum.calls != 0 {
		t.Error("compaction must be a no-op for fewer than 3 messages")
	}
	if m.Len() != 2 {
		t.Errorf("messages lost by no-op compaction: %d", m.Len())
	}
}

func TestMemory_SummarizeFailureKeepsHistory(t *testing.T) {
	sum := &fakeSummarizer{err: errors.New("upstream down")}
	m := NewMemory(sum, WithMaxBytes(100))
	ctx := context.Background()

	m.Add(ctx, User("하나"))
	m.Add(ctx, Assistant("둘"))
	if err := m.Add(ctx, User(strings.Repeat("셋 ", 50))); err != nil {
		t.Fatalf("summarize failure must not surface from Add: %v", err)
	}

	if m.Len() != 3 {
		t.Errorf("history must be retained when summarization fails, got %d messages", m.Len())
	}
	if m.Summary() != "" {
		t.Errorf("summary must be unchanged on failure, got %q", m.Summary())
	}
}

func TestMemory_ClearIdempotent(t *testing.T) {
	m := NewMemory(&fakeSummarizer{})
	ctx := context.Background()

	m.Add(ctx, System("프리앰블"))
	m.Add(ctx, User("질문"))

	m.Clear()
	first := m.Messages()
	m.Clear()
	second := m.Messages()

	if len(first) != 0 || len(second) != 0 {
		t.Errorf("Clear must yield the empty state, got %d then %d", len(first), len(second))
	}
	if m.Summary() != "" {
		t.Error("Clear must reset the summary")
	}
}
