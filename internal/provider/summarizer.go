package provider

import (
	"context"

	"dayflow/internal/chat"
)

const summarizerPreamble = "이전 대화를 간단히 요약해주세요. 주요 주제와 결정사항을 중심으로 요약해주세요."

// Summarizer adapts a ChatClient into the memory compaction hook. Each call
// reconfigures the shared adapter for the summarization model, so callers
// sharing the adapter must reconfigure after compaction may have run; the
// orchestrator configures each chat turn after the append that can trigger
// compaction and immediately before sending.
func Summarizer(client ChatClient, model string) chat.SummarizerFunc {
	return func(ctx context.Context, msgs []chat.Message) (string, error) {
		if err := client.Configure(SessionConfig{
			Model:          model,
			SystemPreamble: summarizerPreamble,
		}); err != nil {
			return "", err
		}

		history := make([]chat.Message, 0, len(msgs)+1)
		for _, m := range msgs {
			if m.Role == chat.RoleSystem {
				// Prior summary notes must survive re-summarization; the
				// summarizer preamble replaces the system slot, so system
				// content rides along as user context instead.
				m = chat.User(m.Content)
			}
			history = append(history, m)
		}
		history = append(history, chat.User("위 대화를 요약해줘."))

		return client.Send(ctx, history)
	}
}
