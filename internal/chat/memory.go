package chat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// summaryPrefix marks the system note holding the rolling summary.
const summaryPrefix = "이전 대화 요약: "

// DefaultMaxBytes bounds the serialized size of the retained messages.
const DefaultMaxBytes = 4000

// Summarizer condenses a slice of messages into a short summary string.
// Backed by a provider call in production; faked in tests.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []Message) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, msgs []Message) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, msgs []Message) (string, error) {
	return f(ctx, msgs)
}

// Memory is the bounded message log for one conversation session.
// At most one system message exists and it is always first. When the
// serialized size exceeds the budget, older turns are folded into a summary
// note so the log stays O(1) messages regardless of conversation length.
type Memory struct {
	mu         sync.Mutex
	msgs       []Message
	summary    string
	maxBytes   int
	summarizer Summarizer
	logger     *zap.Logger
}

// MemoryOption customizes a Memory.
type MemoryOption func(*Memory)

// WithMaxBytes overrides the serialized-size budget.
func WithMaxBytes(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxBytes = n
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewMemory creates an empty memory with the given summarizer.
func NewMemory(s Summarizer, opts ...MemoryOption) *Memory {
	m := &Memory{
		maxBytes:   DefaultMaxBytes,
		summarizer: s,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add appends a message. A system message replaces any prior system message
// and moves to the front. After every append the size budget is checked and
// compaction runs if it is exceeded. Empty messages are dropped.
func (m *Memory) Add(ctx context.Context, msg Message) error {
	if msg.Content == "" {
		m.logger.Debug("dropping empty message", zap.String("role", string(msg.Role)))
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if msg.Role == RoleSystem {
		kept := m.msgs[:0]
		for _, old := range m.msgs {
			if old.Role != RoleSystem {
				kept = append(kept, old)
			}
		}
		m.msgs = append([]Message{msg}, kept...)
	} else {
		m.msgs = append(m.msgs, msg)
	}

	if serializedSize(m.msgs) > m.maxBytes {
		return m.compactLocked(ctx)
	}
	return nil
}

// AddAll appends messages in order.
func (m *Memory) AddAll(ctx context.Context, msgs []Message) error {
	for _, msg := range msgs {
		if err := m.Add(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Compact folds all but the newest message into the summary. No-op when
// fewer than 3 messages are held.
func (m *Memory) Compact(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.compactLocked(ctx)
}

// compactLocked summarizes all but the last message and rebuilds the log as
// [optional system message, summary note, second-to-last, last]. On
// summarization failure the log and previous summary are left untouched.
func (m *Memory) compactLocked(ctx context.Context) error {
	if len(m.msgs) < 3 || m.summarizer == nil {
		return nil
	}

	summary, err := m.summarizer.Summarize(ctx, m.msgs[:len(m.msgs)-1])
	if err != nil {
		m.logger.Warn("compaction summarize failed, keeping full history", zap.Error(err))
		return nil
	}

	var system *Message
	for i := range m.msgs {
		if m.msgs[i].Role == RoleSystem && m.msgs[i].Content != "" && !isSummaryNote(m.msgs[i]) {
			system = &m.msgs[i]
			break
		}
	}

	n := len(m.msgs)
	compacted := make([]Message, 0, 4)
	if system != nil {
		compacted = append(compacted, *system)
	}
	compacted = append(compacted,
		System(summaryPrefix+summary),
		m.msgs[n-2],
		m.msgs[n-1],
	)

	m.logger.Debug("memory compacted",
		zap.Int("before", n),
		zap.Int("after", len(compacted)))

	m.summary = summary
	m.msgs = compacted
	return nil
}

func isSummaryNote(msg Message) bool {
	return msg.Role == RoleSystem && len(msg.Content) >= len(summaryPrefix) &&
		msg.Content[:len(summaryPrefix)] == summaryPrefix
}

// Messages returns a copy of the retained messages in conversation order.
func (m *Memory) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.msgs))
	copy(out, m.msgs)
	return out
}

// Summary returns the current rolling summary, empty until first compaction.
func (m *Memory) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Len reports the number of retained messages.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.msgs)
}

// Clear resets to the empty state. Safe to call repeatedly.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = nil
	m.summary = ""
}

// String describes the memory state for debugging.
func (m *Memory) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("chat.Memory{messages: %d, bytes: %d/%d, summarized: %t}",
		len(m.msgs), serializedSize(m.msgs), m.maxBytes, m.summary != "")
}
