// Package orchestrator is the per-turn façade of the chat core. Each turn
// runs the command interpreter first and only falls through to a provider
// adapter when no command shape matched. A session is single-writer: a
// second turn arriving while one is in flight is rejected, never queued.
package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"dayflow/internal/chat"
	"dayflow/internal/command"
	"dayflow/internal/provider"
)

// ErrEmptyUtterance rejects blank input before any state changes.
var ErrEmptyUtterance = errors.New("메시지를 입력해주세요")

// ErrTurnInFlight rejects a second concurrent turn on the same session.
var ErrTurnInFlight = errors.New("이전 요청을 아직 처리하는 중입니다")

// TurnOptions selects the provider path for one turn.
type TurnOptions struct {
	// Provider picks the vendor family; inferred from Model when empty.
	Provider provider.Provider
	// Model is the provider-specific model identifier.
	Model string
	// EnableSearchTool turns on the provider's web-search tool where
	// supported.
	EnableSearchTool bool
	// Streaming selects the streaming transport. OnFragment (optional)
	// observes each fragment as it arrives.
	Streaming  bool
	OnFragment func(fragment string)
}

// Orchestrator owns one conversation session: its memory, its interpreter,
// and the shared provider registry.
type Orchestrator struct {
	registry *provider.Registry
	interp   *command.Interpreter
	memory   *chat.Memory
	logger   *zap.Logger

	inflight *semaphore.Weighted

	mu       sync.Mutex
	preamble string
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// New creates an orchestrator for one session.
func New(registry *provider.Registry, interp *command.Interpreter, memory *chat.Memory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		interp:   interp,
		memory:   memory,
		logger:   zap.NewNop(),
		inflight: semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SendTurn processes one chat turn and returns the assistant-visible reply
// text. Command turns never contact a provider; provider turns append the
// reply to memory only on clean completion. On a mid-stream transport
// failure the partial text already surfaced through OnFragment is NOT
// committed to memory.
func (o *Orchestrator) SendTurn(ctx context.Context, utterance string, opts TurnOptions) (string, error) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return "", ErrEmptyUtterance
	}

	if !o.inflight.TryAcquire(1) {
		return "", ErrTurnInFlight
	}
	defer o.inflight.Release(1)

	res, err := o.interp.Interpret(ctx, utterance)
	if err != nil {
		// A recognized command that failed must surface as that failure,
		// never as an unrelated LLM reply. Memory is untouched.
		return "", err
	}

	if res.Kind != command.KindNone {
		o.logger.Debug("command turn",
			zap.String("kind", string(res.Kind)),
			zap.String("utterance", utterance))
		if err := o.memory.Add(ctx, chat.User(utterance)); err != nil {
			return "", err
		}
		if err := o.memory.Add(ctx, chat.Assistant(res.Content)); err != nil {
			return "", err
		}
		return res.Content, nil
	}

	return o.providerTurn(ctx, utterance, opts)
}

func (o *Orchestrator) providerTurn(ctx context.Context, utterance string, opts TurnOptions) (string, error) {
	p := opts.Provider
	if p == "" {
		inferred, ok := provider.ForModel(opts.Model)
		if !ok {
			return "", &provider.ConfigError{Provider: p, Reason: "unknown model " + opts.Model}
		}
		p = inferred
	}

	client, err := o.registry.Client(p)
	if err != nil {
		return "", err
	}

	// The append can push memory over budget and trigger compaction, which
	// borrows the shared client for the summarization call. Configure runs
	// after it so the send below always carries this turn's configuration.
	if err := o.memory.Add(ctx, chat.User(utterance)); err != nil {
		return "", err
	}
	history := o.memory.Messages()

	if err := client.Configure(provider.SessionConfig{
		Model:            opts.Model,
		SystemPreamble:   o.SystemPreamble(),
		EnableSearchTool: opts.EnableSearchTool,
	}); err != nil {
		return "", err
	}

	o.logger.Debug("provider turn",
		zap.String("provider", string(p)),
		zap.String("model", opts.Model),
		zap.Int("history", len(history)),
		zap.Bool("streaming", opts.Streaming))

	var reply string
	if opts.Streaming {
		stream, err := client.SendStream(ctx, history)
		if err != nil {
			return "", err
		}
		reply, err = stream.Drain(opts.OnFragment)
		if err != nil {
			// Partial text stays uncommitted so memory never holds a
			// truncated assistant turn.
			return "", err
		}
	} else {
		reply, err = client.Send(ctx, history)
		if err != nil {
			return "", err
		}
	}

	if err := o.memory.Add(ctx, chat.Assistant(reply)); err != nil {
		return "", err
	}
	return reply, nil
}

// SetSystemPreamble installs the system message for subsequent provider
// turns. It replaces any prior system message in memory.
func (o *Orchestrator) SetSystemPreamble(ctx context.Context, text string) error {
	o.mu.Lock()
	o.preamble = text
	o.mu.Unlock()
	return o.memory.Add(ctx, chat.System(text))
}

// SystemPreamble returns the current preamble text.
func (o *Orchestrator) SystemPreamble() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.preamble
}

// History returns the session's retained messages.
func (o *Orchestrator) History() []chat.Message {
	return o.memory.Messages()
}

// ResetMemory clears the session. Idempotent.
func (o *Orchestrator) ResetMemory() {
	o.memory.Clear()
}

// UserMessage maps any turn failure to a single human-readable message.
// Raw provider errors and stack traces never reach the caller.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyUtterance):
		return "메시지를 입력해주세요."
	case errors.Is(err, ErrTurnInFlight):
		return "이전 요청을 아직 처리하는 중입니다. 잠시 후 다시 시도해주세요."
	case errors.Is(err, command.ErrNoRecentSearch):
		return "최근 검색 결과가 없습니다."
	}

	var ce *provider.ConfigError
	if errors.As(err, &ce) {
		return "모델 설정에 문제가 있습니다: " + ce.Reason
	}
	var se *provider.StreamError
	if errors.As(err, &se) {
		return "응답 스트리밍이 중단되었습니다. 다시 시도해주세요."
	}
	var te *provider.TransportError
	if errors.As(err, &te) {
		return "AI 서비스 연결에 실패했습니다. 잠시 후 다시 시도해주세요."
	}
	return "요청을 처리하지 못했습니다: " + err.Error()
}
