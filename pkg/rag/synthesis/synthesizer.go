package synthesis

import (
	"context"
	"fmt"
	"strings"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/prompt"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/tokenizer"
)

type Config struct {
	HistoryWindow int // most recent turns included in the prompt
	TokenBudget   int // shared by support items and history, 0 = unbounded
}

func DefaultConfig() Config {
	return Config{HistoryWindow: 3, TokenBudget: 3000}
}

type Request struct {
	Query   string
	Support []store.SupportItem
	History []store.Turn // most recent first
	Avoid   []string     // statements flagged by the verifier on a previous draft
}

// Synthesizer drafts an answer grounded in support items with a single model call.
type Synthesizer struct {
	llm     llm.LLMProvider
	counter tokenizer.Counter
	cfg     Config
	logger  logger.ILogger
}

func NewSynthesizer(provider llm.LLMProvider, counter tokenizer.Counter, cfg Config, log logger.ILogger) *Synthesizer {
	if counter == nil {
		counter = tokenizer.Heuristic{}
	}
	return &Synthesizer{llm: provider, counter: counter, cfg: cfg, logger: log}
}

func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (store.DraftAnswer, error) {
	history := req.History
	if len(history) > s.cfg.HistoryWindow {
		history = history[:s.cfg.HistoryWindow]
	}

	system, user, included := prompt.NewSynthesisBuilder(req.Query, req.Support, history).
		WithAvoid(req.Avoid).
		WithBudget(s.counter, s.cfg.TokenBudget).
		Build()

	text, err := s.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, llm.WithStage(rag.StageSynthesize))
	if err != nil {
		s.logger.Error("Synthesizer", "Draft generation failed", map[string]interface{}{"error": err.Error()})
		return store.DraftAnswer{}, rag.Wrap(rag.ErrGeneration, err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return store.DraftAnswer{}, fmt.Errorf("%w: empty draft", rag.ErrGeneration)
	}

	s.logger.Info("Synthesizer", "Draft generated", map[string]interface{}{
		"support": len(included),
		"trimmed": len(req.Support) - len(included),
		"history": len(history),
		"retry":   len(req.Avoid) > 0,
	})

	return store.DraftAnswer{
		Text:       text,
		Support:    included,
		Ungrounded: len(included) == 0,
	}, nil
}
