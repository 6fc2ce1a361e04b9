package rephrase

import (
	"context"
	"strings"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/prompt"
)

// Rephraser polishes wording. On any failure the input text is returned unchanged.
type Rephraser struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewRephraser(provider llm.LLMProvider, log logger.ILogger) *Rephraser {
	return &Rephraser{llm: provider, logger: log}
}

// Rephrase rewrites a verified draft in the house style.
func (r *Rephraser) Rephrase(ctx context.Context, query, draft string) string {
	return r.rewrite(ctx, rag.StageRephrase, prompt.RephraseSystem, prompt.RephraseUser(query, draft), draft)
}

// FromContent turns a retrieved passage into a direct answer without adding facts.
func (r *Rephraser) FromContent(ctx context.Context, query, content string) string {
	return r.rewrite(ctx, rag.StageExactMatch, prompt.ExactMatchSystem, prompt.ExactMatchUser(query, content), content)
}

func (r *Rephraser) rewrite(ctx context.Context, stage, system, user, fallback string) string {
	out, err := r.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: system},
		{Role: llm.RoleUser, Content: user},
	}, llm.WithStage(stage))
	if err != nil {
		r.logger.Warn("Rephraser", "Rephrase failed, keeping original text", map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
		})
		return fallback
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return fallback
	}
	return out
}
