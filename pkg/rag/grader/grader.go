package grader

import (
	"context"
	"regexp"
	"strings"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/prompt"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/utils"
)

// Grader decides whether retrieved chunks can answer the query. It never
// returns an error: any doubt is an insufficient grade.
type Grader struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewGrader(provider llm.LLMProvider, log logger.ILogger) *Grader {
	return &Grader{llm: provider, logger: log}
}

type gradeReply struct {
	Relevant   string   `json:"relevant"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

var leadingWord = regexp.MustCompile(`^[^a-zA-Z]*([a-zA-Z]+)`)

func (g *Grader) Grade(ctx context.Context, query string, chunks []store.Chunk) store.GradeDecision {
	if len(chunks) == 0 {
		return store.GradeDecision{Sufficient: false, Rationale: "no chunks retrieved"}
	}

	reply, err := g.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.GradeSystem},
		{Role: llm.RoleUser, Content: prompt.GradeUser(query, chunks)},
	}, llm.WithStage(rag.StageGrade), llm.WithTemperature(0))
	if err != nil {
		g.logger.Warn("Grader", "Grading call failed, treating as insufficient", map[string]interface{}{"error": err.Error()})
		return store.GradeDecision{Sufficient: false, Rationale: "grader unavailable: " + err.Error()}
	}

	decision := parse(reply)
	g.logger.Info("Grader", "Graded retrieval", map[string]interface{}{
		"sufficient": decision.Sufficient,
		"confidence": decision.Confidence,
		"chunks":     len(chunks),
	})
	return decision
}

func parse(reply string) store.GradeDecision {
	if parsed, err := utils.DecodeJSON[gradeReply](reply); err == nil && parsed.Relevant != "" {
		switch strings.ToLower(strings.TrimSpace(parsed.Relevant)) {
		case "yes", "true":
			return store.GradeDecision{Sufficient: true, Confidence: clamp(parsed.Confidence, 1), Rationale: parsed.Reason}
		case "no", "false":
			return store.GradeDecision{Sufficient: false, Confidence: clamp(parsed.Confidence, 1), Rationale: parsed.Reason}
		}
	}

	m := leadingWord.FindStringSubmatch(utils.StripFences(reply))
	if m != nil {
		switch strings.ToLower(m[1]) {
		case "yes":
			return store.GradeDecision{Sufficient: true, Confidence: 0.5, Rationale: "bare yes"}
		case "no":
			return store.GradeDecision{Sufficient: false, Confidence: 0.5, Rationale: "bare no"}
		}
	}
	return store.GradeDecision{Sufficient: false, Rationale: "ambiguous grader output"}
}

// clamp keeps confidence in [0,1]; a missing value gets def.
func clamp(v *float64, def float64) float64 {
	switch {
	case v == nil:
		return def
	case *v < 0:
		return 0
	case *v > 1:
		return 1
	}
	return *v
}
