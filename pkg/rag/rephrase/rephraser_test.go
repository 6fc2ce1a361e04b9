package rephrase

import (
	"context"
	"errors"
	"testing"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm/llmtest"
	"query-responder-be/pkg/rag"

	"github.com/stretchr/testify/assert"
)

func TestRephrase(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{"rewritten", "  Karma yoga means acting without attachment [1].  ", nil, "Karma yoga means acting without attachment [1]."},
		{"empty output keeps draft", "   ", nil, "draft"},
		{"error keeps draft", "", errors.New("503"), "draft"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := llmtest.New(func(string, string) (string, error) { return tt.reply, tt.err })
			got := NewRephraser(p, logger.NewNopLogger()).Rephrase(context.Background(), "q", "draft")
			assert.Equal(t, tt.want, got)
			assert.Equal(t, 1, p.CallCount(rag.StageRephrase))
		})
	}
}

func TestFromContent(t *testing.T) {
	p := llmtest.New(llmtest.ByStage(map[string]string{rag.StageExactMatch: "Direct answer."}, ""))
	r := NewRephraser(p, logger.NewNopLogger())

	assert.Equal(t, "Direct answer.", r.FromContent(context.Background(), "q", "raw content"))

	failing := NewRephraser(llmtest.New(func(string, string) (string, error) { return "", errors.New("x") }), logger.NewNopLogger())
	assert.Equal(t, "raw content", failing.FromContent(context.Background(), "q", "raw content"))
}
