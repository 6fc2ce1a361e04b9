package grader

import (
	"context"
	"errors"
	"testing"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm/llmtest"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

var chunks = []store.Chunk{{ID: "c1", Text: "Karma yoga is the yoga of action.", Score: 0.7}}

func TestGrade_EmptyChunksMakesNoCall(t *testing.T) {
	p := llmtest.New(llmtest.ByStage(nil, "yes"))
	g := NewGrader(p, logger.NewNopLogger())

	d := g.Grade(context.Background(), "q", nil)
	assert.False(t, d.Sufficient)
	assert.Equal(t, 0, p.CallCount(""))
}

func TestGrade_ParsesReplies(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		sufficient bool
		confidence float64
	}{
		{"json yes", `{"relevant":"yes","confidence":0.9,"reason":"defines it"}`, true, 0.9},
		{"json no", "```json\n{\"relevant\":\"no\",\"confidence\":0.8}\n```", false, 0.8},
		{"explicit zero confidence", `{"relevant":"yes","confidence":0}`, true, 0},
		{"missing confidence", `{"relevant":"yes"}`, true, 1},
		{"confidence above range", `{"relevant":"no","confidence":7}`, false, 1},
		{"bare yes", "Yes.", true, 0.5},
		{"bare no", "no, it talks about something else", false, 0.5},
		{"ambiguous", "maybe", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := llmtest.New(llmtest.ByStage(map[string]string{rag.StageGrade: tt.reply}, ""))
			d := NewGrader(p, logger.NewNopLogger()).Grade(context.Background(), "What is karma yoga?", chunks)

			assert.Equal(t, tt.sufficient, d.Sufficient)
			assert.InDelta(t, tt.confidence, d.Confidence, 1e-9)
			assert.Equal(t, 1, p.CallCount(rag.StageGrade))
		})
	}
}

func TestGrade_GatewayErrorIsInsufficient(t *testing.T) {
	p := llmtest.New(func(string, string) (string, error) { return "", errors.New("boom") })
	d := NewGrader(p, logger.NewNopLogger()).Grade(context.Background(), "q", chunks)

	assert.False(t, d.Sufficient)
	assert.Contains(t, d.Rationale, "boom")
}
