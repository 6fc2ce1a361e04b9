package synthesis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm/llmtest"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/tokenizer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_OneCallWithSupportAndWindow(t *testing.T) {
	p := llmtest.New(llmtest.ByStage(map[string]string{rag.StageSynthesize: "Karma yoga is selfless action [1]."}, ""))
	s := NewSynthesizer(p, tokenizer.Heuristic{}, Config{HistoryWindow: 1, TokenBudget: 3000}, logger.NewNopLogger())

	draft, err := s.Synthesize(context.Background(), Request{
		Query:   "What is karma yoga?",
		Support: store.ChunkSupport([]store.Chunk{{Filename: "gita.pdf", Text: "Karma yoga is selfless action."}}),
		History: []store.Turn{{Query: "recent q", Answer: "recent a"}, {Query: "old q", Answer: "old a"}},
		Avoid:   []string{"invented claim"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Karma yoga is selfless action [1].", draft.Text)
	assert.False(t, draft.Ungrounded)
	require.Equal(t, 1, p.CallCount(rag.StageSynthesize))

	prompt := p.Calls()[0].Prompt
	assert.Contains(t, prompt, "[1] gita.pdf")
	assert.Contains(t, prompt, "recent q")
	assert.NotContains(t, prompt, "old q")
	assert.Contains(t, prompt, "invented claim")
}

func TestSynthesize_CitesOnlySupportThatFitsTheBudget(t *testing.T) {
	p := llmtest.New(llmtest.ByStage(map[string]string{rag.StageSynthesize: "Answer [1]."}, ""))
	s := NewSynthesizer(p, tokenizer.Heuristic{}, Config{HistoryWindow: 3, TokenBudget: 3000}, logger.NewNopLogger())

	long := strings.Repeat("karma ", 1000)
	draft, err := s.Synthesize(context.Background(), Request{
		Query: "What is karma yoga?",
		Support: store.ChunkSupport([]store.Chunk{
			{Filename: "a.pdf", Text: long},
			{Filename: "b.pdf", Text: long},
			{Filename: "c.pdf", Text: long},
		}),
	})
	require.NoError(t, err)

	prompt := p.Calls()[0].Prompt
	require.NotEmpty(t, draft.Support)
	assert.Less(t, len(draft.Support), 3)
	for i, c := range store.Citations(draft.Support) {
		assert.Contains(t, prompt, fmt.Sprintf("[%d] %s", i+1, c.Filename))
	}
	assert.NotContains(t, prompt, "c.pdf")
}

func TestSynthesize_EmptySupportIsUngrounded(t *testing.T) {
	p := llmtest.New(llmtest.ByStage(nil, "I don't have enough information."))
	s := NewSynthesizer(p, nil, DefaultConfig(), logger.NewNopLogger())

	draft, err := s.Synthesize(context.Background(), Request{Query: "q"})
	require.NoError(t, err)
	assert.True(t, draft.Ungrounded)
	assert.Equal(t, 1, p.CallCount(""))
}

func TestSynthesize_GatewayError(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		err   error
	}{
		{"provider error", "", errors.New("boom")},
		{"empty reply", "  ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := llmtest.New(func(string, string) (string, error) { return tt.reply, tt.err })
			_, err := NewSynthesizer(p, nil, DefaultConfig(), logger.NewNopLogger()).
				Synthesize(context.Background(), Request{Query: "q"})
			assert.True(t, errors.Is(err, rag.ErrGeneration))
		})
	}
}
