package verifier

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

func TestVerify(t *testing.T) {
	draft := store.DraftAnswer{
		Text:    "Karma yoga is selfless action [1]. It was founded in 1900.",
		Support: store.ChunkSupport([]store.Chunk{{Text: "Karma yoga is selfless action."}}),
	}

	tests := []struct {
		name        string
		reply       string
		err         error
		passed      bool
		unsupported []string
	}{
		{"pass", `{"verdict":"pass","unsupported":[]}`, nil, true, nil},
		{"fail with claims", `{"verdict":"fail","unsupported":["It was founded in 1900.", " "]}`, nil, false, []string{"It was founded in 1900."}},
		{"unparsable", "looks fine to me", nil, true, nil},
		{"gateway error", "", errors.New("timeout"), true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := llmtest.New(func(stage, _ string) (string, error) {
				assert.Equal(t, rag.StageVerify, stage)
				return tt.reply, tt.err
			})
			res := NewVerifier(p, logger.NewNopLogger()).Verify(context.Background(), draft)

			assert.Equal(t, tt.passed, res.Passed)
			assert.Equal(t, tt.unsupported, res.Unsupported)
		})
	}
}
