package prompt

import (
	"strings"
	"testing"

	"query-responder-be/pkg/store"
	"query-responder-be/pkg/tokenizer"

	"github.com/stretchr/testify/assert"
)

func TestSynthesisBuilder_NumbersSupportAndHistory(t *testing.T) {
	support := store.ChunkSupport([]store.Chunk{
		{Filename: "gita.pdf", ChunkIndex: 2, Text: "Karma yoga is the path of selfless action."},
	})
	history := []store.Turn{{Query: "newest q", Answer: "newest a"}, {Query: "older q", Answer: "older a"}}

	system, user, _ := NewSynthesisBuilder("What is karma yoga?", support, history).
		WithAvoid([]string{"Karma yoga was invented in 1900."}).
		Build()

	assert.Equal(t, RAGSystem, system)
	assert.Contains(t, user, "[1] gita.pdf (chunk 2)")
	assert.Contains(t, user, "Karma yoga was invented in 1900.")
	assert.Less(t, strings.Index(user, "newest q"), strings.Index(user, "older q"))
	assert.Contains(t, user, "What is karma yoga?")
}

func TestSynthesisBuilder_WebUsesWebSystem(t *testing.T) {
	support := store.WebSupport([]store.WebResult{{URL: "https://a.test", Title: "A", Snippet: "s"}})
	system, user, _ := NewSynthesisBuilder("q", support, nil).Build()

	assert.Equal(t, WebSynthesisSystem, system)
	assert.Contains(t, user, "[1] A - https://a.test")
}

func TestSynthesisBuilder_RespectsBudget(t *testing.T) {
	long := strings.Repeat("x", 400)
	support := store.ChunkSupport([]store.Chunk{
		{Filename: "a", Text: long},
		{Filename: "b", Text: long},
	})
	history := []store.Turn{{Query: "q", Answer: long}}

	_, user, included := NewSynthesisBuilder("q", support, history).
		WithBudget(tokenizer.Heuristic{}, 120).
		Build()

	assert.Contains(t, user, "[1] a")
	assert.NotContains(t, user, "[2] b")
	assert.NotContains(t, user, "<conversation_history")
	assert.Len(t, included, 1)
	assert.Equal(t, "a", included[0].Chunk.Filename)
}

func TestSynthesisBuilder_KeepsEveryItemWithinBudget(t *testing.T) {
	support := store.ChunkSupport([]store.Chunk{
		{Filename: "a", Text: "short"},
		{Filename: "b", Text: "short"},
	})

	_, user, included := NewSynthesisBuilder("q", support, nil).
		WithBudget(tokenizer.Heuristic{}, 1000).
		Build()

	assert.Contains(t, user, "[2] b")
	assert.Len(t, included, 2)
}

func TestSynthesisBuilder_EmptySupport(t *testing.T) {
	_, user, included := NewSynthesisBuilder("q", nil, nil).Build()
	assert.Contains(t, user, "no reference material")
	assert.Empty(t, included)
}
