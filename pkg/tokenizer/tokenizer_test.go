package tokenizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeuristicCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one token", "abc", 1},
		{"exact", "abcdefgh", 2},
		{"rounds up", "abcdefghi", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Heuristic{}.Count(tt.text))
		})
	}
}

func TestFit(t *testing.T) {
	c := Heuristic{}
	text := strings.Repeat("a", 100)

	assert.Equal(t, text, Fit(c, text, 50))
	fitted := Fit(c, text, 10)
	assert.Equal(t, 40, len(fitted))
	assert.Equal(t, "", Fit(c, text, 0))
}

func TestNewWithoutModelUsesHeuristic(t *testing.T) {
	_, ok := New("").(Heuristic)
	assert.True(t, ok)
}
