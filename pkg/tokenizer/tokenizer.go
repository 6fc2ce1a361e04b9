package tokenizer

import (
	"github.com/pkoukk/tiktoken-go"
)

// Counter measures prompt text in model tokens.
type Counter interface {
	Count(text string) int
}

type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// NewTiktoken resolves name as a model first, then as an encoding name.
func NewTiktoken(name string) (*Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			return nil, err
		}
	}
	return &Tiktoken{enc: enc}, nil
}

func (t *Tiktoken) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Heuristic approximates four characters per token.
type Heuristic struct{}

func (Heuristic) Count(text string) int {
	n := len([]rune(text))
	return (n + 3) / 4
}

// New returns a tiktoken counter for model, or the heuristic when the
// encoding cannot be loaded (offline hosts cannot fetch the BPE ranks).
func New(model string) Counter {
	if model == "" {
		return Heuristic{}
	}
	t, err := NewTiktoken(model)
	if err != nil {
		return Heuristic{}
	}
	return t
}

// Fit trims text from the end so it fits in budget tokens.
func Fit(c Counter, text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	if c.Count(text) <= budget {
		return text
	}
	runes := []rune(text)
	lo, hi := 0, len(runes)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if c.Count(string(runes[:mid])) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return string(runes[:lo])
}
