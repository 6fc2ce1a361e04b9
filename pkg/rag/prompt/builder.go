package prompt

import (
	"fmt"
	"strings"

	"query-responder-be/pkg/store"
	"query-responder-be/pkg/tokenizer"
)

// SynthesisBuilder assembles the grounded answer prompt. Support items and
// history share one token budget; support is filled first.
type SynthesisBuilder struct {
	query   string
	support []store.SupportItem
	history []store.Turn
	avoid   []string
	web     bool
	counter tokenizer.Counter
	budget  int
}

// NewSynthesisBuilder creates a builder. history must be ordered most recent first.
func NewSynthesisBuilder(query string, support []store.SupportItem, history []store.Turn) *SynthesisBuilder {
	web := len(support) > 0 && support[0].Web != nil
	return &SynthesisBuilder{
		query:   query,
		support: support,
		history: history,
		web:     web,
		counter: tokenizer.Heuristic{},
	}
}

func (b *SynthesisBuilder) WithAvoid(claims []string) *SynthesisBuilder {
	b.avoid = claims
	return b
}

func (b *SynthesisBuilder) WithBudget(counter tokenizer.Counter, budget int) *SynthesisBuilder {
	if counter != nil {
		b.counter = counter
	}
	b.budget = budget
	return b
}

// Build returns the system instruction, the user message and the support items
// that made it into the prompt. Items cut by the budget are not returned, so
// [n] in the prompt always points at included[n-1].
func (b *SynthesisBuilder) Build() (string, string, []store.SupportItem) {
	var prompt strings.Builder

	remaining := b.budget
	n := b.writeReferenceMaterial(&prompt, &remaining)
	b.writeHistory(&prompt, &remaining)
	b.writeAvoid(&prompt)
	b.writeUserQuery(&prompt)

	return b.systemPrompt(), prompt.String(), b.support[:n]
}

func (b *SynthesisBuilder) systemPrompt() string {
	if b.web {
		return WebSynthesisSystem
	}
	return RAGSystem
}

func (b *SynthesisBuilder) writeReferenceMaterial(prompt *strings.Builder, remaining *int) int {
	prompt.WriteString("<reference_material>\n")
	if len(b.support) == 0 {
		prompt.WriteString("(no reference material was found)\n")
	}
	included := 0
	for i, item := range b.support {
		entry := fmt.Sprintf("[%d] %s\n%s\n\n", i+1, item.Provenance(), item.Text())
		if b.budget > 0 {
			cost := b.counter.Count(entry)
			if cost > *remaining {
				if i == 0 {
					// always keep some of the best item
					entry = tokenizer.Fit(b.counter, entry, *remaining)
					prompt.WriteString(entry)
					*remaining = 0
					included = 1
				}
				break
			}
			*remaining -= cost
		}
		prompt.WriteString(entry)
		included++
	}
	prompt.WriteString("</reference_material>\n\n")
	return included
}

func (b *SynthesisBuilder) writeHistory(prompt *strings.Builder, remaining *int) {
	if len(b.history) == 0 {
		return
	}
	var lines []string
	for _, t := range b.history {
		line := fmt.Sprintf("User: %s\nAssistant: %s\n", t.Query, t.Answer)
		if b.budget > 0 {
			cost := b.counter.Count(line)
			if cost > *remaining {
				break
			}
			*remaining -= cost
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return
	}
	prompt.WriteString("<conversation_history most_recent_first=\"true\">\n")
	for _, l := range lines {
		prompt.WriteString(l)
	}
	prompt.WriteString("</conversation_history>\n\n")
}

func (b *SynthesisBuilder) writeAvoid(prompt *strings.Builder) {
	if len(b.avoid) == 0 {
		return
	}
	prompt.WriteString("<avoid>\n")
	prompt.WriteString("A previous draft made these statements that the reference material does not support. Do not repeat them:\n")
	for _, c := range b.avoid {
		prompt.WriteString("- ")
		prompt.WriteString(c)
		prompt.WriteString("\n")
	}
	prompt.WriteString("</avoid>\n\n")
}

func (b *SynthesisBuilder) writeUserQuery(prompt *strings.Builder) {
	prompt.WriteString("<user_question>\n")
	prompt.WriteString(b.query)
	prompt.WriteString("\n</user_question>\n\n")
	prompt.WriteString("Answer using only the reference material. Cite the items you use as [n].")
}
