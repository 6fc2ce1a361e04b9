// Package llmtest provides a scripted LLMProvider for tests and the simulation CLI.
package llmtest

import (
	"context"
	"strings"
	"sync"

	"query-responder-be/pkg/llm"
)

// Call is one recorded invocation.
type Call struct {
	Stage  string
	Prompt string
}

// Responder decides the reply for a call.
type Responder func(stage, prompt string) (string, error)

// ScriptedProvider answers through a Responder and records every call.
type ScriptedProvider struct {
	mu        sync.Mutex
	responder Responder
	calls     []Call
}

var _ llm.LLMProvider = &ScriptedProvider{}

func New(r Responder) *ScriptedProvider {
	return &ScriptedProvider{responder: r}
}

// ByStage builds a Responder from a fixed reply per stage. Stages without an
// entry reply with fallback.
func ByStage(replies map[string]string, fallback string) Responder {
	return func(stage, _ string) (string, error) {
		if r, ok := replies[stage]; ok {
			return r, nil
		}
		return fallback, nil
	}
}

func (p *ScriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	opts := llm.ApplyOptions(llm.Options{}, options...)

	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	prompt := sb.String()

	p.mu.Lock()
	p.calls = append(p.calls, Call{Stage: opts.Stage, Prompt: prompt})
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.responder(opts.Stage, prompt)
}

func (p *ScriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, options...)
}

// Calls returns a copy of the recorded calls.
func (p *ScriptedProvider) Calls() []Call {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Call, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns the number of calls, optionally filtered to one stage.
func (p *ScriptedProvider) CallCount(stage string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stage == "" {
		return len(p.calls)
	}
	n := 0
	for _, c := range p.calls {
		if c.Stage == stage {
			n++
		}
	}
	return n
}

// Reset drops recorded calls.
func (p *ScriptedProvider) Reset() {
	p.mu.Lock()
	p.calls = nil
	p.mu.Unlock()
}
