package planner

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/prompt"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/utils"
)

type Directive string

const (
	AnswerFromDocs    Directive = "ANSWER_FROM_DOCS"
	AskClarification  Directive = "ASK_CLARIFICATION"
	RequestWebConsent Directive = "REQUEST_WEB_CONSENT"
	AnswerFromWeb     Directive = "ANSWER_FROM_WEB"
	DeclineWeb        Directive = "DECLINE_WEB"
)

// Decision is the planner's verdict for one turn
type Decision struct {
	Directive             Directive
	EffectiveQuery        string // query used for retrieval and synthesis
	ClarificationQuestion string
	Merged                bool // EffectiveQuery came from a clarification round
}

const defaultClarification = "Could you tell me a bit more about what you are referring to?"

var (
	affirmative = map[string]bool{
		"yes": true, "y": true, "yeah": true, "yep": true, "sure": true,
		"ok": true, "okay": true, "please": true, "go ahead": true, "do it": true,
		"yes please": true,
	}
	negative = map[string]bool{
		"no": true, "n": true, "nope": true, "no thanks": true, "no thank you": true,
		"don't": true, "dont": true, "do not": true,
	}
	vaguePhrases = []string{
		"your company", "our company", "your product", "our product", "their services",
		"that system", "this system", "the report", "that report", "last quarter",
		"in our area", "in my area",
	}
)

// Planner chooses the next step for a query. Plan and AfterGrading update the
// session flags on the working copy they receive; the orchestrator commits them.
type Planner struct {
	llm    llm.LLMProvider
	logger logger.ILogger
}

func NewPlanner(provider llm.LLMProvider, log logger.ILogger) *Planner {
	return &Planner{llm: provider, logger: log}
}

func (p *Planner) Plan(ctx context.Context, query string, sess *store.Session) Decision {
	// 1. Outstanding web consent question
	if sess.AwaitingConsent {
		switch normalizeReply(query) {
		case replyYes:
			pending := sess.PendingWebQuery
			sess.WebConsent = true
			sess.AwaitingConsent = false
			sess.PendingWebQuery = ""
			if pending == "" {
				pending = query
			}
			p.logger.Info("Planner", "Web consent granted", map[string]interface{}{"session_id": sess.ID})
			return Decision{Directive: AnswerFromWeb, EffectiveQuery: pending}
		case replyNo:
			sess.AwaitingConsent = false
			sess.PendingWebQuery = ""
			sess.WebConsent = false
			p.logger.Info("Planner", "Web consent declined", map[string]interface{}{"session_id": sess.ID})
			return Decision{Directive: DeclineWeb, EffectiveQuery: query}
		default:
			// Not an answer to the question: treat it as a new query
			sess.AwaitingConsent = false
			sess.PendingWebQuery = ""
		}
	}

	// 2. Follow-up to a clarification question
	if sess.PendingClarification {
		original := sess.ClarificationQuery
		sess.PendingClarification = false
		sess.ClarificationQuery = ""
		merged := p.merge(ctx, original, query)
		p.logger.Info("Planner", "Merged clarification", map[string]interface{}{
			"original": utils.Truncate(original, 80),
			"merged":   utils.Truncate(merged, 80),
		})
		return Decision{Directive: AnswerFromDocs, EffectiveQuery: merged, Merged: true}
	}

	// 3. Fresh query: check specificity
	ambiguous, question := p.classify(ctx, query, sess)
	if !ambiguous {
		return Decision{Directive: AnswerFromDocs, EffectiveQuery: query}
	}
	if hasUsableContext(sess) {
		p.logger.Debug("Planner", "Ambiguous query resolved by history", map[string]interface{}{"session_id": sess.ID})
		return Decision{Directive: AnswerFromDocs, EffectiveQuery: query}
	}

	sess.PendingClarification = true
	sess.ClarificationQuery = query
	return Decision{Directive: AskClarification, EffectiveQuery: query, ClarificationQuestion: question}
}

// AfterGrading turns a retrieval grade into the next directive.
func (p *Planner) AfterGrading(sess *store.Session, query string, grade store.GradeDecision) Decision {
	if grade.Sufficient {
		return Decision{Directive: AnswerFromDocs, EffectiveQuery: query}
	}
	if sess.WebConsent {
		return Decision{Directive: AnswerFromWeb, EffectiveQuery: query}
	}
	sess.AwaitingConsent = true
	sess.PendingWebQuery = query
	return Decision{Directive: RequestWebConsent, EffectiveQuery: query}
}

func (p *Planner) classify(ctx context.Context, query string, sess *store.Session) (bool, string) {
	reply, err := p.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.ClarifySystem},
		{Role: llm.RoleUser, Content: prompt.ClarifyUser(query)},
	}, llm.WithStage(rag.StageClarify), llm.WithTemperature(0))
	if err != nil {
		p.logger.Warn("Planner", "Clarity check failed, using heuristic", map[string]interface{}{"error": err.Error()})
		if isVague(query, sess) {
			return true, defaultClarification
		}
		return false, ""
	}

	reply = strings.Trim(strings.TrimSpace(utils.StripFences(reply)), `"'`)
	lower := strings.ToLower(reply)
	if lower == "" || strings.HasPrefix(lower, "clear") {
		return false, ""
	}
	// Anything that is not a question means the model ignored the format
	if !strings.Contains(reply, "?") {
		return false, ""
	}
	return true, reply
}

func (p *Planner) merge(ctx context.Context, original, detail string) string {
	fallback := fmt.Sprintf("%s (%s)", original, strings.TrimSpace(detail))
	if original == "" {
		return strings.TrimSpace(detail)
	}

	reply, err := p.llm.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.MergeSystem},
		{Role: llm.RoleUser, Content: prompt.MergeUser(original, detail)},
	}, llm.WithStage(rag.StageMerge), llm.WithTemperature(0))
	if err != nil {
		p.logger.Warn("Planner", "Merge failed, concatenating", map[string]interface{}{"error": err.Error()})
		return fallback
	}

	reply = strings.TrimSpace(reply)
	reply = strings.TrimPrefix(reply, "Rewritten Question:")
	reply = strings.Trim(strings.TrimSpace(reply), `"'`)
	if reply == "" {
		return fallback
	}
	return reply
}

func isVague(query string, sess *store.Session) bool {
	lower := strings.ToLower(query)
	for _, phrase := range vaguePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return len(strings.Fields(query)) == 1 && len(sess.Turns) == 0
}

func hasUsableContext(sess *store.Session) bool {
	for _, t := range sess.Turns {
		if rag.IsFinal(t.Source) {
			return true
		}
	}
	return false
}

type consentReply int

const (
	replyOther consentReply = iota
	replyYes
	replyNo
)

func normalizeReply(text string) consentReply {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\u2019' {
			return '\''
		}
		if unicode.IsLetter(r) || r == '\'' {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	switch {
	case affirmative[cleaned]:
		return replyYes
	case negative[cleaned]:
		return replyNo
	}
	return replyOther
}
