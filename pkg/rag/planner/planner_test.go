package planner

import (
	"context"
	"errors"
	"testing"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/llm/llmtest"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPlanner(replies map[string]string) (*Planner, *llmtest.ScriptedProvider) {
	p := llmtest.New(llmtest.ByStage(replies, "clear"))
	return NewPlanner(p, logger.NewNopLogger()), p
}

func TestPlan_ClearQueryAnswersFromDocs(t *testing.T) {
	pl, _ := newPlanner(nil)
	sess := store.NewSession("s")

	d := pl.Plan(context.Background(), "What is karma yoga?", sess)
	assert.Equal(t, AnswerFromDocs, d.Directive)
	assert.Equal(t, "What is karma yoga?", d.EffectiveQuery)
	assert.False(t, sess.PendingClarification)
}

func TestPlan_AmbiguousAsksClarification(t *testing.T) {
	pl, _ := newPlanner(map[string]string{rag.StageClarify: "Which company are you referring to?"})
	sess := store.NewSession("s")

	d := pl.Plan(context.Background(), "What are your sustainability initiatives?", sess)
	assert.Equal(t, AskClarification, d.Directive)
	assert.Equal(t, "Which company are you referring to?", d.ClarificationQuestion)
	assert.True(t, sess.PendingClarification)
	assert.Equal(t, "What are your sustainability initiatives?", sess.ClarificationQuery)
}

func TestPlan_AmbiguousWithHistoryAnswers(t *testing.T) {
	pl, _ := newPlanner(map[string]string{rag.StageClarify: "Which report?"})
	sess := store.NewSession("s")
	sess.Turns = append(sess.Turns, store.Turn{Query: "Summarise the Q3 report", Source: rag.SourceInternalDocs})

	d := pl.Plan(context.Background(), "What does the report say about revenue?", sess)
	assert.Equal(t, AnswerFromDocs, d.Directive)
	assert.False(t, sess.PendingClarification)
}

func TestPlan_NonQuestionReplyIsClear(t *testing.T) {
	pl, _ := newPlanner(map[string]string{rag.StageClarify: "Karma yoga is the path of action."})
	d := pl.Plan(context.Background(), "What is karma yoga?", store.NewSession("s"))
	assert.Equal(t, AnswerFromDocs, d.Directive)
}

func TestPlan_HeuristicFallback(t *testing.T) {
	failing := llmtest.New(func(string, string) (string, error) { return "", errors.New("down") })
	pl := NewPlanner(failing, logger.NewNopLogger())

	tests := []struct {
		query string
		want  Directive
	}{
		{"What did our product ship last quarter?", AskClarification},
		{"revenue", AskClarification},
		{"What is karma yoga?", AnswerFromDocs},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			d := pl.Plan(context.Background(), tt.query, store.NewSession("s"))
			assert.Equal(t, tt.want, d.Directive)
			if tt.want == AskClarification {
				assert.NotEmpty(t, d.ClarificationQuestion)
			}
		})
	}
}

func TestPlan_ClarificationFollowUpMerges(t *testing.T) {
	pl, p := newPlanner(map[string]string{rag.StageMerge: "Rewritten Question: What are InnovateSoft Solutions' sustainability initiatives?"})
	sess := store.NewSession("s")
	sess.PendingClarification = true
	sess.ClarificationQuery = "What are your sustainability initiatives?"

	d := pl.Plan(context.Background(), "InnovateSoft Solutions", sess)
	assert.Equal(t, AnswerFromDocs, d.Directive)
	assert.True(t, d.Merged)
	assert.Equal(t, "What are InnovateSoft Solutions' sustainability initiatives?", d.EffectiveQuery)
	assert.False(t, sess.PendingClarification)
	assert.Empty(t, sess.ClarificationQuery)
	assert.Equal(t, 0, p.CallCount(rag.StageClarify))
}

func TestPlan_MergeFallback(t *testing.T) {
	failing := llmtest.New(func(string, string) (string, error) { return "", errors.New("down") })
	pl := NewPlanner(failing, logger.NewNopLogger())
	sess := store.NewSession("s")
	sess.PendingClarification = true
	sess.ClarificationQuery = "What is the revenue?"

	d := pl.Plan(context.Background(), "for 2023", sess)
	assert.Equal(t, "What is the revenue? (for 2023)", d.EffectiveQuery)
}

func TestPlan_ConsentReplies(t *testing.T) {
	tests := []struct {
		reply       string
		want        Directive
		wantConsent bool
	}{
		{"yes", AnswerFromWeb, true},
		{"Yes please!", AnswerFromWeb, true},
		{"Go ahead.", AnswerFromWeb, true},
		{"OK", AnswerFromWeb, true},
		{"no", DeclineWeb, false},
		{"No, thanks", DeclineWeb, false},
		{"Don’t", DeclineWeb, false},
		{"What is dharma?", AnswerFromDocs, false},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			pl, _ := newPlanner(nil)
			sess := store.NewSession("s")
			sess.AwaitingConsent = true
			sess.PendingWebQuery = "latest news on karma yoga"

			d := pl.Plan(context.Background(), tt.reply, sess)
			require.Equal(t, tt.want, d.Directive)
			assert.Equal(t, tt.wantConsent, sess.WebConsent)
			assert.False(t, sess.AwaitingConsent)
			assert.Empty(t, sess.PendingWebQuery)
			if tt.want == AnswerFromWeb {
				assert.Equal(t, "latest news on karma yoga", d.EffectiveQuery)
			}
		})
	}
}

func TestAfterGrading(t *testing.T) {
	pl, _ := newPlanner(nil)

	sess := store.NewSession("s")
	d := pl.AfterGrading(sess, "q", store.GradeDecision{Sufficient: true})
	assert.Equal(t, AnswerFromDocs, d.Directive)

	d = pl.AfterGrading(sess, "q", store.GradeDecision{Sufficient: false})
	assert.Equal(t, RequestWebConsent, d.Directive)
	assert.True(t, sess.AwaitingConsent)
	assert.Equal(t, "q", sess.PendingWebQuery)

	consented := store.NewSession("s2")
	consented.WebConsent = true
	d = pl.AfterGrading(consented, "q", store.GradeDecision{Sufficient: false})
	assert.Equal(t, AnswerFromWeb, d.Directive)
	assert.False(t, consented.AwaitingConsent)
}
