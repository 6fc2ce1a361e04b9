package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/events"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/grader"
	"query-responder-be/pkg/rag/planner"
	"query-responder-be/pkg/rag/rephrase"
	"query-responder-be/pkg/rag/session"
	"query-responder-be/pkg/rag/state"
	"query-responder-be/pkg/rag/synthesis"
	"query-responder-be/pkg/rag/verifier"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/utils"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ConsentScopeSession = "session"
	ConsentScopeTurn    = "turn"
)

// Retriever is the vector index as seen by the pipeline
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]store.Chunk, error)
}

// WebSearcher is the live search provider as seen by the pipeline
type WebSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.WebResult, error)
}

type Config struct {
	TopK                int
	HighConfidenceScore float64
	ExactMatchScore     float64
	HistoryWindow       int
	WebResultCount      int
	ConsentScope        string
	MaxQueryLength      int
	RequestTimeout      time.Duration
}

func DefaultConfig() Config {
	return Config{
		TopK:                8,
		HighConfidenceScore: 0.85,
		ExactMatchScore:     0.92,
		HistoryWindow:       3,
		WebResultCount:      5,
		ConsentScope:        ConsentScopeSession,
		MaxQueryLength:      4000,
		RequestTimeout:      90 * time.Second,
	}
}

// Components groups the stages the orchestrator drives
type Components struct {
	Sessions    *session.Store
	Planner     *planner.Planner
	Retriever   Retriever
	Grader      *grader.Grader
	Searcher    WebSearcher
	Synthesizer *synthesis.Synthesizer
	Verifier    *verifier.Verifier
	Rephraser   *rephrase.Rephraser
	Publisher   events.Publisher // optional
}

// Result is the outcome of one handled query
type Result struct {
	Answer           store.FinalAnswer
	Query            string
	EffectiveQuery   string
	SessionID        string
	TurnID           string
	Directive        planner.Directive
	FeedbackEligible bool
	States           []state.State
}

// Orchestrator runs the per-query state machine
// Phase 1: Planning → Phase 2: Retrieval/Grading or Web Search → Phase 3: Synthesis, Verification, Rephrasing → Commit
type Orchestrator struct {
	c      Components
	cfg    Config
	logger logger.ILogger
	tracer trace.Tracer
}

func NewOrchestrator(c Components, cfg Config, log logger.ILogger) *Orchestrator {
	def := DefaultConfig()
	if cfg.TopK <= 0 {
		cfg.TopK = def.TopK
	}
	if cfg.HistoryWindow < 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.WebResultCount <= 0 {
		cfg.WebResultCount = def.WebResultCount
	}
	if cfg.ConsentScope != ConsentScopeTurn {
		cfg.ConsentScope = ConsentScopeSession
	}
	return &Orchestrator{
		c:      c,
		cfg:    cfg,
		logger: log,
		tracer: otel.Tracer("query-responder/executor"),
	}
}

// turn carries the working state of one query through the phases
type turn struct {
	session   *store.Session
	state     *state.Manager
	query     string
	effective string
	directive planner.Directive
}

// Handle answers one query for a session. Stage failures are absorbed into the
// answer; only invalid input, session store failures and cancellation return
// an error. Nothing is committed when ctx ends before the turn responds.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, query string) (*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query must not be empty", rag.ErrInvalidInput)
	}
	if o.cfg.MaxQueryLength > 0 && len([]rune(query)) > o.cfg.MaxQueryLength {
		return nil, fmt.Errorf("%w: query exceeds %d characters", rag.ErrInvalidInput, o.cfg.MaxQueryLength)
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("%w: session id must not be empty", rag.ErrInvalidInput)
	}

	if o.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.RequestTimeout)
		defer cancel()
	}

	ctx, span := o.tracer.Start(ctx, "rag.turn", trace.WithAttributes(attribute.String("session.id", sessionID)))
	defer span.End()
	start := time.Now()

	unlock, err := o.c.Sessions.Lock(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, context.DeadlineExceeded) {
			return timedOut(sessionID, query, nil), nil
		}
		return nil, err
	}
	defer unlock()

	sess, err := o.c.Sessions.Get(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, context.DeadlineExceeded) {
			return timedOut(sessionID, query, nil), nil
		}
		return nil, err
	}

	t := &turn{
		session: sess,
		state:   state.NewManager(sessionID, o.logger),
		query:   query,
	}

	o.logger.Info("Orchestrator", "Handling query", map[string]interface{}{
		"session_id": sessionID,
		"query":      utils.Truncate(query, 80),
		"turns":      len(sess.Turns),
	})

	// ═══════════════════════════════════════════════════════════════
	// PHASE 1: PLANNING
	// ═══════════════════════════════════════════════════════════════
	o.to(t, state.Planning)
	decision := o.c.Planner.Plan(ctx, query, sess)
	t.effective = decision.EffectiveQuery
	t.directive = decision.Directive

	// ═══════════════════════════════════════════════════════════════
	// PHASE 2 + 3: ROUTE, GROUND, GENERATE
	// ═══════════════════════════════════════════════════════════════
	var answer store.FinalAnswer
	switch decision.Directive {
	case planner.AskClarification:
		o.to(t, state.Clarifying)
		answer = store.FinalAnswer{Text: decision.ClarificationQuestion, Source: rag.SourceClarification}
	case planner.DeclineWeb:
		o.to(t, state.Declined)
		answer = store.FinalAnswer{Text: MsgDeclined, Source: rag.SourceAgentResponse}
	case planner.AnswerFromWeb:
		o.to(t, state.WebSearching)
		answer = o.answerFromWeb(ctx, t, nil)
	default:
		answer = o.answerFromDocs(ctx, t, decision.Merged)
	}

	// Nothing is committed once ctx ends. A cancelled caller gets the error back;
	// a timed-out turn still gets a System Error answer.
	if err := ctx.Err(); err != nil {
		o.logger.Warn("Orchestrator", "Turn abandoned before commit", map[string]interface{}{
			"session_id": sessionID,
			"state":      string(t.state.Current()),
			"error":      err.Error(),
		})
		span.RecordError(err)
		span.SetStatus(codes.Error, "abandoned")
		if errors.Is(err, context.DeadlineExceeded) {
			return timedOut(sessionID, query, t), nil
		}
		return nil, err
	}

	// ═══════════════════════════════════════════════════════════════
	// COMMIT
	// ═══════════════════════════════════════════════════════════════
	o.to(t, state.Responded)

	if answer.Sources == nil {
		answer.Sources = []store.Citation{}
	}
	if t.directive == planner.AnswerFromWeb && o.cfg.ConsentScope == ConsentScopeTurn {
		sess.WebConsent = false
	}

	record := store.Turn{
		ID:             uuid.NewString(),
		Query:          query,
		EffectiveQuery: t.effective,
		Answer:         answer.Text,
		Source:         answer.Source,
		Sources:        answer.Sources,
		Directive:      string(t.directive),
		CreatedAt:      time.Now(),
	}
	sess.Turns = append(sess.Turns, record)

	if err := o.c.Sessions.Commit(ctx, sess); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	duration := time.Since(start)
	span.SetAttributes(
		attribute.String("rag.directive", string(t.directive)),
		attribute.String("rag.source", answer.Source),
		attribute.Int("rag.citations", len(answer.Sources)),
	)
	o.logger.Info("Orchestrator", "Turn committed", map[string]interface{}{
		"session_id":  sessionID,
		"turn_id":     record.ID,
		"directive":   string(t.directive),
		"source":      answer.Source,
		"citations":   len(answer.Sources),
		"duration_ms": duration.Milliseconds(),
	})
	o.publish(ctx, events.TurnCompleted{
		SessionID:  sessionID,
		TurnID:     record.ID,
		Query:      query,
		Source:     answer.Source,
		Directive:  string(t.directive),
		Citations:  len(answer.Sources),
		DurationMs: duration.Milliseconds(),
		OccurredAt: time.Now(),
	})

	return &Result{
		Answer:           answer,
		Query:            query,
		EffectiveQuery:   t.effective,
		SessionID:        sessionID,
		TurnID:           record.ID,
		Directive:        t.directive,
		FeedbackEligible: rag.IsFinal(answer.Source),
		States:           t.state.Path(),
	}, nil
}

// timedOut is the reply for a turn that ran past its deadline. It is never
// committed, so it carries no turn id and is not feedback eligible.
func timedOut(sessionID, query string, t *turn) *Result {
	res := &Result{
		Answer:    store.FinalAnswer{Text: MsgSystemError, Source: rag.SourceSystemError, Sources: []store.Citation{}},
		Query:     query,
		SessionID: sessionID,
	}
	if t != nil {
		res.EffectiveQuery = t.effective
		res.Directive = t.directive
		res.States = t.state.Path()
	}
	return res
}

func (o *Orchestrator) answerFromDocs(ctx context.Context, t *turn, merged bool) store.FinalAnswer {
	o.to(t, state.Retrieving)

	chunks, err := o.c.Retriever.Retrieve(ctx, t.effective, o.cfg.TopK)
	indexDown := err != nil
	if indexDown {
		o.logger.Warn("Orchestrator", "Retrieval failed, continuing without local context", map[string]interface{}{
			"session_id": t.session.ID,
			"error":      err.Error(),
		})
		chunks = nil
	}

	if len(chunks) > 0 {
		top := chunks[0]
		if o.cfg.ExactMatchScore > 0 && top.Score >= o.cfg.ExactMatchScore {
			o.to(t, state.Rephrasing)
			text := o.c.Rephraser.FromContent(ctx, t.effective, top.Text)
			return store.FinalAnswer{
				Text:    text,
				Source:  rag.SourceExactMatch,
				Sources: store.Citations(store.ChunkSupport(chunks[:1])),
			}
		}
		if o.cfg.HighConfidenceScore > 0 && top.Score >= o.cfg.HighConfidenceScore {
			o.to(t, state.Synthesizing)
			return o.synthesizeAndVerify(ctx, t, store.ChunkSupport(chunks), rag.SourceHighConfidence)
		}
	}

	grade := store.GradeDecision{Sufficient: false, Rationale: "index unavailable"}
	if !indexDown {
		o.to(t, state.Grading)
		grade = o.c.Grader.Grade(ctx, t.effective, chunks)
	}

	next := o.c.Planner.AfterGrading(t.session, t.effective, grade)
	t.directive = next.Directive

	switch next.Directive {
	case planner.AnswerFromDocs:
		label := rag.SourceInternalDocs
		if merged {
			label = rag.SourceAgentInternalDocs
		}
		o.to(t, state.Synthesizing)
		return o.synthesizeAndVerify(ctx, t, store.ChunkSupport(chunks), label)
	case planner.AnswerFromWeb:
		o.to(t, state.WebSearching)
		return o.answerFromWeb(ctx, t, chunks)
	default:
		o.to(t, state.AwaitingConsent)
		text := MsgConsentRequest
		if indexDown {
			text = MsgConsentIndexDown
		}
		return store.FinalAnswer{Text: text, Source: rag.SourceConsentRequest}
	}
}

// answerFromWeb searches the web; when that fails it falls back to local chunks if any.
func (o *Orchestrator) answerFromWeb(ctx context.Context, t *turn, local []store.Chunk) store.FinalAnswer {
	results, err := o.c.Searcher.Search(ctx, t.effective, o.cfg.WebResultCount)
	if err != nil || len(results) == 0 {
		fields := map[string]interface{}{"session_id": t.session.ID, "local_chunks": len(local)}
		if err != nil {
			fields["error"] = err.Error()
		}
		o.logger.Warn("Orchestrator", "Web search produced nothing usable", fields)

		if len(local) > 0 {
			o.to(t, state.Synthesizing)
			return o.synthesizeAndVerify(ctx, t, store.ChunkSupport(local), rag.SourceInternalDegraded)
		}
		o.to(t, state.Responded)
		return store.FinalAnswer{Text: MsgWebUnavailable, Source: rag.SourceWebUnavailable}
	}

	o.to(t, state.Synthesizing)
	return o.synthesizeAndVerify(ctx, t, store.WebSupport(results), rag.SourceWebSearch)
}

// synthesizeAndVerify drafts, verifies with at most one retry, then rephrases.
func (o *Orchestrator) synthesizeAndVerify(ctx context.Context, t *turn, support []store.SupportItem, label string) store.FinalAnswer {
	req := synthesis.Request{
		Query:   t.effective,
		Support: support,
		History: t.session.RecentTurns(o.cfg.HistoryWindow),
	}

	draft, err := o.c.Synthesizer.Synthesize(ctx, req)
	if err != nil {
		o.to(t, state.Responded)
		return store.FinalAnswer{Text: MsgSystemError, Source: rag.SourceSystemError}
	}

	o.to(t, state.Verifying)
	verdict := o.c.Verifier.Verify(ctx, draft)
	if !verdict.Passed && len(verdict.Unsupported) > 0 {
		o.to(t, state.RetrySynthesis)
		req.Avoid = verdict.Unsupported

		retry, err := o.c.Synthesizer.Synthesize(ctx, req)
		if err != nil {
			o.logger.Warn("Orchestrator", "Retry synthesis failed, keeping first draft", map[string]interface{}{"error": err.Error()})
			label = rag.Unverified(label)
		} else {
			draft = retry
			o.to(t, state.Verifying)
			if second := o.c.Verifier.Verify(ctx, draft); !second.Passed && len(second.Unsupported) > 0 {
				label = rag.Unverified(label)
			}
		}
	}

	o.to(t, state.Rephrasing)
	text := o.c.Rephraser.Rephrase(ctx, t.effective, draft.Text)

	return store.FinalAnswer{
		Text:    text,
		Source:  label,
		Sources: store.Citations(draft.Support),
	}
}

func (o *Orchestrator) to(t *turn, next state.State) {
	if t.state.Current() == next {
		return
	}
	// an illegal transition is a wiring bug; it is logged by the manager
	_ = t.state.TransitionTo(next)
}

func (o *Orchestrator) publish(ctx context.Context, e events.Event) {
	if o.c.Publisher == nil {
		return
	}
	if err := o.c.Publisher.Publish(ctx, e); err != nil {
		o.logger.Warn("Orchestrator", "Failed to publish event", map[string]interface{}{
			"type":  e.EventType(),
			"error": err.Error(),
		})
	}
}
