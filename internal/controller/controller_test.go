package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"query-responder-be/internal/dto"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/pkg/serverutils"
	"query-responder-be/internal/repository/memory"
	"query-responder-be/internal/service"
	internalWS "query-responder-be/internal/websocket"
	"query-responder-be/pkg/llm/llmtest"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/rag/executor"
	"query-responder-be/pkg/rag/feedback"
	"query-responder-be/pkg/rag/grader"
	"query-responder-be/pkg/rag/planner"
	"query-responder-be/pkg/rag/rephrase"
	"query-responder-be/pkg/rag/session"
	"query-responder-be/pkg/rag/synthesis"
	"query-responder-be/pkg/rag/verifier"
	"query-responder-be/pkg/store"
	"query-responder-be/pkg/tokenizer"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticRetriever struct{ chunks []store.Chunk }

func (r staticRetriever) Retrieve(ctx context.Context, query string, k int) ([]store.Chunk, error) {
	return r.chunks, nil
}

type noWeb struct{}

func (noWeb) Search(ctx context.Context, query string, limit int) ([]store.WebResult, error) {
	return nil, rag.ErrSearchProvider
}

func newTestApp(t *testing.T) (*fiber.App, *session.Store) {
	t.Helper()
	log := logger.NewNopLogger()
	p := llmtest.New(llmtest.ByStage(map[string]string{
		rag.StageClarify:    "clear",
		rag.StageGrade:      `{"relevant":"yes","confidence":0.9}`,
		rag.StageSynthesize: "Karma yoga is the yoga of selfless action [1].",
		rag.StageVerify:     `{"verdict":"pass","unsupported":[]}`,
		rag.StageRephrase:   "Karma yoga is the path of selfless action [1].",
	}, ""))

	sessions := session.NewStore(memory.NewSessionRepository(time.Hour), log)
	orch := executor.NewOrchestrator(executor.Components{
		Sessions: sessions,
		Planner:  planner.NewPlanner(p, log),
		Retriever: staticRetriever{chunks: []store.Chunk{
			{ID: "c1", DocumentID: "gita", Filename: "gita.pdf", Text: "Karma yoga is the yoga of selfless action.", Score: 0.7},
		}},
		Grader:      grader.NewGrader(p, log),
		Searcher:    noWeb{},
		Synthesizer: synthesis.NewSynthesizer(p, tokenizer.Heuristic{}, synthesis.DefaultConfig(), log),
		Verifier:    verifier.NewVerifier(p, log),
		Rephraser:   rephrase.NewRephraser(p, log),
	}, executor.DefaultConfig(), log)
	recorder := feedback.NewRecorder(sessions, memory.NewFeedbackRepository(), nil, log)

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler})
	api := app.Group("/api")
	NewChatbotController(service.NewChatbotService(orch, recorder), internalWS.NewHub(log), "", log).RegisterRoutes(api)
	NewHealthController(service.NewHealthService(
		map[string]service.Pinger{"database": service.PingFunc(func(context.Context) error { return nil })},
		map[string]string{"llm_provider": "scripted"},
	)).RegisterRoutes(app)
	return app, sessions
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}, headers map[string]string) (int, []byte) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf.Bytes()
}

func TestChatbotController_Query(t *testing.T) {
	app, sessions := newTestApp(t)

	code, body := postJSON(t, app, "/api/query", dto.QueryRequest{Query: "What is karma yoga?", SessionID: "s1"}, nil)
	require.Equal(t, 200, code, string(body))

	var res dto.QueryResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "Karma yoga is the path of selfless action [1].", res.Response)
	assert.Equal(t, rag.SourceInternalDocs, res.Source)
	assert.Equal(t, "s1", res.SessionID)
	assert.True(t, res.FeedbackEligible)
	require.Len(t, res.Sources, 1)
	assert.Equal(t, "gita.pdf", res.Sources[0].Filename)

	sess, err := sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, sess.Turns, 1)
}

func TestChatbotController_QuerySessionFromHeader(t *testing.T) {
	app, _ := newTestApp(t)

	code, body := postJSON(t, app, "/api/query", dto.QueryRequest{Query: "What is karma yoga?"}, map[string]string{"X-Session-ID": "from-header"})
	require.Equal(t, 200, code)

	var res dto.QueryResponse
	require.NoError(t, json.Unmarshal(body, &res))
	assert.Equal(t, "from-header", res.SessionID)
}

func TestChatbotController_QueryRejectsEmpty(t *testing.T) {
	app, _ := newTestApp(t)

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"whitespace", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := postJSON(t, app, "/api/query", dto.QueryRequest{Query: tt.query, SessionID: "s1"}, nil)
			assert.Equal(t, 400, code)

			var res serverutils.BaseResponse[any]
			require.NoError(t, json.Unmarshal(body, &res))
			assert.False(t, res.Success)
			assert.Equal(t, 400, res.Code)
		})
	}
}

func TestChatbotController_Feedback(t *testing.T) {
	app, sessions := newTestApp(t)

	_, body := postJSON(t, app, "/api/query", dto.QueryRequest{Query: "What is karma yoga?", SessionID: "s1"}, nil)
	var answer dto.QueryResponse
	require.NoError(t, json.Unmarshal(body, &answer))

	liked := true
	code, body := postJSON(t, app, "/api/feedback", dto.FeedbackRequest{
		Query:     answer.Query,
		Response:  answer.Response,
		Liked:     &liked,
		SessionID: "s1",
	}, nil)
	require.Equal(t, 200, code, string(body))

	var res serverutils.BaseResponse[dto.FeedbackResponse]
	require.NoError(t, json.Unmarshal(body, &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Feedback received successfully", res.Message)
	assert.True(t, res.Data.Linked)
	assert.Equal(t, answer.TurnID, res.Data.TurnId)

	sess, err := sessions.Get(context.Background(), "s1")
	require.NoError(t, err)
	require.NotNil(t, sess.Turns[0].Liked)
	assert.True(t, *sess.Turns[0].Liked)
}

func TestChatbotController_FeedbackStaysInCallerSession(t *testing.T) {
	app, sessions := newTestApp(t)

	_, body := postJSON(t, app, "/api/query", dto.QueryRequest{Query: "What is karma yoga?"}, map[string]string{"X-Session-ID": "alice"})
	var answer dto.QueryResponse
	require.NoError(t, json.Unmarshal(body, &answer))

	liked := true
	rate := func(sessionHeader string) dto.FeedbackResponse {
		code, body := postJSON(t, app, "/api/feedback", dto.FeedbackRequest{
			Query:    answer.Query,
			Response: answer.Response,
			Liked:    &liked,
		}, map[string]string{"X-Session-ID": sessionHeader})
		require.Equal(t, 200, code, string(body))
		var res serverutils.BaseResponse[dto.FeedbackResponse]
		require.NoError(t, json.Unmarshal(body, &res))
		return res.Data
	}

	other := rate("mallory")
	assert.False(t, other.Linked)
	sess, err := sessions.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Nil(t, sess.Turns[0].Liked)

	own := rate("alice")
	assert.True(t, own.Linked)
	assert.Equal(t, answer.TurnID, own.TurnId)
	sess, err = sessions.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, sess.Turns[0].Liked)
	assert.True(t, *sess.Turns[0].Liked)
}

func TestChatbotController_FeedbackMissingFields(t *testing.T) {
	app, _ := newTestApp(t)

	code, _ := postJSON(t, app, "/api/feedback", map[string]interface{}{"query": "q", "response": "r"}, nil)
	assert.Equal(t, 400, code)
}

func TestChatbotController_WsRequiresUpgrade(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/ws", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}

func TestHealthController(t *testing.T) {
	app, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var health dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, service.ServiceName, health.Service)
	assert.Equal(t, "ok", health.Checks["database"])

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	var info dto.ServiceInfoResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	assert.Contains(t, info.Endpoints, "POST /api/query")
}
