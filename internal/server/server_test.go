package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"query-responder-be/internal/bootstrap"
	"query-responder-be/internal/config"
	"query-responder-be/internal/dto"
	"query-responder-be/internal/entity"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/pkg/serverutils"
	"query-responder-be/pkg/embedding"
	"query-responder-be/pkg/embedding/embeddingtest"
	"query-responder-be/pkg/llm/llmtest"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noWeb struct{}

func (noWeb) Search(ctx context.Context, query string, limit int) ([]store.WebResult, error) {
	return nil, rag.ErrSearchProvider
}

var vocabulary = []string{"karma", "yoga", "action"}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Load()
	cfg.App.NatsURL = ""
	cfg.App.RedisURL = ""
	cfg.Session.Backend = "memory"
	cfg.Ai.RequestsPerSecond = 1000
	cfg.Ai.Burst = 1000

	provider := llmtest.New(llmtest.ByStage(map[string]string{
		rag.StageClarify:    "clear",
		rag.StageGrade:      `{"relevant":"yes","confidence":0.9}`,
		rag.StageSynthesize: "Karma yoga is the yoga of selfless action [1].",
		rag.StageVerify:     `{"verdict":"pass","unsupported":[]}`,
		rag.StageRephrase:   "Karma yoga is the path of selfless action [1].",
	}, ""))

	c, err := bootstrap.Build(nil, cfg, bootstrap.Overrides{
		LLM:      provider,
		Embedder: embeddingtest.Keywords{Vocabulary: vocabulary},
		Searcher: noWeb{},
		Logger:   logger.NewNopLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	text := "Karma yoga is the path of selfless action."
	vec, err := c.Embedder.Generate(context.Background(), text, embedding.TaskRetrievalDocument)
	require.NoError(t, err)
	require.NoError(t, c.Chunks.CreateBulk(context.Background(), []*entity.DocumentChunk{{
		Collection:     cfg.Rag.Collection,
		DocumentId:     "gita",
		Filename:       "gita.pdf",
		Content:        text,
		EmbeddingValue: vec.Embedding.Values,
		CreatedAt:      time.Now(),
	}}))

	return New(cfg, c)
}

func TestServer_QueryEndToEnd(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(dto.QueryRequest{Query: "What is karma yoga?", SessionID: "e2e"})
	req := httptest.NewRequest("POST", "/api/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.GetApp().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var out dto.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, rag.SourceInternalDocs, out.Source)
	assert.Equal(t, "e2e", out.SessionID)
	assert.True(t, out.FeedbackEligible)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "gita.pdf", out.Sources[0].Filename)
}

func TestServer_FeedbackAfterQuery(t *testing.T) {
	s := newTestServer(t)
	app := s.GetApp()

	body, _ := json.Marshal(dto.QueryRequest{Query: "What is karma yoga?", SessionID: "fb"})
	req := httptest.NewRequest("POST", "/api/query", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	var answer dto.QueryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))

	liked := true
	body, _ = json.Marshal(dto.FeedbackRequest{Query: answer.Query, Response: answer.Response, Liked: &liked, SessionID: "fb"})
	req = httptest.NewRequest("POST", "/api/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var out serverutils.BaseResponse[dto.FeedbackResponse]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.True(t, out.Data.Linked)
	assert.Equal(t, answer.TurnID, out.Data.TurnId)
}

func TestServer_HealthReportsComponents(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.GetApp().Test(httptest.NewRequest("GET", "/health", nil), -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var out dto.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "healthy", out.Status)
	assert.Equal(t, "ok", out.Checks["database"])
	assert.Equal(t, "not configured", out.Checks["redis"])
	assert.Equal(t, "enabled", out.Checks["web_search"])
}

func TestServer_UnknownRouteIs404(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.GetApp().Test(httptest.NewRequest("GET", "/api/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}
