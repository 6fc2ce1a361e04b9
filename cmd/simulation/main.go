// Command simulation replays the reference conversations against a fully wired
// server backed by a scripted model, an in-memory index and a fake web search.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"query-responder-be/internal/bootstrap"
	"query-responder-be/internal/config"
	"query-responder-be/internal/dto"
	"query-responder-be/internal/entity"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/server"
	"query-responder-be/pkg/embedding"
	"query-responder-be/pkg/embedding/embeddingtest"
	"query-responder-be/pkg/llm/llmtest"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"

	"github.com/fatih/color"
	"github.com/gofiber/fiber/v2"
)

var (
	titleColor  = color.New(color.FgCyan, color.Bold)
	userColor   = color.New(color.FgYellow)
	agentColor  = color.New(color.FgWhite)
	labelColor  = color.New(color.FgMagenta)
	passColor   = color.New(color.FgGreen, color.Bold)
	failColor   = color.New(color.FgRed, color.Bold)
	vocabulary  = []string{"karma", "yoga", "action", "sustainability", "innovatesoft"}
	gitaPassage = "Karma yoga is the path of selfless action, performing one's duty without attachment to its fruits."
)

type fakeWeb struct{}

func (fakeWeb) Search(ctx context.Context, query string, limit int) ([]store.WebResult, error) {
	return []store.WebResult{
		{URL: "https://innovatesoft.example/sustainability", Title: "InnovateSoft Sustainability Report", Snippet: "InnovateSoft runs carbon-neutral data centers and a device recycling program.", Rank: 1},
	}, nil
}

type brokenIndex struct{}

func (brokenIndex) Generate(ctx context.Context, text, taskType string) (*embedding.EmbeddingResponse, error) {
	return nil, errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
}

type step struct {
	query     string
	wantLabel string
}

type scenario struct {
	name     string
	embedder embedding.EmbeddingProvider
	seed     bool
	steps    []step
	feedback bool
}

func scriptedReplies() llmtest.Responder {
	return func(stage, prompt string) (string, error) {
		switch stage {
		case rag.StageClarify:
			return "clear", nil
		case rag.StageGrade:
			return `{"relevant":"yes","confidence":0.9,"reason":"passage defines the term"}`, nil
		case rag.StageSynthesize:
			if strings.Contains(strings.ToLower(prompt), "innovatesoft") {
				return "InnovateSoft runs carbon-neutral data centers and recycles devices [1].", nil
			}
			return "Karma yoga is the path of selfless action without attachment to results [1].", nil
		case rag.StageVerify:
			return `{"verdict":"pass","unsupported":[]}`, nil
		case rag.StageRephrase:
			if strings.Contains(strings.ToLower(prompt), "innovatesoft") {
				return "InnovateSoft operates carbon-neutral data centers and runs a device recycling program [1].", nil
			}
			return "Karma yoga is the path of selfless action: doing your duty without attachment to its results [1].", nil
		default:
			return "", nil
		}
	}
}

func main() {
	log.SetOutput(io.Discard)
	cfg := config.Load()
	cfg.App.NatsURL = ""
	cfg.App.RedisURL = ""
	cfg.Session.Backend = "memory"
	cfg.Ai.RequestsPerSecond = 100
	cfg.Ai.Burst = 100

	keywords := embeddingtest.Keywords{Vocabulary: vocabulary}
	scenarios := []scenario{
		{
			name:     "Scenario 1: answer from internal documents",
			embedder: keywords,
			seed:     true,
			steps:    []step{{"What is karma yoga?", rag.SourceInternalDocs}},
		},
		{
			name:     "Scenario 2: empty index asks before searching the web",
			embedder: keywords,
			steps: []step{
				{"What are InnovateSoft Solutions' sustainability initiatives?", rag.SourceConsentRequest},
				{"yes", rag.SourceWebSearch},
			},
		},
		{
			name:     "Scenario 3: vector store unreachable",
			embedder: brokenIndex{},
			steps:    []step{{"What is karma yoga?", rag.SourceConsentRequest}},
		},
		{
			name:     "Scenario 4: feedback marks the rated turn",
			embedder: keywords,
			seed:     true,
			steps:    []step{{"What is karma yoga?", rag.SourceInternalDocs}},
			feedback: true,
		},
	}

	failed := 0
	for i, sc := range scenarios {
		titleColor.Printf("\n=== %s ===\n", sc.name)
		if err := run(cfg, sc, fmt.Sprintf("sim-%d", i+1)); err != nil {
			failColor.Printf("FAIL: %v\n", err)
			failed++
			continue
		}
		passColor.Println("PASS")
	}

	if failed > 0 {
		failColor.Printf("\n%d of %d scenarios failed\n", failed, len(scenarios))
		os.Exit(1)
	}
	passColor.Printf("\nAll %d scenarios passed\n", len(scenarios))
}

func run(cfg *config.Config, sc scenario, sessionID string) error {
	c, err := bootstrap.Build(nil, cfg, bootstrap.Overrides{
		LLM:      llmtest.New(scriptedReplies()),
		Embedder: sc.embedder,
		Searcher: fakeWeb{},
		Logger:   logger.NewNopLogger(),
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if sc.seed {
		if err := seed(c, cfg.Rag.Collection); err != nil {
			return err
		}
	}

	app := server.New(cfg, c).GetApp()

	var last dto.QueryResponse
	for _, s := range sc.steps {
		userColor.Printf("USER: %s\n", s.query)
		start := time.Now()
		if err := post(app, "/api/query", dto.QueryRequest{Query: s.query, SessionID: sessionID}, &last); err != nil {
			return err
		}
		agentColor.Printf("AI (%v): %s\n", time.Since(start).Round(time.Millisecond), last.Response)
		labelColor.Printf("     source: %s\n", last.Source)
		for _, src := range last.Sources {
			labelColor.Printf("     cite: %s%s\n", src.Filename, src.URL)
		}
		if last.Source != s.wantLabel {
			return fmt.Errorf("expected source %q, got %q", s.wantLabel, last.Source)
		}
	}

	if !sc.feedback {
		return nil
	}

	liked := true
	var fb struct {
		Success bool                 `json:"success"`
		Data    dto.FeedbackResponse `json:"data"`
	}
	if err := post(app, "/api/feedback", dto.FeedbackRequest{Query: last.Query, Response: last.Response, Liked: &liked, SessionID: sessionID}, &fb); err != nil {
		return err
	}
	labelColor.Printf("     feedback linked to turn %s\n", fb.Data.TurnId)
	if !fb.Data.Linked || fb.Data.TurnId != last.TurnID {
		return fmt.Errorf("feedback was not attributed to turn %s", last.TurnID)
	}

	sess, err := c.Sessions.Get(context.Background(), sessionID)
	if err != nil {
		return err
	}
	for _, t := range sess.Turns {
		if t.ID == last.TurnID && t.Liked != nil && *t.Liked {
			return nil
		}
	}
	return errors.New("stored turn is not marked liked")
}

func seed(c *bootstrap.Container, collection string) error {
	ctx := context.Background()
	vec, err := c.Embedder.Generate(ctx, gitaPassage, embedding.TaskRetrievalDocument)
	if err != nil {
		return err
	}
	return c.Chunks.CreateBulk(ctx, []*entity.DocumentChunk{{
		Collection:     collection,
		DocumentId:     "bhagavad-gita",
		Filename:       "bhagavad_gita.pdf",
		Content:        gitaPassage,
		EmbeddingValue: vec.Embedding.Values,
		CreatedAt:      time.Now(),
	}})
}

func post(app *fiber.App, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
