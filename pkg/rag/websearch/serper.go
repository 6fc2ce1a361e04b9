package websearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/rag"
	"query-responder-be/pkg/store"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

type Config struct {
	APIKey            string
	URL               string
	ResultCount       int
	RequestsPerSecond float64
	Timeout           time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:               "https://google.serper.dev/search",
		ResultCount:       5,
		RequestsPerSecond: 1,
		Timeout:           15 * time.Second,
	}
}

// Searcher queries the Serper Google search API
type Searcher struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	logger  logger.ILogger
}

func NewSearcher(cfg Config, log logger.ILogger) *Searcher {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.ResultCount <= 0 {
		cfg.ResultCount = def.ResultCount
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Searcher{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  log,
	}
}

// Enabled reports whether an API key is configured.
func (s *Searcher) Enabled() bool {
	return s.cfg.APIKey != ""
}

type serperRequest struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
}

type serperResponse struct {
	Organic []struct {
		Title    string `json:"title"`
		Link     string `json:"link"`
		Snippet  string `json:"snippet"`
		Position int    `json:"position"`
	} `json:"organic"`
}

// Search returns up to limit organic results ranked from 1. Every failure wraps
// rag.ErrSearchProvider.
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]store.WebResult, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("%w: SERPER_API_KEY is not configured", rag.ErrSearchProvider)
	}
	if limit <= 0 {
		limit = s.cfg.ResultCount
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, rag.Wrap(rag.ErrSearchProvider, err)
	}

	body, err := json.Marshal(serperRequest{Q: query, Num: limit})
	if err != nil {
		return nil, rag.Wrap(rag.ErrSearchProvider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, rag.Wrap(rag.ErrSearchProvider, err)
	}
	req.Header.Set("X-API-KEY", s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("WebSearch", "Serper request failed", map[string]interface{}{"error": err.Error()})
		return nil, rag.Wrap(rag.ErrSearchProvider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, rag.Wrap(rag.ErrSearchProvider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("WebSearch", "Serper returned error status", map[string]interface{}{
			"status": resp.StatusCode,
			"body":   string(raw),
		})
		return nil, fmt.Errorf("%w: serper status %d", rag.ErrSearchProvider, resp.StatusCode)
	}

	var parsed serperResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, rag.Wrap(rag.ErrSearchProvider, fmt.Errorf("decode serper response: %w", err))
	}

	results := make([]store.WebResult, 0, limit)
	for _, o := range parsed.Organic {
		if o.Link == "" {
			continue
		}
		results = append(results, store.WebResult{
			URL:     o.Link,
			Title:   CleanSnippet(o.Title),
			Snippet: CleanSnippet(o.Snippet),
			Rank:    len(results) + 1,
		})
		if len(results) == limit {
			break
		}
	}

	s.logger.Info("WebSearch", "Search completed", map[string]interface{}{
		"results":     len(results),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return results, nil
}

var reSpaces = regexp.MustCompile(`\s+`)

// CleanSnippet strips markup that search providers leave in titles and snippets.
func CleanSnippet(s string) string {
	if strings.ContainsAny(s, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err == nil {
			s = doc.Text()
		}
	}
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
