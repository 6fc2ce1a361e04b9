package websearch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"query-responder-be/internal/pkg/logger"
	"query-responder-be/pkg/rag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher(url string) *Searcher {
	return NewSearcher(Config{APIKey: "key", URL: url, RequestsPerSecond: 1000}, logger.NewNopLogger())
}

func TestSearch_ParsesOrganicResults(t *testing.T) {
	var got serperRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-API-KEY"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"organic":[
			{"title":"Karma <b>Yoga</b>","link":"https://a.test","snippet":"Selfless &amp; dutiful   action","position":1},
			{"title":"No link","link":"","snippet":"skip"},
			{"title":"Second","link":"https://b.test","snippet":"two","position":2},
			{"title":"Third","link":"https://c.test","snippet":"three","position":3}
		]}`))
	}))
	defer srv.Close()

	results, err := newTestSearcher(srv.URL).Search(context.Background(), "karma yoga", 2)
	require.NoError(t, err)
	assert.Equal(t, "karma yoga", got.Q)
	assert.Equal(t, 2, got.Num)

	require.Len(t, results, 2)
	assert.Equal(t, "Karma Yoga", results[0].Title)
	assert.Equal(t, "Selfless & dutiful action", results[0].Snippet)
	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, "https://b.test", results[1].URL)
	assert.Equal(t, 2, results[1].Rank)
}

func TestSearch_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		apiKey  string
	}{
		{
			name:    "non 2xx",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			apiKey:  "key",
		},
		{
			name:    "bad json",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) },
			apiKey:  "key",
		},
		{
			name:    "missing key",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			apiKey:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			s := NewSearcher(Config{APIKey: tt.apiKey, URL: srv.URL, RequestsPerSecond: 1000}, logger.NewNopLogger())
			_, err := s.Search(context.Background(), "q", 3)
			assert.True(t, errors.Is(err, rag.ErrSearchProvider))
		})
	}
}

func TestSearch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestSearcher(url).Search(context.Background(), "q", 3)
	assert.True(t, errors.Is(err, rag.ErrSearchProvider))
}

func TestCleanSnippet(t *testing.T) {
	assert.Equal(t, "plain text", CleanSnippet("  plain   text "))
	assert.Equal(t, "bold and more", CleanSnippet("<b>bold</b> and <i>more</i>"))
}
