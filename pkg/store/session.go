package store

import (
	"time"
)

// Chunk is one scored span of an ingested document returned by the vector index
type Chunk struct {
	ID         string                 `json:"id"`
	DocumentID string                 `json:"document_id"`
	Text       string                 `json:"text"`
	Score      float64                `json:"score"` // cosine similarity, higher is closer
	Filename   string                 `json:"filename"`
	ChunkIndex int                    `json:"chunk_index"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// WebResult is one organic hit from the web search provider
type WebResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Rank    int    `json:"rank"`
}

// Citation is a deduplicated pointer to a support item shown to the caller
type Citation struct {
	Filename string   `json:"filename,omitempty"`
	URL      string   `json:"url,omitempty"`
	Title    string   `json:"title,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Snippet  string   `json:"snippet,omitempty"`
}

// Key identifies the underlying source of a citation for deduplication.
func (c Citation) Key() string {
	if c.URL != "" {
		return "url:" + c.URL
	}
	return "file:" + c.Filename
}

// Turn is one answered query inside a session. Turns are append-only.
type Turn struct {
	ID             string     `json:"id"`
	Query          string     `json:"query"`
	EffectiveQuery string     `json:"effective_query,omitempty"`
	Answer         string     `json:"answer"`
	Source         string     `json:"source"`
	Sources        []Citation `json:"sources"`
	Directive      string     `json:"directive"`
	Liked          *bool      `json:"liked,omitempty"`
	FeedbackAt     *time.Time `json:"feedback_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Session is the conversational memory kept per session identifier
type Session struct {
	ID    string `json:"id"`
	Turns []Turn `json:"turns"`

	// Clarification round: set when the planner asked the user for a missing detail
	PendingClarification bool   `json:"pending_clarification"`
	ClarificationQuery   string `json:"clarification_query,omitempty"`

	// Web escalation: AwaitingConsent is set while a yes/no answer is outstanding,
	// WebConsent records a standing permission to search the web.
	AwaitingConsent bool   `json:"awaiting_consent"`
	PendingWebQuery string `json:"pending_web_query,omitempty"`
	WebConsent      bool   `json:"web_consent"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns an empty session for the given id
func NewSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:        id,
		Turns:     []Turn{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so a turn can be worked on without touching the stored session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Turns = make([]Turn, len(s.Turns))
	for i, t := range s.Turns {
		c.Turns[i] = t.clone()
	}
	return &c
}

func (t Turn) clone() Turn {
	c := t
	if t.Sources != nil {
		c.Sources = make([]Citation, len(t.Sources))
		copy(c.Sources, t.Sources)
	}
	if t.Liked != nil {
		v := *t.Liked
		c.Liked = &v
	}
	if t.FeedbackAt != nil {
		v := *t.FeedbackAt
		c.FeedbackAt = &v
	}
	return c
}

// RecentTurns returns up to n turns, most recent first.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || len(s.Turns) == 0 {
		return nil
	}
	out := make([]Turn, 0, n)
	for i := len(s.Turns) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, s.Turns[i])
	}
	return out
}

// FeedbackRecord is the stored outcome of a like/dislike submission
type FeedbackRecord struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	TurnID    string    `json:"turn_id,omitempty"` // empty when no matching turn was found
	Query     string    `json:"query"`
	Response  string    `json:"response"`
	Liked     bool      `json:"liked"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Linked reports whether the record was attributed to a stored turn.
func (f FeedbackRecord) Linked() bool {
	return f.TurnID != ""
}
