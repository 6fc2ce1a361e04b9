package store

import "fmt"

// SupportItem wraps exactly one retrieved chunk or one web result.
type SupportItem struct {
	Chunk *Chunk
	Web   *WebResult
}

func ChunkSupport(chunks []Chunk) []SupportItem {
	out := make([]SupportItem, len(chunks))
	for i := range chunks {
		c := chunks[i]
		out[i] = SupportItem{Chunk: &c}
	}
	return out
}

func WebSupport(results []WebResult) []SupportItem {
	out := make([]SupportItem, len(results))
	for i := range results {
		r := results[i]
		out[i] = SupportItem{Web: &r}
	}
	return out
}

// Text is the content the model may ground on.
func (s SupportItem) Text() string {
	switch {
	case s.Chunk != nil:
		return s.Chunk.Text
	case s.Web != nil:
		return s.Web.Snippet
	}
	return ""
}

// Provenance is the human readable origin shown next to the numbered item.
func (s SupportItem) Provenance() string {
	switch {
	case s.Chunk != nil:
		return fmt.Sprintf("%s (chunk %d)", s.Chunk.Filename, s.Chunk.ChunkIndex)
	case s.Web != nil:
		return fmt.Sprintf("%s - %s", s.Web.Title, s.Web.URL)
	}
	return "unknown"
}

func (s SupportItem) Citation() Citation {
	switch {
	case s.Chunk != nil:
		score := s.Chunk.Score
		return Citation{Filename: s.Chunk.Filename, Score: &score, Snippet: snippet(s.Chunk.Text)}
	case s.Web != nil:
		return Citation{URL: s.Web.URL, Title: s.Web.Title, Snippet: snippet(s.Web.Snippet)}
	}
	return Citation{}
}

// Citations converts support items to citations, first occurrence of each source wins.
func Citations(items []SupportItem) []Citation {
	seen := make(map[string]bool, len(items))
	out := make([]Citation, 0, len(items))
	for _, it := range items {
		c := it.Citation()
		if c.Filename == "" && c.URL == "" {
			continue
		}
		if seen[c.Key()] {
			continue
		}
		seen[c.Key()] = true
		out = append(out, c)
	}
	return out
}

func snippet(s string) string {
	const max = 200
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

type GradeDecision struct {
	Sufficient bool
	Confidence float64
	Rationale  string
}

type DraftAnswer struct {
	Text       string
	Support    []SupportItem
	Ungrounded bool
}

type VerificationResult struct {
	Passed      bool
	Unsupported []string
}

type FinalAnswer struct {
	Text    string     `json:"response"`
	Source  string     `json:"source"`
	Sources []Citation `json:"sources"`
}
