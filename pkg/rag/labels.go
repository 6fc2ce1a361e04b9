package rag

// Source labels returned with every answer.
const (
	SourceInternalDocs       = "Internal Docs"
	SourceHighConfidence     = "High-Confidence RAG"
	SourceWebSearch          = "Web Search"
	SourceExactMatch         = "Exact Match Rephrased"
	SourceAgentInternalDocs  = "Agent + Internal Docs"
	SourceInternalUnverified = "Internal Docs (Unverified)"
	SourceWebUnverified      = "Web Search (Unverified)"
	SourceInternalDegraded   = "Internal Docs (Degraded)"
	SourceClarification      = "Agent (Clarification)"
	SourceConsentRequest     = "Agent (Multi-turn)"
	SourceAgentResponse      = "Agent Response"
	SourceWebUnavailable     = "Web Search Unavailable"
	SourceSystemError        = "System Error"
)

var finalLabels = map[string]bool{
	SourceInternalDocs:       true,
	SourceHighConfidence:     true,
	SourceWebSearch:          true,
	SourceExactMatch:         true,
	SourceAgentInternalDocs:  true,
	SourceInternalUnverified: true,
	SourceWebUnverified:      true,
	SourceInternalDegraded:   true,
}

var degradedLabels = map[string]bool{
	SourceClarification:  true,
	SourceConsentRequest: true,
	SourceAgentResponse:  true,
	SourceWebUnavailable: true,
	SourceSystemError:    true,
}

// IsFinal reports whether label marks a real answer, which makes the turn eligible for feedback.
func IsFinal(label string) bool {
	return finalLabels[label]
}

// IsKnown reports whether label belongs to the closed label set.
func IsKnown(label string) bool {
	return finalLabels[label] || degradedLabels[label]
}

// Unverified returns the lower-confidence variant of a label after a failed verification.
func Unverified(label string) string {
	switch label {
	case SourceWebSearch, SourceWebUnverified:
		return SourceWebUnverified
	default:
		return SourceInternalUnverified
	}
}
