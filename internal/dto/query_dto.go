package dto

import "time"

type QueryRequest struct {
	Query     string `json:"query" validate:"required"`
	SessionID string `json:"session_id,omitempty"`
}

type SourceDTO struct {
	Filename string   `json:"filename,omitempty"`
	URL      string   `json:"url,omitempty"`
	Title    string   `json:"title,omitempty"`
	Score    *float64 `json:"score,omitempty"`
	Snippet  string   `json:"snippet,omitempty"`
}

type QueryResponse struct {
	Response         string      `json:"response"`
	Query            string      `json:"query"`
	Source           string      `json:"source"`
	Sources          []SourceDTO `json:"sources"`
	SessionID        string      `json:"session_id"`
	TurnID           string      `json:"turn_id,omitempty"`
	FeedbackEligible bool        `json:"feedback_eligible"`
}

type FeedbackRequest struct {
	Query     string `json:"query" validate:"required"`
	Response  string `json:"response" validate:"required"`
	Liked     *bool  `json:"liked" validate:"required"`
	SessionID string `json:"session_id,omitempty"`
}

type FeedbackResponse struct {
	Id     string `json:"id"`
	TurnId string `json:"turn_id,omitempty"`
	Linked bool   `json:"linked"`
}

type HealthResponse struct {
	Status    string            `json:"status"` // "healthy" | "degraded"
	Service   string            `json:"service"`
	Message   string            `json:"message"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

type ServiceInfoResponse struct {
	Service   string            `json:"service"`
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}
