package service

import (
	"context"

	"query-responder-be/internal/dto"
	"query-responder-be/pkg/rag/executor"
	"query-responder-be/pkg/rag/feedback"
	"query-responder-be/pkg/store"
)

// IChatbotService is the transport-facing entry to the RAG pipeline
type IChatbotService interface {
	Query(ctx context.Context, sessionID string, request *dto.QueryRequest) (*dto.QueryResponse, error)
	Feedback(ctx context.Context, sessionID string, request *dto.FeedbackRequest) (*dto.FeedbackResponse, error)
}

type chatbotService struct {
	orchestrator *executor.Orchestrator
	recorder     *feedback.Recorder
}

func NewChatbotService(orchestrator *executor.Orchestrator, recorder *feedback.Recorder) IChatbotService {
	return &chatbotService{
		orchestrator: orchestrator,
		recorder:     recorder,
	}
}

func (s *chatbotService) Query(ctx context.Context, sessionID string, request *dto.QueryRequest) (*dto.QueryResponse, error) {
	res, err := s.orchestrator.Handle(ctx, sessionID, request.Query)
	if err != nil {
		return nil, err
	}

	return &dto.QueryResponse{
		Response:         res.Answer.Text,
		Query:            res.Query,
		Source:           res.Answer.Source,
		Sources:          toSourceDTOs(res.Answer.Sources),
		SessionID:        res.SessionID,
		TurnID:           res.TurnID,
		FeedbackEligible: res.FeedbackEligible,
	}, nil
}

func (s *chatbotService) Feedback(ctx context.Context, sessionID string, request *dto.FeedbackRequest) (*dto.FeedbackResponse, error) {
	liked := request.Liked != nil && *request.Liked
	rec, err := s.recorder.Record(ctx, feedback.FeedbackInput{
		SessionID: sessionID,
		Query:     request.Query,
		Response:  request.Response,
		Liked:     liked,
	})
	if err != nil {
		return nil, err
	}

	return &dto.FeedbackResponse{
		Id:     rec.ID,
		TurnId: rec.TurnID,
		Linked: rec.Linked(),
	}, nil
}

func toSourceDTOs(citations []store.Citation) []dto.SourceDTO {
	out := make([]dto.SourceDTO, 0, len(citations))
	for _, c := range citations {
		out = append(out, dto.SourceDTO{
			Filename: c.Filename,
			URL:      c.URL,
			Title:    c.Title,
			Score:    c.Score,
			Snippet:  c.Snippet,
		})
	}
	return out
}
