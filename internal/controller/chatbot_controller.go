package controller

import (
	"context"
	"encoding/json"

	"query-responder-be/internal/dto"
	"query-responder-be/internal/pkg/logger"
	"query-responder-be/internal/pkg/serverutils"
	"query-responder-be/internal/service"
	internalWS "query-responder-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IChatbotController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	Feedback(ctx *fiber.Ctx) error
	ServeWs(ctx *fiber.Ctx) error
}

type chatbotController struct {
	chatbotService service.IChatbotService
	hub            *internalWS.Hub
	jwtSecret      string
	logger         logger.ILogger
}

func NewChatbotController(chatbotService service.IChatbotService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) IChatbotController {
	return &chatbotController{
		chatbotService: chatbotService,
		hub:            hub,
		jwtSecret:      jwtSecret,
		logger:         log,
	}
}

func (c *chatbotController) RegisterRoutes(r fiber.Router) {
	r.Post("/query", serverutils.OptionalJwt(c.jwtSecret), c.Query)
	r.Post("/feedback", serverutils.OptionalJwt(c.jwtSecret), c.Feedback)
	r.Get("/ws", c.ServeWs)
}

func (c *chatbotController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	sessionID := serverutils.SessionID(ctx, req.SessionID)
	res, err := c.chatbotService.Query(ctx.UserContext(), sessionID, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(res)
}

func (c *chatbotController) Feedback(ctx *fiber.Ctx) error {
	var req dto.FeedbackRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	// same resolution as /query, so a client can only rate its own turns
	sessionID := serverutils.SessionID(ctx, req.SessionID)
	res, err := c.chatbotService.Feedback(ctx.UserContext(), sessionID, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Feedback received successfully", res))
}

// ServeWs upgrades the request; each connection is its own conversation.
func (c *chatbotController) ServeWs(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(c.hub, conn, c.answerFrame)
	})(ctx)
}

func (c *chatbotController) answerFrame(ctx context.Context, sessionID string, frame []byte) []byte {
	var req dto.QueryRequest
	if err := json.Unmarshal(frame, &req); err != nil {
		return encodeFrame(serverutils.ErrorResponse(fiber.StatusBadRequest, "Invalid request body"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return encodeFrame(serverutils.ErrorResponse(fiber.StatusBadRequest, err.Error()))
	}

	res, err := c.chatbotService.Query(ctx, sessionID, &req)
	if err != nil {
		code := serverutils.StatusFor(err)
		c.logger.Warn("ChatbotController", "WebSocket query failed", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
		return encodeFrame(serverutils.ErrorResponse(code, err.Error()))
	}
	return encodeFrame(res)
}

func encodeFrame(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte(`{"success":false,"code":500,"message":"Internal server error"}`)
	}
	return data
}
