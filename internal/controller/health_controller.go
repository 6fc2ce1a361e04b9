package controller

import (
	"query-responder-be/internal/dto"
	"query-responder-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Root(ctx *fiber.Ctx) error
}

type healthController struct {
	healthService service.IHealthService
}

func NewHealthController(healthService service.IHealthService) IHealthController {
	return &healthController{healthService: healthService}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Root)
	r.Get("/health", c.Health)
}

// Health always answers 200; degraded dependencies show up in the body.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.healthService.Check(ctx.UserContext()))
}

func (c *healthController) Root(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.ServiceInfoResponse{
		Service: service.ServiceName,
		Message: "Ask questions over the document index, with web search when you allow it",
		Endpoints: map[string]string{
			"POST /api/query":    "Answer a query within a session",
			"POST /api/feedback": "Record a like or dislike for an answer",
			"GET /api/ws":        "WebSocket query stream, one session per connection",
			"GET /health":        "Dependency health",
		},
	})
}
