package controller

import (
	"policy-qa-be/internal/dto"
	"policy-qa-be/internal/pkg/serverutils"
	"policy-qa-be/internal/service"
	ws "policy-qa-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type IQueryController interface {
	RegisterRoutes(r fiber.Router)
	Answer(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type queryController struct {
	service service.IQueryService
	hub     *ws.Hub
}

func NewQueryController(service service.IQueryService, hub *ws.Hub) IQueryController {
	return &queryController{service: service, hub: hub}
}

func (c *queryController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/query/v1")
	h.Post("answer", c.Answer)
	h.Get("health", c.Health)

	h.Use("trace/ws", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	h.Get("trace/ws", websocket.New(c.traceSocket))
}

func (c *queryController) Answer(ctx *fiber.Ctx) error {
	var req dto.AnswerRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Answer(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success answer query", res))
}

func (c *queryController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Service healthy", map[string]string{"status": "ok"}))
}

// traceSocket streams stage events for one pipeline run. The client
// passes the correlation id as a query parameter and receives every
// transition until the run completes or it disconnects.
func (c *queryController) traceSocket(conn *websocket.Conn) {
	correlationId := conn.Query("correlation_id")
	if _, err := uuid.Parse(correlationId); err != nil {
		conn.WriteJSON(serverutils.ErrorResponse(400, "correlation_id must be a valid uuid"))
		conn.Close()
		return
	}

	ws.ServeWs(c.hub, conn, correlationId)
}
