package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/evroam/oicp-bridge/internal/domain"
	"github.com/evroam/oicp-bridge/internal/ports"
	"github.com/evroam/oicp-bridge/internal/service/events"
	"github.com/evroam/oicp-bridge/internal/service/roaming"
)

// CommandHandler exposes the outbound roaming commands to operator tooling.
type CommandHandler struct {
	service *roaming.Service
	graph   ports.EntityGraph
	bus     *events.Bus
	log     *zap.Logger
}

func NewCommandHandler(service *roaming.Service, graph ports.EntityGraph, bus *events.Bus, log *zap.Logger) *CommandHandler {
	return &CommandHandler{
		service: service,
		graph:   graph,
		bus:     bus,
		log:     log,
	}
}

type reserveRequest struct {
	EvseID          string     `json:"evse_id"`
	Identification  string     `json:"identification"`
	ProductID       string     `json:"product_id"`
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
}

func (h *CommandHandler) Reserve(c *fiber.Ctx) error {
	var req reserveRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	evseID, err := domain.ParseEVSEID(req.EvseID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.service.Reserve(c.Context(), roaming.ReserveRequest{
		EVSEID:         evseID,
		Identification: req.Identification,
		ProductID:      req.ProductID,
		StartTime:      req.StartTime,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
	})
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(result)
}

func (h *CommandHandler) CancelReservation(c *fiber.Ctx) error {
	result, err := h.service.CancelReservation(c.Context(), c.Params("id"), ports.CallOptions{})
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(result)
}

type remoteStartRequest struct {
	EvseID          string     `json:"evse_id"`
	Identification  string     `json:"identification"`
	ProductID       string     `json:"product_id"`
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
	ReservationID   string     `json:"reservation_id"`
}

func (h *CommandHandler) RemoteStart(c *fiber.Ctx) error {
	var req remoteStartRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	evseID, err := domain.ParseEVSEID(req.EvseID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	result, err := h.service.RemoteStart(c.Context(), roaming.RemoteStartRequest{
		EVSEID:         evseID,
		Identification: req.Identification,
		ProductID:      req.ProductID,
		StartTime:      req.StartTime,
		Duration:       time.Duration(req.DurationMinutes) * time.Minute,
		ReservationID:  req.ReservationID,
	})
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(result)
}

func (h *CommandHandler) RemoteStop(c *fiber.Ctx) error {
	var req struct {
		Identification string `json:"identification"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	result, err := h.service.RemoteStop(c.Context(), roaming.RemoteStopRequest{
		SessionID:      c.Params("id"),
		Identification: req.Identification,
	})
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(result)
}

func (h *CommandHandler) GetChargeDetailRecords(c *fiber.Ctx) error {
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid from timestamp"})
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid to timestamp"})
	}

	records, err := h.service.GetChargeDetailRecords(c.Context(), from, to, ports.CallOptions{})
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(fiber.Map{"records": records, "count": len(records)})
}

func (h *CommandHandler) PushAuthenticationData(c *fiber.Ctx) error {
	var req struct {
		Identifications []string `json:"identifications"`
		Action          string   `json:"action"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	result, err := h.service.PushAuthenticationData(c.Context(), req.Identifications, req.Action, ports.CallOptions{})
	if err != nil {
		return commandError(c, err)
	}
	return c.JSON(fiber.Map{"result": result})
}

func (h *CommandHandler) ListOperators(c *fiber.Ctx) error {
	return c.JSON(h.graph.Operators())
}

func (h *CommandHandler) Stats(c *fiber.Ctx) error {
	return c.JSON(h.bus.Stats().Snapshot())
}

func commandError(c *fiber.Ctx, err error) error {
	if errors.Is(err, roaming.ErrInvalidArgument) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
