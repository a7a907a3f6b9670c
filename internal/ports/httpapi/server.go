// Package httpapi exposes payment webhooks, health and match stats over HTTP.
package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/SlateSense/ThunderFleet-backend-sub000/internal/app"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/heroiclabs/nakama-common/runtime"
)

// PendingJoins is the lobby surface the payment webhooks drive.
type PendingJoins interface {
	ResolvePendingJoin(ctx context.Context, invoiceID string) (*app.Match, error)
	CancelPendingJoin(invoiceID, reason string) error
	Len() int
}

// MatchStats is the registry surface behind /matches.
type MatchStats interface {
	Stats() app.RegistryStats
	Summaries() []app.MatchSummary
}

type handler struct {
	lobby  PendingJoins
	stats  MatchStats
	logger runtime.Logger
}

// New builds the fiber app. Webhook routes require webhookToken as a bearer token.
func New(lobby PendingJoins, stats MatchStats, webhookToken string, logger runtime.Logger) *fiber.App {
	h := &handler{lobby: lobby, stats: stats, logger: logger}

	api := fiber.New(fiber.Config{
		AppName:               "thunderfleet",
		DisableStartupMessage: true,
		ErrorHandler:          h.handleError,
	})
	api.Use(recover.New())

	api.Get("/healthz", h.health)
	api.Get("/matches", h.matches)

	hooks := api.Group("/webhooks", webhookAuth(webhookToken, logger))
	hooks.Post("/invoices/:id/paid", h.invoicePaid)
	hooks.Post("/invoices/:id/failed", h.invoiceFailed)
	return api
}

func (h *handler) health(c *fiber.Ctx) error {
	stats := h.stats.Stats()
	return c.JSON(fiber.Map{
		"status":       "ok",
		"matches":      stats.Matches,
		"pendingJoins": h.lobby.Len(),
	})
}

func (h *handler) matches(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"stats":   h.stats.Stats(),
		"matches": h.stats.Summaries(),
	})
}

func (h *handler) invoicePaid(c *fiber.Ctx) error {
	id := c.Params("id")
	m, err := h.lobby.ResolvePendingJoin(c.UserContext(), id)
	if err != nil {
		return err
	}
	h.logger.Info("httpapi: invoice %s paid, party seated in match %s", id, m.ID())
	return c.JSON(fiber.Map{"matchId": m.ID()})
}

type failedBody struct {
	Reason string `json:"reason"`
}

func (h *handler) invoiceFailed(c *fiber.Ctx) error {
	id := c.Params("id")
	var body failedBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid body")
		}
	}
	reason := body.Reason
	if reason == "" {
		reason = app.CancelPaymentFailed
	}
	if err := h.lobby.CancelPendingJoin(id, reason); err != nil {
		return err
	}
	h.logger.Info("httpapi: invoice %s failed (%s), pending join cancelled", id, reason)
	return c.SendStatus(fiber.StatusNoContent)
}

// handleError maps engine errors to status codes with a JSON body.
func (h *handler) handleError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		status = fe.Code
	case app.IsNotFound(err):
		status = fiber.StatusNotFound
	case app.IsValidation(err):
		status = fiber.StatusBadRequest
	}
	if status == fiber.StatusInternalServerError {
		h.logger.Error("httpapi: %s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func webhookAuth(token string, logger runtime.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		got := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if got != token {
			logger.Warn("httpapi: rejected webhook call to %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid webhook token"})
		}
		return c.Next()
	}
}
