// Package handlers exposes the hub over HTTP: the websocket endpoint that
// carries the event protocol, plus a small REST surface for history and
// notification catch-up.
package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/pitabwire/util"

	"github.com/salavathhari/devcollab/apps/hub/config"
	"github.com/salavathhari/devcollab/apps/hub/service/business"
	"github.com/salavathhari/devcollab/internal/auth"
	"github.com/salavathhari/devcollab/internal/health"
)

const defaultHistoryLimit = 50

type Handler struct {
	cfg      *config.HubConfig
	hub      *business.Hub
	verifier *auth.Verifier
	repos    business.Repositories
	probes   *health.Registry
}

func New(cfg *config.HubConfig, hub *business.Hub, verifier *auth.Verifier, repos business.Repositories, probes *health.Registry) *Handler {
	return &Handler{cfg: cfg, hub: hub, verifier: verifier, repos: repos, probes: probes}
}

// Register wires the routes onto the fiber app.
func (h *Handler) Register(app *fiber.App) {
	app.Get("/health", h.health)
	app.Get("/readyz", h.readiness)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(h.handleSocket))

	api := app.Group("/api/v1")
	api.Get("/projects/:projectId/messages", h.history)
	api.Get("/notifications", h.notifications)
}

func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":      "healthy",
		"service":     h.cfg.ServiceName,
		"instance":    h.hub.InstanceID(),
		"connections": h.hub.ConnectionCount(),
	})
}

// readiness runs the registered dependency checks and reports aggregate status.
func (h *Handler) readiness(c *fiber.Ctx) error {
	report := h.probes.Evaluate(c.UserContext())
	if report.Status == health.StatusUnhealthy {
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// bearerClaims authenticates a REST request from its Authorization header.
func (h *Handler) bearerClaims(c *fiber.Ctx) (*auth.Claims, error) {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, auth.ErrInvalidToken
	}
	return h.verifier.Verify(token)
}

func (h *Handler) history(c *fiber.Ctx) error {
	claims, err := h.bearerClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}
	projectID := c.Params("projectId")

	member, err := h.repos.Projects.IsMember(c.UserContext(), projectID, claims.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	if !member {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "not a project member"})
	}

	limit := defaultHistoryLimit
	if l := c.Query("limit"); l != "" {
		if parsed, perr := strconv.Atoi(l); perr == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	messages, err := h.repos.Messages.History(c.UserContext(), projectID, c.Query("roomType"), c.Query("roomId"), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "history failed"})
	}
	return c.JSON(fiber.Map{"messages": messages})
}

func (h *Handler) notifications(c *fiber.Ctx) error {
	claims, err := h.bearerClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid token"})
	}
	list, err := h.repos.Notifications.ListUnread(c.UserContext(), claims.UserID, defaultHistoryLimit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "lookup failed"})
	}
	return c.JSON(fiber.Map{"notifications": list})
}

// handleSocket runs one websocket connection: authenticate before any event
// is accepted, register with the hub, pump outbound frames from the client's
// buffered channel, and dispatch inbound frames until the peer goes away.
func (h *Handler) handleSocket(conn *websocket.Conn) {
	ctx := context.Background()

	token := conn.Query("token")
	claims, err := h.verifier.Verify(token)
	if err != nil {
		_ = conn.WriteJSON(business.OutboundEvent{
			Event:   business.OutError,
			Payload: business.ErrorPayload{Message: "authentication failed"},
		})
		_ = conn.Close()
		return
	}

	client := business.NewClient(claims.UserID, claims.Email, claims.Name, h.cfg.ConnectionSendBuffer)
	if err := h.hub.Register(ctx, client); err != nil {
		_ = conn.Close()
		return
	}

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		for evt := range client.Outbound() {
			if werr := conn.WriteJSON(evt); werr != nil {
				return
			}
		}
	}()

	for {
		_, raw, rerr := conn.ReadMessage()
		if rerr != nil {
			break
		}
		h.hub.Dispatch(ctx, client, raw)
	}

	// Cleanup is synchronous: once Unregister returns the connection is out
	// of every room and its outbound channel is closed.
	h.hub.Unregister(ctx, client)
	_ = conn.Close()
	<-pumpDone

	util.Log(ctx).WithField("conn_id", client.ID).Debug("socket closed")
}
