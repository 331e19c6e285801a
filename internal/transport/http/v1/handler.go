// Package v1 provides the v1 HTTP handlers for the chat backend.
package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jetaide/backend/internal/domain"
	"github.com/jetaide/backend/internal/service"
)

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Chat API
	e.POST("/v1/chat", h.Chat)
	e.POST("/v1/chat/stream", h.ChatStream)
	e.GET("/v1/chat/conversations", h.ListConversations)
	e.DELETE("/v1/chat/conversations/:conversation_id", h.DeleteConversation)
	e.DELETE("/v1/memories", h.DeleteMemories)

	// Goals API
	e.GET("/v1/goals", h.ListGoals)
	e.POST("/v1/goals", h.CreateGoal)
	e.GET("/v1/goals/:goal_id", h.GetGoal)
	e.PATCH("/v1/goals/:goal_id", h.UpdateGoal)
	e.DELETE("/v1/goals/:goal_id", h.DeleteGoal)
	e.POST("/v1/goals/:goal_id/progress", h.AddProgress)
	e.GET("/v1/goals/:goal_id/progress", h.ListProgress)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": "0.1.0",
	})
}

// userID extracts the requesting user from the X-User-ID header injected
// by the identity layer in front of this service.
func userID(c echo.Context) (string, error) {
	id := c.Request().Header.Get("X-User-ID")
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing X-User-ID header")
	}
	return id, nil
}

// jsonError maps service errors onto status codes.
func jsonError(c echo.Context, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	if errors.Is(err, domain.ErrInvalidInput) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
