package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jetaide/backend/internal/domain"
)

// CreateGoalRequest is the goal creation request body.
type CreateGoalRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
}

// ProgressRequest is the progress entry request body.
type ProgressRequest struct {
	Note string `json:"note"`
	Mood string `json:"mood,omitempty"`
}

// ListGoals lists all goals for the user.
// GET /v1/goals
func (h *Handler) ListGoals(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	goals, err := h.service.ListGoals(c.Request().Context(), user)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"goals": goals,
	})
}

// CreateGoal creates a new goal.
// POST /v1/goals
func (h *Handler) CreateGoal(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var req CreateGoalRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Title == "" || req.Category == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title and category are required"})
	}

	goal, err := h.service.CreateGoal(c.Request().Context(), user, req.Title, req.Description, req.Category)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, goal)
}

// GetGoal returns a specific goal.
// GET /v1/goals/:goal_id
func (h *Handler) GetGoal(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	goal, err := h.service.GetGoal(c.Request().Context(), user, c.Param("goal_id"))
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, goal)
}

// UpdateGoal applies a partial update to a goal.
// PATCH /v1/goals/:goal_id
func (h *Handler) UpdateGoal(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var update domain.GoalUpdate
	if err := c.Bind(&update); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	goal, err := h.service.UpdateGoal(c.Request().Context(), user, c.Param("goal_id"), update)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, goal)
}

// DeleteGoal deletes a goal and its progress entries.
// DELETE /v1/goals/:goal_id
func (h *Handler) DeleteGoal(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteGoal(c.Request().Context(), user, c.Param("goal_id")); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Goal deleted"})
}

// AddProgress records a progress entry against a goal.
// POST /v1/goals/:goal_id/progress
func (h *Handler) AddProgress(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var req ProgressRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Note == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "note is required"})
	}

	entry, err := h.service.AddProgress(c.Request().Context(), user, c.Param("goal_id"), req.Note, req.Mood)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, entry)
}

// ListProgress lists a goal's progress entries.
// GET /v1/goals/:goal_id/progress
func (h *Handler) ListProgress(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	entries, err := h.service.ListProgress(c.Request().Context(), user, c.Param("goal_id"))
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"progress": entries,
	})
}
