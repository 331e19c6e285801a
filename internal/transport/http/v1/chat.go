package v1

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ChatRequest is the send-message request body.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// Chat handles a blocking chat turn.
// POST /v1/chat
func (h *Handler) Chat(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	result, err := h.service.SendMessage(c.Request().Context(), user, req.ConversationID, req.Message)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, result)
}

// ChatStream handles a streaming chat turn, framing each text delta as a
// server-sent event and terminating the stream with a [DONE] marker.
// POST /v1/chat/stream
func (h *Handler) ChatStream(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	flusher, ok := c.Response().Writer.(http.Flusher)
	if !ok {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "streaming not supported"})
	}

	// Headers are written lazily on the first delta so that errors before
	// any output (e.g. a foreign conversation id) still map to a status.
	streaming := false
	_, err = h.service.SendMessageStream(c.Request().Context(), user, req.ConversationID, req.Message, func(delta string) error {
		if !streaming {
			c.Response().Header().Set("Content-Type", "text/event-stream")
			c.Response().Header().Set("Cache-Control", "no-cache")
			c.Response().Header().Set("Connection", "keep-alive")
			c.Response().WriteHeader(http.StatusOK)
			streaming = true
		}
		if _, err := fmt.Fprintf(c.Response().Writer, "data: %s\n\n", delta); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})

	if err != nil {
		if !streaming {
			return jsonError(c, err)
		}
		// Can't change status code after writing the stream; the missing
		// [DONE] marker tells the client the reply is incomplete.
		c.Logger().Errorf("chat stream failed: %v", err)
		return nil
	}

	fmt.Fprint(c.Response().Writer, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

// ListConversations lists the user's conversations.
// GET /v1/chat/conversations
func (h *Handler) ListConversations(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	conversations, err := h.service.ListConversations(c.Request().Context(), user)
	if err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"conversations": conversations,
	})
}

// DeleteConversation deletes one of the user's conversations.
// DELETE /v1/chat/conversations/:conversation_id
func (h *Handler) DeleteConversation(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteConversation(c.Request().Context(), user, c.Param("conversation_id")); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Conversation deleted"})
}

// DeleteMemories purges all vector memories stored for the user.
// DELETE /v1/memories
func (h *Handler) DeleteMemories(c echo.Context) error {
	user, err := userID(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteUserMemories(c.Request().Context(), user); err != nil {
		return jsonError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Memories deleted"})
}
