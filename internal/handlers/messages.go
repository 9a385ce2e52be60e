package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/img-edit-agent/studio/internal/models"
)

type sendRequest struct {
	Message string `json:"message"`
}

type sendResponse struct {
	UserMessage    models.Message    `json:"user_message"`
	AgentMessage   models.Message    `json:"agent_message"`
	GeneratedImage *models.ImageItem `json:"generated_image,omitempty"`
	Fallback       bool              `json:"fallback"`
}

func (h *Handler) listMessages(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.Transcript.List())
}

func (h *Handler) sendMessage(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}

	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}

	result, err := session.Send(c.Request().Context(), req.Message)
	if err != nil {
		return h.writeError(err)
	}

	return c.JSON(http.StatusOK, sendResponse{
		UserMessage:    result.UserMessage,
		AgentMessage:   result.AgentMessage,
		GeneratedImage: result.GeneratedImage,
		Fallback:       result.Fallback,
	})
}
