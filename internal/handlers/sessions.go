package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (h *Handler) createSession(c echo.Context) error {
	session, err := h.newSession()
	if err != nil {
		return h.writeError(err)
	}
	h.sessionStore.Set(session.ID, session)
	return c.JSON(http.StatusCreated, session.Snapshot())
}

func (h *Handler) listSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"sessions": h.sessionStore.IDs()})
}

func (h *Handler) getSession(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.Snapshot())
}

func (h *Handler) deleteSession(c echo.Context) error {
	if !h.sessionStore.Delete(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}
	return c.NoContent(http.StatusNoContent)
}
