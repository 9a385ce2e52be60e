package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/img-edit-agent/studio/internal/conversation"
	"github.com/img-edit-agent/studio/internal/gallery"
	"github.com/img-edit-agent/studio/internal/resource"
	"github.com/img-edit-agent/studio/internal/storage"
	"github.com/img-edit-agent/studio/internal/studio"
	"github.com/img-edit-agent/studio/internal/upload"
)

// SessionFactory creates a fresh, seeded session
type SessionFactory func() (*studio.Session, error)

type Handler struct {
	sessionStore *storage.SessionStore
	newSession   SessionFactory
}

func New(sessionStore *storage.SessionStore, newSession SessionFactory) *Handler {
	return &Handler{
		sessionStore: sessionStore,
		newSession:   newSession,
	}
}

// Register mounts the studio API on e
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/healthcheck", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	group := e.Group("/api", middleware.BodyLimit("12M"))

	group.POST("/sessions", h.createSession)
	group.GET("/sessions", h.listSessions)
	group.GET("/sessions/:id", h.getSession)
	group.DELETE("/sessions/:id", h.deleteSession)

	group.GET("/sessions/:id/images", h.listImages)
	group.POST("/sessions/:id/images", h.uploadImage)
	group.GET("/sessions/:id/images/:imageID/download", h.downloadImage)
	group.GET("/sessions/:id/previews/:ref", h.preview)

	group.POST("/sessions/:id/selection/:imageID", h.toggleSelection)
	group.DELETE("/sessions/:id/selection", h.clearSelection)

	group.GET("/sessions/:id/messages", h.listMessages)
	group.POST("/sessions/:id/messages", h.sendMessage)

	group.GET("/sessions/:id/export/messages.parquet", h.exportMessages)
	group.GET("/sessions/:id/export/images.parquet", h.exportImages)
}

// NewServer creates an echo instance serving the studio API
func NewServer(h *Handler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelDebug
			if v.Status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			slog.Log(c.Request().Context(), level, "Request", "method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))
	h.Register(e)
	return e
}

// Session helpers
func (h *Handler) getSessionOrError(c echo.Context) (*studio.Session, error) {
	session, exists := h.sessionStore.Get(c.Param("id"))
	if !exists {
		return nil, echo.NewHTTPError(http.StatusNotFound, "Session not found")
	}
	return session, nil
}

// errorStatus maps domain errors onto HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, gallery.ErrNotFound), errors.Is(err, resource.ErrUnknownRef):
		return http.StatusNotFound
	case errors.Is(err, conversation.ErrEmptyMessage), errors.Is(err, upload.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, conversation.ErrPending):
		return http.StatusConflict
	case errors.Is(err, upload.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNotAnImage):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, resource.ErrReleased):
		return http.StatusGone
	case errors.Is(err, studio.ErrDownloadFailed):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (h *Handler) writeError(err error) error {
	code := errorStatus(err)
	if code >= http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	}
	return echo.NewHTTPError(code, err.Error())
}
