// Package agent is a reference chat backend answering POST /chat for the studio.
package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/img-edit-agent/studio/internal/models"
)

// Request is the body of POST /chat.
// Selected images may be sent as plain titles or as full image objects.
type Request struct {
	Message string
	// SelectedImages holds the selected titles, falling back to ids
	SelectedImages []string
	Images         []SelectedImage
	UserID         string
}

// SelectedImage is a selected image as sent by the client; URL is empty for plain titles
type SelectedImage struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	var raw struct {
		Message        *string           `json:"message"`
		SelectedImages []json.RawMessage `json:"selected_images"`
		UserID         string            `json:"user_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Message == nil {
		return fmt.Errorf("field required: message")
	}

	r.Message = *raw.Message
	r.UserID = raw.UserID
	r.SelectedImages = make([]string, 0, len(raw.SelectedImages))
	r.Images = make([]SelectedImage, 0, len(raw.SelectedImages))

	for i, item := range raw.SelectedImages {
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			r.SelectedImages = append(r.SelectedImages, name)
			r.Images = append(r.Images, SelectedImage{Title: name})
			continue
		}

		var img SelectedImage
		if err := json.Unmarshal(item, &img); err != nil {
			return fmt.Errorf("selected_images[%d]: must be a string or an image object", i)
		}
		if img.Title == "" {
			img.Title = img.ID
		}
		r.SelectedImages = append(r.SelectedImages, img.Title)
		r.Images = append(r.Images, img)
	}
	return nil
}

// Server serves the chat API
type Server struct {
	e         *echo.Echo
	responder Responder
}

// New creates the chat server answering with responder
func New(responder Responder) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		e:         e,
		responder: responder,
	}

	e.GET("/", s.root)
	e.GET("/health", s.health)
	e.POST("/chat", s.chat)

	return s
}

// Handler returns the http.Handler for the server
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"message": "AI Image Editor API is running!"})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy", "service": "ai-image-editor-api"})
}

func (s *Server) chat(c echo.Context) error {
	var req Request
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"detail": fmt.Sprintf("Invalid request: %v", err)})
	}

	reply, err := s.responder.Respond(c.Request().Context(), req)
	if err != nil {
		slog.Error("Chat request failed", "user_id", req.UserID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"detail": fmt.Sprintf("Error processing request: %v", err)})
	}

	slog.Debug("Chat request answered", "user_id", req.UserID, "selected_images", len(req.SelectedImages), "generated", reply.Image != nil)
	return c.JSON(http.StatusOK, models.ChatResponse{
		Response:       reply.Text,
		Status:         models.StatusSuccess,
		GeneratedImage: reply.Image,
	})
}
