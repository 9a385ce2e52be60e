package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/img-edit-agent/studio/internal/models"
)

type uploadResponse struct {
	Image    models.ImageItem `json:"image"`
	Selected []string         `json:"selected"`
}

type selectionResponse struct {
	ImageID  string   `json:"image_id"`
	Selected bool     `json:"selected"`
	All      []string `json:"all"`
}

func (h *Handler) listImages(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, session.Store.List())
}

func (h *Handler) uploadImage(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("missing file: %v", err))
	}

	file, err := readUpload(fh)
	if err != nil {
		return h.writeError(err)
	}

	chat := false
	if v := c.FormValue("chat"); v != "" {
		if chat, err = strconv.ParseBool(v); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid chat flag: %v", err))
		}
	}

	item, err := session.Upload(c.Request().Context(), file, chat)
	if err != nil {
		return h.writeError(err)
	}

	return c.JSON(http.StatusAccepted, uploadResponse{
		Image:    item,
		Selected: session.Selection.Snapshot(),
	})
}

func (h *Handler) toggleSelection(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}

	imageID := c.Param("imageID")
	selected, err := session.ToggleSelection(imageID)
	if err != nil {
		return h.writeError(err)
	}

	return c.JSON(http.StatusOK, selectionResponse{
		ImageID:  imageID,
		Selected: selected,
		All:      session.Selection.Snapshot(),
	})
}

func (h *Handler) clearSelection(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}
	session.ClearSelection()
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) preview(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}

	ref, err := url.PathUnescape(c.Param("ref"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reference")
	}

	data, contentType, err := session.Preview(ref)
	if err != nil {
		return h.writeError(err)
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, contentType, data)
}

func (h *Handler) downloadImage(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}

	d, err := session.Download(c.Request().Context(), c.Param("imageID"))
	if err != nil {
		return h.writeError(err)
	}

	contentType := d.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(d.Data)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": d.Filename}))
	return c.Blob(http.StatusOK, contentType, d.Data)
}
