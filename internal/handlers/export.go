package handlers

import (
	"bytes"
	"mime"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/img-edit-agent/studio/internal/export"
)

const parquetContentType = "application/vnd.apache.parquet"

func (h *Handler) exportMessages(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, export.MessageRecords(session.ID, session.Transcript.List())); err != nil {
		return h.writeError(err)
	}
	return writeParquet(c, session.ID+"-messages.parquet", buf.Bytes())
}

func (h *Handler) exportImages(c echo.Context) error {
	session, err := h.getSessionOrError(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	records := export.ImageRecords(session.ID, session.Store.List(), session.Selection.Snapshot())
	if err := export.Write(&buf, records); err != nil {
		return h.writeError(err)
	}
	return writeParquet(c, session.ID+"-images.parquet", buf.Bytes())
}

func writeParquet(c echo.Context, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	return c.Blob(http.StatusOK, parquetContentType, data)
}
