// Export endpoints: download a chat transcript or a document analysis as a
// plain-text or PDF file. The format query parameter selects the rendering;
// missing means txt.
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pleader-ai/go-legal-backend/internal/export"
	"github.com/pleader-ai/go-legal-backend/internal/services"
)

// ExportChat serves GET /chats/:id/export?format=txt|pdf.
func (h *Handlers) ExportChat(c *gin.Context) {
	h.exportFile(c, "chat id must be a UUID", func(f export.Format) ([]byte, string, error) {
		return h.ExportSvc.Chat(c.Request.Context(), userID(c), c.Param("id"), f)
	})
}

// ExportDocument serves GET /documents/:id/export?format=txt|pdf.
func (h *Handlers) ExportDocument(c *gin.Context) {
	h.exportFile(c, "document id must be a UUID", func(f export.Format) ([]byte, string, error) {
		return h.ExportSvc.Document(c.Request.Context(), userID(c), c.Param("id"), f)
	})
}

func (h *Handlers) exportFile(c *gin.Context, badID string, render func(export.Format) ([]byte, string, error)) {
	if h.ExportSvc == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found")
		return
	}
	if _, err := uuid.Parse(c.Param("id")); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, badID)
		return
	}
	f, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "format must be txt or pdf")
		return
	}

	data, name, err := render(f)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrChatNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		case errors.Is(err, services.ErrDocumentNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeExportFailed, err.Error())
		}
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, f.ContentType(), data)
}
