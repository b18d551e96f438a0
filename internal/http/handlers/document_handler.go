// Document HTTP handlers.
//
// This file exposes REST endpoints for document resources:
//   - POST   /documents/analyze   (upload, extract, analyze, index)
//   - GET    /documents           (list metadata, ETag support)
//   - DELETE /documents/{id}      (delete and evict from the index)
//
// Uploads are multipart/form-data with the file under the "file" field.
// The handler enforces a per-request size cap before reading the payload.
package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pleader-ai/go-legal-backend/internal/domain"
	"github.com/pleader-ai/go-legal-backend/internal/repo"
	"github.com/pleader-ai/go-legal-backend/internal/services"
)

// defaultMaxUploadBytes caps document uploads when no limit is configured.
const defaultMaxUploadBytes = 10 << 20

//
// DTOs
//

// AnalyzeDocumentResponse is the JSON envelope for a newly analyzed document.
type AnalyzeDocumentResponse struct {
	// Document carries the stored metadata and the analysis payload.
	Document *domain.Document `json:"document"`
}

// ListDocumentsResponse wraps the user's document metadata listing.
type ListDocumentsResponse struct {
	Documents []domain.Document `json:"documents"`
	Total     int               `json:"total"`
}

//
// Handlers
//

// AnalyzeDocument accepts a multipart upload, runs extraction and analysis,
// indexes the document for retrieval, and returns the stored resource.
func (h *Handlers) AnalyzeDocument(c *gin.Context) {
	ctx := c.Request.Context()

	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `multipart "file" field required`)
		return
	}
	if fileHeader.Size > maxBytes {
		fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest,
			fmt.Sprintf("file too large: max %d bytes", maxBytes))
		return
	}

	filename := filepath.Base(strings.TrimSpace(fileHeader.Filename))
	if filename == "" || filename == "." {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "filename required")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read uploaded file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot read uploaded file")
		return
	}

	doc, err := h.docSvc.Analyze(ctx, userID(c), filename, data)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsupportedFileType):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unsupported file type: use .pdf or .txt")
		case errors.Is(err, services.ErrExtractionFailed):
			fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, "could not extract text from document")
		case errors.Is(err, services.ErrInsufficientText):
			fail(c, http.StatusUnprocessableEntity, ErrCodeUnprocessable, "document contains too little text to analyze")
		case errors.Is(err, services.ErrGenerationFailed):
			fail(c, http.StatusBadGateway, ErrCodeUpstream, "document analysis failed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeAnalyzeFailed, err.Error())
		}
		return
	}

	ok(c, http.StatusCreated, AnalyzeDocumentResponse{Document: doc})
}

// ListDocuments returns metadata for the current user's documents.
// Supports weak ETag via If-None-Match and may return 304.
func (h *Handlers) ListDocuments(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	if svc, okSvc := h.docSvc.(*services.DocumentService); okSvc && svc.DB != nil {
		if count, maxTS, err := repo.DocumentsStats(ctx, svc.DB, uid); err == nil {
			if writeETag(c, weakETag("documents", uid, count, maxTS)) {
				return
			}
		}
	}

	docs, err := h.docSvc.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, ListDocumentsResponse{Documents: docs, Total: len(docs)})
}

// DeleteDocument removes a document owned by the current user and evicts
// its chunks from the vector index.
func (h *Handlers) DeleteDocument(c *gin.Context) {
	documentID := c.Param("id")
	if _, err := uuid.Parse(documentID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "document id must be a UUID")
		return
	}

	if err := h.docSvc.Delete(c.Request.Context(), userID(c), documentID); err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "document not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, err.Error())
		return
	}

	noContent(c)
}
