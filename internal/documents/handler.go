package documents

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docsearch-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/upload-url", h.uploadURL)
	rg.GET("/documents", h.list)
	rg.GET("/documents/stream", h.stream)
	rg.DELETE("/documents/:id", h.delete)
}

type uploadURLRequest struct {
	OwnerEmail string `json:"ownerEmail"`
	FileName   string `json:"fileName"`
}

func (h *Handler) uploadURL(c *gin.Context) {
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.OwnerEmail = strings.TrimSpace(req.OwnerEmail)
	req.FileName = strings.TrimSpace(req.FileName)

	if req.OwnerEmail == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ownerEmail is required", nil)
		return
	}
	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}

	grant, err := h.Svc.CreateUploadURL(c.Request.Context(), req.OwnerEmail, req.FileName)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid ownerEmail or fileName", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, toGrantResponse(grant))
}

func (h *Handler) list(c *gin.Context) {
	ownerEmail := strings.TrimSpace(c.Query("ownerEmail"))
	if ownerEmail == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ownerEmail is required", nil)
		return
	}

	items, err := h.Svc.List(c.Request.Context(), ownerEmail, c.Query("search"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		}
		return
	}

	resp := make([]DocumentResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, toResponse(item))
	}

	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid document id", nil)
		return
	}

	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) stream(c *gin.Context) {
	ownerEmail := strings.TrimSpace(c.Query("ownerEmail"))
	if ownerEmail == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "ownerEmail is required", nil)
		return
	}

	updates, cancel := h.Svc.Subscribe(ownerEmail)
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)

	// The request context ends when the client disconnects.
	for {
		select {
		case update, ok := <-updates:
			if !ok {
				return
			}
			c.SSEvent("status", update)
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}
