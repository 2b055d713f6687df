package sourcefiles

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quoteflow-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the source files service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches file routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/:id/files", h.upload)
	rg.GET("/quotes/:id/files", h.list)
}

func (h *Handler) upload(c *gin.Context) {
	quoteID := c.Param("id")
	if quoteID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "quote id is required", nil)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "multipart file field is required", nil)
		return
	}
	body, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "failed to read upload", nil)
		return
	}
	defer body.Close()

	file, err := h.Svc.Register(c.Request.Context(), quoteID, fileHeader.Filename, body)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to register file", nil)
		return
	}
	respond.JSON(c, http.StatusCreated, file)
}

func (h *Handler) list(c *gin.Context) {
	quoteID := c.Param("id")
	if quoteID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "quote id is required", nil)
		return
	}

	files, err := h.Svc.ListByQuote(c.Request.Context(), quoteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "quote files not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list files", nil)
		return
	}
	respond.JSON(c, http.StatusOK, files)
}
