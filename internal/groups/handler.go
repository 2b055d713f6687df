package groups

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quoteflow-backend/internal/pricing"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/server/respond"
	"quoteflow-backend/internal/sourcefiles"
)

// Handler wires HTTP handlers to the groups service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches group routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes/:id/groups", h.create)
	rg.GET("/quotes/:id/groups", h.listByQuote)
	rg.POST("/quotes/:id/analyze-groups", h.analyzeAll)
	rg.GET("/groups/:id", h.get)
	rg.POST("/groups/:id/items", h.assignItem)
	rg.POST("/groups/:id/analyze", h.analyze)
	rg.PUT("/groups/:id/certification", h.setCertification)
	rg.DELETE("/groups/:id", h.remove)
	rg.DELETE("/group-items/:id", h.removeItem)
}

type createGroupRequest struct {
	Label               string  `json:"label"`
	DocumentType        string  `json:"documentType"`
	Complexity          string  `json:"complexity"`
	CertificationTypeID *string `json:"certificationTypeId"`
}

func (h *Handler) create(c *gin.Context) {
	quoteID := c.Param("id")
	var req createGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	group, err := h.Svc.Create(c.Request.Context(), quoteID, CreateInput{
		Label:               req.Label,
		DocumentType:        req.DocumentType,
		Complexity:          req.Complexity,
		CertificationTypeID: req.CertificationTypeID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, group)
}

func (h *Handler) listByQuote(c *gin.Context) {
	list, err := h.Svc.ListByQuote(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, list)
}

func (h *Handler) get(c *gin.Context) {
	detail, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, detail)
}

type assignItemRequest struct {
	FileID string  `json:"fileId"`
	PageID *string `json:"pageId"`
}

func (h *Handler) assignItem(c *gin.Context) {
	var req assignItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.FileID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileId is required", nil)
		return
	}

	item, err := h.Svc.AssignItem(c.Request.Context(), c.Param("id"), req.FileID, req.PageID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, item)
}

func (h *Handler) analyze(c *gin.Context) {
	group, err := h.Svc.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, group)
}

func (h *Handler) analyzeAll(c *gin.Context) {
	result, err := h.Svc.AnalyzeAll(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

type setCertificationRequest struct {
	CertificationTypeID *string `json:"certificationTypeId"`
}

func (h *Handler) setCertification(c *gin.Context) {
	var req setCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	group, err := h.Svc.SetCertification(c.Request.Context(), c.Param("id"), req.CertificationTypeID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, group)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) removeItem(c *gin.Context) {
	if err := h.Svc.RemoveItem(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrGroupNotFound), errors.Is(err, ErrItemNotFound), errors.Is(err, sourcefiles.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrGroupEmpty):
		respond.Error(c, http.StatusConflict, "group_empty", err.Error(), nil)
	case errors.Is(err, refdata.ErrReferenceNotFound):
		respond.Error(c, http.StatusUnprocessableEntity, "reference_not_found", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidArgument):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "operation failed", nil)
	}
}
