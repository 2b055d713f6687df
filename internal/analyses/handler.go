package analyses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quoteflow-backend/internal/pricing"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/server/respond"
	"quoteflow-backend/internal/sourcefiles"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/files/:id/analyze", h.analyze)
	rg.POST("/files/:id/reanalyze", h.reanalyze)
	rg.POST("/quotes/:id/analyze-files", h.analyzeSelected)
	rg.GET("/quotes/:id/records", h.listByQuote)
	rg.POST("/quotes/:id/records", h.createManual)
	rg.GET("/records/:id", h.get)
	rg.PATCH("/records/:id", h.edit)
	rg.DELETE("/records/:id", h.remove)
}

func (h *Handler) analyze(c *gin.Context) {
	fileID := c.Param("id")
	record, err := h.Svc.StartAnalysis(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, ErrAnalysisInProgress) {
			respond.JSON(c, http.StatusAccepted, record)
			return
		}
		h.writeError(c, err)
		return
	}
	c.Set("recordId", record.ID)
	c.Set("quoteId", record.QuoteID)
	respond.JSON(c, http.StatusAccepted, record)
}

func (h *Handler) reanalyze(c *gin.Context) {
	fileID := c.Param("id")
	record, err := h.Svc.Reanalyze(c.Request.Context(), fileID)
	if err != nil {
		if errors.Is(err, ErrAnalysisInProgress) {
			respond.JSON(c, http.StatusAccepted, record)
			return
		}
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusAccepted, record)
}

type analyzeSelectedRequest struct {
	FileIDs []string `json:"fileIds"`
}

func (h *Handler) analyzeSelected(c *gin.Context) {
	quoteID := c.Param("id")
	var req analyzeSelectedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if len(req.FileIDs) == 0 {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileIds must not be empty", nil)
		return
	}

	result, err := h.Svc.AnalyzeSelected(c.Request.Context(), quoteID, req.FileIDs)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, result)
}

type createManualRequest struct {
	DetectedLanguageCode string  `json:"detectedLanguageCode"`
	DocumentType         string  `json:"documentType"`
	Complexity           string  `json:"complexity"`
	WordCount            int     `json:"wordCount"`
	PageCount            int     `json:"pageCount"`
	BillablePages        float64 `json:"billablePages"`
	CertificationTypeID  *string `json:"certificationTypeId"`
	StaffID              string  `json:"staffId"`
}

func (h *Handler) createManual(c *gin.Context) {
	quoteID := c.Param("id")
	var req createManualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.StaffID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "staffId is required", nil)
		return
	}

	record, err := h.Svc.CreateManual(c.Request.Context(), quoteID, ManualInput{
		DetectedLanguageCode: req.DetectedLanguageCode,
		DocumentType:         req.DocumentType,
		Complexity:           req.Complexity,
		WordCount:            req.WordCount,
		PageCount:            req.PageCount,
		BillablePages:        req.BillablePages,
		CertificationTypeID:  req.CertificationTypeID,
	}, req.StaffID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, record)
}

func (h *Handler) listByQuote(c *gin.Context) {
	quoteID := c.Param("id")
	records, err := h.Svc.ListByQuote(c.Request.Context(), quoteID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, records)
}

func (h *Handler) get(c *gin.Context) {
	record, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("recordId", record.ID)
	c.Set("quoteId", record.QuoteID)
	respond.JSON(c, http.StatusOK, record)
}

type editRequest struct {
	DetectedLanguageCode *string  `json:"detectedLanguageCode"`
	DocumentType         *string  `json:"documentType"`
	Complexity           *string  `json:"complexity"`
	WordCount            *int     `json:"wordCount"`
	PageCount            *int     `json:"pageCount"`
	BillablePages        *float64 `json:"billablePages"`
	CertificationTypeID  *string  `json:"certificationTypeId"`
	ClearCertification   bool     `json:"clearCertification"`
}

func (h *Handler) edit(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	record, err := h.Svc.Edit(c.Request.Context(), c.Param("id"), Patch{
		DetectedLanguageCode: req.DetectedLanguageCode,
		DocumentType:         req.DocumentType,
		Complexity:           req.Complexity,
		WordCount:            req.WordCount,
		PageCount:            req.PageCount,
		BillablePages:        req.BillablePages,
		CertificationTypeID:  req.CertificationTypeID,
		ClearCertification:   req.ClearCertification,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, record)
}

func (h *Handler) remove(c *gin.Context) {
	if err := h.Svc.Remove(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, sourcefiles.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, refdata.ErrReferenceNotFound):
		respond.Error(c, http.StatusUnprocessableEntity, "reference_not_found", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidArgument):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "operation failed", nil)
	}
}
