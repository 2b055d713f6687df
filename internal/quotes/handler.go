package quotes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"quoteflow-backend/internal/pricing"
	"quoteflow-backend/internal/refdata"
	"quoteflow-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the quotes service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches quote routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/quotes", h.create)
	rg.GET("/quotes", h.list)
	rg.GET("/quotes/:id", h.get)
	rg.PATCH("/quotes/:id/settings", h.updateSettings)
	rg.PUT("/quotes/:id/adjustments", h.updateAdjustments)
	rg.POST("/quotes/:id/recalculate", h.recalculate)
	rg.POST("/quotes/:id/apply-certification", h.applyCertification)
	rg.POST("/quotes/:id/submit", h.submit)
}

type createQuoteRequest struct {
	CustomerName     string `json:"customerName"`
	CustomerEmail    string `json:"customerEmail"`
	SourceLanguageID string `json:"sourceLanguageId"`
	TargetLanguageID string `json:"targetLanguageId"`
	IntendedUseID    string `json:"intendedUseId"`
	CountryOfIssue   string `json:"countryOfIssue"`
}

func (h *Handler) create(c *gin.Context) {
	var req createQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	detail, err := h.Svc.Create(c.Request.Context(), CreateInput{
		CustomerName:     req.CustomerName,
		CustomerEmail:    req.CustomerEmail,
		SourceLanguageID: req.SourceLanguageID,
		TargetLanguageID: req.TargetLanguageID,
		IntendedUseID:    req.IntendedUseID,
		CountryOfIssue:   req.CountryOfIssue,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, detail)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context())
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
	c.Set("quoteId", detail.Quote.ID)
	respond.JSON(c, http.StatusOK, detail)
}

type updateSettingsRequest struct {
	SourceLanguageID           *string  `json:"sourceLanguageId"`
	TargetLanguageID           *string  `json:"targetLanguageId"`
	IntendedUseID              *string  `json:"intendedUseId"`
	CountryOfIssue             *string  `json:"countryOfIssue"`
	LanguageMultiplierOverride *float64 `json:"languageMultiplierOverride"`
	ResetOverride              bool     `json:"resetOverride"`
}

func (h *Handler) updateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	settings, err := h.Svc.UpdateSettings(c.Request.Context(), c.Param("id"), SettingsPatch{
		SourceLanguageID:           req.SourceLanguageID,
		TargetLanguageID:           req.TargetLanguageID,
		IntendedUseID:              req.IntendedUseID,
		CountryOfIssue:             req.CountryOfIssue,
		LanguageMultiplierOverride: req.LanguageMultiplierOverride,
		ResetOverride:              req.ResetOverride,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, settings)
}

type updateAdjustmentsRequest struct {
	IsRush           bool     `json:"isRush"`
	DeliveryOptionID *string  `json:"deliveryOptionId"`
	HasDiscount      bool     `json:"hasDiscount"`
	DiscountType     string   `json:"discountType"`
	DiscountValue    float64  `json:"discountValue"`
	HasSurcharge     bool     `json:"hasSurcharge"`
	SurchargeType    string   `json:"surchargeType"`
	SurchargeValue   float64  `json:"surchargeValue"`
	TaxRate          *float64 `json:"taxRate"`
}

func (h *Handler) updateAdjustments(c *gin.Context) {
	var req updateAdjustmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	price, err := h.Svc.UpdateAdjustments(c.Request.Context(), c.Param("id"), AdjustmentsInput{
		IsRush:           req.IsRush,
		DeliveryOptionID: req.DeliveryOptionID,
		HasDiscount:      req.HasDiscount,
		DiscountType:     req.DiscountType,
		DiscountValue:    req.DiscountValue,
		HasSurcharge:     req.HasSurcharge,
		SurchargeType:    req.SurchargeType,
		SurchargeValue:   req.SurchargeValue,
		TaxRate:          req.TaxRate,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, price)
}

func (h *Handler) recalculate(c *gin.Context) {
	quoteID := c.Param("id")
	c.Set("quoteId", quoteID)
	if err := h.Svc.Recalculate(c.Request.Context(), quoteID); err != nil {
		h.writeError(c, err)
		return
	}
	price, err := h.Svc.Repo.GetPricing(c.Request.Context(), quoteID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, price)
}

type applyCertificationRequest struct {
	CertificationTypeID *string `json:"certificationTypeId"`
}

func (h *Handler) applyCertification(c *gin.Context) {
	var req applyCertificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	err := h.Svc.ApplyCertificationToAll(c.Request.Context(), c.Param("id"), req.CertificationTypeID)
	var batchErr *BatchError
	if errors.As(err, &batchErr) {
		respond.Error(c, http.StatusMultiStatus, "partial_batch_failure", batchErr.Error(), batchErr)
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	price, err := h.Svc.Repo.GetPricing(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, price)
}

func (h *Handler) submit(c *gin.Context) {
	quote, err := h.Svc.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.JSON(c, http.StatusOK, quote)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, ErrConcurrentModification):
		respond.Error(c, http.StatusConflict, "concurrent_modification", err.Error(), nil)
	case errors.Is(err, refdata.ErrReferenceNotFound):
		respond.Error(c, http.StatusUnprocessableEntity, "reference_not_found", err.Error(), nil)
	case errors.Is(err, pricing.ErrInvalidArgument):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "operation failed", nil)
	}
}
