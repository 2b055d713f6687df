package refdata

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"quoteflow-backend/internal/shared/server/respond"
)

// Handler exposes read-only reference data for selector population.
type Handler struct {
	Provider *Provider
}

// NewHandler constructs a Handler.
func NewHandler(provider *Provider) *Handler {
	return &Handler{Provider: provider}
}

// RegisterRoutes attaches reference data routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/reference/languages", h.listLanguages)
	rg.GET("/reference/certification-types", h.listCertificationTypes)
	rg.GET("/reference/delivery-options", h.listDeliveryOptions)
	rg.POST("/reference/invalidate", h.invalidate)
}

func (h *Handler) listLanguages(c *gin.Context) {
	langs, err := h.Provider.Languages(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load languages", nil)
		return
	}
	respond.JSON(c, http.StatusOK, langs)
}

func (h *Handler) listCertificationTypes(c *gin.Context) {
	certs, err := h.Provider.CertificationTypes(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load certification types", nil)
		return
	}
	respond.JSON(c, http.StatusOK, certs)
}

func (h *Handler) listDeliveryOptions(c *gin.Context) {
	opts, err := h.Provider.DeliveryOptions(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to load delivery options", nil)
		return
	}
	respond.JSON(c, http.StatusOK, opts)
}

func (h *Handler) invalidate(c *gin.Context) {
	h.Provider.Invalidate()
	respond.JSON(c, http.StatusOK, gin.H{"ok": true})
}
