package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// ProductService is the product catalog as seen by HTTP.
type ProductService interface {
	List(ctx context.Context, activeOnly bool) ([]models.ProductView, error)
	Get(ctx context.Context, id string) (models.ProductView, error)
	Create(ctx context.Context, in models.ProductInput) (models.ProductView, error)
	Update(ctx context.Context, id string, patch models.ProductPatch) (models.ProductView, error)
	Deactivate(ctx context.Context, id string) (models.ProductView, error)
	Delete(ctx context.Context, id string) error
}

// ProductHandler serves /api/products.
type ProductHandler struct {
	svc    ProductService
	logger *zap.Logger
}

// NewProductHandler constructs the product HTTP adapter.
func NewProductHandler(svc ProductService, logger *zap.Logger) *ProductHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductHandler{svc: svc, logger: logger}
}

// List accepts ?active_only=true.
func (h *ProductHandler) List(c *gin.Context) {
	activeOnly := false
	if raw := c.Query("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, h.logger, models.Validationf("active_only", "", "%q is not a boolean", raw))
			return
		}
		activeOnly = v
	}
	products, err := h.svc.List(c.Request.Context(), activeOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c *gin.Context) {
	product, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var in models.ProductInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	product, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) Update(c *gin.Context) {
	var patch models.ProductPatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, h.logger, err)
		return
	}
	product, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Deactivate hides a product from sale while keeping its history.
func (h *ProductHandler) Deactivate(c *gin.Context) {
	product, err := h.svc.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
