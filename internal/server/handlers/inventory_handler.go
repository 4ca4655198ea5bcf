package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// IngredientService is the ingredient store as seen by HTTP.
type IngredientService interface {
	List(ctx context.Context) []models.IngredientView
	Get(ctx context.Context, id string) (models.IngredientView, error)
	Create(ctx context.Context, in models.IngredientInput) (models.IngredientView, error)
	Update(ctx context.Context, id string, patch models.IngredientPatch) (models.IngredientView, error)
	Delete(ctx context.Context, id string) error
	Restock(ctx context.Context, id string, amount decimal.Decimal) (models.IngredientView, error)
}

// InventoryHandler serves /api/ingredients.
type InventoryHandler struct {
	svc    IngredientService
	logger *zap.Logger
}

// NewInventoryHandler constructs the ingredient HTTP adapter.
func NewInventoryHandler(svc IngredientService, logger *zap.Logger) *InventoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryHandler{svc: svc, logger: logger}
}

type restockRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *InventoryHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.List(c.Request.Context()))
}

func (h *InventoryHandler) Get(c *gin.Context) {
	ing, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

func (h *InventoryHandler) Create(c *gin.Context) {
	var in models.IngredientInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	ing, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, ing)
}

func (h *InventoryHandler) Update(c *gin.Context) {
	var patch models.IngredientPatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, h.logger, err)
		return
	}
	ing, err := h.svc.Update(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}

func (h *InventoryHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Restock adds {amount} to an ingredient.
func (h *InventoryHandler) Restock(c *gin.Context) {
	var req restockRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	ing, err := h.svc.Restock(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ing)
}
