package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// RecipeService is the recipe catalog as seen by HTTP.
type RecipeService interface {
	List(ctx context.Context) ([]models.RecipeView, error)
	Get(ctx context.Context, id string) (models.RecipeView, error)
	Create(ctx context.Context, in models.RecipeInput) (models.RecipeView, error)
	Update(ctx context.Context, id string, patch models.RecipePatch) (models.RecipeView, error)
	Delete(ctx context.Context, id string) error
	AddLine(ctx context.Context, id string, line models.RecipeLine) (models.RecipeView, error)
	UpdateLine(ctx context.Context, id, ingredientID string, quantity decimal.Decimal) (models.RecipeView, error)
	RemoveLine(ctx context.Context, id, ingredientID string) (models.RecipeView, error)
}

// ProductionService is the production engine as seen by HTTP.
type ProductionService interface {
	Prepare(ctx context.Context, recipeID string, in models.PrepareInput) (models.ProductionRecord, error)
	List(ctx context.Context) []models.ProductionRecord
	Summary(ctx context.Context, now time.Time) models.ProductionSummary
}

// RecipeHandler serves /api/recipes and the production log.
type RecipeHandler struct {
	recipes    RecipeService
	production ProductionService
	logger     *zap.Logger
	now        func() time.Time
}

// NewRecipeHandler constructs the recipe HTTP adapter.
func NewRecipeHandler(recipes RecipeService, production ProductionService, logger *zap.Logger) *RecipeHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecipeHandler{recipes: recipes, production: production, logger: logger, now: time.Now}
}

type lineQuantityRequest struct {
	Quantity decimal.Decimal `json:"quantity"`
}

func (h *RecipeHandler) List(c *gin.Context) {
	recipes, err := h.recipes.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (h *RecipeHandler) Get(c *gin.Context) {
	recipe, err := h.recipes.Get(c.Request.Context(), c.Param("id"))
	h.respond(c, http.StatusOK, recipe, err)
}

func (h *RecipeHandler) Create(c *gin.Context) {
	var in models.RecipeInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	recipe, err := h.recipes.Create(c.Request.Context(), in)
	h.respond(c, http.StatusCreated, recipe, err)
}

func (h *RecipeHandler) Update(c *gin.Context) {
	var patch models.RecipePatch
	if err := bindJSON(c, &patch); err != nil {
		respondError(c, h.logger, err)
		return
	}
	recipe, err := h.recipes.Update(c.Request.Context(), c.Param("id"), patch)
	h.respond(c, http.StatusOK, recipe, err)
}

func (h *RecipeHandler) Delete(c *gin.Context) {
	if err := h.recipes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *RecipeHandler) AddLine(c *gin.Context) {
	var line models.RecipeLine
	if err := bindJSON(c, &line); err != nil {
		respondError(c, h.logger, err)
		return
	}
	recipe, err := h.recipes.AddLine(c.Request.Context(), c.Param("id"), line)
	h.respond(c, http.StatusOK, recipe, err)
}

func (h *RecipeHandler) UpdateLine(c *gin.Context) {
	var req lineQuantityRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	recipe, err := h.recipes.UpdateLine(c.Request.Context(), c.Param("id"), c.Param("ingredientID"), req.Quantity)
	h.respond(c, http.StatusOK, recipe, err)
}

func (h *RecipeHandler) RemoveLine(c *gin.Context) {
	recipe, err := h.recipes.RemoveLine(c.Request.Context(), c.Param("id"), c.Param("ingredientID"))
	h.respond(c, http.StatusOK, recipe, err)
}

// Prepare converts ingredient stock into prepared product stock.
func (h *RecipeHandler) Prepare(c *gin.Context) {
	var in models.PrepareInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	record, err := h.production.Prepare(c.Request.Context(), c.Param("id"), in)
	h.respond(c, http.StatusCreated, record, err)
}

func (h *RecipeHandler) Productions(c *gin.Context) {
	c.JSON(http.StatusOK, h.production.List(c.Request.Context()))
}

func (h *RecipeHandler) ProductionSummary(c *gin.Context) {
	c.JSON(http.StatusOK, h.production.Summary(c.Request.Context(), h.now()))
}

func (h *RecipeHandler) respond(c *gin.Context, status int, body any, err error) {
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(status, body)
}
