package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const EntityIngredient = "ingredient"

// MaxStockQuantity caps any stored ingredient amount.
var MaxStockQuantity = decimal.New(1, 15)

// Ingredient is a raw stock item consumed by recipes.
type Ingredient struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit"`
	MinThreshold decimal.Decimal `json:"min_threshold"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (i Ingredient) EntityID() string     { return i.ID }
func (i Ingredient) Clone() Ingredient    { return i }
func (i Ingredient) SortKey() string      { return strings.ToLower(i.Name) }
func (i Ingredient) IsLowStock() bool     { return i.Quantity.LessThan(i.MinThreshold) }
func (i Ingredient) View() IngredientView { return IngredientView{Ingredient: i, IsLowStock: i.IsLowStock()} }

// Validate checks the stored invariants of an ingredient.
func (i Ingredient) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return Validationf(EntityIngredient, i.ID, "name is required")
	}
	if i.Quantity.IsNegative() {
		return Validationf(EntityIngredient, i.ID, "quantity cannot be negative, got %s", i.Quantity)
	}
	if i.Quantity.GreaterThan(MaxStockQuantity) {
		return Validationf(EntityIngredient, i.ID, "quantity %s exceeds the maximum of %s", i.Quantity, MaxStockQuantity)
	}
	if i.MinThreshold.IsNegative() {
		return Validationf(EntityIngredient, i.ID, "min_threshold cannot be negative, got %s", i.MinThreshold)
	}
	if i.CostPerUnit.IsNegative() {
		return Validationf(EntityIngredient, i.ID, "cost_per_unit cannot be negative, got %s", i.CostPerUnit)
	}
	return nil
}

// IngredientView is the read projection returned to clients.
type IngredientView struct {
	Ingredient
	IsLowStock bool `json:"is_low_stock"`
}

// IngredientInput holds the fields of a new ingredient. Quantity is required; the threshold
// and cost default to zero.
type IngredientInput struct {
	Name         string           `json:"name"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Unit         string           `json:"unit"`
	MinThreshold decimal.Decimal  `json:"min_threshold"`
	CostPerUnit  decimal.Decimal  `json:"cost_per_unit"`
}

// IngredientPatch updates only the fields that are set.
type IngredientPatch struct {
	Name         *string          `json:"name"`
	Quantity     *decimal.Decimal `json:"quantity"`
	Unit         *string          `json:"unit"`
	MinThreshold *decimal.Decimal `json:"min_threshold"`
	CostPerUnit  *decimal.Decimal `json:"cost_per_unit"`
}

// Apply returns a copy of ing with the patch applied.
func (p IngredientPatch) Apply(ing Ingredient) Ingredient {
	if p.Name != nil {
		ing.Name = strings.TrimSpace(*p.Name)
	}
	if p.Quantity != nil {
		ing.Quantity = *p.Quantity
	}
	if p.Unit != nil {
		ing.Unit = strings.TrimSpace(*p.Unit)
	}
	if p.MinThreshold != nil {
		ing.MinThreshold = *p.MinThreshold
	}
	if p.CostPerUnit != nil {
		ing.CostPerUnit = *p.CostPerUnit
	}
	return ing
}
