package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const EntityProduct = "product"

var hundred = decimal.NewFromInt(100)

// Product is a sellable item backed by exactly one recipe.
// PreparedQuantity is mutated only by production and sales.
type Product struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	RecipeID         string          `json:"recipe"`
	Price            decimal.Decimal `json:"price"`
	IsActive         bool            `json:"is_active"`
	PreparedQuantity decimal.Decimal `json:"prepared_quantity"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (p Product) EntityID() string { return p.ID }
func (p Product) Clone() Product   { return p }
func (p Product) SortKey() string  { return strings.ToLower(p.Name) }

// Validate checks the stored invariants of a product.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return Validationf(EntityProduct, p.ID, "name is required")
	}
	if strings.TrimSpace(p.RecipeID) == "" {
		return Validationf(EntityProduct, p.ID, "recipe is required")
	}
	if !p.Price.IsPositive() {
		return Validationf(EntityProduct, p.ID, "price must be greater than zero, got %s", p.Price)
	}
	if p.PreparedQuantity.IsNegative() {
		return Validationf(EntityProduct, p.ID, "prepared_quantity cannot be negative, got %s", p.PreparedQuantity)
	}
	return nil
}

// Margin computes profit and profit margin (percent) for a price and unit cost.
func Margin(price, cost decimal.Decimal) (profit, margin decimal.Decimal) {
	profit = price.Sub(cost)
	if !price.IsPositive() {
		return profit, decimal.Zero
	}
	return profit, profit.Div(price).Mul(hundred)
}

// ProductView is a product augmented with figures derived from its recipe.
type ProductView struct {
	Product
	RecipeName   string          `json:"recipe_name"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
	MaxPortions  int64           `json:"max_portions"`
}

// ProductInput holds the fields of a new product.
type ProductInput struct {
	Name     string          `json:"name"`
	RecipeID string          `json:"recipe"`
	Price    decimal.Decimal `json:"price"`
	IsActive *bool           `json:"is_active"`
}

// ProductPatch updates only the fields that are set. PreparedQuantity is not editable.
type ProductPatch struct {
	Name     *string          `json:"name"`
	RecipeID *string          `json:"recipe"`
	Price    *decimal.Decimal `json:"price"`
	IsActive *bool            `json:"is_active"`
}

// Apply returns a copy of p with the patch applied.
func (patch ProductPatch) Apply(p Product) Product {
	if patch.Name != nil {
		p.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.RecipeID != nil {
		p.RecipeID = strings.TrimSpace(*patch.RecipeID)
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.IsActive != nil {
		p.IsActive = *patch.IsActive
	}
	return p
}
