package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const EntityProduction = "production"

// StockDeduction records one ingredient movement caused by a preparation.
type StockDeduction struct {
	IngredientID   string          `json:"ingredient"`
	IngredientName string          `json:"ingredient_name"`
	Amount         decimal.Decimal `json:"amount"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
}

// PreparedIncrement records one product whose prepared stock grew.
type PreparedIncrement struct {
	ProductID      string          `json:"product"`
	ProductName    string          `json:"product_name"`
	QuantityBefore decimal.Decimal `json:"quantity_before"`
	QuantityAfter  decimal.Decimal `json:"quantity_after"`
}

// ProductionRecord is the audit entry of a committed preparation.
type ProductionRecord struct {
	ID         string              `json:"id"`
	RecipeID   string              `json:"recipe"`
	RecipeName string              `json:"recipe_name"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Notes      string              `json:"notes"`
	Deductions []StockDeduction    `json:"deductions"`
	Products   []PreparedIncrement `json:"products"`
	Timestamp  time.Time           `json:"timestamp"`
}

func (p ProductionRecord) EntityID() string { return p.ID }

func (p ProductionRecord) Clone() ProductionRecord {
	p.Deductions = append([]StockDeduction(nil), p.Deductions...)
	p.Products = append([]PreparedIncrement(nil), p.Products...)
	return p
}

// PrepareInput is a request to turn ingredient stock into prepared product stock.
type PrepareInput struct {
	Quantity decimal.Decimal `json:"quantity"`
	Notes    string          `json:"notes"`
}

// RecipeOutput is a produced total per recipe.
type RecipeOutput struct {
	RecipeID   string          `json:"recipe"`
	RecipeName string          `json:"recipe_name"`
	Total      decimal.Decimal `json:"total"`
}

// DailyOutput is the production volume of a single day.
type DailyOutput struct {
	Date          string          `json:"date"`
	Runs          int             `json:"count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

// ProductionSummary aggregates recent production.
type ProductionSummary struct {
	TopRecipes      []RecipeOutput `json:"top_recipes"`
	DailyProduction []DailyOutput  `json:"daily_production"`
}
