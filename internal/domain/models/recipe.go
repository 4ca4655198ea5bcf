package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const EntityRecipe = "recipe"

// MaxPortionsReported is the largest max_portions a view shows; it stays exact in a JSON number.
const MaxPortionsReported int64 = 1 << 53

var maxPortionsReported = decimal.NewFromInt(MaxPortionsReported)

// RecipeLine is one bill-of-materials entry: how much of an ingredient one portion consumes.
type RecipeLine struct {
	IngredientID     string          `json:"ingredient"`
	QuantityRequired decimal.Decimal `json:"quantity"`
}

// Recipe is a bill of materials for one portion.
type Recipe struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	PreparationTime int          `json:"preparation_time"`
	Lines           []RecipeLine `json:"lines"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (r Recipe) EntityID() string { return r.ID }
func (r Recipe) SortKey() string  { return strings.ToLower(r.Name) }

// Clone deep-copies the line slice so stored recipes never alias caller memory.
func (r Recipe) Clone() Recipe {
	if r.Lines != nil {
		lines := make([]RecipeLine, len(r.Lines))
		copy(lines, r.Lines)
		r.Lines = lines
	}
	return r
}

// IngredientIDs lists the ingredients referenced by the recipe, in line order.
func (r Recipe) IngredientIDs() []string {
	ids := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		ids = append(ids, line.IngredientID)
	}
	return ids
}

// LineIndex returns the position of the line for ingredientID, or -1.
func (r Recipe) LineIndex(ingredientID string) int {
	for i, line := range r.Lines {
		if line.IngredientID == ingredientID {
			return i
		}
	}
	return -1
}

// Validate checks the recipe fields and its lines; ingredient existence is checked by the catalog.
func (r Recipe) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return Validationf(EntityRecipe, r.ID, "name is required")
	}
	if r.PreparationTime <= 0 {
		return Validationf(EntityRecipe, r.ID, "preparation_time must be a positive number of minutes, got %d", r.PreparationTime)
	}
	seen := make(map[string]struct{}, len(r.Lines))
	for i, line := range r.Lines {
		if strings.TrimSpace(line.IngredientID) == "" {
			return Validationf(EntityRecipe, r.ID, "line %d: ingredient is required", i+1)
		}
		if !line.QuantityRequired.IsPositive() {
			return Validationf(EntityRecipe, r.ID, "line %d: quantity_required must be greater than zero, got %s", i+1, line.QuantityRequired)
		}
		if _, dup := seen[line.IngredientID]; dup {
			return Validationf(EntityRecipe, r.ID, "ingredient %s is listed more than once", line.IngredientID)
		}
		seen[line.IngredientID] = struct{}{}
	}
	return nil
}

// CostPerServing sums cost_per_unit * quantity_required over the lines.
// ingredients must contain every referenced ingredient.
func (r Recipe) CostPerServing(ingredients map[string]Ingredient) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range r.Lines {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			return decimal.Zero, NotFound(EntityIngredient, line.IngredientID)
		}
		total = total.Add(ing.CostPerUnit.Mul(line.QuantityRequired))
	}
	return total, nil
}

// PortionsAvailable is the exact whole number of portions the current stock can yield.
// A recipe without lines yields zero.
func (r Recipe) PortionsAvailable(ingredients map[string]Ingredient) (decimal.Decimal, error) {
	if len(r.Lines) == 0 {
		return decimal.Zero, nil
	}
	var limit decimal.Decimal
	for i, line := range r.Lines {
		ing, ok := ingredients[line.IngredientID]
		if !ok {
			return decimal.Zero, NotFound(EntityIngredient, line.IngredientID)
		}
		available, _ := ing.Quantity.QuoRem(line.QuantityRequired, 0)
		if i == 0 || available.LessThan(limit) {
			limit = available
		}
	}
	if limit.IsNegative() {
		return decimal.Zero, nil
	}
	return limit, nil
}

// MaxPortions is PortionsAvailable narrowed to an int64, saturating at MaxPortionsReported.
func (r Recipe) MaxPortions(ingredients map[string]Ingredient) (int64, error) {
	limit, err := r.PortionsAvailable(ingredients)
	if err != nil {
		return 0, err
	}
	if limit.GreaterThan(maxPortionsReported) {
		return MaxPortionsReported, nil
	}
	return limit.IntPart(), nil
}

// RecipeLineDetail is a line joined with its ingredient for display.
type RecipeLineDetail struct {
	IngredientID     string          `json:"ingredient"`
	IngredientName   string          `json:"ingredient_name"`
	IngredientUnit   string          `json:"ingredient_unit"`
	QuantityRequired decimal.Decimal `json:"quantity"`
	LineCost         decimal.Decimal `json:"line_cost"`
}

// RecipeView is a recipe augmented with figures derived from current stock.
type RecipeView struct {
	Recipe
	IngredientsDetail []RecipeLineDetail `json:"ingredients_detail"`
	CostPerServing    decimal.Decimal    `json:"cost_per_serving"`
	MaxPortions       int64              `json:"max_portions"`
	CanMake           bool               `json:"can_make"`
	PreparedQuantity  decimal.Decimal    `json:"prepared_quantity"`
}

// RecipeInput holds the fields of a new recipe.
type RecipeInput struct {
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	PreparationTime int          `json:"preparation_time"`
	Lines           []RecipeLine `json:"lines"`
}

// RecipePatch updates only the fields that are set. A nil Lines keeps the current BOM;
// an empty, non-nil Lines clears it.
type RecipePatch struct {
	Name            *string      `json:"name"`
	Description     *string      `json:"description"`
	PreparationTime *int         `json:"preparation_time"`
	Lines           []RecipeLine `json:"lines"`
}

// Apply returns a copy of r with the patch applied.
func (p RecipePatch) Apply(r Recipe) Recipe {
	r = r.Clone()
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.PreparationTime != nil {
		r.PreparationTime = *p.PreparationTime
	}
	if p.Lines != nil {
		r.Lines = append([]RecipeLine(nil), p.Lines...)
	}
	return r
}

// RecipeCosting is a recipe with its cost and capacity evaluated from one stock read.
type RecipeCosting struct {
	Recipe         Recipe
	CostPerServing decimal.Decimal
	MaxPortions    int64
}
