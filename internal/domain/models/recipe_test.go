package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestRecipe_MaxPortions(t *testing.T) {
	stock := map[string]Ingredient{
		"tomato": {ID: "tomato", Quantity: dec("10"), CostPerUnit: dec("0.5")},
		"flour":  {ID: "flour", Quantity: dec("1.2"), CostPerUnit: dec("2")},
		"empty":  {ID: "empty", Quantity: dec("0"), CostPerUnit: dec("1")},
	}

	testCases := []struct {
		name     string
		lines    []RecipeLine
		expected int64
	}{
		{"no lines", nil, 0},
		{"single line exact", []RecipeLine{{IngredientID: "tomato", QuantityRequired: dec("2")}}, 5},
		{"floors fractional", []RecipeLine{{IngredientID: "tomato", QuantityRequired: dec("3")}}, 3},
		{"limited by scarcest", []RecipeLine{
			{IngredientID: "tomato", QuantityRequired: dec("1")},
			{IngredientID: "flour", QuantityRequired: dec("0.3")},
		}, 4},
		{"repeating decimal division", []RecipeLine{{IngredientID: "flour", QuantityRequired: dec("0.35")}}, 3},
		{"zero stock", []RecipeLine{{IngredientID: "empty", QuantityRequired: dec("1")}}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Recipe{Name: "r", PreparationTime: 1, Lines: tc.lines}
			got, err := r.MaxPortions(stock)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tc.expected {
				t.Errorf("Expected %d portions, got %d", tc.expected, got)
			}
		})
	}

	missing := Recipe{Lines: []RecipeLine{{IngredientID: "ghost", QuantityRequired: dec("1")}}}
	if _, err := missing.PortionsAvailable(stock); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found for unknown ingredient, got %v", err)
	}
	if _, err := missing.MaxPortions(stock); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected not found for unknown ingredient, got %v", err)
	}
}

func TestRecipe_MaxPortionsSaturates(t *testing.T) {
	stock := map[string]Ingredient{
		"flour": {ID: "flour", Quantity: dec("1e20")},
		"salt":  {ID: "salt", Quantity: dec("1e15")},
	}

	testCases := []struct {
		name  string
		lines []RecipeLine
		exact string
	}{
		{"huge stock", []RecipeLine{{IngredientID: "flour", QuantityRequired: dec("2")}}, "5e19"},
		{"tiny requirement", []RecipeLine{{IngredientID: "salt", QuantityRequired: dec("1e-30")}}, "1e45"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := Recipe{Name: "r", PreparationTime: 1, Lines: tc.lines}
			exact, err := r.PortionsAvailable(stock)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !exact.Equal(dec(tc.exact)) {
				t.Errorf("Expected %s exact portions, got %s", tc.exact, exact)
			}
			got, err := r.MaxPortions(stock)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != MaxPortionsReported {
				t.Errorf("Expected max portions to saturate at %d, got %d", MaxPortionsReported, got)
			}
		})
	}
}

func TestIngredient_ValidateStockCap(t *testing.T) {
	ing := Ingredient{ID: "flour", Name: "Flour", Quantity: MaxStockQuantity}
	if err := ing.Validate(); err != nil {
		t.Errorf("Expected the cap itself to be accepted, got %v", err)
	}
	ing.Quantity = MaxStockQuantity.Add(dec("0.001"))
	if err := ing.Validate(); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected quantity over the cap to be rejected, got %v", err)
	}
}

func TestRecipe_CostPerServing(t *testing.T) {
	stock := map[string]Ingredient{
		"tomato": {ID: "tomato", CostPerUnit: dec("0.5")},
		"flour":  {ID: "flour", CostPerUnit: dec("2")},
	}
	r := Recipe{Lines: []RecipeLine{
		{IngredientID: "tomato", QuantityRequired: dec("3")},
		{IngredientID: "flour", QuantityRequired: dec("0.25")},
	}}
	cost, err := r.CostPerServing(stock)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !cost.Equal(dec("2")) {
		t.Errorf("Expected cost 2, got %s", cost)
	}

	empty, err := Recipe{}.CostPerServing(stock)
	if err != nil || !empty.IsZero() {
		t.Errorf("Expected zero cost for empty recipe, got %s (%v)", empty, err)
	}
}

func TestRecipe_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		recipe Recipe
		valid  bool
	}{
		{"valid", Recipe{Name: "Soup", PreparationTime: 10, Lines: []RecipeLine{{IngredientID: "a", QuantityRequired: dec("1")}}}, true},
		{"valid without lines", Recipe{Name: "Soup", PreparationTime: 10}, true},
		{"missing name", Recipe{PreparationTime: 10}, false},
		{"zero preparation time", Recipe{Name: "Soup"}, false},
		{"zero line quantity", Recipe{Name: "Soup", PreparationTime: 5, Lines: []RecipeLine{{IngredientID: "a", QuantityRequired: dec("0")}}}, false},
		{"duplicate ingredient", Recipe{Name: "Soup", PreparationTime: 5, Lines: []RecipeLine{
			{IngredientID: "a", QuantityRequired: dec("1")},
			{IngredientID: "a", QuantityRequired: dec("2")},
		}}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.recipe.Validate()
			if tc.valid && err != nil {
				t.Fatalf("Expected valid recipe, got %v", err)
			}
			if !tc.valid && !errors.Is(err, ErrValidation) {
				t.Fatalf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestRecipe_CloneDoesNotAlias(t *testing.T) {
	original := Recipe{Lines: []RecipeLine{{IngredientID: "a", QuantityRequired: dec("1")}}}
	clone := original.Clone()
	clone.Lines[0].QuantityRequired = dec("9")
	if !original.Lines[0].QuantityRequired.Equal(dec("1")) {
		t.Errorf("Expected clone to leave original untouched, got %s", original.Lines[0].QuantityRequired)
	}
}

func TestRecipePatch_Apply(t *testing.T) {
	base := Recipe{Name: "Soup", PreparationTime: 10, Lines: []RecipeLine{{IngredientID: "a", QuantityRequired: dec("1")}}}

	kept := RecipePatch{}.Apply(base)
	if len(kept.Lines) != 1 {
		t.Errorf("Expected nil lines to keep the BOM, got %d lines", len(kept.Lines))
	}

	cleared := RecipePatch{Lines: []RecipeLine{}}.Apply(base)
	if len(cleared.Lines) != 0 {
		t.Errorf("Expected empty lines to clear the BOM, got %d lines", len(cleared.Lines))
	}

	name := "  Stew "
	renamed := RecipePatch{Name: &name}.Apply(base)
	if renamed.Name != "Stew" {
		t.Errorf("Expected trimmed name Stew, got %q", renamed.Name)
	}
}
