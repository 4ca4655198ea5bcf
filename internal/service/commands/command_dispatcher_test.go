package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
	"github.com/mamadbah2/kitchenledger/internal/service/inventory"
	"github.com/mamadbah2/kitchenledger/internal/service/production"
	"github.com/mamadbah2/kitchenledger/internal/service/products"
	"github.com/mamadbah2/kitchenledger/internal/service/recipes"
	"github.com/mamadbah2/kitchenledger/internal/service/reporting"
	"github.com/mamadbah2/kitchenledger/internal/service/sales"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

type fixture struct {
	dispatcher *Service
	inv        *inventory.Service
	flourID    string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)
	locks := memory.NewLocker(time.Second)

	inv := inventory.NewService(locks, logger)
	rec := recipes.NewService(inv, locks, logger)
	prod := products.NewService(rec, locks, logger)
	inv.SetRecipeIndex(rec)
	rec.SetProductIndex(prod)
	kitchen := production.NewService(inv, rec, prod, locks, nil, logger)
	ledger := sales.NewService(prod, rec, locks, nil, logger)
	prod.SetSalesIndex(ledger)
	reports := reporting.NewService(ledger, inv, kitchen, reporting.Options{Location: time.UTC}, logger)

	flour, err := inv.Create(ctx, models.IngredientInput{Name: "Bread Flour", Quantity: dp("10"), Unit: "kg", MinThreshold: d("2"), CostPerUnit: d("1")})
	if err != nil {
		t.Fatalf("Failed to create flour: %v", err)
	}
	bread, err := rec.Create(ctx, models.RecipeInput{Name: "Country Bread", PreparationTime: 45, Lines: []models.RecipeLine{{IngredientID: flour.ID, QuantityRequired: d("2")}}})
	if err != nil {
		t.Fatalf("Failed to create bread: %v", err)
	}
	if _, err := prod.Create(ctx, models.ProductInput{Name: "Loaf", RecipeID: bread.ID, Price: d("10")}); err != nil {
		t.Fatalf("Failed to create loaf: %v", err)
	}

	dispatcher := NewService(Deps{Inventory: inv, Recipes: rec, Products: prod, Production: kitchen, Sales: ledger, Reports: reports}, logger)
	return fixture{dispatcher: dispatcher, inv: inv, flourID: flour.ID}
}

func (f fixture) run(t *testing.T, text string) (string, error) {
	t.Helper()
	return f.dispatcher.HandleCommand(context.Background(), models.ParseCommand(text), "224600")
}

func TestHandleCommand_KitchenDay(t *testing.T) {
	f := newFixture(t)

	reply, err := f.run(t, "/prepare country bread 3 morning batch")
	if err != nil {
		t.Fatalf("Failed to prepare: %v", err)
	}
	if !strings.Contains(reply, "Prepared 3 x Country Bread") || !strings.Contains(reply, "Loaf ready: 3") {
		t.Errorf("Unexpected prepare reply: %q", reply)
	}

	reply, err = f.run(t, "/stock")
	if err != nil {
		t.Fatalf("Failed to list stock: %v", err)
	}
	if !strings.Contains(reply, "Bread Flour: 4 kg") {
		t.Errorf("Expected 4 kg flour left, got %q", reply)
	}

	reply, err = f.run(t, "/sell loaf 2 12")
	if err != nil {
		t.Fatalf("Failed to sell: %v", err)
	}
	if !strings.Contains(reply, "Sold 2 x Loaf @ 12.00 = 24.00 (profit 20.00)") {
		t.Errorf("Unexpected sell reply: %q", reply)
	}

	reply, err = f.run(t, "/report")
	if err != nil {
		t.Fatalf("Failed to report: %v", err)
	}
	if !strings.Contains(reply, "Sales: 1 (2 units)") || !strings.Contains(reply, "Revenue: 24.00") {
		t.Errorf("Unexpected report reply: %q", reply)
	}

	reply, err = f.run(t, "/restock bread flour 6")
	if err != nil {
		t.Fatalf("Failed to restock: %v", err)
	}
	if !strings.Contains(reply, "Now 10 kg") {
		t.Errorf("Unexpected restock reply: %q", reply)
	}
}

func TestHandleCommand_LowStockIsFlagged(t *testing.T) {
	f := newFixture(t)
	if _, err := f.run(t, "/prepare Country Bread 5"); err != nil {
		t.Fatalf("Failed to prepare: %v", err)
	}
	reply, err := f.run(t, "/stock")
	if err != nil {
		t.Fatalf("Failed to list stock: %v", err)
	}
	if !strings.Contains(reply, "(low, min 2)") {
		t.Errorf("Expected low stock marker, got %q", reply)
	}
}

func TestHandleCommand_Rejections(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		sentinel error
	}{
		{"restock non-numeric", "/restock bread flour lots", models.ErrValidation},
		{"restock missing amount", "/restock", models.ErrValidation},
		{"restock unknown", "/restock sugar 2", models.ErrNotFound},
		{"prepare non-numeric", "/prepare country bread many", models.ErrValidation},
		{"prepare too many", "/prepare country bread 6", models.ErrInsufficientStock},
		{"sell nothing prepared", "/sell loaf 1", models.ErrInsufficientStock},
		{"sell fractional", "/sell loaf 0.5", models.ErrValidation},
		{"sell bad price", "/sell loaf 1 free", models.ErrValidation},
		{"report bad period", "/report year", models.ErrValidation},
		{"unknown", "/dance", ErrUnsupportedCommand},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			if _, err := f.run(t, tc.text); !errors.Is(err, tc.sentinel) {
				t.Errorf("Expected %v, got %v", tc.sentinel, err)
			}
			got, err := f.inv.Get(context.Background(), f.flourID)
			if err != nil || !got.Quantity.Equal(d("10")) {
				t.Errorf("Expected flour untouched at 10, got %s (%v)", got.Quantity, err)
			}
		})
	}
}

func TestHandleCommand_Help(t *testing.T) {
	f := newFixture(t)
	reply, err := f.run(t, "/help")
	if err != nil || !strings.Contains(reply, "/prepare <recipe> <quantity> [notes]") {
		t.Errorf("Unexpected help reply: %q %v", reply, err)
	}
}
