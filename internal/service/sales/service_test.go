package sales

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
	"github.com/mamadbah2/kitchenledger/internal/service/products"
)

type fakeCosts map[string]models.RecipeCosting

func (f fakeCosts) Costing(id string) (models.RecipeCosting, error) {
	c, ok := f[id]
	if !ok {
		return models.RecipeCosting{}, models.NotFound(models.EntityRecipe, id)
	}
	return c, nil
}

func d(s string) decimal.Decimal             { return decimal.RequireFromString(s) }
func ptr(v decimal.Decimal) *decimal.Decimal { return &v }

type shop struct {
	products *products.Service
	ledger   *Service
	costs    fakeCosts
	locks    *memory.Locker
	pizza    models.ProductView
}

func newShop(t *testing.T, prepared string) shop {
	t.Helper()
	costs := fakeCosts{"margherita": {Recipe: models.Recipe{ID: "margherita", Name: "Margherita"}, CostPerServing: d("4")}}
	locks := memory.NewLocker(2 * time.Second)
	prod := products.NewService(costs, locks, zaptest.NewLogger(t))
	ledger := NewService(prod, costs, locks, nil, zaptest.NewLogger(t))
	prod.SetSalesIndex(ledger)

	pizza, err := prod.Create(context.Background(), models.ProductInput{Name: "Pizza", RecipeID: "margherita", Price: d("10")})
	if err != nil {
		t.Fatalf("Failed to create pizza: %v", err)
	}
	if _, err := prod.AdjustPrepared(pizza.ID, d(prepared)); err != nil {
		t.Fatalf("Failed to seed prepared stock: %v", err)
	}
	return shop{products: prod, ledger: ledger, costs: costs, locks: locks, pizza: pizza}
}

func (s shop) prepared(t *testing.T) decimal.Decimal {
	t.Helper()
	p, err := s.products.Lookup(s.pizza.ID)
	if err != nil {
		t.Fatalf("Failed to read pizza: %v", err)
	}
	return p.PreparedQuantity
}

func TestCreateSale_CapturesPrice(t *testing.T) {
	s := newShop(t, "3")
	ctx := context.Background()

	sale, err := s.ledger.CreateSale(ctx, models.SaleInput{ProductID: s.pizza.ID, Quantity: d("2"), UnitPrice: ptr(d("10.00"))})
	if err != nil {
		t.Fatalf("Failed to sell: %v", err)
	}
	if !s.prepared(t).Equal(d("1")) {
		t.Errorf("Expected 1 prepared left, got %s", s.prepared(t))
	}
	if sale.Quantity != 2 || !sale.UnitPrice.Equal(d("10")) {
		t.Errorf("Expected quantity 2 at 10, got %d at %s", sale.Quantity, sale.UnitPrice)
	}
	if !sale.TotalPrice.Equal(d("20")) || !sale.Profit.Equal(d("12")) {
		t.Errorf("Expected total 20 profit 12, got %s %s", sale.TotalPrice, sale.Profit)
	}

	price := d("12.00")
	if _, err := s.products.Update(ctx, s.pizza.ID, models.ProductPatch{Price: &price}); err != nil {
		t.Fatalf("Failed to change price: %v", err)
	}
	s.costs["margherita"] = models.RecipeCosting{Recipe: models.Recipe{ID: "margherita", Name: "Margherita"}, CostPerServing: d("9")}

	history := s.ledger.List(ctx)
	if len(history) != 1 || !history[0].UnitPrice.Equal(d("10")) || !history[0].UnitCost.Equal(d("4")) {
		t.Errorf("Expected historical sale at price 10 cost 4, got %+v", history)
	}
}

func TestCreateSale_DefaultsToProductPrice(t *testing.T) {
	s := newShop(t, "1")
	sale, err := s.ledger.CreateSale(context.Background(), models.SaleInput{ProductID: s.pizza.ID, Quantity: d("1")})
	if err != nil {
		t.Fatalf("Failed to sell: %v", err)
	}
	if !sale.UnitPrice.Equal(d("10")) {
		t.Errorf("Expected product price 10 captured, got %s", sale.UnitPrice)
	}
}

func TestCreateSale_Rejections(t *testing.T) {
	s := newShop(t, "1")
	hidden, err := s.products.Create(context.Background(), models.ProductInput{Name: "Calzone", RecipeID: "margherita", Price: d("8"), IsActive: new(bool)})
	if err != nil {
		t.Fatalf("Failed to create inactive product: %v", err)
	}

	testCases := []struct {
		name     string
		input    models.SaleInput
		sentinel error
	}{
		{"more than prepared", models.SaleInput{ProductID: s.pizza.ID, Quantity: d("4")}, models.ErrInsufficientStock},
		{"zero quantity", models.SaleInput{ProductID: s.pizza.ID, Quantity: d("0")}, models.ErrValidation},
		{"fractional quantity", models.SaleInput{ProductID: s.pizza.ID, Quantity: d("0.5")}, models.ErrValidation},
		{"negative price", models.SaleInput{ProductID: s.pizza.ID, Quantity: d("1"), UnitPrice: ptr(d("-1"))}, models.ErrValidation},
		{"unknown product", models.SaleInput{ProductID: "ghost", Quantity: d("1")}, models.ErrNotFound},
		{"inactive product", models.SaleInput{ProductID: hidden.ID, Quantity: d("1")}, models.ErrValidation},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := s.ledger.CreateSale(context.Background(), tc.input); !errors.Is(err, tc.sentinel) {
				t.Errorf("Expected %v, got %v", tc.sentinel, err)
			}
		})
	}

	if !s.prepared(t).Equal(d("1")) {
		t.Errorf("Expected prepared stock to remain 1, got %s", s.prepared(t))
	}
	if len(s.ledger.List(context.Background())) != 0 {
		t.Errorf("Expected no sale appended")
	}
}

func TestCreateSale_FreeItem(t *testing.T) {
	s := newShop(t, "1")
	sale, err := s.ledger.CreateSale(context.Background(), models.SaleInput{ProductID: s.pizza.ID, Quantity: d("1"), UnitPrice: ptr(d("0"))})
	if err != nil {
		t.Fatalf("Expected zero price sale to be accepted, got %v", err)
	}
	if !sale.Profit.Equal(d("-4")) {
		t.Errorf("Expected a loss of 4, got %s", sale.Profit)
	}
}

func TestCheckout_PartialFailure(t *testing.T) {
	s := newShop(t, "2")
	outcomes := s.ledger.Checkout(context.Background(), []models.SaleInput{
		{ProductID: s.pizza.ID, Quantity: d("1")},
		{ProductID: "ghost", Quantity: d("1")},
		{ProductID: s.pizza.ID, Quantity: d("5")},
		{ProductID: s.pizza.ID, Quantity: d("1")},
	})

	if len(outcomes) != 4 {
		t.Fatalf("Expected 4 outcomes, got %d", len(outcomes))
	}
	expected := []models.ErrorKind{"", models.KindNotFound, models.KindInsufficientStock, ""}
	for i, outcome := range outcomes {
		if outcome.Kind != expected[i] {
			t.Errorf("Item %d: expected kind %q, got %q", i, expected[i], outcome.Kind)
		}
		if (outcome.Sale != nil) != (expected[i] == "") {
			t.Errorf("Item %d: expected sale presence %v", i, expected[i] == "")
		}
	}
	if !s.prepared(t).IsZero() {
		t.Errorf("Expected both successful items to consume stock, got %s", s.prepared(t))
	}
}

func TestCreateSale_BlocksProductDelete(t *testing.T) {
	s := newShop(t, "1")
	if _, err := s.ledger.CreateSale(context.Background(), models.SaleInput{ProductID: s.pizza.ID, Quantity: d("1")}); err != nil {
		t.Fatalf("Failed to sell: %v", err)
	}
	if !s.ledger.HasSales(s.pizza.ID) {
		t.Fatalf("Expected sale history for pizza")
	}
	if err := s.products.Delete(context.Background(), s.pizza.ID); !errors.Is(err, models.ErrConflict) {
		t.Errorf("Expected conflict deleting sold product, got %v", err)
	}
}

func TestCreateSale_ConcurrentNeverOversells(t *testing.T) {
	s := newShop(t, "10")

	var wg sync.WaitGroup
	var mu sync.Mutex
	sold := 0
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ledger.CreateSale(context.Background(), models.SaleInput{ProductID: s.pizza.ID, Quantity: d("1")})
			if err == nil {
				mu.Lock()
				sold++
				mu.Unlock()
			} else if !errors.Is(err, models.ErrInsufficientStock) {
				t.Errorf("Unexpected sale failure: %v", err)
			}
		}()
	}
	wg.Wait()

	if sold != 10 {
		t.Errorf("Expected exactly 10 sales, got %d", sold)
	}
	if !s.prepared(t).IsZero() {
		t.Errorf("Expected stock exhausted, got %s", s.prepared(t))
	}
}

func TestBetween(t *testing.T) {
	s := newShop(t, "3")
	base := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(2 * time.Hour), base, base.Add(24 * time.Hour)}
	i := 0
	s.ledger.now = func() time.Time { return times[i] }
	for ; i < len(times); i++ {
		if _, err := s.ledger.CreateSale(context.Background(), models.SaleInput{ProductID: s.pizza.ID, Quantity: d("1")}); err != nil {
			t.Fatalf("Failed to sell: %v", err)
		}
	}

	window := s.ledger.Between(base, base.Add(24*time.Hour))
	if len(window) != 2 {
		t.Fatalf("Expected 2 sales in window, got %d", len(window))
	}
	if !window[0].Timestamp.Equal(base) {
		t.Errorf("Expected oldest first, got %s", window[0].Timestamp)
	}
}
