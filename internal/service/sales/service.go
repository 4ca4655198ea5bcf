package sales

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/events"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
	"github.com/mamadbah2/kitchenledger/internal/service/products"
)

// ProductStock is the slice of the product catalog the ledger needs.
type ProductStock interface {
	Lookup(id string) (models.Product, error)
	AdjustPrepared(id string, delta decimal.Decimal) (models.PreparedIncrement, error)
}

// CostReader prices a recipe at the moment of sale.
type CostReader interface {
	Costing(recipeID string) (models.RecipeCosting, error)
}

// Service is the append-only sales ledger.
type Service struct {
	repo      *memory.Repository[models.Sale]
	products  ProductStock
	costs     CostReader
	locks     *memory.Locker
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the sales ledger.
func NewService(productStock ProductStock, costs CostReader, locks *memory.Locker, publisher events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if locks == nil {
		locks = memory.NewLocker(0)
	}
	return &Service{
		repo:      memory.NewRepository(models.EntitySale, memory.Options[models.Sale]{Validate: validateSale}),
		products:  productStock,
		costs:     costs,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func validateSale(s models.Sale) error {
	if s.Quantity <= 0 {
		return models.Validationf(models.EntitySale, s.ID, "quantity must be a positive whole number, got %d", s.Quantity)
	}
	if s.UnitPrice.IsNegative() {
		return models.Validationf(models.EntitySale, s.ID, "unit_price cannot be negative, got %s", s.UnitPrice)
	}
	return nil
}

// CreateSale sells quantity prepared units of a product. A nil unit price captures the
// product's current price; the price and the recipe cost are frozen on the sale.
func (s *Service) CreateSale(ctx context.Context, in models.SaleInput) (models.SaleView, error) {
	quantity, err := models.PositiveInt("quantity", in.Quantity)
	if err != nil {
		return models.SaleView{}, err
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		return models.SaleView{}, models.Validationf("unit_price", "", "cannot be negative, got %s", *in.UnitPrice)
	}

	release, err := s.locks.Acquire(ctx, products.LockKey(in.ProductID))
	if err != nil {
		s.logger.Warn("sale lock wait failed", zap.String("product_id", in.ProductID), zap.Error(err))
		return models.SaleView{}, err
	}
	defer release()

	product, err := s.products.Lookup(in.ProductID)
	if err != nil {
		return models.SaleView{}, err
	}
	if !product.IsActive {
		return models.SaleView{}, models.Validationf(models.EntityProduct, product.ID, "%s is not available for sale", product.Name)
	}
	costing, err := s.costs.Costing(product.RecipeID)
	if err != nil {
		return models.SaleView{}, models.Internal(models.EntitySale, err)
	}

	unitPrice := product.Price
	if in.UnitPrice != nil {
		unitPrice = *in.UnitPrice
	}
	qty := decimal.NewFromInt(quantity)
	if qty.GreaterThan(product.PreparedQuantity) {
		s.logger.Warn("sale rejected", zap.String("product_id", product.ID), zap.Int64("quantity", quantity), zap.Stringer("prepared_quantity", product.PreparedQuantity))
		return models.SaleView{}, models.InsufficientStockf(models.EntityProduct, product.ID,
			"only %s %s prepared, %d requested", product.PreparedQuantity, product.Name, quantity)
	}

	sale := models.Sale{
		ID:          uuid.NewString(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		UnitCost:    costing.CostPerServing,
		Timestamp:   s.now(),
	}
	if err := validateSale(sale); err != nil {
		return models.SaleView{}, err
	}
	if _, err := s.products.AdjustPrepared(product.ID, qty.Neg()); err != nil {
		return models.SaleView{}, err
	}
	if _, err := s.repo.Create(sale); err != nil {
		if _, undoErr := s.products.AdjustPrepared(product.ID, qty); undoErr != nil {
			s.logger.Error("prepared stock rollback failed", zap.String("product_id", product.ID), zap.Error(undoErr))
		}
		return models.SaleView{}, models.Internal(models.EntitySale, err)
	}

	view := sale.View()
	s.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID),
		zap.String("product_id", sale.ProductID),
		zap.Int64("quantity", sale.Quantity),
		zap.Stringer("unit_price", sale.UnitPrice),
	)
	if err := s.publisher.Publish(ctx, events.New(events.TypeSaleCreated, sale.ProductID, view, sale.Timestamp)); err != nil {
		s.logger.Warn("sale event not published", zap.String("sale_id", sale.ID), zap.Error(err))
	}
	return view, nil
}

// Checkout records each item as its own sale. A failing item does not undo the others; the
// outcome of every item is reported in input order.
func (s *Service) Checkout(ctx context.Context, items []models.SaleInput) []models.SaleOutcome {
	outcomes := make([]models.SaleOutcome, 0, len(items))
	for _, item := range items {
		outcome := models.SaleOutcome{Input: item}
		sale, err := s.CreateSale(ctx, item)
		if err != nil {
			outcome.Err = err
			outcome.Error = err.Error()
			outcome.Kind = models.KindOf(err)
		} else {
			outcome.Sale = &sale
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

// List returns every sale, newest first.
func (s *Service) List(_ context.Context) []models.SaleView {
	all := s.repo.List()
	out := make([]models.SaleView, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i].View())
	}
	return out
}

// Between returns the sales whose timestamp falls in [start, end), oldest first.
func (s *Service) Between(start, end time.Time) []models.Sale {
	found := s.repo.Find(func(sale models.Sale) bool {
		return !sale.Timestamp.Before(start) && sale.Timestamp.Before(end)
	})
	slices.SortStableFunc(found, func(a, b models.Sale) int { return a.Timestamp.Compare(b.Timestamp) })
	return found
}

// HasSales reports whether any sale references the product.
func (s *Service) HasSales(productID string) bool {
	return s.repo.Any(func(sale models.Sale) bool { return sale.ProductID == productID })
}
