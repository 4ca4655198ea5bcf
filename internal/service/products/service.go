package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
)

// RecipeReader evaluates the recipe a product is built from.
type RecipeReader interface {
	Costing(recipeID string) (models.RecipeCosting, error)
}

// SalesIndex answers whether a product has sale history.
type SalesIndex interface {
	HasSales(productID string) bool
}

// Service owns sellable products and their prepared stock counters.
type Service struct {
	repo    *memory.Repository[models.Product]
	recipes RecipeReader
	sales   SalesIndex
	locks   *memory.Locker
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a product catalog on top of the recipe catalog.
func NewService(recipes RecipeReader, locks *memory.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = memory.NewLocker(0)
	}
	return &Service{
		repo: memory.NewRepository(models.EntityProduct, memory.Options[models.Product]{
			Validate:    models.Product.Validate,
			UniqueKey:   func(p models.Product) string { return p.Name },
			UniqueField: "name",
		}),
		recipes: recipes,
		locks:   locks,
		logger:  logger,
		now:     time.Now,
	}
}

// SetSalesIndex links the sales ledger, which is built after the catalog.
func (s *Service) SetSalesIndex(index SalesIndex) {
	s.sales = index
}

// LockKey returns the key guarding a product's prepared stock.
func LockKey(id string) string { return memory.Key(models.EntityProduct, id) }

func recipeKey(id string) string { return memory.Key(models.EntityRecipe, id) }

// Create registers a product built from an existing recipe, active unless stated otherwise.
func (s *Service) Create(ctx context.Context, in models.ProductInput) (models.ProductView, error) {
	now := s.now()
	product := models.Product{
		ID:               uuid.NewString(),
		Name:             strings.TrimSpace(in.Name),
		RecipeID:         strings.TrimSpace(in.RecipeID),
		Price:            in.Price,
		IsActive:         true,
		PreparedQuantity: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if err := product.Validate(); err != nil {
		return models.ProductView{}, err
	}

	release, err := s.locks.Acquire(ctx, LockKey(product.ID), recipeKey(product.RecipeID))
	if err != nil {
		return models.ProductView{}, err
	}
	defer release()

	costing, err := s.recipes.Costing(product.RecipeID)
	if err != nil {
		return models.ProductView{}, err
	}
	created, err := s.repo.Create(product)
	if err != nil {
		return models.ProductView{}, err
	}
	s.logger.Info("product created", zap.String("product_id", created.ID), zap.String("name", created.Name), zap.String("recipe_id", created.RecipeID))
	return view(created, costing), nil
}

// Get returns one product augmented with its recipe's cost and capacity.
func (s *Service) Get(_ context.Context, id string) (models.ProductView, error) {
	product, err := s.repo.Get(id)
	if err != nil {
		return models.ProductView{}, err
	}
	return s.view(product)
}

// List returns products ordered by name, optionally only the active ones.
func (s *Service) List(_ context.Context, activeOnly bool) ([]models.ProductView, error) {
	var pred func(models.Product) bool
	if activeOnly {
		pred = func(p models.Product) bool { return p.IsActive }
	}
	all := s.repo.Find(pred)
	out := make([]models.ProductView, 0, len(all))
	for _, product := range all {
		v, err := s.view(product)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Lookup returns the stored product without derived figures.
func (s *Service) Lookup(id string) (models.Product, error) {
	return s.repo.Get(id)
}

// FindByName resolves a product by case-insensitive name.
func (s *Service) FindByName(_ context.Context, name string) (models.Product, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	matches := s.repo.Find(func(p models.Product) bool { return p.SortKey() == want })
	if len(matches) == 0 {
		return models.Product{}, models.NotFound(models.EntityProduct, name)
	}
	return matches[0], nil
}

// Update applies patch. Prepared stock can only change through production and sales.
func (s *Service) Update(ctx context.Context, id string, patch models.ProductPatch) (models.ProductView, error) {
	keys := []string{LockKey(id)}
	if patch.RecipeID != nil {
		keys = append(keys, recipeKey(strings.TrimSpace(*patch.RecipeID)))
	}
	release, err := s.locks.Acquire(ctx, keys...)
	if err != nil {
		return models.ProductView{}, err
	}
	defer release()

	var costing models.RecipeCosting
	updated, err := s.repo.Mutate(id, func(p models.Product) (models.Product, error) {
		p = patch.Apply(p)
		if err := p.Validate(); err != nil {
			return p, err
		}
		c, err := s.recipes.Costing(p.RecipeID)
		if err != nil {
			return p, err
		}
		costing = c
		p.UpdatedAt = s.now()
		return p, nil
	})
	if err != nil {
		return models.ProductView{}, err
	}
	s.logger.Info("product updated", zap.String("product_id", id))
	return view(updated, costing), nil
}

// Deactivate hides a product from sale while keeping its history.
func (s *Service) Deactivate(ctx context.Context, id string) (models.ProductView, error) {
	inactive := false
	return s.Update(ctx, id, models.ProductPatch{IsActive: &inactive})
}

// Delete removes a product that has neither prepared stock nor sale history.
func (s *Service) Delete(ctx context.Context, id string) error {
	release, err := s.locks.Acquire(ctx, LockKey(id))
	if err != nil {
		return err
	}
	defer release()

	product, err := s.repo.Get(id)
	if err != nil {
		return err
	}
	if product.PreparedQuantity.IsPositive() {
		s.logger.Warn("product delete rejected", zap.String("product_id", id), zap.Stringer("prepared_quantity", product.PreparedQuantity))
		return models.Conflictf(models.EntityProduct, id, "has %s prepared units; sell them or deactivate the product", product.PreparedQuantity)
	}
	if s.sales != nil && s.sales.HasSales(id) {
		s.logger.Warn("product delete rejected", zap.String("product_id", id), zap.String("reason", "has sales"))
		return models.Conflictf(models.EntityProduct, id, "has sale history; deactivate it instead")
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// AdjustPrepared moves prepared stock by delta, failing with insufficient stock rather than
// going negative. The caller must hold the product lock.
func (s *Service) AdjustPrepared(id string, delta decimal.Decimal) (models.PreparedIncrement, error) {
	var change models.PreparedIncrement
	_, err := s.repo.Mutate(id, func(p models.Product) (models.Product, error) {
		after := p.PreparedQuantity.Add(delta)
		if after.IsNegative() {
			return p, models.InsufficientStockf(models.EntityProduct, id,
				"%s has %s prepared, %s requested", p.Name, p.PreparedQuantity, delta.Neg())
		}
		change = models.PreparedIncrement{
			ProductID:      id,
			ProductName:    p.Name,
			QuantityBefore: p.PreparedQuantity,
			QuantityAfter:  after,
		}
		p.PreparedQuantity = after
		p.UpdatedAt = s.now()
		return p, nil
	})
	if err != nil {
		return models.PreparedIncrement{}, err
	}
	return change, nil
}

// ProductsForRecipe lists the products built from a recipe.
func (s *Service) ProductsForRecipe(recipeID string) []models.Product {
	return s.repo.Find(func(p models.Product) bool { return p.RecipeID == recipeID })
}

func (s *Service) view(product models.Product) (models.ProductView, error) {
	costing, err := s.recipes.Costing(product.RecipeID)
	if err != nil {
		return models.ProductView{}, models.Internal(models.EntityProduct, err)
	}
	return view(product, costing), nil
}

func view(product models.Product, costing models.RecipeCosting) models.ProductView {
	profit, margin := models.Margin(product.Price, costing.CostPerServing)
	return models.ProductView{
		Product:      product,
		RecipeName:   costing.Recipe.Name,
		Cost:         costing.CostPerServing,
		Profit:       profit,
		ProfitMargin: margin,
		MaxPortions:  costing.MaxPortions,
	}
}
