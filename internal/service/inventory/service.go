package inventory

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

// RecipeIndex answers whether a recipe still needs an ingredient.
type RecipeIndex interface {
	ReferencesIngredient(ingredientID string) bool
}

// Service owns raw ingredient stock.
type Service struct {
	repo    *memory.Repository[models.Ingredient]
	locks   *memory.Locker
	recipes RecipeIndex
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a new ingredient store.
func NewService(locks *memory.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = memory.NewLocker(0)
	}
	return &Service{
		repo: memory.NewRepository(models.EntityIngredient, memory.Options[models.Ingredient]{
			Validate:    models.Ingredient.Validate,
			UniqueKey:   func(i models.Ingredient) string { return i.Name },
			UniqueField: "name",
		}),
		locks:  locks,
		logger: logger,
		now:    time.Now,
	}
}

// SetRecipeIndex links the recipe catalog, which is built after the store.
func (s *Service) SetRecipeIndex(index RecipeIndex) {
	s.recipes = index
}

func lockKey(id string) string { return memory.Key(models.EntityIngredient, id) }

// Create registers a new ingredient.
func (s *Service) Create(_ context.Context, in models.IngredientInput) (models.IngredientView, error) {
	if in.Quantity == nil {
		return models.IngredientView{}, models.Validationf(models.EntityIngredient, "", "quantity is required")
	}
	now := s.now()
	ing := models.Ingredient{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Quantity:     *in.Quantity,
		Unit:         strings.TrimSpace(in.Unit),
		MinThreshold: in.MinThreshold,
		CostPerUnit:  in.CostPerUnit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.repo.Create(ing)
	if err != nil {
		return models.IngredientView{}, err
	}
	s.logger.Info("ingredient created", zap.String("ingredient_id", created.ID), zap.String("name", created.Name), zap.Stringer("quantity", created.Quantity))
	return created.View(), nil
}

// Get returns one ingredient.
func (s *Service) Get(_ context.Context, id string) (models.IngredientView, error) {
	ing, err := s.repo.Get(id)
	if err != nil {
		return models.IngredientView{}, err
	}
	return ing.View(), nil
}

// List returns every ingredient ordered by name.
func (s *Service) List(_ context.Context) []models.IngredientView {
	return views(s.repo.List())
}

// LowStock returns the ingredients whose quantity has fallen below their threshold.
func (s *Service) LowStock(_ context.Context) []models.IngredientView {
	return views(s.repo.Find(models.Ingredient.IsLowStock))
}

// Lookup returns the raw ingredients for ids from a single consistent read.
func (s *Service) Lookup(ids ...string) (map[string]models.Ingredient, error) {
	return s.repo.GetMany(ids)
}

// FindByName resolves an ingredient by case-insensitive name.
func (s *Service) FindByName(_ context.Context, name string) (models.IngredientView, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	matches := s.repo.Find(func(i models.Ingredient) bool { return i.SortKey() == want })
	if len(matches) == 0 {
		return models.IngredientView{}, models.NotFound(models.EntityIngredient, name)
	}
	return matches[0].View(), nil
}

// Update applies the set fields of patch.
func (s *Service) Update(ctx context.Context, id string, patch models.IngredientPatch) (models.IngredientView, error) {
	release, err := s.locks.Acquire(ctx, lockKey(id))
	if err != nil {
		return models.IngredientView{}, err
	}
	defer release()

	updated, err := s.repo.Mutate(id, func(ing models.Ingredient) (models.Ingredient, error) {
		ing = patch.Apply(ing)
		ing.UpdatedAt = s.now()
		return ing, nil
	})
	if err != nil {
		return models.IngredientView{}, err
	}
	s.logger.Info("ingredient updated", zap.String("ingredient_id", id))
	return updated.View(), nil
}

// Delete removes an ingredient that no recipe references.
func (s *Service) Delete(ctx context.Context, id string) error {
	release, err := s.locks.Acquire(ctx, lockKey(id))
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.repo.Get(id); err != nil {
		return err
	}
	if s.recipes != nil && s.recipes.ReferencesIngredient(id) {
		s.logger.Warn("ingredient delete rejected", zap.String("ingredient_id", id), zap.String("reason", "referenced by recipe"))
		return models.Conflictf(models.EntityIngredient, id, "still used by at least one recipe")
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logger.Info("ingredient deleted", zap.String("ingredient_id", id))
	return nil
}

// Restock adds a positive amount to an ingredient's stock.
func (s *Service) Restock(ctx context.Context, id string, amount decimal.Decimal) (models.IngredientView, error) {
	if !amount.IsPositive() {
		return models.IngredientView{}, models.Validationf(models.EntityIngredient, id, "restock amount must be greater than zero, got %s", amount)
	}

	release, err := s.locks.Acquire(ctx, lockKey(id))
	if err != nil {
		return models.IngredientView{}, err
	}
	defer release()

	updated, err := s.repo.Mutate(id, func(ing models.Ingredient) (models.Ingredient, error) {
		ing.Quantity = ing.Quantity.Add(amount)
		ing.UpdatedAt = s.now()
		return ing, nil
	})
	if err != nil {
		return models.IngredientView{}, err
	}
	s.logger.Info("ingredient restocked", zap.String("ingredient_id", id), zap.Stringer("amount", amount), zap.Stringer("quantity", updated.Quantity))
	return updated.View(), nil
}

func views(items []models.Ingredient) []models.IngredientView {
	out := make([]models.IngredientView, 0, len(items))
	for _, ing := range items {
		out = append(out, ing.View())
	}
	return out
}
