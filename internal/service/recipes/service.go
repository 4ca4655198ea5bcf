package recipes

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

// IngredientReader gives read-only access to raw stock.
type IngredientReader interface {
	Lookup(ids ...string) (map[string]models.Ingredient, error)
}

// ProductIndex lists the products built from a recipe.
type ProductIndex interface {
	ProductsForRecipe(recipeID string) []models.Product
}

// Service owns recipe bills of materials and the cost and capacity queries over them.
type Service struct {
	repo        *memory.Repository[models.Recipe]
	ingredients IngredientReader
	products    ProductIndex
	locks       *memory.Locker
	logger      *zap.Logger
	now         func() time.Time
}

// NewService wires a recipe catalog on top of the ingredient store.
func NewService(ingredients IngredientReader, locks *memory.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locks == nil {
		locks = memory.NewLocker(0)
	}
	return &Service{
		repo: memory.NewRepository(models.EntityRecipe, memory.Options[models.Recipe]{
			Validate:    models.Recipe.Validate,
			UniqueKey:   func(r models.Recipe) string { return r.Name },
			UniqueField: "name",
		}),
		ingredients: ingredients,
		locks:       locks,
		logger:      logger,
		now:         time.Now,
	}
}

// SetProductIndex links the product catalog, which is built after the recipes.
func (s *Service) SetProductIndex(index ProductIndex) {
	s.products = index
}

// LockKeys returns the keys that guard a recipe and the ingredients it names.
func LockKeys(recipeID string, ingredientIDs ...string) []string {
	keys := make([]string, 0, len(ingredientIDs)+1)
	keys = append(keys, memory.Key(models.EntityRecipe, recipeID))
	for _, id := range ingredientIDs {
		keys = append(keys, memory.Key(models.EntityIngredient, id))
	}
	return keys
}

// Create stores a new recipe after checking every line references an existing ingredient.
func (s *Service) Create(ctx context.Context, in models.RecipeInput) (models.RecipeView, error) {
	now := s.now()
	recipe := models.Recipe{
		ID:              uuid.NewString(),
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		PreparationTime: in.PreparationTime,
		Lines:           normalizeLines(in.Lines),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := recipe.Validate(); err != nil {
		return models.RecipeView{}, err
	}

	release, err := s.locks.Acquire(ctx, LockKeys(recipe.ID, recipe.IngredientIDs()...)...)
	if err != nil {
		return models.RecipeView{}, err
	}
	defer release()

	if _, err := s.ingredients.Lookup(recipe.IngredientIDs()...); err != nil {
		return models.RecipeView{}, err
	}
	created, err := s.repo.Create(recipe)
	if err != nil {
		return models.RecipeView{}, err
	}
	s.logger.Info("recipe created", zap.String("recipe_id", created.ID), zap.String("name", created.Name), zap.Int("lines", len(created.Lines)))
	return s.view(created)
}

// Get returns one recipe with its derived figures.
func (s *Service) Get(_ context.Context, id string) (models.RecipeView, error) {
	recipe, err := s.repo.Get(id)
	if err != nil {
		return models.RecipeView{}, err
	}
	return s.view(recipe)
}

// List returns every recipe ordered by name.
func (s *Service) List(_ context.Context) ([]models.RecipeView, error) {
	all := s.repo.List()
	out := make([]models.RecipeView, 0, len(all))
	for _, recipe := range all {
		v, err := s.view(recipe)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Lookup returns the stored recipe without derived figures.
func (s *Service) Lookup(id string) (models.Recipe, error) {
	return s.repo.Get(id)
}

// FindByName resolves a recipe by case-insensitive name.
func (s *Service) FindByName(_ context.Context, name string) (models.Recipe, error) {
	want := strings.ToLower(strings.TrimSpace(name))
	matches := s.repo.Find(func(r models.Recipe) bool { return r.SortKey() == want })
	if len(matches) == 0 {
		return models.Recipe{}, models.NotFound(models.EntityRecipe, name)
	}
	return matches[0], nil
}

// Update applies patch to a recipe. Replacing the lines locks the new ingredients so none of
// them can be deleted concurrently; an in-flight preparation holds the recipe lock, so edits
// wait for it or fail with a conflict.
func (s *Service) Update(ctx context.Context, id string, patch models.RecipePatch) (models.RecipeView, error) {
	if patch.Lines != nil {
		patch.Lines = normalizeLines(patch.Lines)
	}
	var ingredientIDs []string
	for _, line := range patch.Lines {
		ingredientIDs = append(ingredientIDs, line.IngredientID)
	}
	return s.edit(ctx, id, ingredientIDs, func(r models.Recipe) (models.Recipe, error) {
		return patch.Apply(r), nil
	})
}

// AddLine appends a new ingredient line.
func (s *Service) AddLine(ctx context.Context, id string, line models.RecipeLine) (models.RecipeView, error) {
	line.IngredientID = strings.TrimSpace(line.IngredientID)
	return s.edit(ctx, id, []string{line.IngredientID}, func(r models.Recipe) (models.Recipe, error) {
		if r.LineIndex(line.IngredientID) >= 0 {
			return r, models.Validationf(models.EntityRecipe, id, "ingredient %s is already listed", line.IngredientID)
		}
		r.Lines = append(r.Lines, line)
		return r, nil
	})
}

// UpdateLine changes the quantity of an existing line.
func (s *Service) UpdateLine(ctx context.Context, id, ingredientID string, quantity decimal.Decimal) (models.RecipeView, error) {
	return s.edit(ctx, id, nil, func(r models.Recipe) (models.Recipe, error) {
		idx := r.LineIndex(ingredientID)
		if idx < 0 {
			return r, models.NotFound("recipe line", ingredientID)
		}
		r.Lines[idx].QuantityRequired = quantity
		return r, nil
	})
}

// RemoveLine drops an ingredient from the recipe.
func (s *Service) RemoveLine(ctx context.Context, id, ingredientID string) (models.RecipeView, error) {
	return s.edit(ctx, id, nil, func(r models.Recipe) (models.Recipe, error) {
		idx := r.LineIndex(ingredientID)
		if idx < 0 {
			return r, models.NotFound("recipe line", ingredientID)
		}
		r.Lines = append(r.Lines[:idx], r.Lines[idx+1:]...)
		return r, nil
	})
}

func (s *Service) edit(ctx context.Context, id string, ingredientIDs []string, fn func(models.Recipe) (models.Recipe, error)) (models.RecipeView, error) {
	release, err := s.locks.Acquire(ctx, LockKeys(id, ingredientIDs...)...)
	if err != nil {
		return models.RecipeView{}, err
	}
	defer release()

	updated, err := s.repo.Mutate(id, func(r models.Recipe) (models.Recipe, error) {
		next, err := fn(r)
		if err != nil {
			return r, err
		}
		if err := next.Validate(); err != nil {
			return r, err
		}
		if _, err := s.ingredients.Lookup(next.IngredientIDs()...); err != nil {
			return r, err
		}
		next.UpdatedAt = s.now()
		return next, nil
	})
	if err != nil {
		return models.RecipeView{}, err
	}
	s.logger.Info("recipe updated", zap.String("recipe_id", id), zap.Int("lines", len(updated.Lines)))
	return s.view(updated)
}

// Delete removes a recipe no product is built from.
func (s *Service) Delete(ctx context.Context, id string) error {
	release, err := s.locks.Acquire(ctx, LockKeys(id)...)
	if err != nil {
		return err
	}
	defer release()

	if _, err := s.repo.Get(id); err != nil {
		return err
	}
	if s.products != nil && len(s.products.ProductsForRecipe(id)) > 0 {
		s.logger.Warn("recipe delete rejected", zap.String("recipe_id", id), zap.String("reason", "referenced by product"))
		return models.Conflictf(models.EntityRecipe, id, "still used by at least one product")
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.logger.Info("recipe deleted", zap.String("recipe_id", id))
	return nil
}

// ReferencesIngredient reports whether any recipe lists the ingredient.
func (s *Service) ReferencesIngredient(ingredientID string) bool {
	return s.repo.Any(func(r models.Recipe) bool { return r.LineIndex(ingredientID) >= 0 })
}

// Costing evaluates cost per serving and max portions from a single stock read.
func (s *Service) Costing(id string) (models.RecipeCosting, error) {
	recipe, err := s.repo.Get(id)
	if err != nil {
		return models.RecipeCosting{}, err
	}
	return s.costing(recipe)
}

// CostPerServing sums cost_per_unit * quantity_required over the recipe lines.
func (s *Service) CostPerServing(_ context.Context, id string) (decimal.Decimal, error) {
	c, err := s.Costing(id)
	if err != nil {
		return decimal.Zero, err
	}
	return c.CostPerServing, nil
}

// MaxPortions is how many more whole portions current stock allows.
func (s *Service) MaxPortions(_ context.Context, id string) (int64, error) {
	c, err := s.Costing(id)
	if err != nil {
		return 0, err
	}
	return c.MaxPortions, nil
}

func (s *Service) costing(recipe models.Recipe) (models.RecipeCosting, error) {
	stock, err := s.ingredients.Lookup(recipe.IngredientIDs()...)
	if err != nil {
		return models.RecipeCosting{}, models.Internal(models.EntityRecipe, err)
	}
	cost, err := recipe.CostPerServing(stock)
	if err != nil {
		return models.RecipeCosting{}, models.Internal(models.EntityRecipe, err)
	}
	portions, err := recipe.MaxPortions(stock)
	if err != nil {
		return models.RecipeCosting{}, models.Internal(models.EntityRecipe, err)
	}
	return models.RecipeCosting{Recipe: recipe, CostPerServing: cost, MaxPortions: portions}, nil
}

func (s *Service) view(recipe models.Recipe) (models.RecipeView, error) {
	stock, err := s.ingredients.Lookup(recipe.IngredientIDs()...)
	if err != nil {
		return models.RecipeView{}, models.Internal(models.EntityRecipe, err)
	}
	v := models.RecipeView{Recipe: recipe, IngredientsDetail: make([]models.RecipeLineDetail, 0, len(recipe.Lines))}
	for _, line := range recipe.Lines {
		ing := stock[line.IngredientID]
		v.IngredientsDetail = append(v.IngredientsDetail, models.RecipeLineDetail{
			IngredientID:     line.IngredientID,
			IngredientName:   ing.Name,
			IngredientUnit:   ing.Unit,
			QuantityRequired: line.QuantityRequired,
			LineCost:         ing.CostPerUnit.Mul(line.QuantityRequired),
		})
	}
	if v.CostPerServing, err = recipe.CostPerServing(stock); err != nil {
		return models.RecipeView{}, models.Internal(models.EntityRecipe, err)
	}
	if v.MaxPortions, err = recipe.MaxPortions(stock); err != nil {
		return models.RecipeView{}, models.Internal(models.EntityRecipe, err)
	}
	v.CanMake = v.MaxPortions >= 1
	v.PreparedQuantity = decimal.Zero
	if s.products != nil {
		for _, p := range s.products.ProductsForRecipe(recipe.ID) {
			v.PreparedQuantity = v.PreparedQuantity.Add(p.PreparedQuantity)
		}
	}
	return v, nil
}

func normalizeLines(lines []models.RecipeLine) []models.RecipeLine {
	out := make([]models.RecipeLine, 0, len(lines))
	for _, line := range lines {
		line.IngredientID = strings.TrimSpace(line.IngredientID)
		out = append(out, line)
	}
	return out
}
