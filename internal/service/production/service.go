package production

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
	"github.com/mamadbah2/kitchenledger/internal/events"
	"github.com/mamadbah2/kitchenledger/internal/repository/memory"
	"github.com/mamadbah2/kitchenledger/internal/service/inventory"
	"github.com/mamadbah2/kitchenledger/internal/service/products"
	"github.com/mamadbah2/kitchenledger/internal/service/recipes"
)

const (
	// maxAttempts bounds how often prepare re-plans when the recipe or its products change
	// between planning and locking.
	maxAttempts = 3

	topRecipes  = 5
	summaryDays = 30
)

// Service turns ingredient stock into prepared product stock.
type Service struct {
	inventory *inventory.Service
	recipes   *recipes.Service
	products  *products.Service
	records   *memory.Repository[models.ProductionRecord]
	locks     *memory.Locker
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the production engine.
func NewService(inv *inventory.Service, rec *recipes.Service, prod *products.Service, locks *memory.Locker, publisher events.Publisher, logger *zap.Logger) *Service {
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
		inventory: inv,
		recipes:   rec,
		products:  prod,
		records:   memory.NewRepository(models.EntityProduction, memory.Options[models.ProductionRecord]{}),
		locks:     locks,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

type plan struct {
	recipe   models.Recipe
	products []models.Product
}

func (p plan) keys() []string {
	keys := recipes.LockKeys(p.recipe.ID, p.recipe.IngredientIDs()...)
	for _, product := range p.products {
		keys = append(keys, products.LockKey(product.ID))
	}
	return keys
}

func (s *Service) plan(recipeID string) (plan, error) {
	recipe, err := s.recipes.Lookup(recipeID)
	if err != nil {
		return plan{}, err
	}
	return plan{recipe: recipe, products: s.products.ProductsForRecipe(recipeID)}, nil
}

// sameScope reports whether two plans lock the same ingredients and products.
func sameScope(a, b plan) bool {
	ai, bi := a.recipe.IngredientIDs(), b.recipe.IngredientIDs()
	slices.Sort(ai)
	slices.Sort(bi)
	if !slices.Equal(ai, bi) {
		return false
	}
	ap, bp := productIDs(a.products), productIDs(b.products)
	slices.Sort(ap)
	slices.Sort(bp)
	return slices.Equal(ap, bp)
}

func productIDs(items []models.Product) []string {
	ids := make([]string, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	return ids
}

// Prepare deducts quantity portions worth of every ingredient and adds quantity to the prepared
// stock of every product built from the recipe, all or nothing.
func (s *Service) Prepare(ctx context.Context, recipeID string, in models.PrepareInput) (models.ProductionRecord, error) {
	if !in.Quantity.IsPositive() {
		return models.ProductionRecord{}, models.Validationf(models.EntityProduction, "", "quantity must be greater than zero, got %s", in.Quantity)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		planned, err := s.plan(recipeID)
		if err != nil {
			return models.ProductionRecord{}, err
		}

		release, err := s.locks.Acquire(ctx, planned.keys()...)
		if err != nil {
			s.logger.Warn("prepare lock wait failed", zap.String("recipe_id", recipeID), zap.Error(err))
			return models.ProductionRecord{}, err
		}
		record, replan, err := s.commit(planned, in)
		release()

		if replan {
			s.logger.Debug("recipe changed while locking, re-planning", zap.String("recipe_id", recipeID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			if models.KindOf(err) == models.KindInternal {
				s.logger.Error("prepare failed", zap.String("recipe_id", recipeID), zap.Error(err))
			} else {
				s.logger.Warn("prepare rejected", zap.String("recipe_id", recipeID), zap.Stringer("quantity", in.Quantity), zap.Error(err))
			}
			return models.ProductionRecord{}, err
		}

		s.logger.Info("recipe prepared",
			zap.String("recipe_id", record.RecipeID),
			zap.String("production_id", record.ID),
			zap.Stringer("quantity", record.Quantity),
			zap.Int("products", len(record.Products)),
		)
		if err := s.publisher.Publish(ctx, events.New(events.TypeProductionPrepared, record.RecipeID, record, record.Timestamp)); err != nil {
			s.logger.Warn("production event not published", zap.String("production_id", record.ID), zap.Error(err))
		}
		return record, nil
	}
	return models.ProductionRecord{}, models.Conflictf(models.EntityRecipe, recipeID, "recipe kept changing during preparation, retry")
}

// commit runs with every key of planned held. replan is true when the locked state no longer
// matches the plan, in which case nothing was changed.
func (s *Service) commit(planned plan, in models.PrepareInput) (record models.ProductionRecord, replan bool, err error) {
	current, err := s.plan(planned.recipe.ID)
	if err != nil {
		return models.ProductionRecord{}, false, err
	}
	if !sameScope(planned, current) {
		return models.ProductionRecord{}, true, nil
	}
	recipe := current.recipe

	stock, err := s.inventory.Lookup(recipe.IngredientIDs()...)
	if err != nil {
		return models.ProductionRecord{}, false, models.Internal(models.EntityRecipe, err)
	}
	portions, err := recipe.PortionsAvailable(stock)
	if err != nil {
		return models.ProductionRecord{}, false, models.Internal(models.EntityRecipe, err)
	}
	if in.Quantity.GreaterThan(portions) {
		return models.ProductionRecord{}, false, models.InsufficientStockf(models.EntityRecipe, recipe.ID,
			"cannot make %s of %s, maximum available is %s", in.Quantity, recipe.Name, portions)
	}

	batch := s.inventory.NewBatch()
	for _, line := range recipe.Lines {
		if _, err := batch.TryDeduct(line.IngredientID, in.Quantity.Mul(line.QuantityRequired)); err != nil {
			batch.Rollback()
			return models.ProductionRecord{}, false, err
		}
	}

	increments := make([]models.PreparedIncrement, 0, len(current.products))
	undo := func() {
		for i := len(increments) - 1; i >= 0; i-- {
			if _, err := s.products.AdjustPrepared(increments[i].ProductID, in.Quantity.Neg()); err != nil {
				s.logger.Error("prepared stock rollback failed", zap.String("product_id", increments[i].ProductID), zap.Error(err))
			}
		}
		batch.Rollback()
	}
	for _, product := range current.products {
		inc, err := s.products.AdjustPrepared(product.ID, in.Quantity)
		if err != nil {
			undo()
			return models.ProductionRecord{}, false, err
		}
		increments = append(increments, inc)
	}

	record = models.ProductionRecord{
		ID:         uuid.NewString(),
		RecipeID:   recipe.ID,
		RecipeName: recipe.Name,
		Quantity:   in.Quantity,
		Notes:      strings.TrimSpace(in.Notes),
		Deductions: batch.Deductions(),
		Products:   increments,
		Timestamp:  s.now(),
	}
	if _, err := s.records.Create(record); err != nil {
		undo()
		return models.ProductionRecord{}, false, models.Internal(models.EntityProduction, err)
	}
	return record, false, nil
}

// List returns the production log, newest first.
func (s *Service) List(_ context.Context) []models.ProductionRecord {
	all := s.records.List()
	slices.Reverse(all)
	return all
}

// PortionsBetween sums the quantity prepared in [start, end).
func (s *Service) PortionsBetween(start, end time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.records.Find(func(r models.ProductionRecord) bool { return inWindow(r.Timestamp, start, end) }) {
		total = total.Add(r.Quantity)
	}
	return total
}

// Summary ranks the most produced recipes and totals production per day over the trailing
// thirty days. Days are calendar days in now's location.
func (s *Service) Summary(_ context.Context, now time.Time) models.ProductionSummary {
	all := s.records.List()

	byRecipe := make(map[string]*models.RecipeOutput)
	for _, r := range all {
		out, ok := byRecipe[r.RecipeID]
		if !ok {
			out = &models.RecipeOutput{RecipeID: r.RecipeID, RecipeName: r.RecipeName, Total: decimal.Zero}
			byRecipe[r.RecipeID] = out
		}
		out.Total = out.Total.Add(r.Quantity)
	}
	top := make([]models.RecipeOutput, 0, len(byRecipe))
	for _, out := range byRecipe {
		top = append(top, *out)
	}
	sort.Slice(top, func(i, j int) bool {
		if c := top[i].Total.Cmp(top[j].Total); c != 0 {
			return c > 0
		}
		return top[i].RecipeName < top[j].RecipeName
	})
	if len(top) > topRecipes {
		top = top[:topRecipes]
	}

	loc := now.Location()
	since := now.AddDate(0, 0, -summaryDays)
	byDay := make(map[string]*models.DailyOutput)
	for _, r := range all {
		if r.Timestamp.Before(since) || r.Timestamp.After(now) {
			continue
		}
		day := r.Timestamp.In(loc).Format("2006-01-02")
		out, ok := byDay[day]
		if !ok {
			out = &models.DailyOutput{Date: day, TotalQuantity: decimal.Zero}
			byDay[day] = out
		}
		out.Runs++
		out.TotalQuantity = out.TotalQuantity.Add(r.Quantity)
	}
	daily := make([]models.DailyOutput, 0, len(byDay))
	for _, out := range byDay {
		daily = append(daily, *out)
	}
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })

	return models.ProductionSummary{TopRecipes: top, DailyProduction: daily}
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
