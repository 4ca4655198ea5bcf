package inventory

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Batch is an all-or-nothing group of stock deductions. The caller must hold the ingredient
// locks for every id it deducts until it either keeps the batch or calls Rollback.
type Batch struct {
	svc     *Service
	applied []models.StockDeduction
}

// NewBatch starts an empty deduction batch.
func (s *Service) NewBatch() *Batch {
	return &Batch{svc: s}
}

// TryDeduct removes amount from an ingredient, failing with insufficient stock instead of
// letting the quantity go negative. A failed deduction changes nothing.
func (b *Batch) TryDeduct(id string, amount decimal.Decimal) (models.StockDeduction, error) {
	if !amount.IsPositive() {
		return models.StockDeduction{}, models.Validationf(models.EntityIngredient, id, "deduction must be greater than zero, got %s", amount)
	}

	var deduction models.StockDeduction
	_, err := b.svc.repo.Mutate(id, func(ing models.Ingredient) (models.Ingredient, error) {
		after := ing.Quantity.Sub(amount)
		if after.IsNegative() {
			return ing, models.InsufficientStockf(models.EntityIngredient, id,
				"%s needs %s %s, only %s available", ing.Name, amount, ing.Unit, ing.Quantity)
		}
		deduction = models.StockDeduction{
			IngredientID:   id,
			IngredientName: ing.Name,
			Amount:         amount,
			QuantityBefore: ing.Quantity,
			QuantityAfter:  after,
		}
		ing.Quantity = after
		ing.UpdatedAt = b.svc.now()
		return ing, nil
	})
	if err != nil {
		return models.StockDeduction{}, err
	}
	b.applied = append(b.applied, deduction)
	return deduction, nil
}

// Deductions returns the deductions applied so far.
func (b *Batch) Deductions() []models.StockDeduction {
	return append([]models.StockDeduction(nil), b.applied...)
}

// Rollback restores every applied deduction, newest first.
func (b *Batch) Rollback() {
	for i := len(b.applied) - 1; i >= 0; i-- {
		d := b.applied[i]
		_, err := b.svc.repo.Mutate(d.IngredientID, func(ing models.Ingredient) (models.Ingredient, error) {
			ing.Quantity = ing.Quantity.Add(d.Amount)
			ing.UpdatedAt = b.svc.now()
			return ing, nil
		})
		if err != nil {
			// Only reachable if the ingredient vanished while its lock was held.
			b.svc.logger.Error("stock rollback failed", zap.String("ingredient_id", d.IngredientID), zap.Stringer("amount", d.Amount), zap.Error(err))
		}
	}
	b.applied = nil
}
