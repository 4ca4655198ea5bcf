package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// ErrUnsupportedCommand indicates we do not yet support the requested command.
var ErrUnsupportedCommand = errors.New("unsupported command")

const helpText = "Commands:\n" +
	"/stock\n" +
	"/restock <ingredient> <amount>\n" +
	"/prepare <recipe> <quantity> [notes]\n" +
	"/sell <product> <quantity> [unit_price]\n" +
	"/report [day|week|month]"

// Inventory is the slice of the ingredient store reachable from chat.
type Inventory interface {
	List(ctx context.Context) []models.IngredientView
	FindByName(ctx context.Context, name string) (models.IngredientView, error)
	Restock(ctx context.Context, id string, amount decimal.Decimal) (models.IngredientView, error)
}

// RecipeFinder resolves a recipe by name.
type RecipeFinder interface {
	FindByName(ctx context.Context, name string) (models.Recipe, error)
}

// ProductFinder resolves a product by name.
type ProductFinder interface {
	FindByName(ctx context.Context, name string) (models.Product, error)
}

// Kitchen prepares recipes.
type Kitchen interface {
	Prepare(ctx context.Context, recipeID string, in models.PrepareInput) (models.ProductionRecord, error)
}

// Till records sales.
type Till interface {
	CreateSale(ctx context.Context, in models.SaleInput) (models.SaleView, error)
}

// Reports builds period reports.
type Reports interface {
	Report(ctx context.Context, period models.Period, start, end time.Time) (models.SalesReport, error)
	Location() *time.Location
}

// Dispatcher executes parsed commands and renders the reply text.
type Dispatcher interface {
	HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error)
}

// Deps groups the ledger services commands act on.
type Deps struct {
	Inventory  Inventory
	Recipes    RecipeFinder
	Products   ProductFinder
	Production Kitchen
	Sales      Till
	Reports    Reports
}

// Service implements the Dispatcher interface.
type Service struct {
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

// NewService constructs a command dispatcher.
func NewService(deps Deps, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{deps: deps, logger: logger, now: time.Now}
}

// HandleCommand runs the command against the ledger. Ledger errors are returned unchanged so
// the caller can render their kind.
func (s *Service) HandleCommand(ctx context.Context, cmd models.Command, sender string) (string, error) {
	s.logger.Debug("dispatching command", zap.String("command", string(cmd.Type)), zap.String("sender", sender), zap.Strings("args", cmd.Args))

	switch cmd.Type {
	case models.CommandStock:
		return s.stock(ctx), nil
	case models.CommandRestock:
		return s.restock(ctx, cmd.Args)
	case models.CommandPrepare:
		return s.prepare(ctx, cmd.Args)
	case models.CommandSell:
		return s.sell(ctx, cmd.Args)
	case models.CommandReport:
		return s.report(ctx, cmd.Args)
	case models.CommandHelp:
		return helpText, nil
	default:
		return "", ErrUnsupportedCommand
	}
}

func (s *Service) stock(ctx context.Context) string {
	items := s.deps.Inventory.List(ctx)
	if len(items) == 0 {
		return "No ingredients in stock yet."
	}
	var b strings.Builder
	b.WriteString("Stock:")
	for _, ing := range items {
		fmt.Fprintf(&b, "\n%s: %s %s", ing.Name, ing.Quantity, ing.Unit)
		if ing.IsLowStock {
			fmt.Fprintf(&b, " (low, min %s)", ing.MinThreshold)
		}
	}
	return b.String()
}

func (s *Service) restock(ctx context.Context, args []string) (string, error) {
	if len(args) < 2 {
		return "", models.Validationf("command", "", "usage: /restock <ingredient> <amount>")
	}
	amount, err := models.ParsePositiveDecimal("amount", args[len(args)-1])
	if err != nil {
		return "", err
	}
	ing, err := s.deps.Inventory.FindByName(ctx, strings.Join(args[:len(args)-1], " "))
	if err != nil {
		return "", err
	}
	updated, err := s.deps.Inventory.Restock(ctx, ing.ID, amount)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Restocked %s %s %s. Now %s %s.", amount, updated.Unit, updated.Name, updated.Quantity, updated.Unit), nil
}

func (s *Service) prepare(ctx context.Context, args []string) (string, error) {
	name, qty, rest, err := splitNamed(args, "quantity", "usage: /prepare <recipe> <quantity> [notes]")
	if err != nil {
		return "", err
	}
	quantity, err := models.ParsePositiveDecimal("quantity", qty)
	if err != nil {
		return "", err
	}
	recipe, err := s.deps.Recipes.FindByName(ctx, name)
	if err != nil {
		return "", err
	}
	record, err := s.deps.Production.Prepare(ctx, recipe.ID, models.PrepareInput{Quantity: quantity, Notes: strings.Join(rest, " ")})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Prepared %s x %s.", record.Quantity, record.RecipeName)
	for _, inc := range record.Products {
		fmt.Fprintf(&b, "\n%s ready: %s", inc.ProductName, inc.QuantityAfter)
	}
	return b.String(), nil
}

func (s *Service) sell(ctx context.Context, args []string) (string, error) {
	name, qty, rest, err := splitNamed(args, "quantity", "usage: /sell <product> <quantity> [unit_price]")
	if err != nil {
		return "", err
	}
	quantity, err := models.ParseDecimal("quantity", qty)
	if err != nil {
		return "", err
	}
	in := models.SaleInput{Quantity: quantity}
	if len(rest) > 1 {
		return "", models.Validationf("command", "", "usage: /sell <product> <quantity> [unit_price]")
	}
	if len(rest) == 1 {
		price, err := models.ParseDecimal("unit_price", rest[0])
		if err != nil {
			return "", err
		}
		in.UnitPrice = &price
	}
	product, err := s.deps.Products.FindByName(ctx, name)
	if err != nil {
		return "", err
	}
	in.ProductID = product.ID

	sale, err := s.deps.Sales.CreateSale(ctx, in)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Sold %d x %s @ %s = %s (profit %s).", sale.Quantity, sale.ProductName,
		sale.UnitPrice.StringFixed(2), sale.TotalPrice.StringFixed(2), sale.Profit.StringFixed(2)), nil
}

func (s *Service) report(ctx context.Context, args []string) (string, error) {
	period := models.PeriodDay
	if len(args) > 0 {
		p, err := models.ParsePeriod(args[0])
		if err != nil {
			return "", err
		}
		period = p
	}
	start := period.Truncate(s.now().In(s.deps.Reports.Location()))
	report, err := s.deps.Reports.Report(ctx, period, start, period.Next(start))
	if err != nil {
		return "", err
	}
	t := report.Totals
	return fmt.Sprintf("%s\nSales: %d (%d units)\nRevenue: %s\nCost: %s\nProfit: %s (%s%%)",
		period.Label(start), t.Transactions, t.QuantitySold,
		t.Revenue.StringFixed(2), t.Cost.StringFixed(2), t.Profit.StringFixed(2), t.ProfitMargin.StringFixed(1)), nil
}

// splitNamed splits "<name words> <number> [rest...]" on the first numeric token, so names
// may contain spaces.
func splitNamed(args []string, field, usage string) (name, number string, rest []string, err error) {
	for i, arg := range args {
		if i == 0 {
			continue
		}
		if _, parseErr := decimal.NewFromString(arg); parseErr == nil {
			return strings.Join(args[:i], " "), arg, args[i+1:], nil
		}
	}
	if len(args) < 2 {
		return "", "", nil, models.Validationf("command", "", "%s", usage)
	}
	_, err = models.ParseDecimal(field, args[len(args)-1])
	return "", "", nil, err
}
