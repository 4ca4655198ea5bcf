package reporting

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const (
	defaultTopProducts = 5
	chartDays          = 7
)

// SalesReader exposes the sales history in a time window.
type SalesReader interface {
	Between(start, end time.Time) []models.Sale
}

// StockReader exposes the low-stock alert list.
type StockReader interface {
	LowStock(ctx context.Context) []models.IngredientView
}

// ProductionReader exposes prepared portions in a time window.
type ProductionReader interface {
	PortionsBetween(start, end time.Time) decimal.Decimal
}

// Options tunes the aggregator.
type Options struct {
	Location    *time.Location
	TopProducts int
}

// Service aggregates the ledger into reports and dashboards. It never mutates state.
type Service struct {
	sales      SalesReader
	stock      StockReader
	production ProductionReader
	location   *time.Location
	topN       int
	logger     *zap.Logger
}

// NewService wires a new reporting service instance.
func NewService(sales SalesReader, stock StockReader, production ProductionReader, opts Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.TopProducts <= 0 {
		opts.TopProducts = defaultTopProducts
	}
	return &Service{
		sales:      sales,
		stock:      stock,
		production: production,
		location:   opts.Location,
		topN:       opts.TopProducts,
		logger:     logger,
	}
}

// Location is the timezone buckets are cut in.
func (s *Service) Location() *time.Location { return s.location }

// Report buckets the sales in [start, end) by period. Buckets are contiguous and cut in the
// configured timezone; the first and last are clipped to the requested range.
func (s *Service) Report(_ context.Context, period models.Period, start, end time.Time) (models.SalesReport, error) {
	period, err := models.ParsePeriod(string(period))
	if err != nil {
		return models.SalesReport{}, err
	}
	if !end.After(start) {
		return models.SalesReport{}, models.Validationf("end_date", "", "must be after start_date")
	}
	start, end = start.In(s.location), end.In(s.location)

	var buckets []models.ReportBucket
	index := make(map[int64]int)
	for cursor := period.Truncate(start); cursor.Before(end); cursor = period.Next(cursor) {
		bucket := models.ReportBucket{Period: period.Label(cursor), Start: cursor, End: period.Next(cursor)}
		if bucket.Start.Before(start) {
			bucket.Start = start
		}
		if bucket.End.After(end) {
			bucket.End = end
		}
		index[cursor.Unix()] = len(buckets)
		buckets = append(buckets, bucket)
	}

	var totals models.Figures
	for _, sale := range s.sales.Between(start, end) {
		i, ok := index[period.Truncate(sale.Timestamp.In(s.location)).Unix()]
		if !ok {
			continue
		}
		buckets[i].Add(sale)
		totals.Add(sale)
	}
	for i := range buckets {
		buckets[i].Finish()
	}
	totals.Finish()

	s.logger.Debug("sales report built",
		zap.String("period", string(period)),
		zap.Time("start", start),
		zap.Time("end", end),
		zap.Int("buckets", len(buckets)),
		zap.Int("transactions", totals.Transactions),
	)
	return models.SalesReport{Period: period, Start: start, End: end, Buckets: buckets, Totals: totals}, nil
}

// Dashboard summarises today, the trailing seven days and the current low-stock list.
func (s *Service) Dashboard(ctx context.Context, now time.Time) models.Dashboard {
	today := models.PeriodDay.Truncate(now.In(s.location))
	tomorrow := today.AddDate(0, 0, 1)
	weekStart := today.AddDate(0, 0, -(chartDays - 1))

	week := s.sales.Between(weekStart, tomorrow)

	dash := models.Dashboard{
		GeneratedAt: now,
		ChartData:   make([]models.ChartPoint, 0, chartDays),
		LowStock:    s.stock.LowStock(ctx),
	}

	byDay := make(map[string]*models.Figures, chartDays)
	for day := weekStart; day.Before(tomorrow); day = day.AddDate(0, 0, 1) {
		byDay[models.PeriodDay.Label(day)] = &models.Figures{}
	}

	var todaySales []models.Sale
	for _, sale := range week {
		dash.Week.Add(sale)
		if f, ok := byDay[models.PeriodDay.Label(sale.Timestamp.In(s.location))]; ok {
			f.Add(sale)
		}
		if !sale.Timestamp.Before(today) {
			dash.Today.Add(sale)
			todaySales = append(todaySales, sale)
		}
	}
	dash.Today.Finish()
	dash.Week.Finish()

	for day := weekStart; day.Before(tomorrow); day = day.AddDate(0, 0, 1) {
		f := byDay[models.PeriodDay.Label(day)]
		f.Finish()
		dash.ChartData = append(dash.ChartData, models.ChartPoint{
			Period:       models.PeriodDay.Label(day),
			Transactions: f.Transactions,
			TotalSales:   f.Revenue,
			Profit:       f.Profit,
		})
	}
	dash.TopProducts = s.topProducts(todaySales)
	if dash.LowStock == nil {
		dash.LowStock = []models.IngredientView{}
	}
	return dash
}

func (s *Service) topProducts(sales []models.Sale) []models.TopProduct {
	byProduct := make(map[string]*models.TopProduct)
	for _, sale := range sales {
		top, ok := byProduct[sale.ProductID]
		if !ok {
			top = &models.TopProduct{ProductID: sale.ProductID, ProductName: sale.ProductName, Revenue: decimal.Zero}
			byProduct[sale.ProductID] = top
		}
		top.QuantitySold += sale.Quantity
		top.Revenue = top.Revenue.Add(sale.TotalPrice())
	}

	ranked := make([]models.TopProduct, 0, len(byProduct))
	for _, top := range byProduct {
		ranked = append(ranked, *top)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if c := ranked[i].Revenue.Cmp(ranked[j].Revenue); c != 0 {
			return c > 0
		}
		return ranked[i].ProductName < ranked[j].ProductName
	})
	if len(ranked) > s.topN {
		ranked = ranked[:s.topN]
	}
	return ranked
}

// DailyReport closes the calendar day containing day.
func (s *Service) DailyReport(ctx context.Context, day, now time.Time) models.DailyReport {
	start := models.PeriodDay.Truncate(day.In(s.location))
	end := start.AddDate(0, 0, 1)

	var figures models.Figures
	for _, sale := range s.sales.Between(start, end) {
		figures.Add(sale)
	}
	figures.Finish()

	lowStock := []string{}
	for _, ing := range s.stock.LowStock(ctx) {
		lowStock = append(lowStock, ing.Name)
	}

	return models.DailyReport{
		Date:             start,
		Transactions:     figures.Transactions,
		QuantitySold:     figures.QuantitySold,
		Revenue:          figures.Revenue.InexactFloat64(),
		Cost:             figures.Cost.InexactFloat64(),
		Profit:           figures.Profit.InexactFloat64(),
		ProfitMargin:     figures.ProfitMargin.Round(2).InexactFloat64(),
		PortionsPrepared: s.production.PortionsBetween(start, end).InexactFloat64(),
		LowStock:         lowStock,
		CreatedAt:        now,
	}
}
