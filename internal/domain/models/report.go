package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Period is the bucket width of a sales report.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts day, week or month.
func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", Validationf("period", "", "invalid period %q, choose from: day, week, month", raw)
	}
}

// Truncate returns the start of the bucket containing t, in t's location. Weeks start on Monday.
func (p Period) Truncate(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	switch p {
	case PeriodWeek:
		return day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	default:
		return day
	}
}

// Next returns the start of the bucket following the one that starts at start.
func (p Period) Next(start time.Time) time.Time {
	switch p {
	case PeriodWeek:
		return start.AddDate(0, 0, 7)
	case PeriodMonth:
		return start.AddDate(0, 1, 0)
	default:
		return start.AddDate(0, 0, 1)
	}
}

// Label formats a bucket start for display.
func (p Period) Label(start time.Time) string {
	switch p {
	case PeriodWeek:
		return start.Format("Week of 2006-01-02")
	case PeriodMonth:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

// Figures are the aggregate sales numbers of a time window.
type Figures struct {
	Transactions int             `json:"transactions"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
	Cost         decimal.Decimal `json:"cost"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitMargin decimal.Decimal `json:"profit_margin"`
}

// Add folds one sale into the figures; call Finish once all sales are added.
func (f *Figures) Add(s Sale) {
	f.Transactions++
	f.QuantitySold += s.Quantity
	f.Revenue = f.Revenue.Add(s.TotalPrice())
	f.Cost = f.Cost.Add(s.TotalCost())
}

// Finish derives profit and margin from revenue and cost.
func (f *Figures) Finish() {
	f.Profit = f.Revenue.Sub(f.Cost)
	if f.Revenue.IsPositive() {
		f.ProfitMargin = f.Profit.Div(f.Revenue).Mul(hundred)
	} else {
		f.ProfitMargin = decimal.Zero
	}
}

// ReportBucket is one period of a sales report, covering [Start, End).
type ReportBucket struct {
	Period string    `json:"period"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Figures
}

// SalesReport buckets sales over [Start, End).
type SalesReport struct {
	Period  Period         `json:"period_type"`
	Start   time.Time      `json:"start"`
	End     time.Time      `json:"end"`
	Buckets []ReportBucket `json:"data"`
	Totals  Figures        `json:"totals"`
}

// TopProduct ranks a product by revenue.
type TopProduct struct {
	ProductID    string          `json:"product"`
	ProductName  string          `json:"product_name"`
	QuantitySold int64           `json:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// ChartPoint is one day of the dashboard chart.
type ChartPoint struct {
	Period       string          `json:"period"`
	Transactions int             `json:"transactions"`
	TotalSales   decimal.Decimal `json:"total_sales"`
	Profit       decimal.Decimal `json:"profit"`
}

// Dashboard is the at-a-glance snapshot of the ledger.
type Dashboard struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Today       Figures          `json:"today"`
	Week        Figures          `json:"week"`
	ChartData   []ChartPoint     `json:"chart_data"`
	TopProducts []TopProduct     `json:"top_products"`
	LowStock    []IngredientView `json:"low_stock"`
}

// DailyReport is the archived close of a single day.
type DailyReport struct {
	Date             time.Time `bson:"date" json:"date"`
	Transactions     int       `bson:"transactions" json:"transactions"`
	QuantitySold     int64     `bson:"quantity_sold" json:"quantity_sold"`
	Revenue          float64   `bson:"revenue" json:"revenue"`
	Cost             float64   `bson:"cost" json:"cost"`
	Profit           float64   `bson:"profit" json:"profit"`
	ProfitMargin     float64   `bson:"profit_margin" json:"profit_margin"`
	PortionsPrepared float64   `bson:"portions_prepared" json:"portions_prepared"`
	LowStock         []string  `bson:"low_stock" json:"low_stock"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
}
