package reporting

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

type fakeSales []models.Sale

func (f fakeSales) Between(start, end time.Time) []models.Sale {
	var out []models.Sale
	for _, s := range f {
		if !s.Timestamp.Before(start) && s.Timestamp.Before(end) {
			out = append(out, s)
		}
	}
	return out
}

type fakeStock []models.IngredientView

func (f fakeStock) LowStock(context.Context) []models.IngredientView { return f }

type fakeProduction decimal.Decimal

func (f fakeProduction) PortionsBetween(time.Time, time.Time) decimal.Decimal {
	return decimal.Decimal(f)
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func at(day, hour int) time.Time { return time.Date(2024, 3, day, hour, 0, 0, 0, time.UTC) }

func sale(product string, qty int64, price, cost string, ts time.Time) models.Sale {
	return models.Sale{ID: product + ts.String(), ProductID: product, ProductName: product, Quantity: qty, UnitPrice: d(price), UnitCost: d(cost), Timestamp: ts}
}

// 2024-03-11 and 2024-03-18 are Mondays.
var history = fakeSales{
	sale("pizza", 2, "10", "4", at(11, 10)),
	sale("salad", 1, "6", "2", at(12, 12)),
	sale("salad", 3, "6", "2", at(18, 11)),
	sale("pizza", 1, "10", "4", at(18, 9)),
}

func newTestService(topN int) *Service {
	low := fakeStock{{Ingredient: models.Ingredient{ID: "flour", Name: "Flour", Quantity: d("1"), MinThreshold: d("2")}, IsLowStock: true}}
	return NewService(history, low, fakeProduction(d("12")), Options{Location: time.UTC, TopProducts: topN}, nil)
}

func TestReport_DailyBuckets(t *testing.T) {
	svc := newTestService(5)
	report, err := svc.Report(context.Background(), models.PeriodDay, at(11, 0), at(14, 0))
	if err != nil {
		t.Fatalf("Failed to build report: %v", err)
	}
	if len(report.Buckets) != 3 {
		t.Fatalf("Expected 3 contiguous buckets, got %d", len(report.Buckets))
	}

	first := report.Buckets[0]
	if first.Period != "2024-03-11" || first.Transactions != 1 || first.QuantitySold != 2 {
		t.Errorf("Unexpected first bucket: %+v", first)
	}
	if !first.Revenue.Equal(d("20")) || !first.Cost.Equal(d("8")) || !first.Profit.Equal(d("12")) || !first.ProfitMargin.Equal(d("60")) {
		t.Errorf("Expected revenue 20 cost 8 profit 12 margin 60, got %s %s %s %s", first.Revenue, first.Cost, first.Profit, first.ProfitMargin)
	}
	if got := report.Buckets[1].ProfitMargin.Round(2); !got.Equal(d("66.67")) {
		t.Errorf("Expected margin 66.67, got %s", got)
	}
	empty := report.Buckets[2]
	if empty.Period != "2024-03-13" || empty.Transactions != 0 || !empty.Revenue.IsZero() || !empty.ProfitMargin.IsZero() {
		t.Errorf("Expected zero-filled bucket for 2024-03-13, got %+v", empty)
	}
	if report.Totals.Transactions != 2 || !report.Totals.Revenue.Equal(d("26")) {
		t.Errorf("Expected totals of 2 sales and 26 revenue, got %+v", report.Totals)
	}
}

func TestReport_WeeklyBucketsAreClipped(t *testing.T) {
	svc := newTestService(5)
	report, err := svc.Report(context.Background(), models.PeriodWeek, at(13, 0), at(20, 0))
	if err != nil {
		t.Fatalf("Failed to build report: %v", err)
	}
	if len(report.Buckets) != 2 {
		t.Fatalf("Expected 2 weekly buckets, got %d", len(report.Buckets))
	}
	if report.Buckets[0].Period != "Week of 2024-03-11" || !report.Buckets[0].Start.Equal(at(13, 0)) {
		t.Errorf("Expected first week clipped to the range start, got %+v", report.Buckets[0])
	}
	if report.Buckets[0].Transactions != 0 {
		t.Errorf("Expected no sales in first week window, got %d", report.Buckets[0].Transactions)
	}
	second := report.Buckets[1]
	if second.Period != "Week of 2024-03-18" || !second.End.Equal(at(20, 0)) || !second.Revenue.Equal(d("28")) {
		t.Errorf("Unexpected second week: %+v", second)
	}
}

func TestReport_Monthly(t *testing.T) {
	svc := newTestService(5)
	report, err := svc.Report(context.Background(), models.PeriodMonth, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC), at(31, 0))
	if err != nil {
		t.Fatalf("Failed to build report: %v", err)
	}
	if len(report.Buckets) != 2 || report.Buckets[0].Period != "2024-02" || report.Buckets[1].Period != "2024-03" {
		t.Fatalf("Expected February and March buckets, got %+v", report.Buckets)
	}
	if !report.Buckets[1].Revenue.Equal(d("54")) {
		t.Errorf("Expected March revenue 54, got %s", report.Buckets[1].Revenue)
	}
}

func TestReport_UsesConfiguredTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	late := fakeSales{sale("pizza", 1, "10", "4", time.Date(2024, 3, 11, 23, 30, 0, 0, time.UTC))}
	svc := NewService(late, fakeStock{}, fakeProduction(decimal.Zero), Options{Location: loc}, nil)

	report, err := svc.Report(context.Background(), models.PeriodDay, time.Date(2024, 3, 11, 0, 0, 0, 0, loc), time.Date(2024, 3, 13, 0, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("Failed to build report: %v", err)
	}
	if report.Buckets[0].Transactions != 0 || report.Buckets[1].Transactions != 1 || report.Buckets[1].Period != "2024-03-12" {
		t.Errorf("Expected the late sale to land on local 2024-03-12, got %+v", report.Buckets)
	}
}

func TestReport_Validation(t *testing.T) {
	svc := newTestService(5)
	testCases := []struct {
		name   string
		period models.Period
		start  time.Time
		end    time.Time
	}{
		{"end equals start", models.PeriodDay, at(11, 0), at(11, 0)},
		{"end before start", models.PeriodDay, at(12, 0), at(11, 0)},
		{"unknown period", models.Period("year"), at(11, 0), at(12, 0)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Report(context.Background(), tc.period, tc.start, tc.end); !errors.Is(err, models.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestReport_EmptyRange(t *testing.T) {
	svc := NewService(fakeSales{}, fakeStock{}, fakeProduction(decimal.Zero), Options{Location: time.UTC}, nil)
	report, err := svc.Report(context.Background(), models.PeriodDay, at(1, 0), at(3, 0))
	if err != nil {
		t.Fatalf("Expected empty range to succeed, got %v", err)
	}
	if len(report.Buckets) != 2 || report.Totals.Transactions != 0 {
		t.Errorf("Expected two empty buckets, got %+v", report)
	}
}

func TestDashboard(t *testing.T) {
	svc := newTestService(1)
	dash := svc.Dashboard(context.Background(), at(18, 15))

	if dash.Today.Transactions != 2 || !dash.Today.Revenue.Equal(d("28")) {
		t.Errorf("Expected today 2 sales for 28, got %+v", dash.Today)
	}
	if dash.Week.Transactions != 3 || !dash.Week.Revenue.Equal(d("34")) {
		t.Errorf("Expected trailing week 3 sales for 34, got %+v", dash.Week)
	}
	if len(dash.ChartData) != 7 || dash.ChartData[0].Period != "2024-03-12" || dash.ChartData[6].Period != "2024-03-18" {
		t.Fatalf("Expected seven chart days ending today, got %+v", dash.ChartData)
	}
	if !dash.ChartData[0].TotalSales.Equal(d("6")) || !dash.ChartData[1].TotalSales.IsZero() {
		t.Errorf("Unexpected chart values: %+v", dash.ChartData[:2])
	}
	if len(dash.TopProducts) != 1 || dash.TopProducts[0].ProductID != "salad" || dash.TopProducts[0].QuantitySold != 3 {
		t.Errorf("Expected salad as the single top product, got %+v", dash.TopProducts)
	}
	if len(dash.LowStock) != 1 || dash.LowStock[0].Name != "Flour" {
		t.Errorf("Expected flour in low stock, got %+v", dash.LowStock)
	}
}

type recordingArchive struct{ saved []models.DailyReport }

func (r *recordingArchive) SaveDailyReport(_ context.Context, report models.DailyReport) error {
	r.saved = append(r.saved, report)
	return nil
}

type failingExporter struct{}

func (failingExporter) ExportDailyReport(context.Context, models.DailyReport) error {
	return errors.New("sheet unavailable")
}

type recordingNotifier struct{ sent []models.OutboundMessageRequest }

func (r *recordingNotifier) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	r.sent = append(r.sent, req)
	return nil
}

func TestDailyClose_Run(t *testing.T) {
	archive := &recordingArchive{}
	notifier := &recordingNotifier{}
	job := NewDailyClose(newTestService(5), archive, failingExporter{}, notifier, "manager", nil)

	report, err := job.Run(context.Background(), time.Date(2024, 3, 19, 1, 0, 0, 0, time.UTC))
	if err == nil || !strings.Contains(err.Error(), "sheet unavailable") {
		t.Errorf("Expected exporter failure to be reported, got %v", err)
	}
	if !report.Date.Equal(at(18, 0)) {
		t.Errorf("Expected the previous day to be closed, got %s", report.Date)
	}
	if report.Transactions != 2 || report.Revenue != 28 || report.Cost != 10 || report.Profit != 18 || report.ProfitMargin != 64.29 {
		t.Errorf("Unexpected daily figures: %+v", report)
	}
	if report.PortionsPrepared != 12 {
		t.Errorf("Expected 12 portions prepared, got %v", report.PortionsPrepared)
	}
	if len(archive.saved) != 1 {
		t.Errorf("Expected report archived once, got %d", len(archive.saved))
	}
	if len(notifier.sent) != 1 || notifier.sent[0].To != "manager" || !strings.Contains(notifier.sent[0].Message, "Low stock: Flour") {
		t.Errorf("Expected manager summary with low stock alert, got %+v", notifier.sent)
	}
}

func TestDailyClose_SkipsMissingSinks(t *testing.T) {
	job := NewDailyClose(newTestService(5), nil, nil, nil, "", nil)
	if _, err := job.Run(context.Background(), at(19, 1)); err != nil {
		t.Errorf("Expected no error without sinks, got %v", err)
	}
}
