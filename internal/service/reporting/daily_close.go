package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// Archive stores closed days.
type Archive interface {
	SaveDailyReport(ctx context.Context, report models.DailyReport) error
}

// Exporter publishes a closed day to an external sheet.
type Exporter interface {
	ExportDailyReport(ctx context.Context, report models.DailyReport) error
}

// Notifier delivers a text message to a chat recipient.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// DailyClose archives, exports and announces the previous day's figures. Any sink may be nil.
type DailyClose struct {
	reports   *Service
	archive   Archive
	exporter  Exporter
	notifier  Notifier
	managerID string
	logger    *zap.Logger
}

// NewDailyClose wires the end-of-day job.
func NewDailyClose(reports *Service, archive Archive, exporter Exporter, notifier Notifier, managerID string, logger *zap.Logger) *DailyClose {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DailyClose{
		reports:   reports,
		archive:   archive,
		exporter:  exporter,
		notifier:  notifier,
		managerID: managerID,
		logger:    logger,
	}
}

// Run closes the day before now. Every sink is attempted; their failures are joined.
func (d *DailyClose) Run(ctx context.Context, now time.Time) (models.DailyReport, error) {
	yesterday := models.PeriodDay.Truncate(now.In(d.reports.Location())).AddDate(0, 0, -1)
	report := d.reports.DailyReport(ctx, yesterday, now)

	var errs []error
	if d.archive != nil {
		if err := d.archive.SaveDailyReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("archive daily report: %w", err))
		}
	}
	if d.exporter != nil {
		if err := d.exporter.ExportDailyReport(ctx, report); err != nil {
			errs = append(errs, fmt.Errorf("export daily report: %w", err))
		}
	}
	if d.notifier != nil && d.managerID != "" {
		req := models.OutboundMessageRequest{To: d.managerID, Message: FormatDailyReport(report)}
		if err := d.notifier.SendOutbound(ctx, req); err != nil {
			errs = append(errs, fmt.Errorf("send daily report: %w", err))
		}
	}

	err := errors.Join(errs...)
	if err != nil {
		d.logger.Error("daily close incomplete", zap.Time("date", report.Date), zap.Error(err))
	} else {
		d.logger.Info("daily close done",
			zap.Time("date", report.Date),
			zap.Int("transactions", report.Transactions),
			zap.Float64("revenue", report.Revenue),
			zap.Int("low_stock", len(report.LowStock)),
		)
	}
	return report, err
}

// FormatDailyReport renders a closed day as a chat message.
func FormatDailyReport(r models.DailyReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Daily close %s\n", r.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Sales: %d (%d units)\n", r.Transactions, r.QuantitySold)
	fmt.Fprintf(&b, "Revenue: %.2f\nCost: %.2f\nProfit: %.2f (%.1f%%)\n", r.Revenue, r.Cost, r.Profit, r.ProfitMargin)
	fmt.Fprintf(&b, "Portions prepared: %g", r.PortionsPrepared)
	if len(r.LowStock) > 0 {
		fmt.Fprintf(&b, "\nLow stock: %s", strings.Join(r.LowStock, ", "))
	}
	return b.String()
}
