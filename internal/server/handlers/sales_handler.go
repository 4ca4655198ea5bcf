package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

// SalesService is the sales ledger as seen by HTTP.
type SalesService interface {
	CreateSale(ctx context.Context, in models.SaleInput) (models.SaleView, error)
	Checkout(ctx context.Context, items []models.SaleInput) []models.SaleOutcome
	List(ctx context.Context) []models.SaleView
}

// ReportService is the reporting aggregator as seen by HTTP.
type ReportService interface {
	Report(ctx context.Context, period models.Period, start, end time.Time) (models.SalesReport, error)
	Dashboard(ctx context.Context, now time.Time) models.Dashboard
	Location() *time.Location
}

// ReportArchive lists closed days.
type ReportArchive interface {
	ListDailyReports(ctx context.Context, limit int64) ([]models.DailyReport, error)
}

// SalesHandler serves /api/sales, /api/dashboard and the closed-day archive.
type SalesHandler struct {
	sales   SalesService
	reports ReportService
	archive ReportArchive
	logger  *zap.Logger
	now     func() time.Time
}

// NewSalesHandler constructs the sales HTTP adapter. archive may be nil.
func NewSalesHandler(sales SalesService, reports ReportService, archive ReportArchive, logger *zap.Logger) *SalesHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesHandler{sales: sales, reports: reports, archive: archive, logger: logger, now: time.Now}
}

type checkoutRequest struct {
	Items []models.SaleInput `json:"items" binding:"required,min=1"`
}

type checkoutResponse struct {
	Outcomes  []models.SaleOutcome `json:"outcomes"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
}

func (h *SalesHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.sales.List(c.Request.Context()))
}

func (h *SalesHandler) Create(c *gin.Context) {
	var in models.SaleInput
	if err := bindJSON(c, &in); err != nil {
		respondError(c, h.logger, err)
		return
	}
	sale, err := h.sales.CreateSale(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// Checkout records every item independently. The status is 201 when all succeed, 207 when
// only some do and 422 when none do.
func (h *SalesHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := checkoutResponse{Outcomes: h.sales.Checkout(c.Request.Context(), req.Items)}
	for _, outcome := range resp.Outcomes {
		if outcome.Err != nil {
			resp.Failed++
		} else {
			resp.Succeeded++
		}
	}

	status := http.StatusCreated
	switch {
	case resp.Succeeded == 0:
		status = http.StatusUnprocessableEntity
	case resp.Failed > 0:
		status = http.StatusMultiStatus
	}
	c.JSON(status, resp)
}

// Report buckets sales between start_date and end_date, both inclusive days.
func (h *SalesHandler) Report(c *gin.Context) {
	loc := h.reports.Location()
	period, err := models.ParsePeriod(c.DefaultQuery("period", string(models.PeriodDay)))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	start, err := parseDate("start_date", c.Query("start_date"), loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	end, err := parseDate("end_date", c.Query("end_date"), loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if end.Before(start) {
		respondError(c, h.logger, models.Validationf("end_date", "", "must not be before start_date"))
		return
	}

	report, err := h.reports.Report(c.Request.Context(), period, start, end.AddDate(0, 0, 1))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *SalesHandler) Dashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.reports.Dashboard(c.Request.Context(), h.now()))
}

// DailyReports lists archived closed days, newest first. Accepts ?limit=.
func (h *SalesHandler) DailyReports(c *gin.Context) {
	limit, err := strconv.ParseInt(c.DefaultQuery("limit", "30"), 10, 64)
	if err != nil || limit <= 0 {
		respondError(c, h.logger, models.Validationf("limit", "", "must be a positive integer"))
		return
	}
	reports, err := h.archive.ListDailyReports(c.Request.Context(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}
