package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/kitchenledger/internal/domain/models"
)

const dateLayout = "2006-01-02"

var statusByKind = map[models.ErrorKind]int{
	models.KindValidation:        http.StatusBadRequest,
	models.KindNotFound:          http.StatusNotFound,
	models.KindInsufficientStock: http.StatusUnprocessableEntity,
	models.KindConflict:          http.StatusConflict,
}

// respondError maps a ledger error onto its HTTP status. Internal details are logged only.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := models.KindOf(err)
	status, ok := statusByKind[kind]
	if !ok {
		logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "kind": models.KindInternal})
		return
	}

	body := gin.H{"error": err.Error(), "kind": kind}
	var ledgerErr *models.Error
	if errors.As(err, &ledgerErr) {
		if ledgerErr.Entity != "" {
			body["entity"] = ledgerErr.Entity
		}
		if ledgerErr.ID != "" {
			body["id"] = ledgerErr.ID
		}
	}
	if kind == models.KindInsufficientStock || kind == models.KindConflict {
		logger.Warn("request rejected", zap.String("path", c.FullPath()), zap.String("kind", string(kind)), zap.Error(err))
	}
	c.JSON(status, body)
}

// bindJSON decodes the body, reporting malformed JSON or non-numeric numbers as validation errors.
func bindJSON(c *gin.Context, dst any) error {
	if err := c.ShouldBindJSON(dst); err != nil {
		return models.Validationf("body", "", "invalid request body: %v", err)
	}
	return nil
}

func parseDate(field, raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, models.Validationf(field, "", "is required (YYYY-MM-DD)")
	}
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, models.Validationf(field, "", "%q is not a YYYY-MM-DD date", raw)
	}
	return t, nil
}
