package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseDecimal converts a textual numeric input, rejecting blanks and garbage instead of
// coercing them to zero.
func ParseDecimal(field, raw string) (decimal.Decimal, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return decimal.Zero, Validationf(field, "", "value is required")
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, Validationf(field, "", "%q is not a number", raw)
	}
	return d, nil
}

// ParsePositiveDecimal parses and requires a strictly positive value.
func ParsePositiveDecimal(field, raw string) (decimal.Decimal, error) {
	d, err := ParseDecimal(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, Validationf(field, "", "must be greater than zero, got %s", d)
	}
	return d, nil
}

// ParsePositiveInt parses a discrete count such as a sale quantity.
func ParsePositiveInt(field, raw string) (int64, error) {
	d, err := ParsePositiveDecimal(field, raw)
	if err != nil {
		return 0, err
	}
	return PositiveInt(field, d)
}

// PositiveInt narrows an already parsed decimal to a positive whole number.
func PositiveInt(field string, d decimal.Decimal) (int64, error) {
	if !d.IsPositive() {
		return 0, Validationf(field, "", "must be greater than zero, got %s", d)
	}
	if !d.IsInteger() {
		return 0, Validationf(field, "", "must be a whole number, got %s", d)
	}
	if d.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, Validationf(field, "", "%s is out of range", d)
	}
	return d.IntPart(), nil
}
