package common

import (
	"fmt"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

// ParseDecimalFlag parses an optional numeric flag; empty yields zero
func ParseDecimalFlag(name, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid --%s %q: %w", name, value, err)
	}
	return v, nil
}

// ParseDateFlag parses a YYYY-MM-DD flag; empty yields today in UTC
func ParseDateFlag(value string) (time.Time, error) {
	if value == "" {
		return models.NormalizeDate(time.Now()), nil
	}
	return models.ParseDate(value)
}
