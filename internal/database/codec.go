package database

import (
	"database/sql"
	"fmt"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

const timestampLayout = time.RFC3339Nano

func parseDecimal(column, value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s=%q: %v", ErrCorruptRow, column, value, err)
	}
	return d, nil
}

// decimalColumns parses several TEXT columns, stopping at the first failure
type decimalColumns struct {
	err error
}

func (c *decimalColumns) parse(column, value string) decimal.Decimal {
	if c.err != nil {
		return decimal.Zero
	}
	d, err := parseDecimal(column, value)
	if err != nil {
		c.err = err
	}
	return d
}

func formatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

func parseDate(column, value string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q: %v", ErrCorruptRow, column, value, err)
	}
	return t, nil
}

func nullableDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(*t), Valid: true}
}

func parseNullableDate(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	t, err := parseDate(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseTimestamp(column, value string) (time.Time, error) {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s=%q: %v", ErrCorruptRow, column, value, err)
	}
	return t, nil
}
