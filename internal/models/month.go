package models

import (
	"fmt"
	"time"
)

const (
	billingMonthLayout = "2006-01"
	DateLayout         = "2006-01-02"
)

// BillingMonth identifies a settlement month, formatted YYYY-MM
type BillingMonth string

// ParseBillingMonth validates a YYYY-MM month identifier
func ParseBillingMonth(value string) (BillingMonth, error) {
	t, err := time.Parse(billingMonthLayout, value)
	if err != nil {
		return "", fmt.Errorf("invalid billing month %q: %w", value, err)
	}
	return BillingMonth(t.Format(billingMonthLayout)), nil
}

// MonthOf returns the billing month containing date
func MonthOf(date time.Time) BillingMonth {
	return BillingMonth(date.Format(billingMonthLayout))
}

// PreviousMonth returns the month before the one containing date
func PreviousMonth(date time.Time) BillingMonth {
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	return MonthOf(first.AddDate(0, -1, 0))
}

// Contains reports whether date falls inside the month
func (m BillingMonth) Contains(date time.Time) bool {
	return MonthOf(date) == m
}

func (m BillingMonth) String() string { return string(m) }

// Range returns the first day of the month and the first day of the next one
func (m BillingMonth) Range() (time.Time, time.Time, error) {
	start, err := time.Parse(billingMonthLayout, string(m))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid billing month %q: %w", m, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}

// ParseDate parses a YYYY-MM-DD calendar date in UTC
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// NormalizeDate drops the time of day and pins the calendar date to UTC
func NormalizeDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
