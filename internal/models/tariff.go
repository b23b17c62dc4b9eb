package models

import (
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrInvalidSlabTable marks a malformed tariff. It is a setup-time error.
var ErrInvalidSlabTable = errors.New("invalid slab table")

// Slab is one energy band. UpTo is the cumulative upper bound in kWh;
// an invalid (null) UpTo marks the unbounded last band.
type Slab struct {
	UpTo decimal.NullDecimal `json:"upto"`
	Rate decimal.Decimal     `json:"rate"`
}

// Unbounded reports whether the slab absorbs all remaining consumption
func (s Slab) Unbounded() bool { return !s.UpTo.Valid }

// Tariff is the rate card of a consumer category
type Tariff struct {
	CategoryId  string          `json:"cat_id"`
	Name        string          `json:"name"`
	Slabs       []Slab          `json:"slabs"`
	FixedCharge decimal.Decimal `json:"fixed_charge"` // monthly
	DutyRate    decimal.Decimal `json:"duty_rate"`    // fraction
	DemandRate  decimal.Decimal `json:"demand_rate"`  // per kW, monthly
	SubsidyRate decimal.Decimal `json:"subsidy_rate"` // per kWh
}

// SortedSlabs returns the slabs ordered by upper bound, unbounded last
func SortedSlabs(slabs []Slab) []Slab {
	sorted := append([]Slab(nil), slabs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Unbounded() != b.Unbounded() {
			return b.Unbounded()
		}
		if a.Unbounded() {
			return false
		}
		return a.UpTo.Decimal.LessThan(b.UpTo.Decimal)
	})
	return sorted
}

// ValidateSlabs checks that bands are non-empty, strictly increasing and that
// at most the last band is unbounded.
func ValidateSlabs(slabs []Slab) error {
	if len(slabs) == 0 {
		return fmt.Errorf("%w: no slabs", ErrInvalidSlabTable)
	}
	sorted := SortedSlabs(slabs)
	prev := decimal.Zero
	for i, slab := range sorted {
		if slab.Rate.IsNegative() {
			return fmt.Errorf("%w: slab %d has negative rate %s", ErrInvalidSlabTable, i, slab.Rate)
		}
		if slab.Unbounded() {
			if i != len(sorted)-1 {
				return fmt.Errorf("%w: more than one unbounded slab", ErrInvalidSlabTable)
			}
			continue
		}
		if !slab.UpTo.Decimal.GreaterThan(prev) {
			return fmt.Errorf("%w: slab %d bound %s does not exceed %s", ErrInvalidSlabTable, i, slab.UpTo.Decimal, prev)
		}
		prev = slab.UpTo.Decimal
	}
	return nil
}

// Validate checks the slab table and that no rate is negative
func (t *Tariff) Validate() error {
	if t.CategoryId == "" {
		return fmt.Errorf("%w: category id cannot be empty", ErrInvalidSlabTable)
	}
	if err := ValidateSlabs(t.Slabs); err != nil {
		return fmt.Errorf("tariff %s: %w", t.CategoryId, err)
	}
	for name, v := range map[string]decimal.Decimal{
		"fixed_charge": t.FixedCharge,
		"duty_rate":    t.DutyRate,
		"demand_rate":  t.DemandRate,
		"subsidy_rate": t.SubsidyRate,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: tariff %s has negative %s", ErrInvalidSlabTable, t.CategoryId, name)
		}
	}
	return nil
}

// LowestRate returns the cheapest slab rate, used by the flat daily mode
func (t *Tariff) LowestRate() decimal.Decimal {
	if len(t.Slabs) == 0 {
		return decimal.Zero
	}
	lowest := t.Slabs[0].Rate
	for _, s := range t.Slabs[1:] {
		if s.Rate.LessThan(lowest) {
			lowest = s.Rate
		}
	}
	return lowest
}

// BoundedSlab is a helper for building slab tables in code and tests
func BoundedSlab(upTo, rate float64) Slab {
	return Slab{UpTo: decimal.NewNullDecimal(decimal.NewFromFloat(upTo)), Rate: decimal.NewFromFloat(rate)}
}

// OpenSlab returns an unbounded slab
func OpenSlab(rate float64) Slab {
	return Slab{Rate: decimal.NewFromFloat(rate)}
}
