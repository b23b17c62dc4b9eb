package billing

import (
	"fmt"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

// SlabResult is a total energy charge and its per-slab breakup
type SlabResult struct {
	Total   decimal.Decimal
	Breakup []models.SlabCharge
}

// Units returns the energy charged across all slabs
func (r SlabResult) Units() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Breakup {
		total = total.Add(b.Units)
	}
	return total
}

// CalculateEnergyCharge prices units against an ascending slab table.
// Units left over once every bounded slab is exhausted are charged at the
// last slab's rate.
func CalculateEnergyCharge(units decimal.Decimal, slabs []models.Slab) (SlabResult, error) {
	if units.IsNegative() {
		return SlabResult{}, fmt.Errorf("%w: %s units", ErrNegativeConsumption, units)
	}
	if err := models.ValidateSlabs(slabs); err != nil {
		return SlabResult{}, err
	}

	result := SlabResult{Total: decimal.Zero}
	if units.IsZero() {
		return result, nil
	}

	sorted := models.SortedSlabs(slabs)
	remaining := units
	prevLimit := decimal.Zero
	for _, slab := range sorted {
		if !remaining.IsPositive() {
			break
		}
		inSlab := remaining
		if !slab.Unbounded() {
			inSlab = decimal.Min(remaining, slab.UpTo.Decimal.Sub(prevLimit))
			prevLimit = slab.UpTo.Decimal
		}
		amount := inSlab.Mul(slab.Rate)
		result.Breakup = append(result.Breakup, models.SlabCharge{
			UpTo:   slab.UpTo,
			Rate:   slab.Rate,
			Units:  inSlab,
			Amount: amount,
		})
		result.Total = result.Total.Add(amount)
		remaining = remaining.Sub(inSlab)
	}

	if remaining.IsPositive() {
		last := &result.Breakup[len(result.Breakup)-1]
		extra := remaining.Mul(last.Rate)
		last.Units = last.Units.Add(remaining)
		last.Amount = last.Amount.Add(extra)
		result.Total = result.Total.Add(extra)
	}

	return result, nil
}
