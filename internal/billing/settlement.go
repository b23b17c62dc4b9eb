package billing

import (
	"fmt"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ComputeSettlement trues up a month of daily deductions against the bill
// the month's total consumption would have produced. A month can only be
// settled once now has passed its last day. A month without logs yields a
// FAILED record and leaves c untouched. The ledger entry is nil
// when nothing moved.
func ComputeSettlement(
	c *models.Consumer,
	tariff *models.Tariff,
	month models.BillingMonth,
	logs []models.DailyLogEntry,
	now time.Time,
) (*models.SettlementRecord, *models.LedgerEntry, error) {
	if tariff == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidTariff, c.CategoryId)
	}
	if c.IsMonthSettled(month) {
		return nil, nil, fmt.Errorf("%w: %s for %s", ErrMonthAlreadySettled, month, c.Id)
	}
	_, end, err := month.Range()
	if err != nil {
		return nil, nil, err
	}
	if now.Before(end) {
		return nil, nil, fmt.Errorf("%w: %s closes on %s", ErrMonthNotEnded, month, end.Format(models.DateLayout))
	}

	record := &models.SettlementRecord{
		Id:         uuid.New().String(),
		Month:      month,
		ConsumerId: c.Id,
		SettledAt:  now,
	}
	if len(logs) == 0 {
		record.Status = models.SettlementFailed
		record.Reason = ErrNoSettlementData.Error()
		record.WalletAfter = c.WalletBalance
		record.DeficitAfter = c.DeficitBalance
		return record, nil, nil
	}

	for _, l := range logs {
		record.TotalUnits = record.TotalUnits.Add(l.Units)
		record.ExcessDemand = record.ExcessDemand.Add(l.ExcessDemand)
		record.Installments = record.Installments.Add(l.Installment)
		record.AlreadyDeducted = record.AlreadyDeducted.Add(l.Total)
	}

	energy, err := CalculateEnergyCharge(record.TotalUnits, tariff.Slabs)
	if err != nil {
		return nil, nil, err
	}
	record.GrossEnergy = energy.Total
	record.Subsidy = record.TotalUnits.Mul(tariff.SubsidyRate)
	record.NetEnergy = decimal.Max(decimal.Zero, record.GrossEnergy.Sub(record.Subsidy))
	record.FixedCharge = tariff.FixedCharge
	record.Duty = record.NetEnergy.Add(record.FixedCharge).Mul(tariff.DutyRate)
	record.ShadowBill = record.NetEnergy.
		Add(record.FixedCharge).
		Add(record.Duty).
		Add(record.ExcessDemand).
		Add(record.Installments)

	// Money moves in paise; sub-paisa drift from the daily pro-rating is not an adjustment.
	adjustment := record.ShadowBill.Sub(record.AlreadyDeducted).Round(2)
	record.Adjustment = adjustment
	record.Status = models.SettlementSuccess

	var entry *models.LedgerEntry
	if !adjustment.IsZero() {
		deficitBefore := c.DeficitBalance
		if c.WalletBalance.GreaterThanOrEqual(adjustment) {
			c.WalletBalance = c.WalletBalance.Sub(adjustment)
		} else {
			c.DeficitBalance = c.DeficitBalance.Add(adjustment.Sub(c.WalletBalance))
			c.WalletBalance = decimal.Zero
			record.Status = models.SettlementDeficit
		}

		kind := models.LedgerCredit
		if adjustment.IsPositive() {
			kind = models.LedgerDebit
		}
		e := newLedgerEntry(models.NormalizeDate(now), c.Id,
			fmt.Sprintf("Monthly True-Up (%s)", month), adjustment.Neg(), kind, c.WalletBalance)
		e.DeficitDelta = c.DeficitBalance.Sub(deficitBefore).Round(2)
		entry = &e
	}
	if !c.WalletBalance.IsNegative() {
		c.NegativeDays = 0
	}

	settledOn := models.NormalizeDate(now)
	c.LastSettlementDate = &settledOn
	c.MarkMonthSettled(month)

	record.WalletAfter = c.WalletBalance
	record.DeficitAfter = c.DeficitBalance
	return record, entry, nil
}
