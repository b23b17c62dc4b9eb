package billing

import (
	"fmt"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

// EnergyMode selects how the daily energy charge is priced
type EnergyMode string

const (
	// EnergyModeSlab prices each day's units through the full slab table
	EnergyModeSlab EnergyMode = "slab"
	// EnergyModeFlat prices every unit at the lowest slab rate; settlement trues it up
	EnergyModeFlat EnergyMode = "flat"
)

const (
	daysPerMonth        = 30
	disconnectAfterDays = 4
)

var (
	billingDaysPerMonth    = decimal.NewFromInt(daysPerMonth)
	excessDemandMultiplier = decimal.NewFromFloat(1.5)
)

// DailyInput is one meter reading to bill
type DailyInput struct {
	Reading     decimal.Decimal // cumulative meter units
	MaxDemand   decimal.Decimal // kW
	Date        time.Time
	MeterChange bool // closing read of a replaced meter; last_reading is left untouched
}

// ComputeDailyCharge bills one day and applies it to c. All validation
// happens before c is modified; on error c is unchanged.
func ComputeDailyCharge(c *models.Consumer, tariff *models.Tariff, in DailyInput, mode EnergyMode) (*models.DailyLogEntry, error) {
	if tariff == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTariff, c.CategoryId)
	}
	date := models.NormalizeDate(in.Date)
	if c.LastBillDate != nil && !date.After(*c.LastBillDate) {
		return nil, fmt.Errorf("%w: %s is not after %s", ErrOutOfOrderReading,
			date.Format(models.DateLayout), c.LastBillDate.Format(models.DateLayout))
	}
	if month := models.MonthOf(date); c.IsMonthSettled(month) {
		return nil, fmt.Errorf("%w: %s is in %s", ErrMonthClosed, date.Format(models.DateLayout), month)
	}

	units := in.Reading.Sub(c.LastReading)
	if units.IsNegative() {
		return nil, &NegativeConsumptionError{ConsumerId: c.Id, LastReading: c.LastReading, CurrentReading: in.Reading}
	}

	var gross decimal.Decimal
	var breakup []models.SlabCharge
	switch mode {
	case EnergyModeFlat:
		if err := models.ValidateSlabs(tariff.Slabs); err != nil {
			return nil, err
		}
		gross = units.Mul(tariff.LowestRate())
	default:
		slabs, err := CalculateEnergyCharge(units, tariff.Slabs)
		if err != nil {
			return nil, err
		}
		gross, breakup = slabs.Total, slabs.Breakup
	}

	var remarks []string
	subsidy := units.Mul(tariff.SubsidyRate)
	netEnergy := decimal.Max(decimal.Zero, gross.Sub(subsidy))
	fixed := tariff.FixedCharge.Div(billingDaysPerMonth)
	duty := netEnergy.Add(fixed).Mul(tariff.DutyRate)

	penalty := decimal.Zero
	if in.MaxDemand.GreaterThan(c.LoadKw) {
		excess := in.MaxDemand.Sub(c.LoadKw)
		penalty = excess.Mul(tariff.DemandRate).Mul(excessDemandMultiplier).Div(billingDaysPerMonth)
		remarks = append(remarks, fmt.Sprintf("Excess Load (+%sKW)", excess))
	}

	installment := decimal.Zero
	if c.ArrearBalance.IsPositive() {
		installment = decimal.Min(c.Installment.Daily, c.ArrearBalance)
		if installment.Equal(c.ArrearBalance) {
			remarks = append(remarks, "Arrear Cleared!")
		}
	}

	total := netEnergy.Add(fixed).Add(duty).Add(penalty).Add(installment)

	c.WalletBalance = c.WalletBalance.Sub(total)
	c.ArrearBalance = c.ArrearBalance.Sub(installment)
	if !in.MeterChange {
		c.LastReading = in.Reading
	}
	c.LastBillDate = &date

	remarks = append(remarks, advanceSupplyState(c, date)...)

	return &models.DailyLogEntry{
		Date:          date,
		ConsumerId:    c.Id,
		Units:         units,
		MaxDemand:     in.MaxDemand,
		GrossEnergy:   gross,
		Subsidy:       subsidy,
		NetEnergy:     netEnergy,
		FixedCharge:   fixed,
		Duty:          duty,
		ExcessDemand:  penalty,
		Installment:   installment,
		Total:         total,
		WalletAfter:   c.WalletBalance,
		Remarks:       remarks,
		MeterChange:   in.MeterChange,
		EnergyBreakup: breakup,
	}, nil
}

// advanceSupplyState runs the disconnection state machine once. Only a
// recharge reconnects; a non-negative wallet here just clears the counter.
func advanceSupplyState(c *models.Consumer, date time.Time) []string {
	if !c.WalletBalance.IsNegative() {
		c.NegativeDays = 0
		return nil
	}

	c.NegativeDays++
	switch {
	case c.NegativeDays == 1:
		return []string{"SMS: 1st Negative Alert"}
	case c.NegativeDays == 2:
		return []string{"SMS: 2nd Negative Alert"}
	case c.NegativeDays == 3:
		return []string{"SMS: Pre-Disconnection Notice"}
	case c.NegativeDays == disconnectAfterDays && c.Status == models.StatusActive:
		c.Status = models.StatusDisconnected
		c.AddAmendment(date, models.AmendmentStatus, "ACTIVE -> DISCONNECTED")
		return []string{"ACTION: Power Disconnected"}
	default:
		return []string{"Status: DISCONNECTED"}
	}
}
