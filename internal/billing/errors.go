package billing

import (
	"errors"
	"fmt"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors for billing operations. Every one of them is raised
// before any consumer state is touched.
var (
	ErrNegativeConsumption = errors.New("negative consumption")
	ErrInvalidTariff       = errors.New("invalid tariff category")
	ErrNoSettlementData    = errors.New("no daily logs for settlement month")
	ErrConfiguration       = models.ErrInvalidSlabTable
	ErrOutOfOrderReading   = errors.New("reading date is not after the last billed date")
	ErrMonthAlreadySettled = errors.New("month already settled")
	ErrMonthNotEnded       = errors.New("month has not ended")
	ErrMonthClosed         = errors.New("reading falls in a settled month")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidRecoveryDays = errors.New("recovery days must be positive")
	ErrInvalidMigration    = errors.New("invalid migration parameters")
)

// NegativeConsumptionError reports a reading below the last recorded one
type NegativeConsumptionError struct {
	ConsumerId     string
	LastReading    decimal.Decimal
	CurrentReading decimal.Decimal
}

func (e *NegativeConsumptionError) Error() string {
	return fmt.Sprintf("negative consumption for %s: current reading %s is below last reading %s",
		e.ConsumerId, e.CurrentReading, e.LastReading)
}

func (e *NegativeConsumptionError) Is(target error) bool {
	return target == ErrNegativeConsumption
}
