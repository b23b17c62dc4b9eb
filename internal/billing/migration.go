package billing

import (
	"fmt"
	"strings"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

// MigratedIdPrefix marks consumers converted from the postpaid system
const MigratedIdPrefix = "PRE-"

// DefaultRecoveryDays spreads a migrated arrear over one year
const DefaultRecoveryDays = 365

// MigrationParams is the postpaid account data needed to open a prepaid one
type MigrationParams struct {
	OldAccount      string
	Name            string
	Address         string
	CategoryId      string
	LoadKw          decimal.Decimal
	OldArrear       decimal.Decimal
	SecurityDeposit decimal.Decimal
	InitialReading  decimal.Decimal
	RecoveryDays    int // zero selects DefaultRecoveryDays
	Date            time.Time
}

// MigratedConsumerId derives the prepaid id from the postpaid account number
func MigratedConsumerId(oldAccount string) string {
	return MigratedIdPrefix + strings.TrimSpace(oldAccount)
}

// BuildMigratedConsumer nets the security deposit against the old arrear.
// A surplus becomes the opening wallet, a shortfall becomes an arrear
// recovered in daily installments. The ledger entry is nil unless the
// wallet opens positive.
func BuildMigratedConsumer(p MigrationParams) (*models.Consumer, *models.LedgerEntry, error) {
	if strings.TrimSpace(p.OldAccount) == "" {
		return nil, nil, fmt.Errorf("%w: old account number is required", ErrInvalidMigration)
	}
	if p.OldArrear.IsNegative() || p.SecurityDeposit.IsNegative() {
		return nil, nil, fmt.Errorf("%w: arrear %s, deposit %s", ErrInvalidMigration, p.OldArrear, p.SecurityDeposit)
	}
	if p.LoadKw.IsNegative() || p.InitialReading.IsNegative() {
		return nil, nil, fmt.Errorf("%w: load %s, reading %s", ErrInvalidMigration, p.LoadKw, p.InitialReading)
	}
	days := p.RecoveryDays
	if days == 0 {
		days = DefaultRecoveryDays
	}
	if days < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrInvalidRecoveryDays, days)
	}

	net := p.OldArrear.Sub(p.SecurityDeposit)
	wallet, arrear := decimal.Zero, decimal.Zero
	plan := models.InstallmentPlan{Daily: decimal.Zero}
	switch {
	case net.IsNegative():
		wallet = net.Abs()
	case net.IsPositive():
		arrear = net
		plan = models.InstallmentPlan{Daily: amortize(net, days), RecoveryDays: days}
	}

	c := models.NewConsumer(MigratedConsumerId(p.OldAccount), p.Name, p.Address, p.CategoryId,
		wallet, arrear, p.LoadKw, plan, p.InitialReading)

	if !wallet.IsPositive() {
		return c, nil, nil
	}
	entry := newLedgerEntry(models.NormalizeDate(p.Date), c.Id, "Opening Balance (Migration)",
		wallet, models.LedgerCredit, wallet)
	return c, &entry, nil
}
