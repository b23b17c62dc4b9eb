package billing

import (
	"fmt"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

// RechargeOutcome describes how a recharge was split between the
// settlement deficit and the prepaid wallet
type RechargeOutcome struct {
	Amount           decimal.Decimal
	DeficitRecovered decimal.Decimal
	WalletCredited   decimal.Decimal
	Reconnected      bool
	WarningReset     bool
	Entries          []models.LedgerEntry
}

// ApplyRecharge tops up the wallet. An outstanding deficit is recovered
// before anything reaches the wallet.
func ApplyRecharge(c *models.Consumer, amount decimal.Decimal, date time.Time) (*RechargeOutcome, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: recharge of %s", ErrInvalidAmount, amount)
	}
	date = models.NormalizeDate(date)

	out := &RechargeOutcome{Amount: amount}
	remaining := amount
	if c.DeficitBalance.IsPositive() {
		out.DeficitRecovered = decimal.Min(remaining, c.DeficitBalance)
		c.DeficitBalance = c.DeficitBalance.Sub(out.DeficitRecovered)
		remaining = remaining.Sub(out.DeficitRecovered)
	}
	out.WalletCredited = remaining
	c.WalletBalance = c.WalletBalance.Add(remaining)

	suffix := ""
	if !c.WalletBalance.IsNegative() {
		switch {
		case c.Status == models.StatusDisconnected:
			c.Status = models.StatusActive
			c.NegativeDays = 0
			c.AddAmendment(date, models.AmendmentStatus, "DISCONNECTED -> ACTIVE")
			out.Reconnected = true
			suffix = " (Auto-Reconnected)"
		case c.NegativeDays > 0:
			c.NegativeDays = 0
			out.WarningReset = true
			suffix = " (Warning Reset)"
		}
	}

	if out.DeficitRecovered.IsPositive() {
		recovered := newLedgerEntry(date, c.Id,
			fmt.Sprintf("Deficit Recovered %s", out.DeficitRecovered.StringFixed(2)),
			out.DeficitRecovered, models.LedgerInfo, c.WalletBalance)
		recovered.DeficitDelta = out.DeficitRecovered.Neg().Round(2)
		out.Entries = append(out.Entries, recovered)
	}
	if out.WalletCredited.IsPositive() {
		out.Entries = append(out.Entries, newLedgerEntry(date, c.Id,
			"Recharge"+suffix, out.WalletCredited, models.LedgerCredit, c.WalletBalance))
	}
	return out, nil
}

// ArrearPaymentOutcome is the result of a lump-sum arrear payment
type ArrearPaymentOutcome struct {
	Paid        decimal.Decimal
	Remaining   decimal.Decimal
	Installment models.InstallmentPlan
	Entry       models.LedgerEntry
}

// ApplyArrearPayment reduces the migrated arrear and re-amortizes what is
// left over recoveryDays. The wallet is untouched; the ledger gets an
// informational zero-amount line.
func ApplyArrearPayment(c *models.Consumer, amount decimal.Decimal, recoveryDays int, date time.Time) (*ArrearPaymentOutcome, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: arrear payment of %s", ErrInvalidAmount, amount)
	}
	if recoveryDays <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRecoveryDays, recoveryDays)
	}
	date = models.NormalizeDate(date)

	paid := decimal.Min(amount, c.ArrearBalance)
	c.ArrearBalance = c.ArrearBalance.Sub(paid)
	if c.ArrearBalance.IsPositive() {
		c.Installment = models.InstallmentPlan{
			Daily:        amortize(c.ArrearBalance, recoveryDays),
			RecoveryDays: recoveryDays,
		}
	} else {
		c.Installment = models.InstallmentPlan{Daily: decimal.Zero}
	}

	return &ArrearPaymentOutcome{
		Paid:        paid,
		Remaining:   c.ArrearBalance,
		Installment: c.Installment,
		Entry: newLedgerEntry(date, c.Id,
			fmt.Sprintf("Arrear Payment Received %s", paid.StringFixed(2)),
			decimal.Zero, models.LedgerInfo, c.WalletBalance),
	}, nil
}

func amortize(balance decimal.Decimal, days int) decimal.Decimal {
	return balance.Div(decimal.NewFromInt(int64(days))).Round(2)
}
