package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryType classifies a ledger line
type LedgerEntryType string

const (
	LedgerCredit LedgerEntryType = "CREDIT"
	LedgerDebit  LedgerEntryType = "DEBIT"
	LedgerInfo   LedgerEntryType = "INFO"
)

// SettlementStatus is the outcome of a monthly true-up
type SettlementStatus string

const (
	SettlementSuccess SettlementStatus = "SUCCESS"
	SettlementDeficit SettlementStatus = "DEFICIT"
	SettlementFailed  SettlementStatus = "FAILED"
)

// SlabCharge is the units x rate consumed in one slab
type SlabCharge struct {
	UpTo   decimal.NullDecimal `json:"upto"`
	Rate   decimal.Decimal     `json:"rate"`
	Units  decimal.Decimal     `json:"units"`
	Amount decimal.Decimal     `json:"amount"`
}

// DailyLogEntry is the immutable record of one daily charge computation.
// Amounts are kept at full precision; round only for display.
type DailyLogEntry struct {
	Date          time.Time       `json:"date"`
	ConsumerId    string          `json:"consumer_id"`
	Units         decimal.Decimal `json:"units"`
	MaxDemand     decimal.Decimal `json:"max_demand"`
	GrossEnergy   decimal.Decimal `json:"gross_energy"`
	Subsidy       decimal.Decimal `json:"subsidy"`
	NetEnergy     decimal.Decimal `json:"net_energy"`
	FixedCharge   decimal.Decimal `json:"fixed_charge"`
	Duty          decimal.Decimal `json:"duty"`
	ExcessDemand  decimal.Decimal `json:"excess_demand"`
	Installment   decimal.Decimal `json:"installment"`
	Total         decimal.Decimal `json:"total"`
	WalletAfter   decimal.Decimal `json:"wallet_after"`
	Remarks       []string        `json:"remarks"`
	MeterChange   bool            `json:"meter_change"`
	EnergyBreakup []SlabCharge    `json:"energy_breakup,omitempty"`
}

// LedgerEntry is an immutable financial transaction record
type LedgerEntry struct {
	Id           string          `json:"id"`
	Date         time.Time       `json:"date"`
	ConsumerId   string          `json:"consumer_id"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Type         LedgerEntryType `json:"type"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	DeficitDelta decimal.Decimal `json:"deficit_delta"` // change in the consumer's deficit balance
	Timestamp    time.Time       `json:"timestamp"`
}

// SettlementRecord is the immutable record of one monthly reconciliation
type SettlementRecord struct {
	Id              string           `json:"id"`
	Month           BillingMonth     `json:"month"`
	ConsumerId      string           `json:"consumer_id"`
	TotalUnits      decimal.Decimal  `json:"total_units"`
	GrossEnergy     decimal.Decimal  `json:"gross_energy"`
	Subsidy         decimal.Decimal  `json:"subsidy"`
	NetEnergy       decimal.Decimal  `json:"net_energy"`
	FixedCharge     decimal.Decimal  `json:"fixed_charge"`
	Duty            decimal.Decimal  `json:"duty"`
	ExcessDemand    decimal.Decimal  `json:"excess_demand"`
	Installments    decimal.Decimal  `json:"installments"`
	ShadowBill      decimal.Decimal  `json:"shadow_bill"`
	AlreadyDeducted decimal.Decimal  `json:"already_deducted"`
	Adjustment      decimal.Decimal  `json:"adjustment"`
	WalletAfter     decimal.Decimal  `json:"wallet_after"`
	DeficitAfter    decimal.Decimal  `json:"deficit_after"`
	Status          SettlementStatus `json:"status"`
	Reason          string           `json:"reason,omitempty"`
	SettledAt       time.Time        `json:"settled_at"`
}
