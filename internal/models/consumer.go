package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsumerStatus is the supply state of a prepaid connection
type ConsumerStatus string

const (
	StatusActive       ConsumerStatus = "ACTIVE"
	StatusDisconnected ConsumerStatus = "DISCONNECTED"
)

// Amendment types recorded on a consumer
const (
	AmendmentStatus           = "Status"
	AmendmentMasterData       = "Master Data"
	AmendmentMeterReplacement = "Meter Replacement"
)

// InstallmentPlan is the daily arrear recovery schedule
type InstallmentPlan struct {
	Daily        decimal.Decimal `json:"daily"`
	RecoveryDays int             `json:"recovery_days"`
}

// Amendment is one structural change event on a consumer. Append-only.
type Amendment struct {
	Date    time.Time `json:"date"`
	Type    string    `json:"type"`
	Details string    `json:"details"`
}

// Consumer holds identity and mutable financial/operational state
type Consumer struct {
	Id                 string          `json:"consumer_id"`
	Name               string          `json:"name"`
	Address            string          `json:"address"`
	CategoryId         string          `json:"category_id"`
	WalletBalance      decimal.Decimal `json:"wallet_balance"`
	ArrearBalance      decimal.Decimal `json:"arrear_balance"`
	DeficitBalance     decimal.Decimal `json:"deficit_balance"`
	LoadKw             decimal.Decimal `json:"load_kw"`
	Installment        InstallmentPlan `json:"installment"`
	LastReading        decimal.Decimal `json:"last_reading"`
	Status             ConsumerStatus  `json:"status"`
	NegativeDays       int             `json:"negative_days"`
	Amendments         []Amendment     `json:"amendments"`
	LastBillDate       *time.Time      `json:"last_bill_date,omitempty"`
	LastSettlementDate *time.Time      `json:"last_settlement_date,omitempty"`
	SettledMonths      []BillingMonth  `json:"settled_months"`
}

// NewConsumer returns an ACTIVE consumer with zero counters
func NewConsumer(id, name, address, categoryId string, wallet, arrear, loadKw decimal.Decimal, plan InstallmentPlan, initialReading decimal.Decimal) *Consumer {
	return &Consumer{
		Id:            id,
		Name:          name,
		Address:       address,
		CategoryId:    categoryId,
		WalletBalance: wallet,
		ArrearBalance: arrear,
		LoadKw:        loadKw,
		Installment:   plan,
		LastReading:   initialReading,
		Status:        StatusActive,
	}
}

// Clone returns a deep copy so callers can compute on it and discard on failure
func (c *Consumer) Clone() *Consumer {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Amendments = append([]Amendment(nil), c.Amendments...)
	cp.SettledMonths = append([]BillingMonth(nil), c.SettledMonths...)
	if c.LastBillDate != nil {
		d := *c.LastBillDate
		cp.LastBillDate = &d
	}
	if c.LastSettlementDate != nil {
		d := *c.LastSettlementDate
		cp.LastSettlementDate = &d
	}
	return &cp
}

// AddAmendment appends a change event
func (c *Consumer) AddAmendment(date time.Time, kind, details string) {
	c.Amendments = append(c.Amendments, Amendment{Date: date, Type: kind, Details: details})
}

// IsMonthSettled reports whether a monthly true-up was already posted for month
func (c *Consumer) IsMonthSettled(month BillingMonth) bool {
	for _, m := range c.SettledMonths {
		if m == month {
			return true
		}
	}
	return false
}

// MarkMonthSettled records month as closed
func (c *Consumer) MarkMonthSettled(month BillingMonth) {
	if !c.IsMonthSettled(month) {
		c.SettledMonths = append(c.SettledMonths, month)
	}
}
