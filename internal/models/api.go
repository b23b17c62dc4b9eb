package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConsumerSummary is the reporting view of a consumer
type ConsumerSummary struct {
	ConsumerId         string          `json:"consumer_id"`
	Name               string          `json:"name"`
	CategoryId         string          `json:"category_id"`
	Status             ConsumerStatus  `json:"status"`
	WalletBalance      decimal.Decimal `json:"wallet_balance"`
	ArrearBalance      decimal.Decimal `json:"arrear_balance"`
	DeficitBalance     decimal.Decimal `json:"deficit_balance"`
	DailyInstallment   decimal.Decimal `json:"daily_installment"`
	LoadKw             decimal.Decimal `json:"load_kw"`
	LastReading        decimal.Decimal `json:"last_reading"`
	NegativeDays       int             `json:"negative_days"`
	LastBillDate       *time.Time      `json:"last_bill_date,omitempty"`
	LastSettlementDate *time.Time      `json:"last_settlement_date,omitempty"`
	Amendments         int             `json:"amendments"`
}
