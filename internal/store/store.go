package store

import (
	"context"
	"errors"

	"prepaid-billing-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrConsumerNotFound = errors.New("consumer not found")
	ErrConsumerExists   = errors.New("consumer already exists")
	ErrTariffNotFound   = errors.New("tariff category not found")
)

// ConsumerStore persists consumers with full-state overwrite semantics.
type ConsumerStore interface {
	GetConsumer(ctx context.Context, consumerId string) (*models.Consumer, error)
	SaveConsumer(ctx context.Context, consumer *models.Consumer) error
	ListConsumers(ctx context.Context) ([]models.Consumer, error)
}

// TariffCatalog resolves the rate card of a category.
type TariffCatalog interface {
	GetTariff(ctx context.Context, categoryId string) (*models.Tariff, error)
}

// ReadingLog stores daily charge computations. Query returns entries in
// insertion order.
type ReadingLog interface {
	AppendReading(ctx context.Context, entry models.DailyLogEntry) error
	QueryReadings(ctx context.Context, consumerId string, month models.BillingMonth) ([]models.DailyLogEntry, error)
}

// LedgerRecorder appends immutable transaction records. The engine never
// reads them back.
type LedgerRecorder interface {
	AppendLedgerEntry(ctx context.Context, entry models.LedgerEntry) error
}

// SettlementStore keeps monthly reconciliation records.
type SettlementStore interface {
	AppendSettlement(ctx context.Context, record models.SettlementRecord) error
	GetSettlements(ctx context.Context, consumerId string) ([]models.SettlementRecord, error)
}

// LedgerReader serves ledger history to reports.
type LedgerReader interface {
	GetLedgerHistory(ctx context.Context, consumerId string, limit, offset int) ([]models.LedgerEntry, error)
}

// BillingStore is the contract that every full backend (SQLite, memory) must satisfy.
type BillingStore interface {
	ConsumerStore
	ReadingLog
	LedgerRecorder
	LedgerReader
	SettlementStore

	// --- Lifecycle ---
	Close()
}
