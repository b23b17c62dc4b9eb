package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"prepaid-billing-go/internal/models"
)

// Compile-time check: *MemoryStore must satisfy BillingStore.
var _ BillingStore = (*MemoryStore)(nil)

// MemoryStore keeps all billing state in process. Logs and ledgers are
// append-only slices in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	consumers   map[string]*models.Consumer
	readings    []models.DailyLogEntry
	ledger      []models.LedgerEntry
	settlements []models.SettlementRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{consumers: make(map[string]*models.Consumer)}
}

func (m *MemoryStore) GetConsumer(_ context.Context, consumerId string) (*models.Consumer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.consumers[consumerId]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConsumerNotFound, consumerId)
	}
	return c.Clone(), nil
}

func (m *MemoryStore) SaveConsumer(_ context.Context, consumer *models.Consumer) error {
	if consumer == nil || consumer.Id == "" {
		return fmt.Errorf("consumer id cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consumers[consumer.Id] = consumer.Clone()
	return nil
}

func (m *MemoryStore) ListConsumers(_ context.Context) ([]models.Consumer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]models.Consumer, 0, len(m.consumers))
	for _, c := range m.consumers {
		result = append(result, *c.Clone())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Id < result[j].Id })
	return result, nil
}

func (m *MemoryStore) AppendReading(_ context.Context, entry models.DailyLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readings = append(m.readings, entry)
	return nil
}

func (m *MemoryStore) QueryReadings(_ context.Context, consumerId string, month models.BillingMonth) ([]models.DailyLogEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.DailyLogEntry
	for _, r := range m.readings {
		if r.ConsumerId == consumerId && month.Contains(r.Date) {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *MemoryStore) AppendLedgerEntry(_ context.Context, entry models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ledger = append(m.ledger, entry)
	return nil
}

// GetLedgerHistory returns newest entries first
func (m *MemoryStore) GetLedgerHistory(_ context.Context, consumerId string, limit, offset int) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []models.LedgerEntry
	for i := len(m.ledger) - 1; i >= 0; i-- {
		if m.ledger[i].ConsumerId == consumerId {
			matched = append(matched, m.ledger[i])
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matched[offset:end], nil
}

func (m *MemoryStore) AppendSettlement(_ context.Context, record models.SettlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.settlements = append(m.settlements, record)
	return nil
}

func (m *MemoryStore) GetSettlements(_ context.Context, consumerId string) ([]models.SettlementRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []models.SettlementRecord
	for _, s := range m.settlements {
		if s.ConsumerId == consumerId {
			result = append(result, s)
		}
	}
	return result, nil
}

// LedgerEntries returns a copy of every ledger entry in insertion order
func (m *MemoryStore) LedgerEntries() []models.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]models.LedgerEntry(nil), m.ledger...)
}

func (m *MemoryStore) Close() {}
