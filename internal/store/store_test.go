package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"prepaid-billing-go/internal/models"

	"github.com/shopspring/decimal"
)

func TestMemoryStore_ConsumerRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	c := models.NewConsumer("PRE-1", "Test", "Patna", "DS-II",
		decimal.NewFromInt(100), decimal.Zero, decimal.NewFromInt(2), models.InstallmentPlan{}, decimal.NewFromInt(500))
	if err := m.SaveConsumer(ctx, c); err != nil {
		t.Fatalf("SaveConsumer failed: %v", err)
	}

	// Mutating the caller's copy must not leak into the store
	c.WalletBalance = decimal.Zero
	c.AddAmendment(time.Now(), models.AmendmentStatus, "x")

	got, err := m.GetConsumer(ctx, "PRE-1")
	if err != nil {
		t.Fatalf("GetConsumer failed: %v", err)
	}
	if !got.WalletBalance.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected wallet 100, got %s", got.WalletBalance)
	}
	if len(got.Amendments) != 0 {
		t.Errorf("Expected no amendments, got %d", len(got.Amendments))
	}

	if _, err := m.GetConsumer(ctx, "missing"); !errors.Is(err, ErrConsumerNotFound) {
		t.Errorf("Expected ErrConsumerNotFound, got %v", err)
	}
}

func TestMemoryStore_QueryReadingsByMonth(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	dates := []string{"2026-01-31", "2026-02-01", "2026-02-02", "2026-03-01"}
	for _, d := range dates {
		date, _ := models.ParseDate(d)
		if err := m.AppendReading(ctx, models.DailyLogEntry{Date: date, ConsumerId: "PRE-1"}); err != nil {
			t.Fatalf("AppendReading failed: %v", err)
		}
	}
	date, _ := models.ParseDate("2026-02-05")
	_ = m.AppendReading(ctx, models.DailyLogEntry{Date: date, ConsumerId: "PRE-2"})

	logs, err := m.QueryReadings(ctx, "PRE-1", "2026-02")
	if err != nil {
		t.Fatalf("QueryReadings failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 February logs, got %d", len(logs))
	}
	if logs[0].Date.Day() != 1 || logs[1].Date.Day() != 2 {
		t.Errorf("Expected insertion order, got %v then %v", logs[0].Date, logs[1].Date)
	}
}

func TestMemoryStore_LedgerHistoryPagination(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	for i := 0; i < 5; i++ {
		_ = m.AppendLedgerEntry(ctx, models.LedgerEntry{ConsumerId: "PRE-1", Amount: decimal.NewFromInt(int64(i))})
	}

	page, err := m.GetLedgerHistory(ctx, "PRE-1", 2, 1)
	if err != nil {
		t.Fatalf("GetLedgerHistory failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(page))
	}
	if !page[0].Amount.Equal(decimal.NewFromInt(3)) {
		t.Errorf("Expected newest-first ordering, got %s", page[0].Amount)
	}

	empty, _ := m.GetLedgerHistory(ctx, "PRE-1", 2, 10)
	if len(empty) != 0 {
		t.Errorf("Expected empty page past the end, got %d", len(empty))
	}
}

func TestStaticTariffCatalog(t *testing.T) {
	ctx := context.Background()
	tariff := models.Tariff{
		CategoryId:  "DS-II",
		Slabs:       []models.Slab{models.OpenSlab(4.10), models.BoundedSlab(50, 3.10), models.BoundedSlab(100, 3.60)},
		FixedCharge: decimal.NewFromInt(120),
	}

	catalog, err := NewStaticTariffCatalog([]models.Tariff{tariff})
	if err != nil {
		t.Fatalf("NewStaticTariffCatalog failed: %v", err)
	}

	got, err := catalog.GetTariff(ctx, "DS-II")
	if err != nil {
		t.Fatalf("GetTariff failed: %v", err)
	}
	if !got.Slabs[0].UpTo.Decimal.Equal(decimal.NewFromInt(50)) || !got.Slabs[2].Unbounded() {
		t.Errorf("Expected slabs sorted ascending with unbounded last, got %+v", got.Slabs)
	}

	if _, err := catalog.GetTariff(ctx, "NDS-I"); !errors.Is(err, ErrTariffNotFound) {
		t.Errorf("Expected ErrTariffNotFound, got %v", err)
	}

	if _, err := NewStaticTariffCatalog([]models.Tariff{tariff, tariff}); err == nil {
		t.Errorf("Expected duplicate category error")
	}

	broken := tariff
	broken.Slabs = []models.Slab{models.BoundedSlab(50, 3.10), models.BoundedSlab(50, 3.60)}
	if _, err := NewStaticTariffCatalog([]models.Tariff{broken}); !errors.Is(err, models.ErrInvalidSlabTable) {
		t.Errorf("Expected ErrInvalidSlabTable for zero-width slab, got %v", err)
	}
}

type failingRecorder struct{ calls int }

func (f *failingRecorder) AppendLedgerEntry(context.Context, models.LedgerEntry) error {
	f.calls++
	return errors.New("unreachable")
}

func TestMirroredLedger(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	mirror := NewMemoryStore()
	broken := &failingRecorder{}

	ledger := NewMirroredLedger(primary, broken, mirror)
	entry := models.LedgerEntry{Id: "e1", ConsumerId: "C1", Amount: decimal.NewFromInt(-5), Type: models.LedgerDebit}
	if err := ledger.AppendLedgerEntry(ctx, entry); err != nil {
		t.Fatalf("mirror failures must not surface: %v", err)
	}
	if len(primary.LedgerEntries()) != 1 || len(mirror.LedgerEntries()) != 1 || broken.calls != 1 {
		t.Errorf("entry not fanned out: primary=%d mirror=%d broken=%d",
			len(primary.LedgerEntries()), len(mirror.LedgerEntries()), broken.calls)
	}

	failing := NewMirroredLedger(&failingRecorder{}, mirror)
	if err := failing.AppendLedgerEntry(ctx, entry); err == nil {
		t.Error("expected primary failure to surface")
	}
	if len(mirror.LedgerEntries()) != 1 {
		t.Error("mirrors must not be written when the primary fails")
	}
}
