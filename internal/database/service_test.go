package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	// every connection to :memory: is a separate database
	db.SetMaxOpenConns(1)

	service, err := NewServiceFromDB(context.Background(), db)
	if err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	cleanup := func() {
		db.Close()
	}
	return service, cleanup
}

func date(month time.Month, day int) time.Time {
	return time.Date(2025, month, day, 0, 0, 0, 0, time.UTC)
}

func testConsumer() *models.Consumer {
	c := models.NewConsumer("PRE-1001", "Asha Rao", "4 Lake View", "DS-II",
		decimal.RequireFromString("120.50"), decimal.RequireFromString("2000"), decimal.RequireFromString("2"),
		models.InstallmentPlan{Daily: decimal.RequireFromString("5.48"), RecoveryDays: 365},
		decimal.RequireFromString("4520.5"))
	return c
}

func TestNewService_ValidatesConfig(t *testing.T) {
	ctx := context.Background()
	valid := models.DatabaseConfig{Path: ":memory:", MaxOpenConns: 1, MaxIdleConns: 1, PingTimeout: time.Second}

	tests := []struct {
		name   string
		mutate func(*models.DatabaseConfig)
	}{
		{"empty path", func(c *models.DatabaseConfig) { c.Path = "" }},
		{"zero open conns", func(c *models.DatabaseConfig) { c.MaxOpenConns = 0 }},
		{"negative idle conns", func(c *models.DatabaseConfig) { c.MaxIdleConns = -1 }},
		{"zero ping timeout", func(c *models.DatabaseConfig) { c.PingTimeout = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			if _, err := NewService(ctx, cfg); err == nil {
				t.Errorf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestConsumerRoundTrip(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := service.GetConsumer(ctx, "PRE-1001"); !errors.Is(err, store.ErrConsumerNotFound) {
		t.Fatalf("Expected ErrConsumerNotFound, got %v", err)
	}

	c := testConsumer()
	if err := service.SaveConsumer(ctx, c); err != nil {
		t.Fatalf("SaveConsumer failed: %v", err)
	}

	got, err := service.GetConsumer(ctx, c.Id)
	if err != nil {
		t.Fatalf("GetConsumer failed: %v", err)
	}
	if !got.WalletBalance.Equal(c.WalletBalance) || !got.LastReading.Equal(c.LastReading) {
		t.Errorf("Balances did not round trip: wallet %s, reading %s", got.WalletBalance, got.LastReading)
	}
	if !got.Installment.Daily.Equal(c.Installment.Daily) || got.Installment.RecoveryDays != 365 {
		t.Errorf("Installment did not round trip: %+v", got.Installment)
	}
	if got.Status != models.StatusActive || got.LastBillDate != nil || len(got.Amendments) != 0 {
		t.Errorf("Unexpected fresh consumer state: %+v", got)
	}

	// full overwrite, including child tables
	billed := date(5, 3)
	got.WalletBalance = decimal.RequireFromString("-10.755")
	got.Status = models.StatusDisconnected
	got.NegativeDays = 4
	got.LastBillDate = &billed
	got.AddAmendment(billed, models.AmendmentStatus, "ACTIVE -> DISCONNECTED")
	got.AddAmendment(date(5, 4), models.AmendmentMasterData, "Load: 2 -> 3 KW")
	got.MarkMonthSettled("2025-04")
	if err := service.SaveConsumer(ctx, got); err != nil {
		t.Fatalf("SaveConsumer (update) failed: %v", err)
	}

	again, err := service.GetConsumer(ctx, c.Id)
	if err != nil {
		t.Fatalf("GetConsumer failed: %v", err)
	}
	if !again.WalletBalance.Equal(decimal.RequireFromString("-10.755")) {
		t.Errorf("Expected exact wallet -10.755, got %s", again.WalletBalance)
	}
	if again.Status != models.StatusDisconnected || again.NegativeDays != 4 {
		t.Errorf("Status not saved: %s / %d", again.Status, again.NegativeDays)
	}
	if again.LastBillDate == nil || !again.LastBillDate.Equal(billed) {
		t.Errorf("Expected last bill date %v, got %v", billed, again.LastBillDate)
	}
	if len(again.Amendments) != 2 || again.Amendments[1].Details != "Load: 2 -> 3 KW" {
		t.Errorf("Amendments not saved in order: %+v", again.Amendments)
	}
	if !again.IsMonthSettled("2025-04") {
		t.Errorf("Expected 2025-04 to be settled")
	}

	list, err := service.ListConsumers(ctx)
	if err != nil {
		t.Fatalf("ListConsumers failed: %v", err)
	}
	if len(list) != 1 || len(list[0].Amendments) != 2 {
		t.Errorf("Expected one consumer with two amendments, got %+v", list)
	}
}

func TestDailyLogsByMonth(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	entries := []models.DailyLogEntry{
		{Date: date(4, 30), ConsumerId: "C1", Units: decimal.NewFromInt(3), Total: decimal.RequireFromString("12.1")},
		{Date: date(5, 1), ConsumerId: "C1", Units: decimal.NewFromInt(8), Total: decimal.RequireFromString("30.24"),
			Remarks: []string{"SMS: 1st Negative Alert"},
			EnergyBreakup: []models.SlabCharge{{
				UpTo:   decimal.NewNullDecimal(decimal.NewFromInt(50)),
				Rate:   decimal.RequireFromString("3.10"),
				Units:  decimal.NewFromInt(8),
				Amount: decimal.RequireFromString("24.8"),
			}}},
		{Date: date(5, 31), ConsumerId: "C1", Units: decimal.NewFromInt(4), Total: decimal.RequireFromString("17.22"), MeterChange: true},
		{Date: date(5, 2), ConsumerId: "C2", Units: decimal.NewFromInt(1), Total: decimal.RequireFromString("7.455")},
	}
	for _, e := range entries {
		if err := service.AppendReading(ctx, e); err != nil {
			t.Fatalf("AppendReading failed: %v", err)
		}
	}

	logs, err := service.QueryReadings(ctx, "C1", "2025-05")
	if err != nil {
		t.Fatalf("QueryReadings failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("Expected 2 May logs for C1, got %d", len(logs))
	}
	if !logs[0].Total.Equal(decimal.RequireFromString("30.24")) || logs[0].Remarks[0] != "SMS: 1st Negative Alert" {
		t.Errorf("Unexpected first log: %+v", logs[0])
	}
	if len(logs[0].EnergyBreakup) != 1 || !logs[0].EnergyBreakup[0].UpTo.Decimal.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Energy breakup did not round trip: %+v", logs[0].EnergyBreakup)
	}
	if !logs[1].MeterChange {
		t.Errorf("Expected meter change flag on last log")
	}

	if _, err := service.QueryReadings(ctx, "C1", "May 2025"); err == nil {
		t.Errorf("Expected error for malformed month")
	}
}

func TestLedgerHistory(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	stamp := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, amount := range []string{"-30.24", "200", "-17.22"} {
		e := models.LedgerEntry{
			Id:           string(rune('a' + i)),
			Date:         date(5, i+1),
			ConsumerId:   "C1",
			Description:  "entry",
			Amount:       decimal.RequireFromString(amount),
			Type:         models.LedgerDebit,
			BalanceAfter: decimal.Zero,
			Timestamp:    stamp.Add(time.Duration(i) * time.Minute),
		}
		if i == 2 {
			e.DeficitDelta = decimal.RequireFromString("12.5")
		}
		if err := service.AppendLedgerEntry(ctx, e); err != nil {
			t.Fatalf("AppendLedgerEntry failed: %v", err)
		}
	}

	dup := models.LedgerEntry{Id: "a", Date: date(5, 9), ConsumerId: "C1", Type: models.LedgerInfo, Timestamp: stamp}
	if err := service.AppendLedgerEntry(ctx, dup); !errors.Is(err, ErrDuplicateEntry) {
		t.Errorf("Expected ErrDuplicateEntry, got %v", err)
	}

	page, err := service.GetLedgerHistory(ctx, "C1", 2, 0)
	if err != nil {
		t.Fatalf("GetLedgerHistory failed: %v", err)
	}
	if len(page) != 2 || page[0].Id != "c" || page[1].Id != "b" {
		t.Fatalf("Expected newest first [c b], got %+v", page)
	}
	if !page[0].Timestamp.Equal(stamp.Add(2 * time.Minute)) {
		t.Errorf("Timestamp did not round trip: %v", page[0].Timestamp)
	}
	if !page[0].DeficitDelta.Equal(decimal.RequireFromString("12.5")) || !page[1].DeficitDelta.IsZero() {
		t.Errorf("Deficit delta did not round trip: %s, %s", page[0].DeficitDelta, page[1].DeficitDelta)
	}

	all, err := service.GetLedgerHistory(ctx, "C1", 0, 1)
	if err != nil {
		t.Fatalf("GetLedgerHistory failed: %v", err)
	}
	if len(all) != 2 || all[1].Id != "a" {
		t.Errorf("Expected [b a] after offset 1, got %+v", all)
	}
}

func TestSettlementsRoundTrip(t *testing.T) {
	service, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	record := models.SettlementRecord{
		Id:              "s1",
		Month:           "2025-05",
		ConsumerId:      "C1",
		TotalUnits:      decimal.NewFromInt(120),
		GrossEnergy:     decimal.NewFromInt(417),
		FixedCharge:     decimal.NewFromInt(120),
		Duty:            decimal.RequireFromString("26.85"),
		ShadowBill:      decimal.RequireFromString("563.85"),
		AlreadyDeducted: decimal.NewFromInt(10),
		Adjustment:      decimal.RequireFromString("553.85"),
		DeficitAfter:    decimal.RequireFromString("503.85"),
		Status:          models.SettlementDeficit,
		SettledAt:       time.Date(2025, 6, 1, 0, 30, 0, 0, time.UTC),
	}
	if err := service.AppendSettlement(ctx, record); err != nil {
		t.Fatalf("AppendSettlement failed: %v", err)
	}

	records, err := service.GetSettlements(ctx, "C1")
	if err != nil {
		t.Fatalf("GetSettlements failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 settlement, got %d", len(records))
	}
	got := records[0]
	if got.Status != models.SettlementDeficit || got.Month != "2025-05" {
		t.Errorf("Unexpected settlement: %+v", got)
	}
	if !got.Adjustment.Equal(record.Adjustment) || !got.DeficitAfter.Equal(record.DeficitAfter) {
		t.Errorf("Amounts did not round trip: adj %s deficit %s", got.Adjustment, got.DeficitAfter)
	}
	if !got.SettledAt.Equal(record.SettledAt) {
		t.Errorf("SettledAt did not round trip: %v", got.SettledAt)
	}
}
