package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"prepaid-billing-go/internal/models"
	"prepaid-billing-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(EngineConfig{})
	assert.Error(t, err)

	mem := store.NewMemoryStore()
	catalog, err := store.NewStaticTariffCatalog([]models.Tariff{domesticTariff()})
	require.NoError(t, err)
	cfg := EngineConfig{Consumers: mem, Tariffs: catalog, Readings: mem, Ledger: mem, Settlements: mem, Mode: "weekly"}
	_, err = NewEngine(cfg)
	assert.Error(t, err)

	cfg.Mode = ""
	engine, err := NewEngine(cfg)
	require.NoError(t, err)
	assert.Equal(t, EnergyModeSlab, engine.Mode())
}

func TestEngine_RunDailyPersists(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeFlat, newTestConsumer("100"))

	entry, err := env.engine.RunDaily(ctx, "C1", DailyInput{Reading: d("108"), MaxDemand: d("2"), Date: day(5, 1)})
	require.NoError(t, err)
	assertDecimal(t, "30.24", entry.Total)

	saved, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assertDecimal(t, "69.76", saved.WalletBalance)
	assertDecimal(t, "108", saved.LastReading)

	logs, err := env.store.QueryReadings(ctx, "C1", "2025-05")
	require.NoError(t, err)
	require.Len(t, logs, 1)

	ledger := env.store.LedgerEntries()
	require.Len(t, ledger, 1)
	assert.Equal(t, models.LedgerDebit, ledger[0].Type)
	assert.Equal(t, "Daily DCC Bill", ledger[0].Description)
	assertDecimal(t, "-30.24", ledger[0].Amount)
	assertDecimal(t, "69.76", ledger[0].BalanceAfter)
	assert.True(t, ledger[0].Timestamp.Equal(env.now))
}

func TestEngine_RunDailyFailureWritesNothing(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeSlab, newTestConsumer("100"))

	_, err := env.engine.RunDaily(ctx, "C1", DailyInput{Reading: d("99"), Date: day(5, 1)})
	require.ErrorIs(t, err, ErrNegativeConsumption)

	saved, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assertDecimal(t, "100", saved.WalletBalance)
	assertDecimal(t, "100", saved.LastReading)
	assert.Empty(t, env.store.LedgerEntries())

	_, err = env.engine.RunDaily(ctx, "missing", DailyInput{Reading: d("1"), Date: day(5, 1)})
	assert.ErrorIs(t, err, store.ErrConsumerNotFound)

	orphan := newTestConsumer("0")
	orphan.Id = "C2"
	orphan.CategoryId = "UNKNOWN"
	require.NoError(t, env.store.SaveConsumer(ctx, orphan))
	_, err = env.engine.RunDaily(ctx, "C2", DailyInput{Reading: d("101"), Date: day(5, 1)})
	assert.ErrorIs(t, err, ErrInvalidTariff)
}

func TestEngine_DisconnectAndReconnect(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeFlat, newTestConsumer("0"))

	reading := d("100")
	for i := 1; i <= 5; i++ {
		reading = reading.Add(d("8"))
		_, err := env.engine.RunDaily(ctx, "C1", DailyInput{Reading: reading, MaxDemand: d("1"), Date: day(5, i)})
		require.NoError(t, err)
	}
	c, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisconnected, c.Status)
	assert.Equal(t, 5, c.NegativeDays)
	assertDecimal(t, "-151.2", c.WalletBalance)

	out, err := env.engine.Recharge(ctx, "C1", d("200"), day(5, 6))
	require.NoError(t, err)
	assert.True(t, out.Reconnected)

	c, err = env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, c.Status)
	assert.Equal(t, 0, c.NegativeDays)
	assertDecimal(t, "48.8", c.WalletBalance)
	require.Len(t, c.Amendments, 2)
	assert.Equal(t, "DISCONNECTED -> ACTIVE", c.Amendments[1].Details)
}

func TestEngine_ReplaceMeter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeFlat, newTestConsumer("100"))

	entry, err := env.engine.ReplaceMeter(ctx, "C1", MeterChange{
		OldFinalReading:   d("104"),
		MaxDemand:         d("1"),
		NewInitialReading: d("0"),
		Date:              day(5, 2),
	})
	require.NoError(t, err)
	assert.True(t, entry.MeterChange)
	assertDecimal(t, "4", entry.Units)

	c, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assertDecimal(t, "0", c.LastReading)
	require.Len(t, c.Amendments, 1)
	assert.Equal(t, models.AmendmentMeterReplacement, c.Amendments[0].Type)

	ledger := env.store.LedgerEntries()
	require.Len(t, ledger, 1)
	assert.Equal(t, "Meter Changeout Final Bill", ledger[0].Description)

	// the new meter continues from its own reading
	entry, err = env.engine.RunDaily(ctx, "C1", DailyInput{Reading: d("3"), MaxDemand: d("1"), Date: day(5, 3)})
	require.NoError(t, err)
	assertDecimal(t, "3", entry.Units)
}

func TestEngine_ChangeMasterData(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeSlab, newTestConsumer("100"))

	load := d("5")
	c, err := env.engine.ChangeMasterData(ctx, "C1", MasterDataChange{LoadKw: &load, Date: day(5, 1)})
	require.NoError(t, err)
	assertDecimal(t, "5", c.LoadKw)
	require.Len(t, c.Amendments, 1)
	assert.Equal(t, models.AmendmentMasterData, c.Amendments[0].Type)
	assert.Equal(t, "Load: 2 -> 5 KW", c.Amendments[0].Details)

	c, err = env.engine.ChangeMasterData(ctx, "C1", MasterDataChange{LoadKw: &load, CategoryId: "DS-II", Date: day(5, 2)})
	require.NoError(t, err)
	assert.Len(t, c.Amendments, 1, "unchanged values append nothing")

	_, err = env.engine.ChangeMasterData(ctx, "C1", MasterDataChange{CategoryId: "NOPE", Date: day(5, 3)})
	assert.ErrorIs(t, err, ErrInvalidTariff)
}

func TestEngine_MigrateAndPayArrear(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeSlab)

	c, err := env.engine.Migrate(ctx, migrationParams("3000", "1000"))
	require.NoError(t, err)
	assert.Equal(t, "PRE-ACC-1001", c.Id)
	assert.Empty(t, env.store.LedgerEntries(), "no opening entry for an arrear account")

	_, err = env.engine.Migrate(ctx, migrationParams("3000", "1000"))
	assert.ErrorIs(t, err, store.ErrConsumerExists)

	p := migrationParams("0", "0")
	p.CategoryId = "NOPE"
	p.OldAccount = "ACC-2"
	_, err = env.engine.Migrate(ctx, p)
	assert.ErrorIs(t, err, ErrInvalidTariff)

	out, err := env.engine.PayArrear(ctx, "PRE-ACC-1001", d("500"), 0, day(5, 2))
	require.NoError(t, err)
	assertDecimal(t, "500", out.Paid)
	assert.Equal(t, 365, out.Installment.RecoveryDays)
	assertDecimal(t, "4.11", out.Installment.Daily)

	ledger := env.store.LedgerEntries()
	require.Len(t, ledger, 1)
	assert.Equal(t, models.LedgerInfo, ledger[0].Type)

	p = migrationParams("800", "1500")
	p.OldAccount = "ACC-3"
	c, err = env.engine.Migrate(ctx, p)
	require.NoError(t, err)
	assertDecimal(t, "700", c.WalletBalance)
	ledger = env.store.LedgerEntries()
	require.Len(t, ledger, 2)
	assert.Equal(t, "PRE-ACC-3", ledger[1].ConsumerId)
	assert.Equal(t, models.LedgerCredit, ledger[1].Type)
}

func TestEngine_SettleZeroAdjustmentAndReject(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeSlab, newTestConsumer("500"))

	// one unit a day for all 30 days of April keeps the month inside the first slab
	reading := d("100")
	for i := 1; i <= 30; i++ {
		reading = reading.Add(decimal.NewFromInt(1))
		_, err := env.engine.RunDaily(ctx, "C1", DailyInput{Reading: reading, MaxDemand: d("1"), Date: day(4, i)})
		require.NoError(t, err)
	}
	require.Len(t, env.store.LedgerEntries(), 30)

	record, err := env.engine.Settle(ctx, "C1", "2025-04")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementSuccess, record.Status)
	assertDecimal(t, "223.65", record.ShadowBill)
	assertDecimal(t, "0", record.Adjustment)
	assert.Len(t, env.store.LedgerEntries(), 30, "no ledger entry for a zero adjustment")

	c, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assert.True(t, c.IsMonthSettled("2025-04"))
	require.NotNil(t, c.LastSettlementDate)

	_, err = env.engine.Settle(ctx, "C1", "2025-04")
	assert.ErrorIs(t, err, ErrMonthAlreadySettled)
	settlements, err := env.store.GetSettlements(ctx, "C1")
	require.NoError(t, err)
	assert.Len(t, settlements, 1)
}

func TestEngine_SettleWithoutLogs(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeSlab, newTestConsumer("500"))

	record, err := env.engine.Settle(ctx, "C1", "2025-04")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementFailed, record.Status)

	c, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assert.False(t, c.IsMonthSettled("2025-04"))
	assert.Nil(t, c.LastSettlementDate)

	record, err = env.engine.Settle(ctx, "C1", "2025-04")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementFailed, record.Status)

	settlements, err := env.store.GetSettlements(ctx, "C1")
	require.NoError(t, err)
	assert.Len(t, settlements, 1, "a retried FAILED month is stored once")
}

func TestEngine_SettledMonthRejectsReadings(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeFlat, newTestConsumer("500"))
	env.now = time.Date(2025, time.May, 15, 9, 0, 0, 0, time.UTC)

	_, err := env.engine.RunDaily(ctx, "C1", DailyInput{Reading: d("108"), MaxDemand: d("1"), Date: day(5, 1)})
	require.NoError(t, err)

	_, err = env.engine.Settle(ctx, "C1", "2025-05")
	require.ErrorIs(t, err, ErrMonthNotEnded)
	settlements, err := env.store.GetSettlements(ctx, "C1")
	require.NoError(t, err)
	assert.Empty(t, settlements)

	env.now = time.Date(2025, time.June, 1, 0, 30, 0, 0, time.UTC)
	record, err := env.engine.Settle(ctx, "C1", "2025-05")
	require.NoError(t, err)
	assert.Equal(t, models.SettlementSuccess, record.Status)

	before, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	ledgerBefore := len(env.store.LedgerEntries())

	_, err = env.engine.RunDaily(ctx, "C1", DailyInput{Reading: d("116"), MaxDemand: d("1"), Date: day(5, 20)})
	require.ErrorIs(t, err, ErrMonthClosed)

	after, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Len(t, env.store.LedgerEntries(), ledgerBefore)
	logs, err := env.store.QueryReadings(ctx, "C1", "2025-05")
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = env.engine.RunDaily(ctx, "C1", DailyInput{Reading: d("116"), MaxDemand: d("1"), Date: day(6, 1)})
	assert.NoError(t, err)
}

func TestEngine_SettleRefundLeavesDisconnectedConsumerOff(t *testing.T) {
	core, recorded := observer.New(zapcore.WarnLevel)
	defer zap.ReplaceGlobals(zap.New(core))()

	ctx := context.Background()
	c := newTestConsumer("-20")
	c.Status = models.StatusDisconnected
	c.NegativeDays = 5
	env := newTestEnv(t, EnergyModeSlab, c)
	require.NoError(t, env.store.AppendReading(ctx, models.DailyLogEntry{
		Date: day(5, 3), ConsumerId: "C1", Units: d("8"), Total: d("200"),
	}))

	record, err := env.engine.Settle(ctx, "C1", "2025-05")
	require.NoError(t, err)
	assertDecimal(t, "-47.96", record.Adjustment)

	saved, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assertDecimal(t, "27.96", saved.WalletBalance)
	assert.Equal(t, 0, saved.NegativeDays)
	assert.Equal(t, models.StatusDisconnected, saved.Status)
	assert.Equal(t, 1, recorded.FilterMessage("Consumer remains disconnected until next recharge").Len())
}

func TestEngine_ConcurrentRechargesAreSerialized(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, EnergyModeSlab, newTestConsumer("0"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.engine.Recharge(ctx, "C1", d("10"), day(5, 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	c, err := env.store.GetConsumer(ctx, "C1")
	require.NoError(t, err)
	assertDecimal(t, "500", c.WalletBalance)
	assert.Len(t, env.store.LedgerEntries(), 50)
}
